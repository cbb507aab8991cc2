package extraction

import (
	"context"
	"fmt"
	"log"
	"time"

	"billscan/internal/domain"
	"billscan/internal/metrics"
)

// CallFunc sends prompt to a model and returns its raw text reply.
type CallFunc func(ctx context.Context, prompt string) (string, error)

// Invoke runs one model over OCR text: it builds the shared prompt, calls the
// model, decodes the reply and times the whole thing. Errors never escape;
// they are reported through ParseResult.Error with nil Data.
func Invoke(ctx context.Context, model, text string, call CallFunc) domain.ParseResult {
	start := time.Now()
	raw, err := call(ctx, BuildExtractionPrompt(text))
	if err != nil {
		return finish(Failed(model, err, time.Since(start)))
	}

	data, confidence, err := DecodeModelOutput(raw)
	if err != nil {
		return finish(Failed(model, fmt.Errorf("decoding model output: %w", err), time.Since(start)))
	}

	res := domain.ParseResult{
		Model:          model,
		Data:           data,
		ResponseTimeMs: time.Since(start).Milliseconds(),
	}
	if data != nil {
		res.Confidence = confidence
	}
	return finish(res)
}

// Failed builds the result of a model invocation that produced nothing.
func Failed(model string, err error, elapsed time.Duration) domain.ParseResult {
	res := domain.ParseResult{Model: model, ResponseTimeMs: elapsed.Milliseconds()}
	if err != nil {
		res.Error = fmt.Errorf("%w: %v", domain.ErrModelExtractionFailed, err).Error()
	}
	return res
}

func finish(res domain.ParseResult) domain.ParseResult {
	elapsed := time.Duration(res.ResponseTimeMs) * time.Millisecond
	metrics.ObserveModel(res.Model, res.Error == "", elapsed)
	switch {
	case res.Error != "":
		log.Printf("extraction.Invoke: %s failed (%s): %s", res.Model, elapsed, res.Error)
	case res.Data == nil:
		log.Printf("extraction.Invoke: %s returned no fields (%s)", res.Model, elapsed)
	default:
		log.Printf("extraction.Invoke: %s extracted %d fields (confidence=%.3f, %s)",
			res.Model, domain.CountPresent(res.Data), res.Confidence, elapsed)
	}
	return res
}

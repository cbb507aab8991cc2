package ocr

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"billscan/internal/domain"
	"billscan/internal/metrics"
	"billscan/internal/port"
)

// Aggregate runs every provider concurrently over document and returns the best
// usable result. It waits for all providers to finish or give up; a fast
// success does not cancel slower providers since they may still win on
// confidence.
func Aggregate(ctx context.Context, document []byte, providers []port.OCRProvider) domain.AggregatedOCRResult {
	results := make([]domain.EngineResult, len(providers))

	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			res := sanitize(p.Name(), p.Extract(ctx, document))
			elapsed := time.Since(start)

			metrics.ObserveOCR(p.Name(), res.Success, elapsed)
			if res.Success {
				log.Printf("ocr.Aggregate: %s succeeded (confidence=%.3f, chars=%d, %s)", p.Name(), res.Confidence, len(res.Text), elapsed)
			} else {
				log.Printf("ocr.Aggregate: %s failed (%s): %s", p.Name(), elapsed, res.Error)
			}
			results[i] = res
		}()
	}
	wg.Wait()

	return SelectBest(results)
}

// SelectBest picks the winning result: the successful one with the highest
// confidence, ties broken by longer text and then by input order. With no
// success it returns the first result as-is.
func SelectBest(results []domain.EngineResult) domain.AggregatedOCRResult {
	if len(results) == 0 {
		return domain.AggregatedOCRResult{}
	}

	best := -1
	for i, r := range results {
		if !r.Success || r.Text == "" {
			continue
		}
		if best < 0 || better(r, results[best]) {
			best = i
		}
	}

	winner := results[0]
	if best >= 0 {
		winner = results[best]
	}

	return domain.AggregatedOCRResult{
		Text:          winner.Text,
		Confidence:    winner.Confidence,
		KeyValuePairs: winner.KeyValuePairs,
		Success:       best >= 0,
		Engine:        winner.Engine,
		Attempts:      results,
	}
}

func better(a, b domain.EngineResult) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return len(a.Text) > len(b.Text)
}

// sanitize enforces the EngineResult invariants regardless of what the
// provider returned: confidence in [0,1], no success without text, no text
// without success.
func sanitize(engine string, r domain.EngineResult) domain.EngineResult {
	if r.Engine == "" {
		r.Engine = engine
	}
	r.Confidence = domain.ClampConfidence(r.Confidence)
	if r.Success && strings.TrimSpace(r.Text) == "" {
		r.Success = false
		if r.Error == "" {
			r.Error = fmt.Sprintf("%s returned no text", engine)
		}
	}
	if !r.Success {
		r.Text = ""
		r.Confidence = 0
		r.KeyValuePairs = nil
	}
	return r
}

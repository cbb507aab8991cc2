// Package pipeline runs a billing document through OCR, the extraction
// ensemble and the field mapper.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"billscan/internal/config"
	"billscan/internal/domain"
	"billscan/internal/extraction"
	"billscan/internal/mapper"
	"billscan/internal/metrics"
	"billscan/internal/ocr"
	"billscan/internal/port"
)

// Options selects the OCR providers and extraction models for one run, by
// name and in invocation order. Empty lists fall back to the pipeline
// defaults. Names with no configured implementation behave as not configured.
type Options struct {
	OCRProviders []string
	Models       []string
}

// Result is everything one pipeline run produced.
type Result struct {
	RunID     string                        `json:"runId"`
	OCR       domain.AggregatedOCRResult    `json:"ocr"`
	Consensus domain.ConsensusResult        `json:"consensus"`
	Mapped    domain.MappedAssessmentFields `json:"mapped"`
}

// Pipeline holds the configured providers and models. It is safe for
// concurrent use.
type Pipeline struct {
	providers  map[string]port.OCRProvider
	models     map[string]port.ExtractionModel
	defaults   Options
	docTimeout time.Duration
}

// New creates a pipeline over the given providers and models. Defaults list
// them all in the order given.
func New(providers []port.OCRProvider, models []port.ExtractionModel) *Pipeline {
	p := &Pipeline{
		providers: make(map[string]port.OCRProvider, len(providers)),
		models:    make(map[string]port.ExtractionModel, len(models)),
	}
	for _, pr := range providers {
		p.providers[pr.Name()] = pr
		p.defaults.OCRProviders = append(p.defaults.OCRProviders, pr.Name())
	}
	for _, m := range models {
		p.models[m.Name()] = m
		p.defaults.Models = append(p.defaults.Models, m.Name())
	}
	return p
}

// NewFromConfig builds every provider and model known to cfg through the
// registered factories. Defaults follow cfg.OCR.Providers and
// cfg.Models.Enabled.
func NewFromConfig(cfg *config.Config) *Pipeline {
	var providers []port.OCRProvider
	for _, pc := range cfg.OCR.All() {
		pr, err := ocr.NewProvider(pc)
		if err != nil {
			log.Printf("pipeline.NewFromConfig: skipping OCR provider %q: %v", pc.Provider, err)
			continue
		}
		providers = append(providers, pr)
	}

	var models []port.ExtractionModel
	for _, mc := range cfg.Models.All() {
		m, err := extraction.NewModel(mc)
		if err != nil {
			log.Printf("pipeline.NewFromConfig: skipping model %q: %v", mc.Provider, err)
			continue
		}
		models = append(models, m)
	}

	p := New(providers, models)
	p.defaults = Options{OCRProviders: cfg.OCR.Providers, Models: cfg.Models.Enabled}
	if cfg.Batch.DocTimeoutSecs > 0 {
		p.docTimeout = time.Duration(cfg.Batch.DocTimeoutSecs) * time.Second
	}
	return p
}

// WithDocumentTimeout bounds each document of a batch. Zero means no bound.
func (p *Pipeline) WithDocumentTimeout(d time.Duration) *Pipeline {
	p.docTimeout = d
	return p
}

// Defaults returns the provider and model names used when Options are empty.
func (p *Pipeline) Defaults() Options {
	return p.defaults
}

// ProcessDocument runs OCR, the extraction ensemble, consensus and mapping
// over document. It fails only when no OCR provider produced usable text
// (domain.ErrNoUsableOCRResult) or ctx is done. A run where no model produced
// anything still succeeds with an all-absent mapped record of unknown type.
func (p *Pipeline) ProcessDocument(ctx context.Context, document []byte, opts Options) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}
	opts = p.resolve(opts)

	log.Printf("pipeline[%s]: processing %d bytes (providers=%v, models=%v)",
		res.RunID, len(document), opts.OCRProviders, opts.Models)

	res.OCR = ocr.Aggregate(ctx, document, p.ocrProviders(opts.OCRProviders))
	if err := ctx.Err(); err != nil {
		metrics.RecordDocument("canceled", time.Since(start))
		return nil, err
	}
	if !res.OCR.Success {
		metrics.RecordDocument("no_ocr", time.Since(start))
		return nil, fmt.Errorf("run %s: %w: %d providers attempted, last error: %s",
			res.RunID, domain.ErrNoUsableOCRResult, len(res.OCR.Attempts), lastError(res.OCR.Attempts))
	}
	log.Printf("pipeline[%s]: OCR winner %s (confidence=%.3f, chars=%d)",
		res.RunID, res.OCR.Engine, res.OCR.Confidence, len(res.OCR.Text))

	results := extraction.RunEnsemble(ctx, p.extractionModels(opts.Models), res.OCR.Text)
	if err := ctx.Err(); err != nil {
		metrics.RecordDocument("canceled", time.Since(start))
		return nil, err
	}

	res.Consensus = extraction.BuildConsensus(results)
	res.Mapped = mapper.MapToAssessment(res.Consensus)

	outcome := "success"
	if len(res.Consensus.FieldAgreement) == 0 {
		outcome = "no_consensus"
		log.Printf("pipeline[%s]: %v: returning empty assessment", res.RunID, domain.ErrNoUsableConsensus)
	}
	metrics.RecordDocument(outcome, time.Since(start))
	log.Printf("pipeline[%s]: done in %s (documentType=%s, fields=%d, agreement=%.3f)",
		res.RunID, time.Since(start), res.Mapped.DocumentType, len(res.Mapped.FieldConfidence), res.Consensus.AgreementScore)

	return res, nil
}

func (p *Pipeline) resolve(opts Options) Options {
	if len(opts.OCRProviders) == 0 {
		opts.OCRProviders = p.defaults.OCRProviders
	}
	if len(opts.Models) == 0 {
		opts.Models = p.defaults.Models
	}
	return opts
}

func (p *Pipeline) ocrProviders(names []string) []port.OCRProvider {
	out := make([]port.OCRProvider, 0, len(names))
	for _, name := range names {
		if pr, ok := p.providers[name]; ok {
			out = append(out, pr)
			continue
		}
		out = append(out, ocr.Unavailable(name))
	}
	return out
}

func (p *Pipeline) extractionModels(names []string) []port.ExtractionModel {
	out := make([]port.ExtractionModel, 0, len(names))
	for _, name := range names {
		if m, ok := p.models[name]; ok {
			out = append(out, m)
			continue
		}
		out = append(out, extraction.Unavailable(name))
	}
	return out
}

func lastError(attempts []domain.EngineResult) string {
	for i := len(attempts) - 1; i >= 0; i-- {
		if attempts[i].Error != "" {
			return attempts[i].Error
		}
	}
	return "none"
}

//go:build tesseract

// Package tesseract is the local OCR provider. It links libtesseract through
// cgo and is only compiled with the tesseract build tag; without it the name
// "tesseract" resolves to a not-configured provider.
package tesseract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"billscan/internal/config"
	"billscan/internal/domain"
	"billscan/internal/ocr"
	"billscan/internal/port"
)

const name = "tesseract"

func init() {
	ocr.RegisterProvider(name, func(cfg *config.OCRProviderConfig) (port.OCRProvider, error) {
		return NewProvider(cfg), nil
	})
}

// Provider implements port.OCRProvider with a local Tesseract engine. It has
// no remote quota, so calls are not retried.
type Provider struct {
	factory   *ocr.LazyClient[func() *gosseract.Client]
	languages []string
}

// NewProvider creates a Tesseract provider. The engine is checked on first use;
// an engine reporting no version degrades to a not-configured result.
func NewProvider(cfg *config.OCRProviderConfig) *Provider {
	return &Provider{
		factory: ocr.NewLazyClient(func() (func() *gosseract.Client, error) {
			if gosseract.Version() == "" {
				return nil, errors.New("tesseract engine unavailable")
			}
			return gosseract.NewClient, nil
		}),
		languages: cfg.Languages,
	}
}

func (p *Provider) Name() string { return name }

// Extract runs OCR on an image. gosseract clients are not safe for concurrent
// use, so each call gets its own.
func (p *Provider) Extract(ctx context.Context, document []byte) domain.EngineResult {
	newClient, err := p.factory.Get()
	if err != nil {
		return ocr.NotConfigured(name, err)
	}
	if err := ctx.Err(); err != nil {
		return domain.FailedEngineResult(name, err)
	}

	c := newClient()
	defer func() { _ = c.Close() }()

	if len(p.languages) > 0 {
		if err := c.SetLanguage(p.languages...); err != nil {
			return domain.FailedEngineResult(name, fmt.Errorf("set languages: %w", err))
		}
	}
	if err := c.SetImageFromBytes(document); err != nil {
		return domain.FailedEngineResult(name, fmt.Errorf("set image: %w", err))
	}
	text, err := c.Text()
	if err != nil {
		return domain.FailedEngineResult(name, fmt.Errorf("recognize text: %w", err))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.FailedEngineResult(name, errors.New("no text detected"))
	}

	return domain.EngineResult{
		Engine:        name,
		Text:          text,
		Confidence:    wordConfidence(c),
		KeyValuePairs: ocr.KeyValueLines(text),
		Success:       true,
	}
}

func wordConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}

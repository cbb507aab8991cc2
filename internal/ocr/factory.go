package ocr

import (
	"context"
	"fmt"

	"billscan/internal/config"
	"billscan/internal/domain"
	"billscan/internal/port"
)

// ProviderFactory is a function that creates an OCRProvider from a provider config.
type ProviderFactory func(cfg *config.OCRProviderConfig) (port.OCRProvider, error)

// registry of OCR provider factories, populated by init() in each provider package
// or explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers an OCR provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewProvider creates an OCRProvider from a provider config using the registered factory.
func NewProvider(cfg *config.OCRProviderConfig) (port.OCRProvider, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown OCR provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// Unavailable returns a provider that always reports itself as not configured.
// It stands in for names that have no registered or configured provider.
func Unavailable(name string) port.OCRProvider {
	return unavailable(name)
}

type unavailable string

func (u unavailable) Name() string { return string(u) }

func (u unavailable) Extract(_ context.Context, _ []byte) domain.EngineResult {
	return NotConfigured(string(u), nil)
}

// NotConfigured is the soft-failure result a provider returns when it has no
// usable client.
func NotConfigured(engine string, reason error) domain.EngineResult {
	err := domain.ErrProviderNotConfigured
	if reason != nil {
		err = fmt.Errorf("%w: %v", domain.ErrProviderNotConfigured, reason)
	}
	return domain.FailedEngineResult(engine, err)
}

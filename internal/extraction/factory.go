package extraction

import (
	"context"
	"fmt"

	"billscan/internal/config"
	"billscan/internal/domain"
	"billscan/internal/port"
)

// ModelFactory is a function that creates an ExtractionModel from a model config.
type ModelFactory func(cfg *config.ModelProviderConfig) (port.ExtractionModel, error)

// registry of model factories, populated by init() in each model package
// or explicitly via RegisterModel.
var models = map[string]ModelFactory{}

// RegisterModel registers a model factory by name.
func RegisterModel(name string, factory ModelFactory) {
	models[name] = factory
}

// NewModel creates an ExtractionModel from a model config using the registered factory.
func NewModel(cfg *config.ModelProviderConfig) (port.ExtractionModel, error) {
	factory, ok := models[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown extraction model: %s", cfg.Provider)
	}
	return factory(cfg)
}

// Unavailable returns a model that always reports itself as not configured.
func Unavailable(name string) port.ExtractionModel {
	return unavailable(name)
}

type unavailable string

func (u unavailable) Name() string { return string(u) }

func (u unavailable) Extract(_ context.Context, _ string) domain.ParseResult {
	return Failed(string(u), domain.ErrProviderNotConfigured, 0)
}

package port

import (
	"context"

	"billscan/internal/domain"
)

// OCRProvider abstracts one external text-recognition service.
//
// Extract never returns an error: missing configuration, transport failures
// and exhausted retries all come back as an unsuccessful EngineResult so the
// aggregator can treat them uniformly.
type OCRProvider interface {
	Name() string
	Extract(ctx context.Context, document []byte) domain.EngineResult
}

package port

import (
	"context"

	"billscan/internal/domain"
)

// ExtractionModel abstracts an external structured-extraction model. A failed
// invocation is reported through ParseResult.Error with nil Data.
type ExtractionModel interface {
	Name() string
	Extract(ctx context.Context, text string) domain.ParseResult
}

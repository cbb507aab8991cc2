package extraction

import (
	"context"
	"sync"

	"billscan/internal/domain"
	"billscan/internal/port"
)

// RunEnsemble runs every model over text concurrently and returns their
// results in model order. A failing model never aborts the others.
func RunEnsemble(ctx context.Context, models []port.ExtractionModel, text string) []domain.ParseResult {
	results := make([]domain.ParseResult, len(models))

	var wg sync.WaitGroup
	for i, m := range models {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := m.Extract(ctx, text)
			if res.Model == "" {
				res.Model = m.Name()
			}
			res.Confidence = domain.ClampConfidence(res.Confidence)
			if res.Data == nil {
				res.Confidence = 0
			}
			results[i] = res
		}()
	}
	wg.Wait()

	return results
}

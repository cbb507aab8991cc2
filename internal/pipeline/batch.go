package pipeline

import (
	"context"
	"log"
	"sync"
)

// Document is one input of a batch.
type Document struct {
	Name  string
	Bytes []byte
}

// BatchResult pairs a batch input with its outcome. Exactly one of Result
// and Err is set.
type BatchResult struct {
	Name   string
	Result *Result
	Err    error
}

// ProcessBatch runs ProcessDocument over docs with at most concurrency
// documents in flight. Results are returned in input order. Once ctx is done,
// documents not yet started fail with ctx.Err().
func (p *Pipeline) ProcessBatch(ctx context.Context, docs []Document, opts Options, concurrency int) []BatchResult {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]BatchResult, len(docs))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	log.Printf("pipeline.ProcessBatch: started (documents=%d, concurrency=%d)", len(docs), concurrency)

	for i := range docs {
		doc := docs[i]
		results[i].Name = doc.Name

		select {
		case <-ctx.Done():
			results[i].Err = ctx.Err()
			continue
		case sem <- struct{}{}: // acquire
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }() // release

			docCtx := ctx
			if p.docTimeout > 0 {
				var cancel context.CancelFunc
				docCtx, cancel = context.WithTimeout(ctx, p.docTimeout)
				defer cancel()
			}

			log.Printf("pipeline.ProcessBatch: dispatching %s", doc.Name)
			res, err := p.ProcessDocument(docCtx, doc.Bytes, opts)
			if err != nil {
				log.Printf("pipeline.ProcessBatch: %s failed: %v", doc.Name, err)
			}
			results[i].Result = res
			results[i].Err = err
		}()
	}
	wg.Wait()

	return results
}

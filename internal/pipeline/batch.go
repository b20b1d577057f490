package pipeline

import (
	"context"
	"sync"
)

// batchResult carries one task's outcome back to the coordinator in input
// order.
type batchResult[R any] struct {
	Value R
	Err   error
}

// runBatch fans items out over a bounded worker pool and joins the whole
// batch. Results come back positionally; a failing task records its error
// and never cancels siblings. Merging results stays with the caller, so all
// coordinator state mutation is sequential.
func runBatch[T, R any](ctx context.Context, workers int, items []T, fn func(context.Context, T) (R, error)) []batchResult[R] {
	if workers < 1 {
		workers = 1
	}
	results := make([]batchResult[R], len(items))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			v, err := fn(ctx, item)
			results[i] = batchResult[R]{Value: v, Err: err}
		}(i, item)
	}
	wg.Wait()
	return results
}

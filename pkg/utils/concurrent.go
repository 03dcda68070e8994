package utils

import (
	"context"
	"sync"
)

// Worker processes a single item.
type Worker[T any, R any] func(ctx context.Context, item T) (R, error)

// WorkerPool runs a Worker over a slice of items with bounded concurrency.
//
// Workers are started by ProcessItems and stop when the items are exhausted
// or the context is cancelled. Panics inside a worker become a *PanicError
// for that item.
//
//	pool := NewWorkerPool(4, func(ctx context.Context, item string) (int, error) {
//	    return len(item), nil
//	})
//	results, errs := pool.ProcessItems(ctx, []string{"a", "bb", "ccc"})
type WorkerPool[T any, R any] struct {
	numWorkers int
	worker     Worker[T, R]
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool[T any, R any](numWorkers int, worker Worker[T, R]) *WorkerPool[T, R] {
	if numWorkers <= 0 {
		numWorkers = GetSemaphoreLimit()
	}
	return &WorkerPool[T, R]{
		numWorkers: numWorkers,
		worker:     worker,
	}
}

type indexed[T any] struct {
	item  T
	index int
}

// ProcessItems returns index-aligned results and errors. Items not reached
// before cancellation carry the context error.
func (wp *WorkerPool[T, R]) ProcessItems(ctx context.Context, items []T) ([]R, []error) {
	if len(items) == 0 {
		return nil, nil
	}

	itemsChan := make(chan indexed[T], len(items))
	for i, item := range items {
		itemsChan <- indexed[T]{item: item, index: i}
	}
	close(itemsChan)

	results := make([]R, len(items))
	errs := make([]error, len(items))
	done := make([]bool, len(items))
	var wg sync.WaitGroup

	for i := 0; i < min(wp.numWorkers, len(items)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case it, ok := <-itemsChan:
					if !ok {
						return
					}
					func() {
						defer RecoverWithCallback(func(err error) {
							errs[it.index] = err
						})
						results[it.index], errs[it.index] = wp.worker(ctx, it.item)
					}()
					done[it.index] = true
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	wg.Wait()
	for i := range done {
		if !done[i] && errs[i] == nil {
			errs[i] = ctx.Err()
		}
	}
	return results, errs
}

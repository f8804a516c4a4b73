package pool

import (
	"context"
	"sync"
)

// MapFunc processes an item and returns a value for it.
type MapFunc[T, R any] func(ctx context.Context, item T) (R, error)

// Result is the outcome of one item processed by Map.
type Result[T, R any] struct {
	Item  T
	Value R
	Err   error
}

// Map processes items with numWorkers goroutines and returns one Result per
// item that was started, in the order of items. Items not started because
// ctx was cancelled are left out.
func Map[T, R any](ctx context.Context, items []T, numWorkers int, fn MapFunc[T, R]) []Result[T, R] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	type task struct {
		index int
		item  T
	}

	var wg sync.WaitGroup
	tasks := make(chan task, numWorkers)
	results := make([]Result[T, R], len(items))
	started := make([]bool, len(items))

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				select {
				case <-ctx.Done():
					return
				default:
				}
				started[t.index] = true
				v, err := fn(ctx, t.item)
				results[t.index] = Result[T, R]{Item: t.item, Value: v, Err: err}
			}
		}()
	}

OUT:
	for i, item := range items {
		select {
		case tasks <- task{index: i, item: item}:
		case <-ctx.Done():
			break OUT
		}
	}
	close(tasks)
	wg.Wait()

	out := make([]Result[T, R], 0, len(items))
	for i, r := range results {
		if started[i] {
			out = append(out, r)
		}
	}
	return out
}

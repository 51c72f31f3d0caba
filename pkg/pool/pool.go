package pool

import (
	"context"
	"sync"
)

// MapFunc processes one item and may fail.
type MapFunc[T, R any] func(ctx context.Context, item T) (R, error)

// Map runs fn over items on numWorkers goroutines. results[i] and errs[i]
// belong to items[i]; items never started because ctx was cancelled get
// ctx.Err() as their error.
func Map[T, R any](ctx context.Context, items []T, numWorkers int, fn MapFunc[T, R]) ([]R, []error) {
	results := make([]R, len(items))
	errs := make([]error, len(items))
	if numWorkers < 1 {
		numWorkers = 1
	}

	var wg sync.WaitGroup
	taskChan := make(chan int, numWorkers)

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range taskChan {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					continue
				}
				results[i], errs[i] = fn(ctx, items[i])
			}
		}()
	}

	next := 0
OUT:
	for ; next < len(items); next++ {
		select {
		case taskChan <- next:
		case <-ctx.Done():
			// Stop feeding tasks if the context is cancelled
			break OUT
		}
	}
	close(taskChan)
	wg.Wait()

	for i := next; i < len(items); i++ {
		errs[i] = ctx.Err()
	}
	return results, errs
}

// FirstError returns the first non-nil error in errs.
func FirstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

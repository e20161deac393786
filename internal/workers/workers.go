package workers

import (
	"context"
	"runtime"
	"sync"
)

// Count returns a worker count for a task type. A positive override wins,
// otherwise GOMAXPROCS (which follows container CPU limits) is scaled by the
// multiplier. The result is at least 1 and at most limit when limit > 0.
func Count(override int, multiplier float64, limit int) int {
	n := override
	if n <= 0 {
		n = int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	}
	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}

// ForIO returns worker count for tasks that mostly wait on a child process
// or the disk (2 per CPU).
func ForIO(override, limit int) int {
	return Count(override, 2.0, limit)
}

// Each runs fn for every item using n goroutines. It stops handing out items
// once ctx is done and returns after all started calls have finished.
func Each[T any](ctx context.Context, n int, items []T, fn func(context.Context, T)) {
	if n < 1 {
		n = 1
	}
	if n > len(items) {
		n = len(items)
	}

	jobs := make(chan T)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				fn(ctx, item)
			}
		}()
	}

feed:
	for _, item := range items {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- item:
		}
	}
	close(jobs)
	wg.Wait()
}

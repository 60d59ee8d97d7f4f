// Package parallel contains the fan-out helpers shared by the estimators.
//
// Work items are addressed by index, so results written by fn into a
// caller-owned slice keep submission order regardless of completion order.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/gosurv/pkg/errors"
)

// Workers resolves a requested degree of parallelism.
// n <= 0 means one worker per CPU; the result never exceeds items (and is at least 1).
func Workers(n, items int) int {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if items > 0 && n > items {
		n = items
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Parallelize divides items into contiguous ranges, one per worker,
// and executes fn(start, end) for each range in parallel.
func Parallelize(items, workers int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := Workers(workers, items)

	// Ceiling division
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) sequentially when items <= threshold,
// otherwise behaves like Parallelize.
func ParallelizeWithThreshold(items, threshold, workers int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, workers, fn)
}

// ForEach calls fn(i) for every i in [0, n) using at most workers goroutines.
//
// It is fail-fast: once a call fails, indices above the lowest failed index
// are no longer started. Indices below it always run, so the returned error
// is the one of the lowest failing index regardless of scheduling. A panic
// inside fn is converted into a *errors.PanicError for that index.
func ForEach(n, workers int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}

	numWorkers := Workers(workers, n)
	errs := make([]error, n)

	if numWorkers == 1 {
		for i := 0; i < n; i++ {
			if err := call(fn, i); err != nil {
				return err
			}
		}
		return nil
	}

	var (
		g       errgroup.Group
		minFail atomic.Int64
	)
	minFail.Store(int64(n))
	g.SetLimit(numWorkers)

	// Go blocks while all workers are busy, so items start in index order.
	for i := 0; i < n; i++ {
		if int64(i) > minFail.Load() {
			break
		}
		g.Go(func() error {
			if int64(i) > minFail.Load() {
				return nil
			}
			if err := call(fn, i); err != nil {
				errs[i] = err
				for {
					cur := minFail.Load()
					if int64(i) >= cur || minFail.CompareAndSwap(cur, int64(i)) {
						break
					}
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func call(fn func(i int) error, i int) (err error) {
	defer errors.Recover(&err, "parallel.ForEach")
	return fn(i)
}

// Package parallel provides bounded fan-out helpers for the optimizer and the
// reference models.
package parallel

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
//
// The zero value runs everything sequentially.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 16,
	}
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || cfg.NumWorkers < 2 || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// ForErr executes f(i) for i in [0, n) and returns the error of the lowest
// failing index, or nil.
//
// Unlike For, every item is its own task: ForErr is meant for a handful of
// heavy, independent items such as variational parameter groups. At most
// NumWorkers tasks run at once. All tasks run to completion even when one
// fails, so the reported error does not depend on scheduling.
func ForErr(n int, f func(i int) error, cfg Config) error {
	errs := make([]error, n)
	if !cfg.Enabled || cfg.NumWorkers < 2 || n < 2 {
		for i := 0; i < n; i++ {
			errs[i] = f(i)
		}
		return first(errs)
	}

	var g errgroup.Group
	g.SetLimit(cfg.NumWorkers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			errs[i] = f(i)
			return nil
		})
	}
	_ = g.Wait()
	return first(errs)
}

func first(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

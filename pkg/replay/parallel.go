package replay

import "golang.org/x/sync/errgroup"

// minChunk is the smallest slice handed to a single worker.
const minChunk = 4096

// parallelFor splits [0, n) into contiguous chunks and runs fn on each.
// It returns once every chunk has finished, so consecutive calls act as a
// barrier between passes.
func parallelFor(n, workers int, fn func(lo, hi int)) {
	parallelAny(n, workers, func(lo, hi int) bool {
		fn(lo, hi)
		return false
	})
}

// parallelAny is parallelFor for chunk functions that report a flag. It
// returns true if any chunk returned true.
func parallelAny(n, workers int, fn func(lo, hi int) bool) bool {
	if n == 0 {
		return false
	}
	if workers <= 1 || n <= minChunk {
		return fn(0, n)
	}

	chunk := max((n+workers-1)/workers, minChunk)
	results := make([]bool, (n+chunk-1)/chunk)

	var g errgroup.Group
	g.SetLimit(workers)
	for c := range results {
		c := c
		lo := c * chunk
		hi := min(lo+chunk, n)
		g.Go(func() error {
			results[c] = fn(lo, hi)
			return nil
		})
	}
	// Wait is the barrier; chunk functions never return an error.
	_ = g.Wait()

	for _, r := range results {
		if r {
			return true
		}
	}
	return false
}

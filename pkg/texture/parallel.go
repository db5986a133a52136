package texture

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minRowsPerTask keeps tiny rasters from paying goroutine overhead.
const minRowsPerTask = 16

// forRows runs fn over [0, n) split into contiguous row ranges and returns
// once every range has finished. Workers <= 0 means GOMAXPROCS.
func forRows(n, workers int, fn func(lo, hi int)) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 || n <= minRowsPerTask {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	if chunk < minRowsPerTask {
		chunk = minRowsPerTask
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}

package som

import (
	"math"

	"golang.org/x/sync/errgroup"
)

// parallelThreshold is the lattice size below which a sequential scan wins
// over goroutine start-up.
const parallelThreshold = 4096

// candidate is the best cell found by a scan over a contiguous range.
type candidate struct {
	index int
	dist  float32
}

// bmu scans the lattice in row-major order. A cell replaces the current best
// only when strictly closer, so ties keep the earliest cell.
func (e *Engine) bmu(input Node) Point {
	n := e.lattice.Len()

	var best candidate
	if e.workers > 1 && n >= parallelThreshold {
		best = e.scanParallel(input, e.workers)
	} else {
		best = e.scan(input, 0, n)
	}

	if best.index < 0 {
		// every distance was NaN; fall back to the first cell
		best.index = 0
	}
	return Point{Row: best.index / e.lattice.cols, Col: best.index % e.lattice.cols}
}

// scan returns the earliest minimum in [from, to), or index -1 if no cell
// has a distance below +Inf.
func (e *Engine) scan(input Node, from, to int) candidate {
	best := candidate{index: -1, dist: float32(math.Inf(1))}
	for i := from; i < to; i++ {
		if d := input.Distance(e.lattice.cell(i)); d < best.dist {
			best = candidate{index: i, dist: d}
		}
	}
	return best
}

// scanParallel splits the buffer into contiguous chunks, scans them
// concurrently, then merges the chunk winners in chunk order with the same
// strict comparison. The result is identical to scan(input, 0, n).
func (e *Engine) scanParallel(input Node, workers int) candidate {
	n := e.lattice.Len()
	chunk := (n + workers - 1) / workers
	results := make([]candidate, workers)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		from := w * chunk
		to := min(from+chunk, n)
		if from >= to {
			results[w] = candidate{index: -1, dist: float32(math.Inf(1))}
			continue
		}
		g.Go(func() error {
			results[w] = e.scan(input, from, to)
			return nil
		})
	}
	// Wait only joins the workers: scan has no failure path.
	_ = g.Wait()

	best := candidate{index: -1, dist: float32(math.Inf(1))}
	for _, r := range results {
		if r.index >= 0 && r.dist < best.dist {
			best = r
		}
	}
	return best
}

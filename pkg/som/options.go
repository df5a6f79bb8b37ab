package som

import (
	"fmt"
	"math"
)

// Options configures a new Engine.
type Options struct {
	// Rows and Cols are the lattice dimensions; min(Rows, Cols) must be > 2.
	Rows int
	Cols int

	// Dim is the number of components per node. Default: 3.
	Dim int

	// LearnRate is the initial learning rate, conventionally in (0, 1].
	LearnRate float64

	// TotalIterations shapes the decay of both schedules. The engine does not
	// stop at this count; the caller's loop does.
	TotalIterations int

	// Workers bounds the goroutines used by the BMU scan. 0 picks a value from
	// the detected core count, 1 forces a sequential scan.
	Workers int
}

// DefaultOptions returns the configuration of the reference colour map:
// a 32x32 lattice of RGB nodes trained for 2000 steps at rate 0.1.
func DefaultOptions() Options {
	return Options{
		Rows:            32,
		Cols:            32,
		Dim:             3,
		LearnRate:       0.1,
		TotalIterations: 2000,
	}
}

// Validate checks the constructor preconditions.
func (o Options) Validate() error {
	if o.Rows < 1 || o.Cols < 1 {
		return fmt.Errorf("invalid lattice size %dx%d", o.Rows, o.Cols)
	}
	if min(o.Rows, o.Cols) <= 2 {
		return fmt.Errorf("%dx%d: %w", o.Rows, o.Cols, ErrLatticeTooSmall)
	}
	if o.Dim < 1 {
		return ErrInvalidDimension
	}
	if o.TotalIterations <= 0 {
		return fmt.Errorf("%d: %w", o.TotalIterations, ErrInvalidIterations)
	}
	if math.IsNaN(o.LearnRate) || math.IsInf(o.LearnRate, 0) {
		return ErrInvalidLearnRate
	}
	if o.Workers < 0 {
		return fmt.Errorf("invalid worker count %d", o.Workers)
	}
	return nil
}

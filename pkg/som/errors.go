package som

import (
	"errors"
	"fmt"
)

// Errors returned by New when the options cannot describe a trainable map.
var (
	// ErrLatticeTooSmall means min(rows, cols) <= 2, which makes ln(sigma) <= 0
	// and the neighborhood decay constant meaningless.
	ErrLatticeTooSmall   = errors.New("lattice too small: min(rows, cols) must be greater than 2")
	ErrInvalidDimension  = errors.New("node dimension must be at least 1")
	ErrInvalidIterations = errors.New("total iterations must be positive")
	ErrInvalidLearnRate  = errors.New("learning rate must be a finite number")
	ErrNilSource         = errors.New("random source is nil")
	ErrRaggedLattice     = errors.New("lattice rows must all have the same length")
)

// DimensionError is the panic value raised when a vector of the wrong
// dimensionality is handed to the engine.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("som: node dimension mismatch: lattice has %d components, input has %d", e.Want, e.Got)
}

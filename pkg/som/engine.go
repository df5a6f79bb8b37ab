// Package som implements a Self-Organizing Map training engine.
//
// An Engine owns a 2-D lattice of weight vectors and a step counter. Each
// call to Update presents one sample: the engine finds the best-matching
// unit (BMU), evaluates the neighborhood radius and learning rate for the
// current step, and pulls every node inside the radius toward the sample
// with a Gaussian falloff of grid distance.
//
// Basic usage:
//
//	opts := som.DefaultOptions()
//	eng, err := som.New(opts, rand.New(rand.NewSource(1)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for i := 0; i < opts.TotalIterations; i++ {
//	    eng.Update(samples[i%len(samples)])
//	}
//
// An Engine is not safe for concurrent use; callers that read the lattice
// while training must serialize access themselves.
package som

import (
	"log/slog"
	"math"

	"github.com/sanonone/kektorsom/pkg/core/distance"
)

// Source yields uniform values in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float32() float32
}

// Engine trains a lattice one sample at a time.
type Engine struct {
	lattice  *Lattice
	schedule Schedule
	t        int
	workers  int
}

// New builds an engine whose nodes are drawn independently and uniformly
// from [-1, 1), component by component in row-major order.
func New(opts Options, src Source) (*Engine, error) {
	if opts.Dim == 0 {
		opts.Dim = 3
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, ErrNilSource
	}

	l := NewLattice(opts.Rows, opts.Cols, opts.Dim)
	for i := range l.data {
		l.data[i] = 2*src.Float32() - 1
	}

	return newEngine(l, opts), nil
}

// NewFromLattice builds an engine around a copy of an existing lattice. The
// lattice shape overrides Rows, Cols and Dim in opts.
func NewFromLattice(l *Lattice, opts Options) (*Engine, error) {
	opts.Rows, opts.Cols, opts.Dim = l.rows, l.cols, l.dim
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return newEngine(l.Clone(), opts), nil
}

func newEngine(l *Lattice, opts Options) *Engine {
	workers := opts.Workers
	if workers == 0 {
		workers = distance.Workers()
	}

	e := &Engine{
		lattice:  l,
		schedule: NewSchedule(opts.Rows, opts.Cols, opts.LearnRate, opts.TotalIterations),
		t:        1,
		workers:  workers,
	}

	slog.Debug("som engine created",
		"rows", opts.Rows,
		"cols", opts.Cols,
		"dim", opts.Dim,
		"sigma", e.schedule.Sigma,
		"lambda", e.schedule.Lambda,
		"workers", workers,
	)
	return e
}

// Size returns the lattice dimensions (rows, cols).
func (e *Engine) Size() (int, int) { return e.lattice.rows, e.lattice.cols }

// Dim returns the number of components per node.
func (e *Engine) Dim() int { return e.lattice.dim }

// Lattice returns a copy of the current weights.
func (e *Engine) Lattice() *Lattice { return e.lattice.Clone() }

// Step returns the step the next Update will train at. It starts at 1.
func (e *Engine) Step() int { return e.t }

// Schedule returns the decay parameters.
func (e *Engine) Schedule() Schedule { return e.schedule }

// Radius returns the neighborhood radius the next Update will use.
func (e *Engine) Radius() float64 { return e.schedule.Radius(e.t) }

// LearningRate returns the learning rate the next Update will use.
func (e *Engine) LearningRate() float64 { return e.schedule.LearningRate(e.t) }

// Update trains the lattice toward input and returns the BMU it used.
//
// input must have Dim() components; anything else panics with a
// *DimensionError. Update never stops at TotalIterations: further calls keep
// decaying both schedules.
func (e *Engine) Update(input Node) Point {
	e.checkInput(input)

	bmu := e.bmu(input)
	radius := e.schedule.Radius(e.t)
	rate := float32(e.schedule.LearningRate(e.t))

	// Cells further than ceil(radius) rows or columns away are at grid
	// distance >= radius and are never touched, so only the bounding box is visited.
	span := int(math.Ceil(radius))
	r0, r1 := max(0, bmu.Row-span), min(e.lattice.rows-1, bmu.Row+span)
	c0, c1 := max(0, bmu.Col-span), min(e.lattice.cols-1, bmu.Col+span)

	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			dist := GridDistance(Point{r, c}, bmu)
			if !inNeighborhood(dist, radius) {
				continue
			}
			i := r*e.lattice.cols + c
			node := e.lattice.cell(i)
			updated := node.Add(input.Sub(node).
				Scale(rate).
				Scale(float32(Impact(radius, dist))))
			e.lattice.set(i, updated)
		}
	}

	e.t++
	return bmu
}

// inNeighborhood reports whether a cell at grid distance dist from the BMU is
// trained. The boundary is exclusive.
func inNeighborhood(dist, radius float64) bool {
	return dist < radius
}

// Node returns a copy of the weights at p.
func (e *Engine) Node(p Point) Node {
	return e.lattice.At(p.Row, p.Col)
}

// BMU returns the best-matching unit for input without training.
func (e *Engine) BMU(input Node) Point {
	e.checkInput(input)
	return e.bmu(input)
}

// QuantizationError is the mean distance between each sample and its BMU.
func (e *Engine) QuantizationError(samples []Node) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		e.checkInput(s)
		p := e.bmu(s)
		// reporting only: the faster kernel's summation order does not matter here
		sq, _ := distance.SquaredEuclidean(s, e.lattice.cell(p.Row*e.lattice.cols+p.Col))
		sum += math.Sqrt(sq)
	}
	return sum / float64(len(samples))
}

func (e *Engine) checkInput(input Node) {
	if len(input) != e.lattice.dim {
		panic(&DimensionError{Want: e.lattice.dim, Got: len(input)})
	}
}

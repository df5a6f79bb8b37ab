package frames

import (
	"sync"

	"github.com/sanonone/kektorsom/pkg/core/distance"
	"github.com/sanonone/kektorsom/pkg/som"
	"github.com/tidwall/btree"
)

// Recorder stores frames ordered by step. When more than Capacity frames are
// held, the oldest is evicted. It is safe for concurrent use.
type Recorder struct {
	mu        sync.RWMutex
	tree      *btree.BTreeG[Frame]
	capacity  int
	precision distance.PrecisionType
}

// NewRecorder creates a recorder. capacity <= 0 means unbounded.
func NewRecorder(capacity int, precision distance.PrecisionType) *Recorder {
	if precision == "" {
		precision = distance.Float32
	}
	return &Recorder{
		tree:      btree.NewBTreeG[Frame](frameLess),
		capacity:  capacity,
		precision: precision,
	}
}

// frameLess orders frames by step.
func frameLess(a, b Frame) bool {
	return a.Step < b.Step
}

// Precision returns the storage precision of new frames.
func (r *Recorder) Precision() distance.PrecisionType { return r.precision }

// Record encodes l as the frame for step, replacing any frame already stored
// for that step.
func (r *Recorder) Record(step int, l *som.Lattice) (Frame, error) {
	f, err := Encode(step, l, r.precision)
	if err != nil {
		return Frame{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.tree.Set(f)
	for r.capacity > 0 && r.tree.Len() > r.capacity {
		r.tree.PopMin()
	}
	return f, nil
}

// At returns the latest frame whose step is <= step.
func (r *Recorder) At(step int) (Frame, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found Frame
	ok := false
	r.tree.Descend(Frame{Step: step}, func(f Frame) bool {
		found, ok = f, true
		return false
	})
	if !ok {
		return Frame{}, ErrNoFrame
	}
	return found, nil
}

// Latest returns the most recent frame.
func (r *Recorder) Latest() (Frame, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.tree.Max()
	if !ok {
		return Frame{}, ErrNoFrame
	}
	return f, nil
}

// Len returns the number of stored frames.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tree.Len()
}

// Steps lists the stored steps in ascending order.
func (r *Recorder) Steps() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	steps := make([]int, 0, r.tree.Len())
	r.tree.Scan(func(f Frame) bool {
		steps = append(steps, f.Step)
		return true
	})
	return steps
}

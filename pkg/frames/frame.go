// Package frames keeps an in-memory history of lattice snapshots taken during
// training, so a viewer can scrub back to the map as it was at any step.
//
// Frames can be stored at reduced precision. Float16 halves the memory of a
// history, Int8 quarters it at the cost of a per-frame quantization step.
package frames

import (
	"errors"
	"fmt"
	"time"

	"github.com/sanonone/kektorsom/pkg/core/distance"
	"github.com/sanonone/kektorsom/pkg/som"
	"github.com/x448/float16"
)

// ErrNoFrame is returned when no frame satisfies a lookup.
var ErrNoFrame = errors.New("no frame recorded at or before the requested step")

// Frame is an encoded lattice snapshot.
type Frame struct {
	Step      int                    `json:"step"`
	Rows      int                    `json:"rows"`
	Cols      int                    `json:"cols"`
	Dim       int                    `json:"dim"`
	Precision distance.PrecisionType `json:"precision"`
	CreatedAt time.Time              `json:"created_at"`

	f32   []float32
	f16   []uint16
	i8    []int8
	quant distance.Quantizer
}

// Encode snapshots l at the given precision.
func Encode(step int, l *som.Lattice, precision distance.PrecisionType) (Frame, error) {
	f := Frame{
		Step:      step,
		Rows:      l.Rows(),
		Cols:      l.Cols(),
		Dim:       l.Dim(),
		Precision: precision,
		CreatedAt: time.Now(),
	}

	values := l.Values()
	switch precision {
	case distance.Float32:
		f.f32 = values
	case distance.Float16:
		f.f16 = make([]uint16, len(values))
		for i, v := range values {
			f.f16[i] = float16.Fromfloat32(v).Bits()
		}
	case distance.Int8:
		f.quant.Train([][]float32{values})
		f.i8 = f.quant.Quantize(values)
	default:
		return Frame{}, fmt.Errorf("precision '%s' not supported for frames", precision)
	}
	return f, nil
}

// Values decodes the frame into a row-major float32 buffer.
func (f Frame) Values() []float32 {
	switch f.Precision {
	case distance.Float16:
		out := make([]float32, len(f.f16))
		for i, b := range f.f16 {
			out[i] = float16.Frombits(b).Float32()
		}
		return out
	case distance.Int8:
		return f.quant.Dequantize(f.i8)
	default:
		return append([]float32(nil), f.f32...)
	}
}

// Lattice decodes the frame into a lattice.
func (f Frame) Lattice() (*som.Lattice, error) {
	return som.FromValues(f.Rows, f.Cols, f.Dim, f.Values())
}

// SizeBytes is the memory taken by the encoded weights.
func (f Frame) SizeBytes() int {
	return len(f.f32)*4 + len(f.f16)*2 + len(f.i8)
}

// Drift is the mean per-node Euclidean distance between two frames of the
// same shape. Two float16 frames are compared without decoding.
func Drift(a, b Frame) (float64, error) {
	if a.Rows != b.Rows || a.Cols != b.Cols || a.Dim != b.Dim {
		return 0, fmt.Errorf("frame shapes differ: %dx%dx%d vs %dx%dx%d", a.Rows, a.Cols, a.Dim, b.Rows, b.Cols, b.Dim)
	}
	cells := a.Rows * a.Cols
	if cells == 0 {
		return 0, nil
	}

	var sum float64
	if a.Precision == distance.Float16 && b.Precision == distance.Float16 {
		for i := 0; i < cells; i++ {
			lo, hi := i*a.Dim, (i+1)*a.Dim
			d, err := distance.EuclideanFloat16(a.f16[lo:hi], b.f16[lo:hi])
			if err != nil {
				return 0, err
			}
			sum += d
		}
		return sum / float64(cells), nil
	}

	va, vb := a.Values(), b.Values()
	for i := 0; i < cells; i++ {
		lo, hi := i*a.Dim, (i+1)*a.Dim
		sum += float64(distance.Euclidean(va[lo:hi], vb[lo:hi]))
	}
	return sum / float64(cells), nil
}

package frames

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/sanonone/kektorsom/pkg/core/distance"
	"github.com/sanonone/kektorsom/pkg/som"
)

func randomLattice(t *testing.T, seed int64) *som.Lattice {
	t.Helper()
	eng, err := som.New(som.Options{Rows: 6, Cols: 5, Dim: 3, LearnRate: 0.1, TotalIterations: 10, Workers: 1},
		rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatal(err)
	}
	return eng.Lattice()
}

func TestEncodePrecisions(t *testing.T) {
	l := randomLattice(t, 1)
	want := l.Values()

	tests := []struct {
		precision distance.PrecisionType
		tolerance float64
		size      int
	}{
		{distance.Float32, 0, len(want) * 4},
		{distance.Float16, 1e-3, len(want) * 2},
		{distance.Int8, 1.0 / 127, len(want)},
	}
	for _, tc := range tests {
		t.Run(string(tc.precision), func(t *testing.T) {
			f, err := Encode(7, l, tc.precision)
			if err != nil {
				t.Fatal(err)
			}
			if f.SizeBytes() != tc.size {
				t.Errorf("SizeBytes = %d, want %d", f.SizeBytes(), tc.size)
			}
			got := f.Values()
			for i := range want {
				if diff := math.Abs(float64(got[i] - want[i])); diff > tc.tolerance {
					t.Fatalf("value %d: got %f, want %f", i, got[i], want[i])
				}
			}

			decoded, err := f.Lattice()
			if err != nil {
				t.Fatal(err)
			}
			if decoded.Rows() != 6 || decoded.Cols() != 5 || decoded.Dim() != 3 {
				t.Errorf("decoded shape %dx%dx%d", decoded.Rows(), decoded.Cols(), decoded.Dim())
			}
		})
	}

	if _, err := Encode(1, l, "bfloat16"); err == nil {
		t.Error("expected error for unknown precision")
	}
}

func TestRecorderLookup(t *testing.T) {
	rec := NewRecorder(0, distance.Float32)
	if _, err := rec.Latest(); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("empty recorder: got %v", err)
	}

	for _, step := range []int{10, 20, 30} {
		if _, err := rec.Record(step, randomLattice(t, int64(step))); err != nil {
			t.Fatal(err)
		}
	}

	cases := []struct {
		query int
		want  int
	}{
		{10, 10}, {15, 10}, {29, 20}, {30, 30}, {1000, 30},
	}
	for _, tc := range cases {
		f, err := rec.At(tc.query)
		if err != nil {
			t.Fatalf("At(%d): %v", tc.query, err)
		}
		if f.Step != tc.want {
			t.Errorf("At(%d).Step = %d, want %d", tc.query, f.Step, tc.want)
		}
	}

	if _, err := rec.At(5); !errors.Is(err, ErrNoFrame) {
		t.Errorf("At(5): got %v, want ErrNoFrame", err)
	}

	latest, _ := rec.Latest()
	if latest.Step != 30 {
		t.Errorf("Latest().Step = %d, want 30", latest.Step)
	}
}

func TestRecorderEvictsOldest(t *testing.T) {
	rec := NewRecorder(3, distance.Float16)
	for step := 1; step <= 5; step++ {
		rec.Record(step*100, randomLattice(t, int64(step)))
	}

	if rec.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", rec.Len())
	}
	steps := rec.Steps()
	want := []int{300, 400, 500}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("Steps() = %v, want %v", steps, want)
		}
	}
}

func TestDrift(t *testing.T) {
	a := randomLattice(t, 1)
	b := randomLattice(t, 2)

	for _, p := range []distance.PrecisionType{distance.Float32, distance.Float16} {
		fa, _ := Encode(1, a, p)
		fb, _ := Encode(2, b, p)
		same, err := Drift(fa, fa)
		if err != nil || same != 0 {
			t.Errorf("%s: drift of a frame with itself = %f, %v", p, same, err)
		}
		d, err := Drift(fa, fb)
		if err != nil {
			t.Fatal(err)
		}
		if d <= 0 {
			t.Errorf("%s: expected positive drift, got %f", p, d)
		}
	}

	small, _ := som.FromValues(3, 3, 3, make([]float32, 27))
	fa, _ := Encode(1, a, distance.Float32)
	fs, _ := Encode(1, small, distance.Float32)
	if _, err := Drift(fa, fs); err == nil {
		t.Error("expected shape mismatch error")
	}
}

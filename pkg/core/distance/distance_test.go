package distance

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/x448/float16"
)

// floatsAreEqual compares with a fixed tolerance.
func floatsAreEqual(a, b float64) bool {
	const tolerance = 1e-6
	return math.Abs(a-b) < tolerance
}

func TestImplementations(t *testing.T) {
	t.Run("Euclidean", func(t *testing.T) {
		v1, v2 := []float32{1, 2, 3}, []float32{4, 6, 3}
		if got := Euclidean(v1, v2); !floatsAreEqual(float64(got), 5) {
			t.Errorf("got %f, want 5", got)
		}
	})

	t.Run("EuclideanZeroLength", func(t *testing.T) {
		if got := Euclidean(nil, nil); got != 0 {
			t.Errorf("got %f, want 0", got)
		}
	})

	t.Run("SquaredEuclidean", func(t *testing.T) {
		v1, v2 := []float32{1, 2}, []float32{3, 4}
		dist, err := SquaredEuclidean(v1, v2)
		if err != nil {
			t.Fatal(err)
		}
		if !floatsAreEqual(dist, 8) {
			t.Errorf("got %f, want 8", dist)
		}
	})

	t.Run("KernelsAgree", func(t *testing.T) {
		v1, v2 := generateVectors(300)
		goDist, _ := squaredEuclideanGo(v1, v2)
		gonumDist, _ := squaredEuclideanGonum(v1, v2)
		if math.Abs(goDist-gonumDist) > 1e-3 {
			t.Errorf("pure go %f vs gonum %f", goDist, gonumDist)
		}
	})

	t.Run("EuclideanFloat16", func(t *testing.T) {
		v1f, v2f := []float32{1, 2}, []float32{4, 6}
		v1 := make([]uint16, len(v1f))
		v2 := make([]uint16, len(v2f))
		for i := range v1f {
			v1[i] = float16.Fromfloat32(v1f[i]).Bits()
			v2[i] = float16.Fromfloat32(v2f[i]).Bits()
		}
		dist, err := EuclideanFloat16(v1, v2)
		if err != nil {
			t.Fatal(err)
		}
		if !floatsAreEqual(dist, 5) {
			t.Errorf("got %f, want 5", dist)
		}
	})

	t.Run("LengthMismatch", func(t *testing.T) {
		if _, err := SquaredEuclidean([]float32{1}, []float32{1, 2}); err != ErrLengthMismatch {
			t.Errorf("expected ErrLengthMismatch, got %v", err)
		}
		defer func() {
			if recover() == nil {
				t.Error("Euclidean should panic on mismatched lengths")
			}
		}()
		Euclidean([]float32{1}, []float32{1, 2})
	})
}

func TestParsePrecision(t *testing.T) {
	cases := map[string]PrecisionType{
		"":        Float32,
		"float32": Float32,
		"float16": Float16,
		"int8":    Int8,
	}
	for in, want := range cases {
		got, err := ParsePrecision(in)
		if err != nil || got != want {
			t.Errorf("ParsePrecision(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParsePrecision("bfloat16"); err == nil {
		t.Error("expected error for unknown precision")
	}
}

func TestWorkersAtLeastOne(t *testing.T) {
	if Workers() < 1 {
		t.Errorf("Workers() = %d", Workers())
	}
}

func generateVectors(dims int) ([]float32, []float32) {
	v1 := make([]float32, dims)
	v2 := make([]float32, dims)
	for i := 0; i < dims; i++ {
		v1[i] = rand.Float32()
		v2[i] = rand.Float32()
	}
	return v1, v2
}

func BenchmarkEuclidean(b *testing.B) {
	for _, d := range []int{3, 16, 64, 256} {
		b.Run(fmt.Sprintf("Euclidean_%dD", d), func(b *testing.B) {
			v1, v2 := generateVectors(d)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				Euclidean(v1, v2)
			}
		})

		b.Run(fmt.Sprintf("Squared_%dD", d), func(b *testing.B) {
			v1, v2 := generateVectors(d)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				SquaredEuclidean(v1, v2)
			}
		})
	}
}

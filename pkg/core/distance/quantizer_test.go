package distance

import (
	"math"
	"math/rand"
	"testing"
)

func TestQuantizerRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	// lattice-shaped data: 32x32 nodes with 3 components in [-1, 1)
	vectors := make([][]float32, 32*32)
	for i := range vectors {
		vectors[i] = []float32{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1}
	}

	q := &Quantizer{}
	q.Train(vectors)

	if q.AbsMax <= 0 || q.AbsMax > 1 {
		t.Fatalf("expected AbsMax in (0, 1], got %f", q.AbsMax)
	}

	// one quantization step is AbsMax/127; rounding loses at most half of it
	tolerance := float64(q.AbsMax) / 127.0
	for _, v := range vectors[:64] {
		back := q.Dequantize(q.Quantize(v))
		for j := range v {
			if math.Abs(float64(v[j])) > float64(q.AbsMax) {
				continue // clipped outlier
			}
			if diff := math.Abs(float64(back[j] - v[j])); diff > tolerance {
				t.Errorf("component %d: got %f, want %f (diff %f)", j, back[j], v[j], diff)
			}
		}
	}
}

func TestQuantizerClipsOutliers(t *testing.T) {
	q := &Quantizer{AbsMax: 0.5}
	got := q.Quantize([]float32{2, -2, 0})
	want := []int8{127, -127, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestQuantizerUntrained(t *testing.T) {
	q := &Quantizer{}
	if out := q.Quantize([]float32{0.3, 0.4}); out[0] != 0 || out[1] != 0 {
		t.Errorf("untrained quantizer should yield zeros, got %v", out)
	}
	if out := q.Dequantize([]int8{5}); out[0] != 0 {
		t.Errorf("untrained quantizer should yield zeros, got %v", out)
	}
}

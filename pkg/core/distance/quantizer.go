package distance

import (
	"log/slog"
	"math"
	"sort"
)

// Quantizer holds the parameters for symmetric scalar quantization of
// lattice weights into the int8 range [-127, 127].
type Quantizer struct {
	AbsMax float32
}

// Train sets AbsMax to the 99.9th percentile of the absolute component
// values, so a handful of outlier weights does not flatten the rest of the
// range.
func (q *Quantizer) Train(vectors [][]float32) {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return
	}

	allAbsValues := make([]float32, 0, len(vectors)*len(vectors[0]))
	for _, vec := range vectors {
		for _, val := range vec {
			allAbsValues = append(allAbsValues, float32(math.Abs(float64(val))))
		}
	}

	sort.Slice(allAbsValues, func(i, j int) bool {
		return allAbsValues[i] < allAbsValues[j]
	})

	quantileIndex := int(float64(len(allAbsValues)) * 0.999)
	if quantileIndex >= len(allAbsValues) {
		quantileIndex = len(allAbsValues) - 1
	}

	q.AbsMax = allAbsValues[quantileIndex]
	slog.Debug("quantizer trained", "values", len(allAbsValues), "abs_max", q.AbsMax)
}

// Quantize converts a float32 vector into its int8 representation, clipping
// values that fall outside [-AbsMax, AbsMax].
func (q *Quantizer) Quantize(vector []float32) []int8 {
	quantized := make([]int8, len(vector))
	if q.AbsMax == 0 {
		return quantized
	}

	for i, val := range vector {
		scaled := (val / q.AbsMax) * 127.0
		if scaled > 127.0 {
			scaled = 127.0
		} else if scaled < -127.0 {
			scaled = -127.0
		}
		quantized[i] = int8(math.Round(float64(scaled)))
	}
	return quantized
}

// Dequantize converts an int8 vector back to its approximate float32 values.
func (q *Quantizer) Dequantize(vector []int8) []float32 {
	dequantized := make([]float32, len(vector))
	if q.AbsMax == 0 {
		return dequantized
	}

	for i, val := range vector {
		// float_val ≈ (int_val / 127) * abs_max
		dequantized[i] = (float32(val) / 127.0) * q.AbsMax
	}
	return dequantized
}

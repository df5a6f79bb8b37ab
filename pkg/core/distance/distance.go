// Package distance provides the vector distance kernels used by the SOM engine
// and by the frame history.
//
// The BMU metric (Euclidean) is a plain, order-fixed float32 loop so that the
// same lattice and sample produce the same winner on every machine. The
// squared variant used for error reporting is dispatched at start-up to the
// Gonum BLAS implementation when the CPU exposes SIMD support.
package distance

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"
	"github.com/x448/float16"
	"gonum.org/v1/gonum/blas/gonum"
)

// PrecisionType defines the data type used to store vectors outside the engine.
type PrecisionType string

const (
	// Float32 stores components as single-precision floats.
	Float32 PrecisionType = "float32"
	// Float16 stores components as half-precision floats.
	Float16 PrecisionType = "float16"
	// Int8 stores components as symmetric-quantized 8-bit integers.
	Int8 PrecisionType = "int8"
)

// ParsePrecision validates a precision name coming from configuration.
func ParsePrecision(s string) (PrecisionType, error) {
	switch p := PrecisionType(s); p {
	case Float32, Float16, Int8:
		return p, nil
	case "":
		return Float32, nil
	default:
		return "", fmt.Errorf("precision '%s' not supported", s)
	}
}

// ErrLengthMismatch is returned when two vectors of different length are compared.
var ErrLengthMismatch = errors.New("vectors must have the same length")

// DistanceFuncF32 computes a distance between two float32 vectors.
type DistanceFuncF32 func(v1, v2 []float32) (float64, error)

// squaredFunc is the kernel selected in init for SquaredEuclidean.
var squaredFunc DistanceFuncF32 = squaredEuclideanGo

func init() {
	// Gonum handles SIMD dispatch internally; only route to it when there is SIMD to use.
	if cpuid.CPU.Supports(cpuid.SSE2) || cpuid.CPU.Supports(cpuid.ASIMD) {
		squaredFunc = squaredEuclideanGonum
	}
}

// diffWorkspace is a pool of float32 slices used to avoid allocating the
// difference vector on every squared-distance call.
var diffWorkspace = sync.Pool{
	New: func() interface{} {
		s := make([]float32, 64)
		return &s
	},
}

// Euclidean returns the Euclidean distance between a and b, accumulated in
// float32 in index order. It panics if the lengths differ: callers compare
// vectors of the lattice's own dimensionality.
func Euclidean(a, b []float32) float32 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("distance: Euclidean on vectors of length %d and %d", len(a), len(b)))
	}
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return float32(math.Sqrt(float64(sum)))
}

// SquaredEuclidean returns the squared Euclidean distance using the fastest
// kernel available on this CPU. Summation order may differ between kernels.
func SquaredEuclidean(v1, v2 []float32) (float64, error) {
	return squaredFunc(v1, v2)
}

// squaredEuclideanGo is the pure Go reference implementation.
func squaredEuclideanGo(v1, v2 []float32) (float64, error) {
	if len(v1) != len(v2) {
		return 0, ErrLengthMismatch
	}
	var sum float32
	for i := range v1 {
		diff := v1[i] - v2[i]
		sum += diff * diff
	}
	return float64(sum), nil
}

var gonumEngine = gonum.Implementation{}

// squaredEuclideanGonum uses Gonum BLAS (Saxpy + Sdot) on a pooled workspace.
func squaredEuclideanGonum(v1, v2 []float32) (float64, error) {
	n := len(v1)
	if n != len(v2) {
		return 0, ErrLengthMismatch
	}
	if n == 0 {
		return 0, nil
	}

	diffPtr := diffWorkspace.Get().(*[]float32)
	defer diffWorkspace.Put(diffPtr)

	if cap(*diffPtr) < n {
		*diffPtr = make([]float32, n)
	}
	diff := (*diffPtr)[:n]

	copy(diff, v1)
	gonumEngine.Saxpy(n, -1, v2, 1, diff, 1)
	dot := gonumEngine.Sdot(n, diff, 1, diff, 1)

	return float64(dot), nil
}

// EuclideanFloat16 returns the Euclidean distance between two half-precision
// vectors given as raw float16 bits.
func EuclideanFloat16(v1, v2 []uint16) (float64, error) {
	if len(v1) != len(v2) {
		return 0, ErrLengthMismatch
	}
	var sum float32
	for i := range v1 {
		f1 := float16.Frombits(v1[i]).Float32()
		f2 := float16.Frombits(v2[i]).Float32()
		diff := f1 - f2
		sum += diff * diff
	}
	return math.Sqrt(float64(sum)), nil
}

// FeatureReport summarizes what the compute layer detected at start-up.
type FeatureReport struct {
	CPU          string `json:"cpu"`
	LogicalCores int    `json:"logical_cores"`
	AVX2         bool   `json:"avx2"`
	F16C         bool   `json:"f16c"`
	GonumKernel  bool   `json:"gonum_kernel"`
}

// Features returns the detected CPU features.
func Features() FeatureReport {
	return FeatureReport{
		CPU:          cpuid.CPU.BrandName,
		LogicalCores: cpuid.CPU.LogicalCores,
		AVX2:         cpuid.CPU.Supports(cpuid.AVX2),
		F16C:         cpuid.CPU.Supports(cpuid.F16C),
		GonumKernel:  cpuid.CPU.Supports(cpuid.SSE2) || cpuid.CPU.Supports(cpuid.ASIMD),
	}
}

// Workers suggests how many goroutines a lattice scan should use.
// cpuid may report 0 cores on virtualized hosts, so runtime is the fallback.
func Workers() int {
	n := cpuid.CPU.LogicalCores
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n < 1 {
		n = 1
	}
	return n
}

// LogFeatures writes the feature report to the given logger.
func LogFeatures(logger *slog.Logger) {
	f := Features()
	kernel := "pure go"
	if f.GonumKernel {
		kernel = "gonum"
	}
	logger.Info("kektorsom compute engine",
		"cpu", f.CPU,
		"logical_cores", f.LogicalCores,
		"avx2", f.AVX2,
		"f16c", f.F16C,
		"squared_euclidean", kernel,
	)
}

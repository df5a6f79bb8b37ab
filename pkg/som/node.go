package som

import (
	"strconv"
	"strings"

	"github.com/sanonone/kektorsom/pkg/core/distance"
	"gonum.org/v1/gonum/blas/gonum"
)

var blas = gonum.Implementation{}

// Node is a weight vector. Its methods never modify the receiver: every
// arithmetic operation returns a fresh Node.
type Node []float32

// NewNode builds a Node from the given components.
func NewNode(components ...float32) Node {
	return Node(append([]float32(nil), components...))
}

// Dim returns the number of components.
func (n Node) Dim() int { return len(n) }

// Clone returns an independent copy of n.
func (n Node) Clone() Node {
	out := make(Node, len(n))
	blas.Scopy(len(n), n, 1, out, 1)
	return out
}

// Add returns n + b.
func (n Node) Add(b Node) Node {
	mustMatch(n, b)
	out := n.Clone()
	blas.Saxpy(len(n), 1, b, 1, out, 1)
	return out
}

// Sub returns n - b.
func (n Node) Sub(b Node) Node {
	mustMatch(n, b)
	out := n.Clone()
	blas.Saxpy(len(n), -1, b, 1, out, 1)
	return out
}

// Scale returns x * n.
func (n Node) Scale(x float32) Node {
	out := n.Clone()
	blas.Sscal(len(n), x, out, 1)
	return out
}

// Distance returns the Euclidean distance between n and b.
func (n Node) Distance(b Node) float32 {
	return distance.Euclidean(n, b)
}

// Equal reports whether n and b hold bit-identical components.
func (n Node) Equal(b Node) bool {
	if len(n) != len(b) {
		return false
	}
	for i := range n {
		if n[i] != b[i] {
			return false
		}
	}
	return true
}

func (n Node) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, v := range n {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(')')
	return b.String()
}

func mustMatch(a, b Node) {
	if len(a) != len(b) {
		panic(&DimensionError{Want: len(a), Got: len(b)})
	}
}

package som

import (
	"fmt"
	"math"
	"strings"
)

// Point addresses a lattice cell.
type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Point) String() string { return fmt.Sprintf("(%d, %d)", p.Row, p.Col) }

// GridDistance is the Euclidean distance between two cells in grid coordinates.
func GridDistance(a, b Point) float64 {
	dr := a.Row - b.Row
	dc := a.Col - b.Col
	return math.Sqrt(float64(dr*dr + dc*dc))
}

// Lattice is a rows x cols grid of Nodes stored in one row-major buffer.
// A Lattice handed out by the engine is always a copy.
type Lattice struct {
	rows, cols, dim int
	data            []float32
}

// NewLattice allocates a zero-valued lattice.
func NewLattice(rows, cols, dim int) *Lattice {
	return &Lattice{
		rows: rows,
		cols: cols,
		dim:  dim,
		data: make([]float32, rows*cols*dim),
	}
}

// FromNodes builds a lattice from a 2-D grid of Nodes. Every row must have
// the same length and every node the same dimension.
func FromNodes(grid [][]Node) (*Lattice, error) {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return nil, fmt.Errorf("empty lattice: %w", ErrRaggedLattice)
	}
	rows, cols := len(grid), len(grid[0])
	dim := len(grid[0][0])
	if dim == 0 {
		return nil, ErrInvalidDimension
	}

	l := NewLattice(rows, cols, dim)
	for r, row := range grid {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d cells, want %d: %w", r, len(row), cols, ErrRaggedLattice)
		}
		for c, n := range row {
			if len(n) != dim {
				return nil, fmt.Errorf("cell %v: %w", Point{r, c}, &DimensionError{Want: dim, Got: len(n)})
			}
			copy(l.cell(r*cols+c), n)
		}
	}
	return l, nil
}

// FromValues builds a lattice from a row-major component buffer of length
// rows*cols*dim. The buffer is copied.
func FromValues(rows, cols, dim int, values []float32) (*Lattice, error) {
	if rows < 1 || cols < 1 || dim < 1 {
		return nil, fmt.Errorf("invalid lattice shape %dx%dx%d", rows, cols, dim)
	}
	if len(values) != rows*cols*dim {
		return nil, fmt.Errorf("buffer has %d values, shape %dx%dx%d needs %d", len(values), rows, cols, dim, rows*cols*dim)
	}
	return &Lattice{rows: rows, cols: cols, dim: dim, data: append([]float32(nil), values...)}, nil
}

// Rows returns the number of rows.
func (l *Lattice) Rows() int { return l.rows }

// Cols returns the number of columns.
func (l *Lattice) Cols() int { return l.cols }

// Dim returns the number of components per node.
func (l *Lattice) Dim() int { return l.dim }

// Size returns (rows, cols).
func (l *Lattice) Size() (int, int) { return l.rows, l.cols }

// Len returns the number of cells.
func (l *Lattice) Len() int { return l.rows * l.cols }

// At returns a copy of the node at (r, c).
func (l *Lattice) At(r, c int) Node {
	if r < 0 || r >= l.rows || c < 0 || c >= l.cols {
		panic(fmt.Sprintf("som: cell %v outside %dx%d lattice", Point{r, c}, l.rows, l.cols))
	}
	return l.cell(r*l.cols + c).Clone()
}

// Nodes returns a deep copy of the grid.
func (l *Lattice) Nodes() [][]Node {
	out := make([][]Node, l.rows)
	for r := range out {
		out[r] = make([]Node, l.cols)
		for c := range out[r] {
			out[r][c] = l.cell(r*l.cols + c).Clone()
		}
	}
	return out
}

// Values returns a copy of the row-major component buffer.
func (l *Lattice) Values() []float32 {
	return append([]float32(nil), l.data...)
}

// Clone returns an independent copy of the lattice.
func (l *Lattice) Clone() *Lattice {
	return &Lattice{rows: l.rows, cols: l.cols, dim: l.dim, data: l.Values()}
}

// Equal reports whether both lattices have the same shape and bit-identical values.
func (l *Lattice) Equal(o *Lattice) bool {
	if l.rows != o.rows || l.cols != o.cols || l.dim != o.dim {
		return false
	}
	return Node(l.data).Equal(Node(o.data))
}

func (l *Lattice) String() string {
	var b strings.Builder
	for r := 0; r < l.rows; r++ {
		for c := 0; c < l.cols; c++ {
			if c > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(l.cell(r*l.cols + c).String())
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// cell returns the node at flat index i without copying.
func (l *Lattice) cell(i int) Node {
	off := i * l.dim
	return Node(l.data[off : off+l.dim : off+l.dim])
}

// set replaces the node at flat index i.
func (l *Lattice) set(i int, n Node) {
	copy(l.data[i*l.dim:(i+1)*l.dim], n)
}

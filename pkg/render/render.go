// Package render turns a lattice into an image: one filled square per node,
// coloured by reading the first three components as R, G and B.
package render

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/sanonone/kektorsom/pkg/som"
	"golang.org/x/image/draw"
)

// DefaultScale is the side, in pixels, of the square drawn for each node.
const DefaultScale = 10

// Options controls rendering.
type Options struct {
	Scale int
}

// NodeColor maps a node to a colour. Components are clamped to [0, 1];
// missing components read as 0 and extra ones are ignored.
func NodeColor(n som.Node) colorful.Color {
	var rgb [3]float64
	for i := 0; i < len(rgb) && i < len(n); i++ {
		rgb[i] = float64(n[i])
	}
	return colorful.Color{R: rgb[0], G: rgb[1], B: rgb[2]}.Clamped()
}

// Image renders l into a (cols*scale) x (rows*scale) RGBA image.
func Image(l *som.Lattice, opts Options) *image.RGBA {
	scale := opts.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	rows, cols := l.Size()

	small := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			small.Set(c, r, NodeColor(l.At(r, c)))
		}
	}
	if scale == 1 {
		return small
	}

	dst := image.NewRGBA(image.Rect(0, 0, cols*scale, rows*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), small, small.Bounds(), draw.Src, nil)
	return dst
}

// WritePNG encodes the rendered lattice as PNG.
func WritePNG(w io.Writer, l *som.Lattice, opts Options) error {
	if err := png.Encode(w, Image(l, opts)); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// SavePNG writes the rendered lattice to path, creating parent directories.
func SavePNG(path string, l *som.Lattice, opts Options) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WritePNG(f, l, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

package render

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/sanonone/kektorsom/pkg/som"
)

func testLattice(t *testing.T) *som.Lattice {
	t.Helper()
	l, err := som.FromNodes([][]som.Node{
		{som.NewNode(1, 0, 0), som.NewNode(0, 1, 0), som.NewNode(0, 0, 1)},
		{som.NewNode(-1, 2, 0.5), som.NewNode(1, 1, 1), som.NewNode(0, 0, 0)},
	})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestNodeColor(t *testing.T) {
	c := NodeColor(som.NewNode(-0.5, 1.5, 0.25))
	if c.R != 0 || c.G != 1 || c.B != 0.25 {
		t.Errorf("got %+v, want clamped (0, 1, 0.25)", c)
	}

	c = NodeColor(som.NewNode(0.5))
	if c.R != 0.5 || c.G != 0 || c.B != 0 {
		t.Errorf("short node: got %+v", c)
	}
}

func TestImageScalesEachNode(t *testing.T) {
	img := Image(testLattice(t), Options{Scale: 4})

	if b := img.Bounds(); b.Dx() != 12 || b.Dy() != 8 {
		t.Fatalf("bounds %v, want 12x8", b)
	}

	cases := []struct {
		x, y    int
		r, g, b uint8
	}{
		{0, 0, 255, 0, 0},   // (0,0) red
		{3, 3, 255, 0, 0},   // still inside the first square
		{4, 0, 0, 255, 0},   // (0,1) green
		{11, 0, 0, 0, 255},  // (0,2) blue
		{0, 4, 0, 255, 128}, // (1,0) clamped
		{11, 7, 0, 0, 0},    // (1,2) black
	}
	for _, tc := range cases {
		got := img.RGBAAt(tc.x, tc.y)
		if got.R != tc.r || got.G != tc.g || abs(int(got.B)-int(tc.b)) > 1 {
			t.Errorf("pixel (%d,%d) = %v, want (%d,%d,%d)", tc.x, tc.y, got, tc.r, tc.g, tc.b)
		}
	}
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "map.png")
	if err := SavePNG(path, testLattice(t), Options{}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 3*DefaultScale || b.Dy() != 2*DefaultScale {
		t.Errorf("bounds %v", b)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

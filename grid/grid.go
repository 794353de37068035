// Package grid holds the bitonal pixel raster a plate is built from.
package grid

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// Pixel is the state of one cell of the plate.
type Pixel uint8

const (
	// Recessed cells are etched down into the plate.
	Recessed Pixel = iota
	// Raised cells stay flush with the plate face.
	Raised
)

func (p Pixel) String() string {
	if p == Raised {
		return "raised"
	}
	return "recessed"
}

// ParsePixel accepts the names returned by Pixel.String.
func ParsePixel(s string) (Pixel, error) {
	switch s {
	case "raised":
		return Raised, nil
	case "recessed":
		return Recessed, nil
	}
	return Recessed, errors.Errorf("unknown pixel state %q", s)
}

// Grid is a width x height raster of pixels with (0, 0) at the top left.
//
// Imagine width is three, height is two and pixel data is:
//
//	a b c
//	d e f
//
// This will be in pix as: a b c d e f
type Grid struct {
	pix    []Pixel
	width  int
	height int
}

// New returns a grid with every cell set to fill.
func New(width, height int, fill Pixel) *Grid {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	g := &Grid{
		pix:    make([]Pixel, width*height),
		width:  width,
		height: height,
	}
	if fill != Recessed {
		for i := range g.pix {
			g.pix[i] = fill
		}
	}
	return g
}

// Parse builds a grid from rows of text, '#' or 'X' marking raised cells and anything else
// recessed. All rows must have the same length.
func Parse(rows ...string) (*Grid, error) {
	if len(rows) == 0 {
		return New(0, 0, Recessed), nil
	}
	g := New(len(rows[0]), len(rows), Recessed)
	for y, row := range rows {
		if len(row) != g.width {
			return nil, errors.Errorf("row %d has %d cells, want %d", y, len(row), g.width)
		}
		for x := 0; x < len(row); x++ {
			if row[x] == '#' || row[x] == 'X' {
				g.Set(x, y, Raised)
			}
		}
	}
	return g, nil
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// At returns the pixel at (x, y). Coordinates outside the grid read as Recessed.
func (g *Grid) At(x, y int) Pixel {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return Recessed
	}
	return g.pix[x+y*g.width]
}

// Set changes the pixel at (x, y). It is only meant for populating a new grid.
func (g *Grid) Set(x, y int, p Pixel) {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return
	}
	g.pix[x+y*g.width] = p
}

// Count returns the number of cells in state p.
func (g *Grid) Count(p Pixel) int {
	n := 0
	for _, q := range g.pix {
		if q == p {
			n++
		}
	}
	return n
}

// Pad returns a copy of g surrounded by a frame n cells wide filled with fill.
func (g *Grid) Pad(n int, fill Pixel) *Grid {
	if n <= 0 {
		out := New(g.width, g.height, Recessed)
		copy(out.pix, g.pix)
		return out
	}
	out := New(g.width+2*n, g.height+2*n, fill)
	for y := 0; y < g.height; y++ {
		copy(out.pix[n+(y+n)*out.width:], g.pix[y*g.width:(y+1)*g.width])
	}
	return out
}

// FromImage thresholds an image: pixels with a luminance of at least threshold are raised.
func FromImage(img image.Image, threshold uint8) *Grid {
	b := img.Bounds()
	g := New(b.Dx(), b.Dy(), Recessed)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if c.Y >= threshold {
				g.pix[(x-b.Min.X)+(y-b.Min.Y)*g.width] = Raised
			}
		}
	}
	return g
}

// ToImage renders raised cells white and recessed cells black.
func (g *Grid) ToImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.width, g.height))
	for i, p := range g.pix {
		if p == Raised {
			img.Pix[i] = 0xff
		}
	}
	return img
}

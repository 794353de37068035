// Package mesh turns a bitonal pixel grid into a closed triangle mesh shaped like an etched
// plate.
//
// The plate lies in the xy plane with its face towards +z. Raised pixels are flush with the
// face at z = Thickness, recessed pixels are etched down to z = Thickness - Depth and the
// back of the plate is the plane z = 0.
package mesh

import (
	"math"

	"github.com/pkg/errors"

	"github.com/rneatherway/etchplate/grid"
)

// ErrInvalidGeometry is returned for parameters or grids no plate can be built from.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Vec3 is a point in plate space.
type Vec3 [3]float64

func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]} }

func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v[1]*w[2] - v[2]*w[1],
		v[2]*w[0] - v[0]*w[2],
		v[0]*w[1] - v[1]*w[0],
	}
}

func (v Vec3) Dot(w Vec3) float64 { return v[0]*w[0] + v[1]*w[1] + v[2]*w[2] }

// Triangle holds three vertex offsets, counter-clockwise when seen from outside the solid.
type Triangle [3]int

// Mesh is an indexed triangle mesh.
type Mesh struct {
	Vertices  []Vec3
	Triangles []Triangle
}

// Corners returns the positions of t's vertices.
func (m *Mesh) Corners(t Triangle) [3]Vec3 {
	return [3]Vec3{m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]}
}

// Source is the pixel raster a plate is built from.
type Source interface {
	Width() int
	Height() int
	At(x, y int) grid.Pixel
}

// Params are the plate dimensions, all in output units.
type Params struct {
	// Thickness is the distance from the back of the plate to its face.
	Thickness float64
	// Depth is how far recessed pixels are etched below the face.
	Depth float64
	// PixelSize is the edge length of one pixel cell.
	PixelSize float64
	// PixelPitch is the gap between neighbouring cells. With zero pitch cells touch.
	PixelPitch float64
}

// DefaultParams returns the dimensions used when nothing else is configured.
func DefaultParams() Params {
	return Params{
		Thickness:  5.0,
		Depth:      1.0,
		PixelSize:  0.4,
		PixelPitch: 0.4,
	}
}

// Validate reports parameters that would produce an inverted or degenerate plate.
func (p Params) Validate() error {
	switch {
	case math.IsInf(p.Thickness, 0) || math.IsInf(p.Depth, 0) ||
		math.IsInf(p.PixelSize, 0) || math.IsInf(p.PixelPitch, 0):
		return errors.Wrapf(ErrInvalidGeometry, "dimensions %+v must be finite", p)
	case !(p.PixelSize > 0):
		return errors.Wrapf(ErrInvalidGeometry, "pixel size %g must be positive", p.PixelSize)
	case !(p.PixelPitch >= 0):
		return errors.Wrapf(ErrInvalidGeometry, "pixel pitch %g must not be negative", p.PixelPitch)
	case !(p.Depth > 0):
		return errors.Wrapf(ErrInvalidGeometry, "depth %g must be positive", p.Depth)
	case !(p.Thickness > p.Depth):
		return errors.Wrapf(ErrInvalidGeometry, "thickness %g must exceed depth %g", p.Thickness, p.Depth)
	}
	return nil
}

// Contiguous reports whether cells touch each other.
func (p Params) Contiguous() bool {
	return p.PixelPitch == 0
}

// Extent returns the outer size of a plate n cells across.
func (p Params) Extent(n int) float64 {
	return float64(n)*(p.PixelSize+p.PixelPitch) + p.PixelPitch
}

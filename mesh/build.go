package mesh

import (
	"github.com/pkg/errors"

	"github.com/rneatherway/etchplate/grid"
)

// Build triangulates src into a closed plate.
//
// Raised cells become quads on the front layer and recessed cells quads on the inset layer.
// When cells are separated by a pitch, the gaps between them are covered by a flush lattice
// and every recess is walled on all four sides. When cells touch, raised cells are walled
// wherever they border a recessed cell or the edge of the grid. Either way the boundary of
// the front and inset layers is closed off by the sides and back of the plate.
func Build(src Source, p Params) (*Mesh, error) {
	w, h := src.Width(), src.Height()
	if w <= 0 || h <= 0 {
		return nil, errors.Wrapf(ErrInvalidGeometry, "empty %dx%d grid", w, h)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	b := &builder{src: src, p: p, l: Layout{W: w, H: h}}
	b.vertices()
	b.cells()
	if !p.Contiguous() {
		b.lattice()
	}
	b.shell()
	return &Mesh{Vertices: b.verts, Triangles: b.tris}, nil
}

type builder struct {
	src Source
	p   Params
	l   Layout

	verts []Vec3
	tris  []Triangle
}

func (b *builder) vertices() {
	xs := lines(b.l.W, b.p)
	ys := lines(b.l.H, b.p)
	width, height := b.p.Extent(b.l.W), b.p.Extent(b.l.H)

	b.verts = make([]Vec3, 0, b.l.VertexCount())
	for _, z := range []float64{b.p.Thickness, b.p.Thickness - b.p.Depth} {
		for _, y := range ys {
			for _, x := range xs {
				b.verts = append(b.verts, Vec3{x, height - y, z})
			}
		}
	}
	// Indexed by Corner.
	b.verts = append(b.verts,
		Vec3{0, 0, 0},
		Vec3{width, 0, 0},
		Vec3{width, height, 0},
		Vec3{0, height, 0},
	)
}

func (b *builder) raised(x, y int) bool {
	if x < 0 || y < 0 || x >= b.l.W || y >= b.l.H {
		return false
	}
	return b.src.At(x, y) == grid.Raised
}

func (b *builder) cells() {
	for y := 0; y < b.l.H; y++ {
		for x := 0; x < b.l.W; x++ {
			c := b.cell(x, y)
			if b.raised(x, y) {
				b.quad(c.Front[BottomLeft], c.Front[BottomRight], c.Front[TopRight], c.Front[TopLeft])
				if !b.p.Contiguous() {
					continue
				}
				if !b.raised(x, y+1) {
					b.wall(c, BottomLeft, BottomRight)
				}
				if !b.raised(x+1, y) {
					b.wall(c, BottomRight, TopRight)
				}
				if !b.raised(x, y-1) {
					b.wall(c, TopRight, TopLeft)
				}
				if !b.raised(x-1, y) {
					b.wall(c, TopLeft, BottomLeft)
				}
				continue
			}

			b.quad(c.Inset[BottomLeft], c.Inset[BottomRight], c.Inset[TopRight], c.Inset[TopLeft])
			if b.p.Contiguous() {
				continue
			}
			// Clockwise, so the walls face into the recess.
			b.wall(c, BottomLeft, TopLeft)
			b.wall(c, TopLeft, TopRight)
			b.wall(c, TopRight, BottomRight)
			b.wall(c, BottomRight, BottomLeft)
		}
	}
}

// lattice covers the flush gaps between cells: full strips between cell rows and the
// short pieces between neighbouring cells of a row.
func (b *builder) lattice() {
	for j := 0; j < b.l.Rows()-1; j++ {
		step := 1
		if j%2 == 1 {
			step = 2
		}
		for i := 0; i < b.l.Cols()-1; i += step {
			b.quad(b.l.Front(i, j+1), b.l.Front(i+1, j+1), b.l.Front(i+1, j), b.l.Front(i, j))
		}
	}
}

// side is one outer face of the plate. ring runs along the boundary of the layer grids
// from the back corner from to the back corner to, counter-clockwise seen from the front.
type side struct {
	from, to Corner
	front    []int
	inset    []int
}

func (b *builder) shell() {
	for _, s := range b.sides() {
		if !b.p.Contiguous() {
			for k := 0; k+1 < len(s.inset); k++ {
				b.quad(s.inset[k], s.inset[k+1], s.front[k+1], s.front[k])
			}
		}

		from, to := b.l.Back(s.from), b.l.Back(s.to)
		n := len(s.inset) - 1
		b.tri(from, to, s.inset[n])
		for k := n - 1; k >= 0; k-- {
			b.tri(from, s.inset[k+1], s.inset[k])
		}
	}

	b.quad(b.l.Back(BottomLeft), b.l.Back(TopLeft), b.l.Back(TopRight), b.l.Back(BottomRight))
}

func (b *builder) sides() []side {
	cols, rows := b.stations(b.l.W), b.stations(b.l.H)
	first, lastCol, lastRow := 0, len(cols)-1, len(rows)-1

	bottom := side{from: BottomLeft, to: BottomRight}
	for _, i := range cols {
		bottom.add(b.l, i, rows[lastRow])
	}
	right := side{from: BottomRight, to: TopRight}
	for r := lastRow; r >= first; r-- {
		right.add(b.l, cols[lastCol], rows[r])
	}
	top := side{from: TopRight, to: TopLeft}
	for c := lastCol; c >= first; c-- {
		top.add(b.l, cols[c], rows[first])
	}
	left := side{from: TopLeft, to: BottomLeft}
	for _, j := range rows {
		left.add(b.l, cols[first], j)
	}
	return []side{bottom, right, top, left}
}

func (s *side) add(l Layout, i, j int) {
	s.front = append(s.front, l.Front(i, j))
	s.inset = append(s.inset, l.Inset(i, j))
}

// stations lists the grid lines the plate boundary passes through along an axis n cells
// long. With touching cells the boundary line and the outer cell edge coincide, so only the
// lines used by the welded cell corners are visited.
func (b *builder) stations(n int) []int {
	var s []int
	if b.p.Contiguous() {
		for k := 0; k <= n; k++ {
			s = append(s, 2*k+1)
		}
		return s
	}
	for i := 0; i < 2*n+2; i++ {
		s = append(s, i)
	}
	return s
}

// wall joins the cell edge running from corner from to corner to on the front layer with
// the same edge on the inset layer. Seen from the front the wall faces to the right of the
// direction of travel.
func (b *builder) wall(c CellVertices, from, to Corner) {
	b.quad(c.Inset[from], c.Inset[to], c.Front[to], c.Front[from])
}

// quad adds v0..v3, counter-clockwise seen from outside, as two triangles.
func (b *builder) quad(v0, v1, v2, v3 int) {
	b.tri(v0, v1, v2)
	b.tri(v0, v2, v3)
}

func (b *builder) tri(v0, v1, v2 int) {
	b.tris = append(b.tris, Triangle{v0, v1, v2})
}

package mesh

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/pkg/errors"

	"github.com/rneatherway/etchplate/grid"
)

func contiguous() Params {
	p := DefaultParams()
	p.PixelPitch = 0
	return p
}

func mustParse(t *testing.T, rows ...string) *grid.Grid {
	t.Helper()
	g, err := grid.Parse(rows...)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func randomGrid(w, h int, seed int64) *grid.Grid {
	rnd := rand.New(rand.NewSource(seed))
	g := grid.New(w, h, grid.Recessed)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if rnd.Intn(2) == 1 {
				g.Set(x, y, grid.Raised)
			}
		}
	}
	return g
}

func testGrids(t *testing.T) map[string]*grid.Grid {
	return map[string]*grid.Grid{
		"single raised":   mustParse(t, "#"),
		"single recessed": mustParse(t, "."),
		"all raised":      grid.New(4, 3, grid.Raised),
		"all recessed":    grid.New(3, 4, grid.Recessed),
		"checkerboard":    mustParse(t, "#.#.", ".#.#", "#.#."),
		"inverse checker": mustParse(t, ".#.", "#.#", ".#."),
		"ring":            mustParse(t, "####", "#..#", "####"),
		"island":          mustParse(t, "...", ".#.", "..."),
		"diagonal":        mustParse(t, "#..", ".#.", "..#"),
		"single row":      mustParse(t, "#.##.#"),
		"single column":   mustParse(t, "#", ".", "#", "#"),
		"random":          randomGrid(9, 7, 1),
		"random dense":    randomGrid(12, 10, 42),
	}
}

func expectedVolume(g *grid.Grid, p Params) float64 {
	w, h := p.Extent(g.Width()), p.Extent(g.Height())
	return w*h*p.Thickness - float64(g.Count(grid.Recessed))*p.PixelSize*p.PixelSize*p.Depth
}

func TestBuildClosed(t *testing.T) {
	modes := map[string]Params{
		"gap":        DefaultParams(),
		"contiguous": contiguous(),
	}
	for gname, g := range testGrids(t) {
		for mname, p := range modes {
			t.Run(gname+"/"+mname, func(t *testing.T) {
				m, err := Build(g, p)
				if err != nil {
					t.Fatal(err)
				}

				r := m.Inspect()
				if !r.Closed() {
					t.Fatalf("mesh not closed: %d boundary, %d non-manifold, %d flipped edges, %d degenerate triangles",
						len(r.Boundary), len(r.NonManifold), len(r.Flipped), len(r.Degenerate))
				}

				v := m.Volume()
				if v <= 0 {
					t.Fatalf("expected positive volume, got %f", v)
				}
				if want := expectedVolume(g, p); math.Abs(v-want) > 1e-9*want {
					t.Errorf("volume %f, want %f", v, want)
				}

				assertNoDuplicateTriangles(t, m)
			})
		}
	}
}

func assertNoDuplicateTriangles(t *testing.T, m *Mesh) {
	t.Helper()
	seen := make(map[Triangle]int)
	for n, tri := range m.Triangles {
		key := tri
		sort.Ints(key[:])
		if prev, ok := seen[key]; ok {
			t.Errorf("triangles %d and %d use the same vertices %v", prev, n, key)
		}
		seen[key] = n
	}
}

func TestVertexCount(t *testing.T) {
	sizes := [][2]int{{1, 1}, {2, 1}, {1, 3}, {5, 4}}
	for _, s := range sizes {
		w, h := s[0], s[1]
		want := 2*(2*w+2)*(2*h+2) + 4
		for _, fill := range []grid.Pixel{grid.Raised, grid.Recessed} {
			for _, p := range []Params{DefaultParams(), contiguous()} {
				m, err := Build(grid.New(w, h, fill), p)
				if err != nil {
					t.Fatal(err)
				}
				if len(m.Vertices) != want {
					t.Errorf("%dx%d %s pitch %g: %d vertices, want %d", w, h, fill, p.PixelPitch, len(m.Vertices), want)
				}
			}
		}
	}

	g := randomGrid(5, 4, 7)
	m, err := Build(g, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Vertices) != (Layout{W: 5, H: 4}).VertexCount() {
		t.Errorf("vertex count depends on pixel content: %d", len(m.Vertices))
	}
}

func TestLayoutCell(t *testing.T) {
	l := Layout{W: 2, H: 1}
	if l.Cols() != 6 || l.Rows() != 4 || l.LayerSize() != 24 {
		t.Fatalf("unexpected layout %dx%d", l.Cols(), l.Rows())
	}

	c := l.Cell(1, 0)
	wantFront := [4]int{15, 16, 10, 9}
	wantInset := [4]int{39, 40, 34, 33}
	if c.Front != wantFront {
		t.Errorf("front %v, want %v", c.Front, wantFront)
	}
	if c.Inset != wantInset {
		t.Errorf("inset %v, want %v", c.Inset, wantInset)
	}
	if l.Back(BottomLeft) != 48 || l.Back(TopLeft) != 51 {
		t.Errorf("back corners at %d..%d", l.Back(BottomLeft), l.Back(TopLeft))
	}
}

func TestVertexPositions(t *testing.T) {
	p := DefaultParams()
	m, err := Build(mustParse(t, "#"), p)
	if err != nil {
		t.Fatal(err)
	}
	l := Layout{W: 1, H: 1}

	tests := []struct {
		name string
		idx  int
		want Vec3
	}{
		{"front top left boundary", l.Front(0, 0), Vec3{0, 1.2, 5}},
		{"front cell top left", l.Front(1, 1), Vec3{0.4, 0.8, 5}},
		{"front cell bottom right", l.Front(2, 2), Vec3{0.8, 0.4, 5}},
		{"inset bottom right boundary", l.Inset(3, 3), Vec3{1.2, 0, 4}},
		{"inset cell top right", l.Inset(2, 1), Vec3{0.8, 0.8, 4}},
		{"back bottom left", l.Back(BottomLeft), Vec3{0, 0, 0}},
		{"back bottom right", l.Back(BottomRight), Vec3{1.2, 0, 0}},
		{"back top right", l.Back(TopRight), Vec3{1.2, 1.2, 0}},
		{"back top left", l.Back(TopLeft), Vec3{0, 1.2, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Vertices[tt.idx]
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-12 {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestTriangleCounts(t *testing.T) {
	tests := []struct {
		name string
		g    *grid.Grid
		p    Params
		want int
	}{
		// cell 2, lattice 16, perimeter walls 24, sides 16, back 2
		{"raised with gaps", mustParse(t, "#"), DefaultParams(), 60},
		// floor 2 and recess walls 8 instead of the flush cell
		{"recessed with gaps", mustParse(t, "."), DefaultParams(), 68},
		// cell 2, walls 8, sides 8, back 2
		{"raised touching", mustParse(t, "#"), contiguous(), 20},
		// floor 2, sides 8, back 2
		{"recessed touching", mustParse(t, "."), contiguous(), 12},
		// two flush cells sharing an edge need no wall between them
		{"raised pair touching", mustParse(t, "##"), contiguous(), 4 + 12 + 10 + 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Build(tt.g, tt.p)
			if err != nil {
				t.Fatal(err)
			}
			if len(m.Triangles) != tt.want {
				t.Errorf("%d triangles, want %d", len(m.Triangles), tt.want)
			}
		})
	}
}

func frontQuadEdges(m *Mesh, z float64) map[Edge]int {
	edges := make(map[Edge]int)
	for _, tri := range m.Triangles {
		c := m.Corners(tri)
		if c[0][2] != z || c[1][2] != z || c[2][2] != z {
			continue
		}
		for i := range tri {
			e := Edge{tri[i], tri[(i+1)%3]}
			if e[0] > e[1] {
				e = Edge{e[1], e[0]}
			}
			edges[e]++
		}
	}
	return edges
}

func TestPitchModes(t *testing.T) {
	g := mustParse(t, "##")

	t.Run("gap", func(t *testing.T) {
		p := DefaultParams()
		m, err := Build(g, p)
		if err != nil {
			t.Fatal(err)
		}
		l := Layout{W: 2, H: 1}
		a, b := l.Cell(0, 0), l.Cell(1, 0)
		for _, va := range a.Front {
			for _, vb := range b.Front {
				if va == vb {
					t.Fatalf("cells share front vertex %d", va)
				}
			}
		}
		// The lattice strip between the cells separates the quads.
		right := Edge{a.Front[TopRight], a.Front[BottomRight]}
		if right[0] > right[1] {
			right = Edge{right[1], right[0]}
		}
		if n := frontQuadEdges(m, p.Thickness)[right]; n != 2 {
			t.Errorf("right edge of the first cell used by %d front triangles, want 2", n)
		}
	})

	t.Run("contiguous", func(t *testing.T) {
		p := contiguous()
		m, err := Build(g, p)
		if err != nil {
			t.Fatal(err)
		}
		shared := 0
		for _, n := range frontQuadEdges(m, p.Thickness) {
			if n == 2 {
				shared++
			}
		}
		// Each quad's diagonal plus the edge between the two cells.
		if shared != 3 {
			t.Errorf("%d front edges shared by two triangles, want 3", shared)
		}
		for _, tri := range m.Triangles {
			c := m.Corners(tri)
			onSeam := c[0][0] == 0.4 && c[1][0] == 0.4 && c[2][0] == 0.4
			if onSeam {
				t.Fatalf("wall emitted between two raised cells: %v", c)
			}
		}
	})
}

func TestCheckerboardWelding(t *testing.T) {
	m, err := Build(mustParse(t, "#.", ".#"), contiguous())
	if err != nil {
		t.Fatal(err)
	}
	b := &builder{src: mustParse(t, "#.", ".#"), p: contiguous(), l: Layout{W: 2, H: 2}}
	upper := b.cell(0, 0).Front[BottomRight]
	lower := b.cell(1, 1).Front[TopLeft]
	if upper == lower {
		t.Fatalf("diagonal cells share front vertex %d", upper)
	}
	if m.Vertices[upper] != m.Vertices[lower] {
		t.Errorf("split vertices at different positions: %v and %v", m.Vertices[upper], m.Vertices[lower])
	}
	if b.cell(1, 0).Inset[BottomLeft] != b.cell(0, 1).Inset[TopRight] {
		t.Error("diagonal recesses should share the inset vertex at the contact point")
	}
	if r := m.Inspect(); !r.Closed() {
		t.Errorf("checkerboard not closed: %+v", r)
	}
}

func TestBuildInvalidGeometry(t *testing.T) {
	g := mustParse(t, "#")
	tests := []struct {
		name string
		g    Source
		p    func(*Params)
	}{
		{"empty width", grid.New(0, 3, grid.Raised), func(*Params) {}},
		{"empty height", grid.New(3, 0, grid.Raised), func(*Params) {}},
		{"depth equals thickness", g, func(p *Params) { p.Depth = p.Thickness }},
		{"depth exceeds thickness", g, func(p *Params) { p.Depth = p.Thickness + 1 }},
		{"zero depth", g, func(p *Params) { p.Depth = 0 }},
		{"zero pixel size", g, func(p *Params) { p.PixelSize = 0 }},
		{"negative pitch", g, func(p *Params) { p.PixelPitch = -0.1 }},
		{"nan size", g, func(p *Params) { p.PixelSize = math.NaN() }},
		{"infinite thickness", g, func(p *Params) { p.Thickness = math.Inf(1) }},
		{"infinite size", g, func(p *Params) { p.PixelSize = math.Inf(1) }},
		{"infinite pitch", g, func(p *Params) { p.PixelPitch = math.Inf(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.p(&p)
			m, err := Build(tt.g, p)
			if !errors.Is(err, ErrInvalidGeometry) {
				t.Fatalf("expected ErrInvalidGeometry, got %v", err)
			}
			if m != nil {
				t.Error("expected no mesh on error")
			}
		})
	}
}

func TestRaisedCellScenario(t *testing.T) {
	p := Params{Thickness: 5, Depth: 1, PixelSize: 0.4, PixelPitch: 0.4}
	m, err := Build(mustParse(t, "#"), p)
	if err != nil {
		t.Fatal(err)
	}

	min, max := m.Bounds()
	if min != (Vec3{0, 0, 0}) {
		t.Errorf("min corner %v", min)
	}
	if math.Abs(max[0]-1.2) > 1e-12 || math.Abs(max[1]-1.2) > 1e-12 || max[2] != 5 {
		t.Errorf("max corner %v", max)
	}

	// Everything above the inset layer is flush: no triangle dips into the face.
	for _, tri := range m.Triangles {
		for _, c := range m.Corners(tri) {
			if c[2] != 0 && c[2] != 4 && c[2] != 5 {
				t.Fatalf("vertex at unexpected height %v", c)
			}
		}
	}
	if r := m.Inspect(); !r.Closed() {
		t.Errorf("not closed: %+v", r)
	}
}

func TestInspectFindsDefects(t *testing.T) {
	m, err := Build(mustParse(t, "#."), DefaultParams())
	if err != nil {
		t.Fatal(err)
	}

	holed := &Mesh{Vertices: m.Vertices, Triangles: m.Triangles[1:]}
	if r := holed.Inspect(); len(r.Boundary) != 3 {
		t.Errorf("expected 3 boundary edges after removing a triangle, got %d", len(r.Boundary))
	}

	flipped := &Mesh{Vertices: m.Vertices, Triangles: append([]Triangle(nil), m.Triangles...)}
	t0 := flipped.Triangles[0]
	flipped.Triangles[0] = Triangle{t0[0], t0[2], t0[1]}
	if r := flipped.Inspect(); len(r.Flipped) != 3 {
		t.Errorf("expected 3 flipped edges, got %d", len(r.Flipped))
	}

	doubled := &Mesh{Vertices: m.Vertices, Triangles: append(append([]Triangle(nil), m.Triangles...), m.Triangles[0])}
	if r := doubled.Inspect(); len(r.NonManifold) != 3 {
		t.Errorf("expected 3 non-manifold edges, got %d", len(r.NonManifold))
	}

	degenerate := &Mesh{Vertices: m.Vertices, Triangles: []Triangle{{0, 0, 1}}}
	if r := degenerate.Inspect(); len(r.Degenerate) != 1 {
		t.Errorf("expected a degenerate triangle, got %v", r.Degenerate)
	}
}

func TestWeld(t *testing.T) {
	m, err := Build(randomGrid(4, 3, 3), contiguous())
	if err != nil {
		t.Fatal(err)
	}
	soup := make([][3]Vec3, len(m.Triangles))
	for i, tri := range m.Triangles {
		soup[i] = m.Corners(tri)
	}
	w := Weld(soup)
	if len(w.Triangles) != len(m.Triangles) {
		t.Fatalf("%d triangles after welding, want %d", len(w.Triangles), len(m.Triangles))
	}
	if math.Abs(w.Volume()-m.Volume()) > 1e-9 {
		t.Errorf("volume changed by welding: %f vs %f", w.Volume(), m.Volume())
	}
	if len(w.Vertices) >= len(m.Vertices) {
		t.Errorf("welding should drop unused vertices: %d >= %d", len(w.Vertices), len(m.Vertices))
	}
}

package mesh

import (
	"math"
	"sort"
)

// Edge is a pair of vertex offsets.
type Edge [2]int

// Report lists the topological defects found in a mesh. Edges are reported undirected,
// smaller offset first.
type Report struct {
	// Boundary edges belong to a single triangle: the surface has a hole.
	Boundary []Edge
	// NonManifold edges belong to more than two triangles.
	NonManifold []Edge
	// Flipped edges are shared by two triangles traversing them in the same direction.
	Flipped []Edge
	// Degenerate holds the indices of triangles with a repeated vertex or no area.
	Degenerate []int
}

// Closed reports whether the mesh bounds a solid: every edge shared by exactly two
// consistently wound triangles and no degenerate triangles.
func (r Report) Closed() bool {
	return len(r.Boundary) == 0 && len(r.NonManifold) == 0 && len(r.Flipped) == 0 && len(r.Degenerate) == 0
}

// Inspect checks the mesh topology by vertex offset.
func (m *Mesh) Inspect() Report {
	var r Report
	directed := make(map[Edge]int, 3*len(m.Triangles))
	for n, t := range m.Triangles {
		if t[0] == t[1] || t[1] == t[2] || t[2] == t[0] {
			r.Degenerate = append(r.Degenerate, n)
			continue
		}
		c := m.Corners(t)
		if c[1].Sub(c[0]).Cross(c[2].Sub(c[0])) == (Vec3{}) {
			r.Degenerate = append(r.Degenerate, n)
		}
		for i := range t {
			directed[Edge{t[i], t[(i+1)%3]}]++
		}
	}

	for e, n := range directed {
		rev := directed[Edge{e[1], e[0]}]
		if e[0] > e[1] && rev > 0 {
			// Counted from the other direction.
			continue
		}
		u := Edge{e[0], e[1]}
		if u[0] > u[1] {
			u = Edge{u[1], u[0]}
		}
		switch total := n + rev; {
		case total == 1:
			r.Boundary = append(r.Boundary, u)
		case total > 2:
			r.NonManifold = append(r.NonManifold, u)
		case n != rev:
			r.Flipped = append(r.Flipped, u)
		}
	}

	for _, edges := range [][]Edge{r.Boundary, r.NonManifold, r.Flipped} {
		sort.Slice(edges, func(i, j int) bool {
			if edges[i][0] != edges[j][0] {
				return edges[i][0] < edges[j][0]
			}
			return edges[i][1] < edges[j][1]
		})
	}
	return r
}

// Volume returns the signed volume enclosed by the mesh. It is positive when the triangles
// of a closed mesh face outwards.
func (m *Mesh) Volume() float64 {
	var v float64
	for _, t := range m.Triangles {
		c := m.Corners(t)
		v += c[0].Dot(c[1].Cross(c[2]))
	}
	return v / 6
}

// Bounds returns the corners of the axis aligned box around the vertices used by triangles.
func (m *Mesh) Bounds() (min, max Vec3) {
	if len(m.Triangles) == 0 {
		return
	}
	for i := range min {
		min[i] = math.Inf(1)
		max[i] = math.Inf(-1)
	}
	for _, t := range m.Triangles {
		for _, v := range t {
			p := m.Vertices[v]
			for i := range p {
				min[i] = math.Min(min[i], p[i])
				max[i] = math.Max(max[i], p[i])
			}
		}
	}
	return min, max
}

// Weld builds an indexed mesh from a triangle soup, merging vertices at identical positions.
func Weld(triangles [][3]Vec3) *Mesh {
	m := &Mesh{Triangles: make([]Triangle, 0, len(triangles))}
	index := make(map[Vec3]int)
	for _, corners := range triangles {
		var t Triangle
		for i, c := range corners {
			n, ok := index[c]
			if !ok {
				n = len(m.Vertices)
				index[c] = n
				m.Vertices = append(m.Vertices, c)
			}
			t[i] = n
		}
		m.Triangles = append(m.Triangles, t)
	}
	return m
}

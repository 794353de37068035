package mesh

// With zero pitch every grid point where cells meet is covered by four coincident vertices
// per layer, one for each quadrant around the point. Faces meeting at a point must agree on
// a single vertex, or the plate falls apart into separately closed pieces.

type quadrant int

const (
	nw quadrant = iota
	ne
	se
	sw
)

// prev walks the quadrants around a point counter-clockwise. Neighbouring quadrants share
// one of the grid edges leaving the point.
func (q quadrant) prev() quadrant { return (q + 3) % 4 }

// raw returns the layout column and row of quadrant q's vertex at grid point (k, m).
func raw(k, m int, q quadrant) (int, int) {
	switch q {
	case nw:
		return 2 * k, 2 * m
	case ne:
		return 2*k + 1, 2 * m
	case sw:
		return 2 * k, 2*m + 1
	}
	return 2*k + 1, 2*m + 1
}

// occupant returns the cell lying in quadrant q of grid point (k, m).
func occupant(k, m int, q quadrant) (int, int) {
	switch q {
	case nw:
		return k - 1, m - 1
	case ne:
		return k, m - 1
	case sw:
		return k - 1, m
	}
	return k, m
}

// point returns the grid point at corner c of cell (x, y) and the quadrant the cell
// occupies around it.
func point(x, y int, c Corner) (int, int, quadrant) {
	switch c {
	case BottomLeft:
		return x, y + 1, ne
	case BottomRight:
		return x + 1, y + 1, nw
	case TopRight:
		return x + 1, y, sw
	}
	return x, y, se
}

// cell returns the vertices of cell (x, y), welded when cells touch.
func (b *builder) cell(x, y int) CellVertices {
	c := b.l.Cell(x, y)
	if !b.p.Contiguous() {
		return c
	}
	up := b.raised(x, y)
	for corner := BottomLeft; corner <= TopLeft; corner++ {
		k, m, q := point(x, y, corner)
		c.Inset[corner] = b.weldInset(k, m)
		if up {
			c.Front[corner] = b.weldFront(k, m, q)
		}
	}
	return c
}

// weldInset returns the one inset vertex used at grid point (k, m). The sides of the plate
// start from the same vertices along the boundary.
func (b *builder) weldInset(k, m int) int {
	i, j := raw(k, m, se)
	return b.l.Inset(i, j)
}

// weldFront returns the front vertex of the raised cell in quadrant q of grid point (k, m).
// Raised cells sharing an edge at the point share the vertex; cells touching only
// diagonally keep their own, so the two walls on each side of the contact line stay apart.
func (b *builder) weldFront(k, m int, q quadrant) int {
	var up [4]bool
	n := 0
	for r := nw; r <= sw; r++ {
		up[r] = b.raised(occupant(k, m, r))
		if up[r] {
			n++
		}
	}
	if n == len(up) {
		q = se
	} else {
		for up[q.prev()] {
			q = q.prev()
		}
	}
	i, j := raw(k, m, q)
	return b.l.Front(i, j)
}

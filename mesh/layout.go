package mesh

// Corner names a corner of a cell or of the plate footprint. Corners are listed
// counter-clockwise as seen from the front of the plate.
type Corner int

const (
	BottomLeft Corner = iota
	BottomRight
	TopRight
	TopLeft
)

// Layout addresses the vertex buffer of a plate W cells wide and H cells high.
//
// The buffer holds two line grids of Cols() x Rows() vertices, the front layer followed by
// the inset layer, and then the four back corners. Column 0 and column Cols()-1 are the
// plate boundary; columns 2x+1 and 2x+2 are the left and right edges of cell column x.
// Rows work the same way from the top of the plate down, so the vertex in row j, column i
// of the front layer is at offset j*Cols()+i.
type Layout struct {
	W, H int
}

// CellVertices holds the vertex offsets of one cell, indexed by Corner.
type CellVertices struct {
	Front [4]int
	Inset [4]int
}

func (l Layout) Cols() int        { return 2*l.W + 2 }
func (l Layout) Rows() int        { return 2*l.H + 2 }
func (l Layout) LayerSize() int   { return l.Cols() * l.Rows() }
func (l Layout) VertexCount() int { return 2*l.LayerSize() + 4 }

// Front returns the offset of the front layer vertex in column i, row j.
func (l Layout) Front(i, j int) int {
	return j*l.Cols() + i
}

// Inset returns the offset of the inset layer vertex in column i, row j.
func (l Layout) Inset(i, j int) int {
	return l.LayerSize() + j*l.Cols() + i
}

// Back returns the offset of a corner of the back face.
func (l Layout) Back(c Corner) int {
	return 2*l.LayerSize() + int(c)
}

// Cell returns the vertex offsets of cell (x, y). It depends on nothing but the layout.
func (l Layout) Cell(x, y int) CellVertices {
	left, right := 2*x+1, 2*x+2
	top, bottom := 2*y+1, 2*y+2

	var c CellVertices
	c.Front[BottomLeft] = l.Front(left, bottom)
	c.Front[BottomRight] = l.Front(right, bottom)
	c.Front[TopRight] = l.Front(right, top)
	c.Front[TopLeft] = l.Front(left, top)
	for i, v := range c.Front {
		c.Inset[i] = v + l.LayerSize()
	}
	return c
}

// lines returns the 2n+2 line positions along one axis of a plate n cells across, starting
// at 0: the boundary, the near and far edge of every cell, and the far boundary.
func lines(n int, p Params) []float64 {
	out := make([]float64, 0, 2*n+2)
	out = append(out, 0)
	for i := 0; i < n; i++ {
		near := p.PixelPitch + float64(i)*(p.PixelSize+p.PixelPitch)
		out = append(out, near, near+p.PixelSize)
	}
	return append(out, p.Extent(n))
}

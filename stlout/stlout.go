// Package stlout serializes plate meshes as STL.
package stlout

import (
	"io"

	"github.com/hschendel/stl"
	"github.com/pkg/errors"

	"github.com/rneatherway/etchplate/mesh"
)

// HeaderSize is the length of the free-form header of a binary STL file.
const HeaderSize = 80

// Tag is written at the start of the binary header.
const Tag = "STL"

// Header returns the binary header written by Write.
func Header() []byte {
	h := make([]byte, HeaderSize)
	copy(h, Tag)
	return h
}

// ToSolid copies m into an STL solid. Normals are left zero; readers recompute them from
// the vertex order.
func ToSolid(m *mesh.Mesh) *stl.Solid {
	solid := &stl.Solid{
		BinaryHeader: Header(),
		Triangles:    make([]stl.Triangle, 0, len(m.Triangles)),
	}
	for _, t := range m.Triangles {
		var tri stl.Triangle
		for i, c := range m.Corners(t) {
			tri.Vertices[i] = stl.Vec3{float32(c[0]), float32(c[1]), float32(c[2])}
		}
		solid.AppendTriangle(tri)
	}
	return solid
}

// Write writes m to w as binary STL. Errors from w are returned as they are.
func Write(w io.Writer, m *mesh.Mesh) error {
	return ToSolid(m).WriteAll(w)
}

// WriteASCII writes m to w as ASCII STL under the given solid name.
func WriteASCII(w io.Writer, m *mesh.Mesh, name string) error {
	solid := ToSolid(m)
	solid.IsAscii = true
	solid.Name = name
	return solid.WriteAll(w)
}

// Read parses binary or ASCII STL and welds it back into an indexed mesh. The format is
// sniffed from the start of r, which is then rewound.
func Read(r io.ReadSeeker) (*mesh.Mesh, error) {
	solid, err := stl.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read stl")
	}
	return FromSolid(solid), nil
}

// FromSolid welds the triangles of an STL solid into an indexed mesh.
func FromSolid(solid *stl.Solid) *mesh.Mesh {
	soup := make([][3]mesh.Vec3, len(solid.Triangles))
	for i, t := range solid.Triangles {
		for j, v := range t.Vertices {
			soup[i][j] = mesh.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
		}
	}
	return mesh.Weld(soup)
}

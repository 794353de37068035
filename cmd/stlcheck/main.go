// Command stlcheck reads an STL file and reports whether it encloses a solid: open or
// over-shared edges, inconsistent winding, degenerate triangles, volume and bounds.
//
// STL stores positions only, so cells of a contiguous plate that touch at a single corner
// come back sharing one vertex there. The wall edge under that vertex then belongs to four
// triangles, two running each way. Such pinched edges are counted separately and accepted.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model3d"
	"go.uber.org/zap"

	"github.com/rneatherway/etchplate/internal/logger"
	"github.com/rneatherway/etchplate/mesh"
	"github.com/rneatherway/etchplate/stlout"
)

// Pseudo-random directions; an axis-aligned ray would graze the plate's grid edges.
var directions = []model3d.Coord3D{
	{X: -0.40475415, Y: 0.86174632, Z: -0.30588783},
	{X: -0.81025101, Y: 0.38452447, Z: -0.44230559},
	{X: -0.09226702, Y: -0.74875317, Z: -0.65639584},
	{X: -0.99668947, Y: 0.08087344, Z: 0.00834144},
	{X: 0.67074042, Y: -0.60098173, Z: 0.43465877},
}

// Result summarises one file.
type Result struct {
	Triangles int
	Vertices  int
	Report    mesh.Report
	Volume    float64
	Min, Max  mesh.Vec3
	// Inside is how many probe rays from just above the centre of the base cross the
	// surface an odd number of times, out of len(directions).
	Inside int
	// Outward is how many of those rays leave through a face whose normal points along
	// the ray.
	Outward int
	// Pinched counts edges taken out of Report.NonManifold because the surface only
	// touches itself along them.
	Pinched int
}

// OK reports whether the mesh is closed and every probe agrees it is the right way out.
func (r Result) OK() bool {
	return r.Report.Closed() && r.Volume > 0 &&
		r.Inside == len(directions) && r.Outward == len(directions)
}

// Check inspects m and probes it with rays.
func Check(m *mesh.Mesh) Result {
	res := Result{
		Triangles: len(m.Triangles),
		Vertices:  len(m.Vertices),
		Report:    m.Inspect(),
		Volume:    m.Volume(),
	}
	res.Report.NonManifold, res.Pinched = dropPinched(m, res.Report.NonManifold)
	res.Min, res.Max = m.Bounds()
	if len(m.Triangles) == 0 {
		return res
	}

	tris := make([]*model3d.Triangle, len(m.Triangles))
	for i, t := range m.Triangles {
		c := m.Corners(t)
		tris[i] = &model3d.Triangle{coord(c[0]), coord(c[1]), coord(c[2])}
	}
	collider := model3d.MeshToCollider(model3d.NewMeshTriangles(tris))

	origin := model3d.Coord3D{
		X: (res.Min[0] + res.Max[0]) / 2,
		Y: (res.Min[1] + res.Max[1]) / 2,
		Z: res.Min[2] + (res.Max[2]-res.Min[2])*1e-3,
	}
	epsilon := collider.Max().Sub(collider.Min()).Norm() * 1e-8
	for _, d := range directions {
		var hits []model3d.RayCollision
		collider.RayCollisions(&model3d.Ray{Origin: origin, Direction: d}, func(r model3d.RayCollision) {
			hits = append(hits, r)
		})
		sort.Slice(hits, func(i, j int) bool { return hits[i].Scale < hits[j].Scale })

		// Hits on a shared edge are counted once.
		var unique []model3d.RayCollision
		for _, h := range hits {
			if len(unique) == 0 || h.Scale-unique[len(unique)-1].Scale > epsilon {
				unique = append(unique, h)
			}
		}
		if len(unique)%2 == 1 {
			res.Inside++
		}
		if len(unique) > 0 && unique[0].Normal.Dot(d) > 0 {
			res.Outward++
		}
	}
	return res
}

// dropPinched removes the edges traversed by exactly two triangles in each direction whose
// opposite corners are four different vertices.
func dropPinched(m *mesh.Mesh, edges []mesh.Edge) ([]mesh.Edge, int) {
	if len(edges) == 0 {
		return edges, 0
	}
	// Opposite corners of the triangles along each directed edge.
	opposite := make(map[mesh.Edge][]int, 3*len(m.Triangles))
	for _, t := range m.Triangles {
		for i := range t {
			e := mesh.Edge{t[i], t[(i+1)%3]}
			opposite[e] = append(opposite[e], t[(i+2)%3])
		}
	}
	var kept []mesh.Edge
	pinched := 0
	for _, e := range edges {
		fwd, back := opposite[e], opposite[mesh.Edge{e[1], e[0]}]
		if len(fwd) == 2 && len(back) == 2 && distinct(append(append([]int{}, fwd...), back...)) {
			pinched++
			continue
		}
		kept = append(kept, e)
	}
	return kept, pinched
}

func distinct(vs []int) bool {
	seen := make(map[int]bool, len(vs))
	for _, v := range vs {
		if seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

func coord(v mesh.Vec3) model3d.Coord3D {
	return model3d.Coord3D{X: v[0], Y: v[1], Z: v[2]}
}

// Print writes a human readable report.
func (r Result) Print(w io.Writer, name string) {
	fmt.Fprintf(w, "%s: %d triangles, %d vertices\n", name, r.Triangles, r.Vertices)
	fmt.Fprintf(w, "  bounds     %.3f x %.3f x %.3f mm\n",
		r.Max[0]-r.Min[0], r.Max[1]-r.Min[1], r.Max[2]-r.Min[2])
	fmt.Fprintf(w, "  volume     %.3f mm3\n", r.Volume)
	fmt.Fprintf(w, "  boundary   %d\n", len(r.Report.Boundary))
	fmt.Fprintf(w, "  nonmanifold %d\n", len(r.Report.NonManifold))
	fmt.Fprintf(w, "  pinched    %d\n", r.Pinched)
	fmt.Fprintf(w, "  flipped    %d\n", len(r.Report.Flipped))
	fmt.Fprintf(w, "  degenerate %d\n", len(r.Report.Degenerate))
	fmt.Fprintf(w, "  rays       %d/%d inside, %d/%d outward\n",
		r.Inside, len(directions), r.Outward, len(directions))
	if r.OK() {
		fmt.Fprintln(w, "  OK")
	} else {
		fmt.Fprintln(w, "  NOT A CLOSED SOLID")
	}
}

func checkFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	m, err := stlout.Read(f)
	if err != nil {
		return Result{}, errors.Wrap(err, path)
	}
	return Check(m), nil
}

func realMain() error {
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s [OPTIONS] <stl file>...:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return errors.New("no input file given")
	}
	if err := logger.Init(*logLevel, ""); err != nil {
		return err
	}
	defer logger.Sync()

	failed := 0
	for _, path := range flag.Args() {
		logger.Log.Debug("Checking", zap.String("path", path))
		res, err := checkFile(path)
		if err != nil {
			return err
		}
		res.Print(os.Stdout, path)
		if !res.OK() {
			logger.Log.Warn("Not a closed solid", zap.String("path", path))
			failed++
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d files failed", failed, flag.NArg())
	}
	return nil
}

func main() {
	err := realMain()
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
}

package scene

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// ExportModel writes the named object (or every object when name is empty)
// to path. The format is inferred from the extension when format is empty;
// "stl" and "obj" are supported. Solids are exported at bounding-box
// granularity, matching the rest of the simulator.
func (d *Document) ExportModel(name, path, format string) error {
	objects := d.Objects()
	if name != "" {
		o, err := d.Object(name)
		if err != nil {
			return err
		}
		objects = []*Object{o}
	}
	if len(objects) == 0 {
		return fmt.Errorf("nothing to export")
	}

	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	switch strings.ToLower(format) {
	case "stl":
		err = writeSTL(w, d.Name, objects)
	case "obj":
		err = writeOBJ(w, objects)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return err
	}
	return w.Flush()
}

// boxTriangles returns the 12 triangles of an axis-aligned box as vertex
// triples with outward normals.
type triangle struct {
	normal  Vec3
	a, b, c Vec3
}

func boxTriangles(min, max Vec3) []triangle {
	v := [8]Vec3{
		{min[0], min[1], min[2]}, {max[0], min[1], min[2]},
		{max[0], max[1], min[2]}, {min[0], max[1], min[2]},
		{min[0], min[1], max[2]}, {max[0], min[1], max[2]},
		{max[0], max[1], max[2]}, {min[0], max[1], max[2]},
	}
	quads := []struct {
		n          Vec3
		a, b, c, e int
	}{
		{Vec3{0, 0, -1}, 0, 3, 2, 1},
		{Vec3{0, 0, 1}, 4, 5, 6, 7},
		{Vec3{0, -1, 0}, 0, 1, 5, 4},
		{Vec3{1, 0, 0}, 1, 2, 6, 5},
		{Vec3{0, 1, 0}, 2, 3, 7, 6},
		{Vec3{-1, 0, 0}, 3, 0, 4, 7},
	}
	tris := make([]triangle, 0, 12)
	for _, q := range quads {
		tris = append(tris,
			triangle{q.n, v[q.a], v[q.b], v[q.c]},
			triangle{q.n, v[q.a], v[q.c], v[q.e]},
		)
	}
	return tris
}

func writeSTL(w io.Writer, solidName string, objects []*Object) error {
	if solidName == "" {
		solidName = "model"
	}
	if _, err := fmt.Fprintf(w, "solid %s\n", solidName); err != nil {
		return err
	}
	for _, o := range objects {
		for _, t := range boxTriangles(o.Shape.Min, o.Shape.Max) {
			fmt.Fprintf(w, "  facet normal %g %g %g\n", t.normal[0], t.normal[1], t.normal[2])
			fmt.Fprintf(w, "    outer loop\n")
			for _, p := range []Vec3{t.a, t.b, t.c} {
				fmt.Fprintf(w, "      vertex %g %g %g\n", p[0], p[1], p[2])
			}
			fmt.Fprintf(w, "    endloop\n")
			fmt.Fprintf(w, "  endfacet\n")
		}
	}
	_, err := fmt.Fprintf(w, "endsolid %s\n", solidName)
	return err
}

func writeOBJ(w io.Writer, objects []*Object) error {
	base := 1
	for _, o := range objects {
		if _, err := fmt.Fprintf(w, "o %s\n", o.Name); err != nil {
			return err
		}
		min, max := o.Shape.Min, o.Shape.Max
		verts := [8]Vec3{
			{min[0], min[1], min[2]}, {max[0], min[1], min[2]},
			{max[0], max[1], min[2]}, {min[0], max[1], min[2]},
			{min[0], min[1], max[2]}, {max[0], min[1], max[2]},
			{max[0], max[1], max[2]}, {min[0], max[1], max[2]},
		}
		for _, p := range verts {
			fmt.Fprintf(w, "v %g %g %g\n", p[0], p[1], p[2])
		}
		faces := [][4]int{
			{0, 3, 2, 1}, {4, 5, 6, 7}, {0, 1, 5, 4},
			{1, 2, 6, 5}, {2, 3, 7, 6}, {3, 0, 4, 7},
		}
		for _, f := range faces {
			fmt.Fprintf(w, "f %d %d %d %d\n", base+f[0], base+f[1], base+f[2], base+f[3])
		}
		base += 8
	}
	return nil
}

// ImportModel reads an ASCII STL or OBJ file and adds a mesh feature carrying
// its bounding geometry. Returns the created object.
func (d *Document) ImportModel(path, name string) (*Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	var (
		min      = Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
		max      = Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
		vertices int
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		var keyword string
		switch ext {
		case "stl":
			keyword = "vertex"
		case "obj":
			keyword = "v"
		default:
			return nil, fmt.Errorf("unsupported import format %q", ext)
		}
		if fields[0] != keyword {
			continue
		}
		var p Vec3
		for i := 0; i < 3; i++ {
			if _, err := fmt.Sscanf(fields[i+1], "%g", &p[i]); err != nil {
				return nil, fmt.Errorf("bad vertex at line %q: %w", scanner.Text(), err)
			}
		}
		min = vecMin(min, p)
		max = vecMax(max, p)
		vertices++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if vertices == 0 {
		return nil, fmt.Errorf("no vertices found in %s", path)
	}

	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	l, w, h := max[0]-min[0], max[1]-min[1], max[2]-min[2]
	shape := boxShape(Vec3{(min[0] + max[0]) / 2, (min[1] + max[1]) / 2, min[2]}, l, w, h)
	return d.add(&Object{Name: name, Type: "Mesh::Feature", Shape: shape}), nil
}

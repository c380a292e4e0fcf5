package scene

import (
	"fmt"
	"math"
)

// PrimitiveSpec describes a primitive solid to create. Zero-valued dimensions
// default to 1 unit. Position is the center of the solid's base.
type PrimitiveSpec struct {
	Kind     string // box, cylinder, sphere, cone, torus, plane
	Name     string
	Position Vec3
	Length   float64 // box/plane X extent
	Width    float64 // box/plane Y extent
	Height   float64 // box/cylinder/cone Z extent
	Radius   float64 // cylinder/sphere/cone/torus (major)
	Tube     float64 // torus minor radius
}

func (p *PrimitiveSpec) applyDefaults() {
	if p.Length <= 0 {
		p.Length = 1
	}
	if p.Width <= 0 {
		p.Width = 1
	}
	if p.Height <= 0 {
		p.Height = 1
	}
	if p.Radius <= 0 {
		p.Radius = 1
	}
	if p.Tube <= 0 {
		p.Tube = p.Radius / 4
	}
}

// CreatePrimitive adds a primitive solid to the document and returns it.
func (d *Document) CreatePrimitive(spec PrimitiveSpec) (*Object, error) {
	spec.applyDefaults()

	var (
		shape Shape
		typ   string
		base  string
	)

	switch spec.Kind {
	case "box":
		shape = boxShape(spec.Position, spec.Length, spec.Width, spec.Height)
		typ, base = "Part::Box", "Box"
	case "cylinder":
		shape = cylinderShape(spec.Position, spec.Radius, spec.Height)
		typ, base = "Part::Cylinder", "Cylinder"
	case "sphere":
		shape = sphereShape(spec.Position, spec.Radius)
		typ, base = "Part::Sphere", "Sphere"
	case "cone":
		shape = coneShape(spec.Position, spec.Radius, spec.Height)
		typ, base = "Part::Cone", "Cone"
	case "torus":
		shape = torusShape(spec.Position, spec.Radius, spec.Tube)
		typ, base = "Part::Torus", "Torus"
	case "plane":
		shape = planeShape(spec.Position, spec.Length, spec.Width)
		typ, base = "Part::Plane", "Plane"
	default:
		return nil, fmt.Errorf("unknown primitive kind %q", spec.Kind)
	}

	name := spec.Name
	if name == "" {
		name = base
	}
	return d.add(&Object{Name: name, Type: typ, Shape: shape}), nil
}

// boxShape builds a box with its base centered at pos, extending up in Z.
func boxShape(pos Vec3, l, w, h float64) Shape {
	min := Vec3{pos[0] - l/2, pos[1] - w/2, pos[2]}
	max := Vec3{pos[0] + l/2, pos[1] + w/2, pos[2] + h}
	c := Vec3{pos[0], pos[1], pos[2] + h/2}

	faces := []Face{
		{Centroid: Vec3{c[0], c[1], min[2]}, Normal: Vec3{0, 0, -1}, Area: l * w}, // bottom
		{Centroid: Vec3{c[0], c[1], max[2]}, Normal: Vec3{0, 0, 1}, Area: l * w},  // top
		{Centroid: Vec3{min[0], c[1], c[2]}, Normal: Vec3{-1, 0, 0}, Area: w * h},
		{Centroid: Vec3{max[0], c[1], c[2]}, Normal: Vec3{1, 0, 0}, Area: w * h},
		{Centroid: Vec3{c[0], min[1], c[2]}, Normal: Vec3{0, -1, 0}, Area: l * h},
		{Centroid: Vec3{c[0], max[1], c[2]}, Normal: Vec3{0, 1, 0}, Area: l * h},
	}

	var edges []Edge
	// 4 edges along each axis
	for _, y := range []float64{min[1], max[1]} {
		for _, z := range []float64{min[2], max[2]} {
			edges = append(edges, Edge{Center: Vec3{c[0], y, z}, Length: l})
		}
	}
	for _, x := range []float64{min[0], max[0]} {
		for _, z := range []float64{min[2], max[2]} {
			edges = append(edges, Edge{Center: Vec3{x, c[1], z}, Length: w})
		}
	}
	for _, x := range []float64{min[0], max[0]} {
		for _, y := range []float64{min[1], max[1]} {
			edges = append(edges, Edge{Center: Vec3{x, y, c[2]}, Length: h})
		}
	}

	s := Shape{
		Min:    min,
		Max:    max,
		Volume: l * w * h,
		Area:   2 * (l*w + l*h + w*h),
		Faces:  faces,
		Edges:  edges,
	}
	reindex(&s)
	return s
}

func cylinderShape(pos Vec3, r, h float64) Shape {
	c := Vec3{pos[0], pos[1], pos[2] + h/2}
	s := Shape{
		Min:    Vec3{pos[0] - r, pos[1] - r, pos[2]},
		Max:    Vec3{pos[0] + r, pos[1] + r, pos[2] + h},
		Volume: math.Pi * r * r * h,
		Area:   2*math.Pi*r*h + 2*math.Pi*r*r,
		Faces: []Face{
			{Centroid: c, Normal: Vec3{0, 0, 1}, Area: 2 * math.Pi * r * h}, // lateral; normal reports the axis
			{Centroid: Vec3{pos[0], pos[1], pos[2] + h}, Normal: Vec3{0, 0, 1}, Area: math.Pi * r * r},
			{Centroid: pos, Normal: Vec3{0, 0, -1}, Area: math.Pi * r * r},
		},
		Edges: []Edge{
			{Center: Vec3{pos[0], pos[1], pos[2] + h}, Length: 2 * math.Pi * r},
			{Center: pos, Length: 2 * math.Pi * r},
		},
	}
	reindex(&s)
	return s
}

func sphereShape(pos Vec3, r float64) Shape {
	s := Shape{
		Min:    Vec3{pos[0] - r, pos[1] - r, pos[2] - r},
		Max:    Vec3{pos[0] + r, pos[1] + r, pos[2] + r},
		Volume: 4.0 / 3.0 * math.Pi * r * r * r,
		Area:   4 * math.Pi * r * r,
		Faces: []Face{
			{Centroid: pos, Normal: Vec3{0, 0, 1}, Area: 4 * math.Pi * r * r},
		},
	}
	reindex(&s)
	return s
}

func coneShape(pos Vec3, r, h float64) Shape {
	slant := math.Sqrt(r*r + h*h)
	s := Shape{
		Min:    Vec3{pos[0] - r, pos[1] - r, pos[2]},
		Max:    Vec3{pos[0] + r, pos[1] + r, pos[2] + h},
		Volume: math.Pi * r * r * h / 3,
		Area:   math.Pi*r*slant + math.Pi*r*r,
		Faces: []Face{
			{Centroid: Vec3{pos[0], pos[1], pos[2] + h/3}, Normal: Vec3{0, 0, 1}, Area: math.Pi * r * slant},
			{Centroid: pos, Normal: Vec3{0, 0, -1}, Area: math.Pi * r * r},
		},
		Edges: []Edge{
			{Center: pos, Length: 2 * math.Pi * r},
		},
	}
	reindex(&s)
	return s
}

func torusShape(pos Vec3, major, tube float64) Shape {
	s := Shape{
		Min:    Vec3{pos[0] - major - tube, pos[1] - major - tube, pos[2] - tube},
		Max:    Vec3{pos[0] + major + tube, pos[1] + major + tube, pos[2] + tube},
		Volume: 2 * math.Pi * math.Pi * major * tube * tube,
		Area:   4 * math.Pi * math.Pi * major * tube,
		Faces: []Face{
			{Centroid: pos, Normal: Vec3{0, 0, 1}, Area: 4 * math.Pi * math.Pi * major * tube},
		},
	}
	reindex(&s)
	return s
}

func planeShape(pos Vec3, l, w float64) Shape {
	min := Vec3{pos[0] - l/2, pos[1] - w/2, pos[2]}
	max := Vec3{pos[0] + l/2, pos[1] + w/2, pos[2]}
	s := Shape{
		Min:  min,
		Max:  max,
		Area: l * w,
		Faces: []Face{
			{Centroid: pos, Normal: Vec3{0, 0, 1}, Area: l * w},
		},
		Edges: []Edge{
			{Center: Vec3{pos[0], min[1], pos[2]}, Length: l},
			{Center: Vec3{pos[0], max[1], pos[2]}, Length: l},
			{Center: Vec3{min[0], pos[1], pos[2]}, Length: w},
			{Center: Vec3{max[0], pos[1], pos[2]}, Length: w},
		},
	}
	reindex(&s)
	return s
}

// reindex assigns 1-based face and edge indexes, matching host naming
// ("Face1", "Edge1", ...).
func reindex(s *Shape) {
	for i := range s.Faces {
		s.Faces[i].Index = i + 1
	}
	for i := range s.Edges {
		s.Edges[i].Index = i + 1
	}
}

package scene

import (
	"fmt"
	"math"
)

// Transform translates, rotates (about the object's vertical axis, degrees)
// and uniformly scales an object.
func (d *Document) Transform(name string, translate Vec3, rotateZDeg, scale float64) error {
	o, err := d.Object(name)
	if err != nil {
		return err
	}
	s := &o.Shape

	if scale > 0 && scale != 1 {
		c := s.Center()
		scalePoint := func(p Vec3) Vec3 { return c.Add(p.Sub(c).Scale(scale)) }
		s.Min = scalePoint(s.Min)
		s.Max = scalePoint(s.Max)
		s.Volume *= scale * scale * scale
		s.Area *= scale * scale
		for i := range s.Faces {
			s.Faces[i].Centroid = scalePoint(s.Faces[i].Centroid)
			s.Faces[i].Area *= scale * scale
		}
		for i := range s.Edges {
			s.Edges[i].Center = scalePoint(s.Edges[i].Center)
			s.Edges[i].Length *= scale
		}
	}

	if rotateZDeg != 0 {
		c := s.Center()
		rad := rotateZDeg * math.Pi / 180
		sin, cos := math.Sin(rad), math.Cos(rad)
		rot := func(p Vec3) Vec3 {
			x, y := p[0]-c[0], p[1]-c[1]
			return Vec3{c[0] + x*cos - y*sin, c[1] + x*sin + y*cos, p[2]}
		}
		rotDir := func(n Vec3) Vec3 {
			return Vec3{n[0]*cos - n[1]*sin, n[0]*sin + n[1]*cos, n[2]}
		}
		for i := range s.Faces {
			s.Faces[i].Centroid = rot(s.Faces[i].Centroid)
			s.Faces[i].Normal = rotDir(s.Faces[i].Normal)
		}
		for i := range s.Edges {
			s.Edges[i].Center = rot(s.Edges[i].Center)
		}
		// Rebuild the axis-aligned box around the rotated corners.
		a, b := rot(s.Min), rot(s.Max)
		a2, b2 := rot(Vec3{s.Min[0], s.Max[1], s.Min[2]}), rot(Vec3{s.Max[0], s.Min[1], s.Max[2]})
		s.Min = vecMin(vecMin(a, b), vecMin(a2, b2))
		s.Max = vecMax(vecMax(a, b), vecMax(a2, b2))
	}

	if translate != (Vec3{}) {
		s.Min = s.Min.Add(translate)
		s.Max = s.Max.Add(translate)
		for i := range s.Faces {
			s.Faces[i].Centroid = s.Faces[i].Centroid.Add(translate)
		}
		for i := range s.Edges {
			s.Edges[i].Center = s.Edges[i].Center.Add(translate)
		}
	}

	d.bump()
	return nil
}

// ExtrudeFaces pushes the given faces (1-based indexes) outward along their
// normals by distance, growing the solid accordingly.
func (d *Document) ExtrudeFaces(name string, faces []int, distance float64) error {
	o, err := d.Object(name)
	if err != nil {
		return err
	}
	if len(faces) == 0 {
		return fmt.Errorf("%w: no faces given", ErrBadElement)
	}
	s := &o.Shape
	for _, idx := range faces {
		if idx < 1 || idx > len(s.Faces) {
			return fmt.Errorf("%w: Face%d on %q", ErrBadElement, idx, name)
		}
	}
	for _, idx := range faces {
		f := &s.Faces[idx-1]
		offset := f.Normal.Scale(distance)
		f.Centroid = f.Centroid.Add(offset)
		s.Volume += f.Area * distance
		s.Min = vecMin(s.Min, f.Centroid)
		s.Max = vecMax(s.Max, f.Centroid)
	}
	d.bump()
	return nil
}

// FilletEdges rounds the given edges (1-based indexes) with the given radius.
func (d *Document) FilletEdges(name string, edges []int, radius float64) error {
	return d.finishEdges(name, "fillet", edges, radius)
}

// ChamferEdges bevels the given edges (1-based indexes) with the given setback.
func (d *Document) ChamferEdges(name string, edges []int, distance float64) error {
	return d.finishEdges(name, "chamfer", edges, distance)
}

func (d *Document) finishEdges(name, kind string, edges []int, value float64) error {
	o, err := d.Object(name)
	if err != nil {
		return err
	}
	if len(edges) == 0 {
		return fmt.Errorf("%w: no edges given", ErrBadElement)
	}
	if value <= 0 {
		return fmt.Errorf("%s value must be positive, got %g", kind, value)
	}
	for _, idx := range edges {
		if idx < 1 || idx > len(o.Shape.Edges) {
			return fmt.Errorf("%w: Edge%d on %q", ErrBadElement, idx, name)
		}
	}

	// Material removed along each finished edge: (1-pi/4)r^2 per unit for a
	// fillet, r^2/2 for a chamfer.
	perUnit := value * value / 2
	if kind == "fillet" {
		perUnit = (1 - math.Pi/4) * value * value
	}
	for _, idx := range edges {
		o.Shape.Volume -= perUnit * o.Shape.Edges[idx-1].Length
	}
	if o.Shape.Volume < 0 {
		o.Shape.Volume = 0
	}

	o.Finishes = append(o.Finishes, Finish{Kind: kind, Edges: edges, Value: value})
	d.bump()
	return nil
}

// Boolean combines target and tool, consuming both and producing a new object.
// op is "union", "difference" or "intersect". Volumes are approximated at
// bounding-box granularity.
func (d *Document) Boolean(op, target, tool, resultName string) (*Object, error) {
	t, err := d.Object(target)
	if err != nil {
		return nil, err
	}
	u, err := d.Object(tool)
	if err != nil {
		return nil, err
	}

	overlapMin := vecMax(t.Shape.Min, u.Shape.Min)
	overlapMax := vecMin(t.Shape.Max, u.Shape.Max)
	overlap := 0.0
	if overlapMin[0] < overlapMax[0] && overlapMin[1] < overlapMax[1] && overlapMin[2] < overlapMax[2] {
		overlap = (overlapMax[0] - overlapMin[0]) * (overlapMax[1] - overlapMin[1]) * (overlapMax[2] - overlapMin[2])
	}

	var (
		min, max Vec3
		vol      float64
		typ      string
		base     string
	)
	switch op {
	case "union":
		min, max = vecMin(t.Shape.Min, u.Shape.Min), vecMax(t.Shape.Max, u.Shape.Max)
		vol = t.Shape.Volume + u.Shape.Volume - math.Min(overlap, math.Min(t.Shape.Volume, u.Shape.Volume))
		typ, base = "Part::Fuse", "Fusion"
	case "difference":
		min, max = t.Shape.Min, t.Shape.Max
		vol = math.Max(t.Shape.Volume-overlap, 0)
		typ, base = "Part::Cut", "Cut"
	case "intersect":
		if overlap == 0 {
			min, max = t.Shape.Min, t.Shape.Min
		} else {
			min, max = overlapMin, overlapMax
		}
		vol = math.Min(overlap, math.Min(t.Shape.Volume, u.Shape.Volume))
		typ, base = "Part::Common", "Common"
	default:
		return nil, fmt.Errorf("unknown boolean op %q", op)
	}

	if err := d.Delete(target); err != nil {
		return nil, err
	}
	if err := d.Delete(tool); err != nil {
		return nil, err
	}

	l, w, h := max[0]-min[0], max[1]-min[1], max[2]-min[2]
	shape := boxShape(Vec3{(min[0] + max[0]) / 2, (min[1] + max[1]) / 2, min[2]}, l, w, h)
	shape.Volume = vol

	name := resultName
	if name == "" {
		name = base
	}
	return d.add(&Object{Name: name, Type: typ, Shape: shape}), nil
}

// Mirror creates a mirrored copy of an object across a plane through the
// origin. plane is "xy", "xz" or "yz".
func (d *Document) Mirror(name, plane, resultName string) (*Object, error) {
	o, err := d.Object(name)
	if err != nil {
		return nil, err
	}

	var axis int
	switch plane {
	case "xy":
		axis = 2
	case "xz":
		axis = 1
	case "yz":
		axis = 0
	default:
		return nil, fmt.Errorf("unknown mirror plane %q", plane)
	}

	flip := func(p Vec3) Vec3 {
		p[axis] = -p[axis]
		return p
	}

	s := o.Shape // copy
	s.Faces = append([]Face(nil), o.Shape.Faces...)
	s.Edges = append([]Edge(nil), o.Shape.Edges...)
	a, b := flip(s.Min), flip(s.Max)
	s.Min, s.Max = vecMin(a, b), vecMax(a, b)
	for i := range s.Faces {
		s.Faces[i].Centroid = flip(s.Faces[i].Centroid)
		s.Faces[i].Normal = flip(s.Faces[i].Normal)
	}
	for i := range s.Edges {
		s.Edges[i].Center = flip(s.Edges[i].Center)
	}

	newName := resultName
	if newName == "" {
		newName = o.Name + "_mirror"
	}
	return d.add(&Object{Name: newName, Type: o.Type, Shape: s}), nil
}

// PatternLinear creates count-1 translated copies of an object, spaced by
// spacing, and returns all created names.
func (d *Document) PatternLinear(name string, count int, spacing Vec3) ([]string, error) {
	o, err := d.Object(name)
	if err != nil {
		return nil, err
	}
	if count < 2 {
		return nil, fmt.Errorf("pattern count must be at least 2, got %d", count)
	}

	created := make([]string, 0, count-1)
	for i := 1; i < count; i++ {
		copyObj := cloneObject(o)
		copyObj.Name = fmt.Sprintf("%s_%d", o.Name, i)
		added := d.add(copyObj)
		if err := d.Transform(added.Name, spacing.Scale(float64(i)), 0, 1); err != nil {
			return created, err
		}
		created = append(created, added.Name)
	}
	return created, nil
}

// PatternPolar creates count-1 copies of an object rotated about the Z axis
// through the origin, evenly spread over totalAngleDeg.
func (d *Document) PatternPolar(name string, count int, totalAngleDeg float64) ([]string, error) {
	o, err := d.Object(name)
	if err != nil {
		return nil, err
	}
	if count < 2 {
		return nil, fmt.Errorf("pattern count must be at least 2, got %d", count)
	}
	if totalAngleDeg == 0 {
		totalAngleDeg = 360
	}

	step := totalAngleDeg / float64(count)
	created := make([]string, 0, count-1)
	for i := 1; i < count; i++ {
		copyObj := cloneObject(o)
		copyObj.Name = fmt.Sprintf("%s_%d", o.Name, i)
		added := d.add(copyObj)

		// Rotate the copy's center about the global origin, then spin the
		// copy itself to match.
		angle := step * float64(i) * math.Pi / 180
		c := added.Shape.Center()
		sin, cos := math.Sin(angle), math.Cos(angle)
		target := Vec3{c[0]*cos - c[1]*sin, c[0]*sin + c[1]*cos, c[2]}
		if err := d.Transform(added.Name, target.Sub(c), step*float64(i), 1); err != nil {
			return created, err
		}
		created = append(created, added.Name)
	}
	return created, nil
}

func cloneObject(o *Object) *Object {
	s := o.Shape
	s.Faces = append([]Face(nil), o.Shape.Faces...)
	s.Edges = append([]Edge(nil), o.Shape.Edges...)
	return &Object{Name: o.Name, Label: o.Label, Type: o.Type, Shape: s,
		Finishes: append([]Finish(nil), o.Finishes...)}
}

// MassProperties describes an object's bulk measurements.
type MassProperties struct {
	Volume   float64
	Area     float64
	Centroid Vec3
}

// Measure returns bulk measurements for one object.
func (d *Document) Measure(name string) (MassProperties, error) {
	o, err := d.Object(name)
	if err != nil {
		return MassProperties{}, err
	}
	return MassProperties{
		Volume:   o.Shape.Volume,
		Area:     o.Shape.Area,
		Centroid: o.Shape.Center(),
	}, nil
}

// Distance returns the distance between the centers of two objects.
func (d *Document) Distance(a, b string) (float64, error) {
	oa, err := d.Object(a)
	if err != nil {
		return 0, err
	}
	ob, err := d.Object(b)
	if err != nil {
		return 0, err
	}
	return oa.Shape.Center().Dist(ob.Shape.Center()), nil
}

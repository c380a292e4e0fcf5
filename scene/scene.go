// Package scene is an in-memory CAD document model. It stands in for the host
// application's geometry kernel: the executor's structured commands are thin
// wrappers over it, and the daemon runs the bridge against it. Geometry is
// analytic — solids carry derived bounding boxes, volumes and per-face/edge
// descriptors rather than tessellated meshes.
package scene

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotFound is returned when a named object does not exist in the document.
var ErrNotFound = errors.New("object not found")

// ErrBadElement is returned when a face or edge index is out of range.
var ErrBadElement = errors.New("no such sub-element")

// Vec3 is a point or direction in model space.
type Vec3 [3]float64

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Dist returns the Euclidean distance between v and o.
func (v Vec3) Dist(o Vec3) float64 {
	d := v.Sub(o)
	return math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
}

// Face is a computed descriptor for one face of a solid.
type Face struct {
	Index    int
	Centroid Vec3
	Normal   Vec3
	Area     float64
}

// Edge is a computed descriptor for one edge of a solid.
type Edge struct {
	Index  int
	Center Vec3
	Length float64
}

// Shape holds the derived geometry of one object.
type Shape struct {
	Min    Vec3
	Max    Vec3
	Volume float64
	Area   float64
	Faces  []Face
	Edges  []Edge
}

// Center returns the center of the shape's bounding box.
func (s *Shape) Center() Vec3 {
	return Vec3{
		(s.Min[0] + s.Max[0]) / 2,
		(s.Min[1] + s.Max[1]) / 2,
		(s.Min[2] + s.Max[2]) / 2,
	}
}

// Dimensions returns the bounding-box extents (length, width, height).
func (s *Shape) Dimensions() (l, w, h float64) {
	return s.Max[0] - s.Min[0], s.Max[1] - s.Min[1], s.Max[2] - s.Min[2]
}

// Finish records an applied edge finishing operation (fillet or chamfer).
type Finish struct {
	Kind  string // "fillet" or "chamfer"
	Edges []int
	Value float64 // radius or setback distance
}

// Object is one named feature in a document.
type Object struct {
	Name     string
	Label    string
	Type     string
	Shape    Shape
	Finishes []Finish
}

// Selection references an object and optionally sub-elements within it,
// e.g. {Object: "Box", SubElements: ["Face3", "Edge5"]}.
type Selection struct {
	Object      string
	SubElements []string
}

// Document is the host's session context: the open document and its scene
// graph. Only the UI thread may mutate it; the bridge enforces that by
// funnelling all access through the main-thread dispatcher.
type Document struct {
	Name string
	// Revision increments on every mutation. Cache keys derive from it.
	Revision int64

	objects   []*Object
	byName    map[string]*Object
	selection []Selection
}

// NewDocument creates an empty document.
func NewDocument(name string) *Document {
	return &Document{
		Name:   name,
		byName: make(map[string]*Object),
	}
}

// Objects returns objects in creation order.
func (d *Document) Objects() []*Object {
	return d.objects
}

// Object looks up an object by name.
func (d *Document) Object(name string) (*Object, error) {
	o, ok := d.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return o, nil
}

// Delete removes an object and drops any selection referring to it.
func (d *Document) Delete(name string) error {
	if _, ok := d.byName[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(d.byName, name)
	for i, o := range d.objects {
		if o.Name == name {
			d.objects = append(d.objects[:i], d.objects[i+1:]...)
			break
		}
	}
	kept := d.selection[:0]
	for _, sel := range d.selection {
		if sel.Object != name {
			kept = append(kept, sel)
		}
	}
	d.selection = kept
	d.bump()
	return nil
}

// Selection returns the current selection set.
func (d *Document) Selection() []Selection {
	return d.selection
}

// SetSelection replaces the selection set. Referenced objects must exist.
func (d *Document) SetSelection(sel []Selection) error {
	for _, s := range sel {
		obj, err := d.Object(s.Object)
		if err != nil {
			return err
		}
		for _, sub := range s.SubElements {
			if _, err := obj.SubElement(sub); err != nil {
				return err
			}
		}
	}
	d.selection = sel
	d.bump()
	return nil
}

// ClearSelection empties the selection set.
func (d *Document) ClearSelection() {
	d.selection = nil
	d.bump()
}

// BoundingBox returns the box enclosing every object, and false when the
// document is empty.
func (d *Document) BoundingBox() (min, max Vec3, ok bool) {
	if len(d.objects) == 0 {
		return Vec3{}, Vec3{}, false
	}
	min = d.objects[0].Shape.Min
	max = d.objects[0].Shape.Max
	for _, o := range d.objects[1:] {
		min = vecMin(min, o.Shape.Min)
		max = vecMax(max, o.Shape.Max)
	}
	return min, max, true
}

func (d *Document) bump() {
	d.Revision++
}

// add registers an object, renaming it if the name is taken.
func (d *Document) add(o *Object) *Object {
	o.Name = d.uniqueName(o.Name)
	if o.Label == "" {
		o.Label = o.Name
	}
	d.objects = append(d.objects, o)
	d.byName[o.Name] = o
	d.bump()
	return o
}

func (d *Document) uniqueName(base string) string {
	if base == "" {
		base = "Object"
	}
	if _, taken := d.byName[base]; !taken {
		return base
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s%03d", base, i)
		if _, taken := d.byName[name]; !taken {
			return name
		}
	}
}

// SubElement resolves names like "Face3" or "Edge5" (1-based, matching the
// host convention) to the corresponding descriptor.
func (o *Object) SubElement(name string) (any, error) {
	var idx int
	switch {
	case len(name) > 4 && name[:4] == "Face":
		if _, err := fmt.Sscanf(name[4:], "%d", &idx); err == nil && idx >= 1 && idx <= len(o.Shape.Faces) {
			return o.Shape.Faces[idx-1], nil
		}
	case len(name) > 4 && name[:4] == "Edge":
		if _, err := fmt.Sscanf(name[4:], "%d", &idx); err == nil && idx >= 1 && idx <= len(o.Shape.Edges) {
			return o.Shape.Edges[idx-1], nil
		}
	}
	return nil, fmt.Errorf("%w: %s on %q", ErrBadElement, name, o.Name)
}

func vecMin(a, b Vec3) Vec3 {
	return Vec3{math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Min(a[2], b[2])}
}

func vecMax(a, b Vec3) Vec3 {
	return Vec3{math.Max(a[0], b[0]), math.Max(a[1], b[1]), math.Max(a[2], b[2])}
}

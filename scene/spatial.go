package scene

import (
	"fmt"
	"sort"

	"github.com/coder/hnsw"
)

// Scope selects what a spatial query searches over.
type Scope string

const (
	// ScopeObjects indexes one point per object (its center).
	ScopeObjects Scope = "objects"
	// ScopeFaces indexes every face centroid, keyed "Object/FaceN".
	ScopeFaces Scope = "faces"
)

// Hit is one spatial query result.
type Hit struct {
	// Key names the entity: an object name, or "Object/FaceN" for faces.
	Key string
	// Distance is the Euclidean distance from the query point.
	Distance float64
}

// NearestEntities returns up to k entities closest to point. The HNSW graph
// is rebuilt per call; documents stay small enough that build cost is
// negligible next to a host roundtrip.
func NearestEntities(d *Document, point Vec3, k int, scope Scope) ([]Hit, error) {
	if k <= 0 {
		k = 1
	}

	centers := make(map[string]Vec3)
	switch scope {
	case ScopeObjects, "":
		for _, o := range d.Objects() {
			centers[o.Name] = o.Shape.Center()
		}
	case ScopeFaces:
		for _, o := range d.Objects() {
			for _, f := range o.Shape.Faces {
				centers[fmt.Sprintf("%s/Face%d", o.Name, f.Index)] = f.Centroid
			}
		}
	default:
		return nil, fmt.Errorf("unknown scope %q", scope)
	}
	if len(centers) == 0 {
		return nil, nil
	}

	graph := hnsw.NewGraph[string]()
	nodes := make([]hnsw.Node[string], 0, len(centers))
	for key, c := range centers {
		nodes = append(nodes, hnsw.MakeNode(key, vec32(c)))
	}
	graph.Add(nodes...)

	neighbors := graph.Search(vec32(point), k)
	hits := make([]Hit, 0, len(neighbors))
	for _, n := range neighbors {
		hits = append(hits, Hit{Key: n.Key, Distance: point.Dist(centers[n.Key])})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits, nil
}

func vec32(v Vec3) []float32 {
	return []float32{float32(v[0]), float32(v[1]), float32(v[2])}
}

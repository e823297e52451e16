package partition

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/toposplit/pkg/states"
	"github.com/ajitpratap0/toposplit/pkg/topology"
)

// Bucket holds the geometries of one state as positions into the input
// collection, in input order.
type Bucket struct {
	State   states.State
	Members []int
}

// Grouping is the result of assigning every geometry to a state
type Grouping struct {
	Buckets  []*Bucket // first-appearance order of their state
	Skipped  int       // geometries whose key named no known state
	Excluded int       // geometries without an identifier
}

// Group assigns geometries to states by the key of their identifier.
// Geometries without an identifier are excluded silently. Geometries whose
// key is unknown are skipped with a warning.
func Group(geometries []topology.Geometry, log *zap.Logger) *Grouping {
	if log == nil {
		log = zap.NewNop()
	}

	g := &Grouping{}
	index := make(map[string]*Bucket)

	for pos := range geometries {
		geom := &geometries[pos]
		if !geom.HasID() {
			g.Excluded++
			continue
		}

		id := geom.ID.String()
		state, key, ok := states.ForID(id)
		if !ok {
			log.Warn("skipping geometry with unknown state code",
				zap.String("id", id),
				zap.String("state_code", key))
			g.Skipped++
			continue
		}

		b, ok := index[key]
		if !ok {
			b = &Bucket{State: state}
			index[key] = b
			g.Buckets = append(g.Buckets, b)
		}
		b.Members = append(b.Members, pos)
	}

	return g
}

// Grouped returns the number of geometries assigned to a state
func (g *Grouping) Grouped() int {
	n := 0
	for _, b := range g.Buckets {
		n += len(b.Members)
	}
	return n
}

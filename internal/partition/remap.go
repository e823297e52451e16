package partition

import (
	"bytes"
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/ajitpratap0/toposplit/pkg/errors"
	"github.com/ajitpratap0/toposplit/pkg/json"
	"github.com/ajitpratap0/toposplit/pkg/topology"
)

// Remap renumbers a set of arc indices densely from zero, preserving their
// ascending order.
type Remap struct {
	set *roaring.Bitmap
}

// NewRemap builds the remap of required. required is not retained.
func NewRemap(required *roaring.Bitmap) *Remap {
	return &Remap{set: required.Clone()}
}

// Len returns the number of indices in the remap
func (r *Remap) Len() int {
	return int(r.set.GetCardinality())
}

// Old returns the original indices in ascending order. Position i holds the
// index that maps to i.
func (r *Remap) Old() []int {
	old := make([]int, 0, r.Len())
	it := r.set.Iterator()
	for it.HasNext() {
		old = append(old, int(it.Next()))
	}
	return old
}

// Lookup returns the new index of old, and false if old is not in the remap
func (r *Remap) Lookup(old int) (int, bool) {
	if old < 0 || uint64(old) > math.MaxUint32 || !r.set.Contains(uint32(old)) {
		return 0, false
	}
	return int(r.set.Rank(uint32(old))) - 1, true
}

// RestrictArcs returns copies of the arcs in the remap, in new-index order
func (r *Remap) RestrictArcs(arcs []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, 0, r.Len())
	it := r.set.Iterator()
	for it.HasNext() {
		out = append(out, json.RawMessage(bytes.Clone(arcs[it.Next()])))
	}
	return out
}

// Rewrite returns a deep copy of g whose arc references are renumbered
// through r, keeping each reference's direction. g is not modified. A
// reference to an index missing from r is an invariant violation.
func Rewrite(g *topology.Geometry, r *Remap, enc topology.RefEncoding) (topology.Geometry, error) {
	out := g.Clone()
	if err := out.ResolveArcs(); err != nil {
		return topology.Geometry{}, err
	}
	if out.Arcs == nil {
		return out, nil
	}

	tree, err := out.Arcs.Map(func(ref int) (int, error) {
		index, reversed := enc.Decode(ref)
		n, ok := r.Lookup(index)
		if !ok {
			return 0, errors.Newf(errors.ErrorTypeInvariant, "arc index %d missing from remap", index).
				WithDetail("ref", ref).
				WithDetail("remap_size", r.Len())
		}
		return enc.Encode(n, reversed), nil
	})
	if err != nil {
		return topology.Geometry{}, err
	}

	out.Arcs = &tree
	return out, nil
}

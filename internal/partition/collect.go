package partition

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/ajitpratap0/toposplit/pkg/errors"
	"github.com/ajitpratap0/toposplit/pkg/topology"
)

// References returns the set of arc indices tree refers to. Direction is
// discarded and duplicates collapse. A nil tree refers to nothing.
func References(tree *topology.ArcTree, enc topology.RefEncoding) (*roaring.Bitmap, error) {
	set := roaring.New()
	if tree == nil {
		return set, nil
	}

	err := tree.Walk(func(ref int) error {
		index, _ := enc.Decode(ref)
		if index < 0 || uint64(index) > math.MaxUint32 {
			return errors.Newf(errors.ErrorTypeData, "arc reference %d out of range", ref)
		}
		set.Add(uint32(index))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// referenceCache holds the reference set of every grouped geometry, keyed
// by position so repeated identifiers never collide.
type referenceCache map[int]*roaring.Bitmap

// collectReferences decodes the arcs of each grouped geometry, computes its
// reference set once and checks every index against the arc table.
// Geometries outside the grouping are never inspected.
func collectReferences(geometries []topology.Geometry, grouping *Grouping, enc topology.RefEncoding, arcCount int) (referenceCache, error) {
	cache := make(referenceCache, grouping.Grouped())

	for _, b := range grouping.Buckets {
		for _, pos := range b.Members {
			geom := &geometries[pos]
			if err := geom.ResolveArcs(); err != nil {
				return nil, err
			}
			set, err := References(geom.Arcs, enc)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid arc reference").
					WithDetail("id", geom.ID.String())
			}
			if !set.IsEmpty() && int(set.Maximum()) >= arcCount {
				return nil, errors.New(errors.ErrorTypeData, "arc index out of range").
					WithDetail("id", geom.ID.String()).
					WithDetail("index", set.Maximum()).
					WithDetail("arcs", arcCount)
			}
			cache[pos] = set
		}
	}

	return cache, nil
}

// required returns the union of the reference sets of b's members
func (c referenceCache) required(b *Bucket) *roaring.Bitmap {
	sets := make([]*roaring.Bitmap, 0, len(b.Members))
	for _, pos := range b.Members {
		if set, ok := c[pos]; ok {
			sets = append(sets, set)
		}
	}
	if len(sets) == 0 {
		return roaring.New()
	}
	return roaring.FastOr(sets...)
}

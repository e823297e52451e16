package topology

import (
	"bytes"
	"strconv"

	"github.com/ajitpratap0/toposplit/pkg/errors"
	"github.com/ajitpratap0/toposplit/pkg/json"
)

// ArcTree is one level of a geometry's arc nesting. A ring level holds
// signed arc references. A group level holds nested trees. The nesting
// depth depends on the geometry type (LineString, Polygon, MultiPolygon)
// and is discovered while decoding.
type ArcTree struct {
	refs     []int
	children []ArcTree
	group    bool
}

// Ring returns a terminal level holding refs
func Ring(refs ...int) ArcTree {
	if refs == nil {
		refs = []int{}
	}
	return ArcTree{refs: refs}
}

// Group returns a container level holding children
func Group(children ...ArcTree) ArcTree {
	if children == nil {
		children = []ArcTree{}
	}
	return ArcTree{children: children, group: true}
}

// IsRing reports whether t is a terminal level
func (t ArcTree) IsRing() bool {
	return !t.group
}

// Refs returns the references of a ring level, nil for groups
func (t ArcTree) Refs() []int {
	return t.refs
}

// Children returns the nested levels of a group, nil for rings
func (t ArcTree) Children() []ArcTree {
	return t.children
}

// Len returns the number of elements at this level
func (t ArcTree) Len() int {
	if t.group {
		return len(t.children)
	}
	return len(t.refs)
}

// Walk calls fn for every reference in depth-first order
func (t ArcTree) Walk(fn func(ref int) error) error {
	if !t.group {
		for _, ref := range t.refs {
			if err := fn(ref); err != nil {
				return err
			}
		}
		return nil
	}
	for _, child := range t.children {
		if err := child.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Map returns a new tree of the same shape with every reference replaced
// by fn(ref). The receiver is not modified and shares no memory with the
// result.
func (t ArcTree) Map(fn func(ref int) (int, error)) (ArcTree, error) {
	if !t.group {
		refs := make([]int, len(t.refs))
		for i, ref := range t.refs {
			v, err := fn(ref)
			if err != nil {
				return ArcTree{}, err
			}
			refs[i] = v
		}
		return Ring(refs...), nil
	}

	children := make([]ArcTree, len(t.children))
	for i, child := range t.children {
		c, err := child.Map(fn)
		if err != nil {
			return ArcTree{}, err
		}
		children[i] = c
	}
	return Group(children...), nil
}

// Clone returns a deep copy of t
func (t ArcTree) Clone() ArcTree {
	c, _ := t.Map(func(ref int) (int, error) { return ref, nil })
	return c
}

// MarshalJSON encodes the tree as nested arrays
func (t ArcTree) MarshalJSON() ([]byte, error) {
	return t.appendJSON(make([]byte, 0, 16*t.Len()+2)), nil
}

func (t ArcTree) appendJSON(dst []byte) []byte {
	dst = append(dst, '[')
	if !t.group {
		for i, ref := range t.refs {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = strconv.AppendInt(dst, int64(ref), 10)
		}
	} else {
		for i, child := range t.children {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = child.appendJSON(dst)
		}
	}
	return append(dst, ']')
}

// UnmarshalJSON decodes nested arrays. A level whose elements are all
// integers is a ring; a level whose elements are all arrays is a group.
// Anything else is malformed.
func (t *ArcTree) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return errors.New(errors.ErrorTypeData, "arcs must be an array")
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "invalid arcs array")
	}

	refs := make([]int, 0, len(elems))
	for _, e := range elems {
		v, ok := parseRef(e)
		if !ok {
			refs = nil
			break
		}
		refs = append(refs, v)
	}
	if refs != nil {
		*t = Ring(refs...)
		return nil
	}

	children := make([]ArcTree, len(elems))
	for i, e := range elems {
		e = bytes.TrimSpace(e)
		if len(e) == 0 || e[0] != '[' {
			return errors.New(errors.ErrorTypeData, "arcs level mixes references with non-array values").
				WithDetail("element", i).
				WithDetail("value", string(e))
		}
		if err := children[i].UnmarshalJSON(e); err != nil {
			return err
		}
	}
	*t = Group(children...)
	return nil
}

// parseRef accepts a JSON integer literal
func parseRef(raw []byte) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	start := 0
	if raw[0] == '-' {
		start = 1
	}
	if start == len(raw) {
		return 0, false
	}
	for _, c := range raw[start:] {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, false
	}
	return v, true
}

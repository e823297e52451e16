package topology

import (
	"bytes"

	"github.com/ajitpratap0/toposplit/pkg/errors"
	"github.com/ajitpratap0/toposplit/pkg/json"
)

// FeatureID is a geometry identifier as it appeared in the input. Numeric
// and string identifiers are both accepted and re-encoded unchanged.
type FeatureID struct {
	raw  json.RawMessage
	text string
}

func parseFeatureID(raw json.RawMessage) (*FeatureID, error) {
	raw = bytes.TrimSpace(raw)
	id := &FeatureID{raw: cloneRaw(raw)}
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &id.text); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid geometry id")
		}
		return id, nil
	}
	id.text = string(raw)
	return id, nil
}

// String returns the textual form used for key derivation. Numbers are
// rendered as written in the input.
func (id *FeatureID) String() string {
	if id == nil {
		return ""
	}
	return id.text
}

// MarshalJSON returns the original encoding
func (id *FeatureID) MarshalJSON() ([]byte, error) {
	if id == nil {
		return []byte("null"), nil
	}
	return id.raw, nil
}

func (id *FeatureID) clone() *FeatureID {
	if id == nil {
		return nil
	}
	return &FeatureID{raw: cloneRaw(id.raw), text: id.text}
}

// Geometry is one record of a geometry collection. The identifier is
// decoded eagerly. Arc references stay raw in Members until ResolveArcs is
// called; every other member is carried through untouched.
type Geometry struct {
	ID      *FeatureID
	Arcs    *ArcTree
	Members map[string]json.RawMessage
}

// HasID reports whether the geometry carries a non-null identifier
func (g *Geometry) HasID() bool {
	return g.ID != nil
}

// ResolveArcs decodes the arcs member into Arcs. A geometry without arcs,
// or with null arcs, keeps Arcs nil. Calling it again is a no-op.
func (g *Geometry) ResolveArcs() error {
	if g.Arcs != nil {
		return nil
	}
	raw, ok := g.Members["arcs"]
	if !ok || isNull(raw) {
		return nil
	}

	var arcs ArcTree
	if err := arcs.UnmarshalJSON(raw); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "invalid geometry arcs").WithDetail("id", g.ID.String())
	}
	g.Arcs = &arcs
	delete(g.Members, "arcs")
	return nil
}

// Clone returns a deep copy of g
func (g *Geometry) Clone() Geometry {
	c := Geometry{
		ID:      g.ID.clone(),
		Members: cloneMembers(g.Members),
	}
	if g.Arcs != nil {
		arcs := g.Arcs.Clone()
		c.Arcs = &arcs
	}
	return c
}

// UnmarshalJSON decodes a geometry object. Arcs are not inspected here, so
// a record that is never grouped cannot fail the decode.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	members, ok, err := decodeMembers(data)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "invalid geometry")
	}
	if !ok {
		return errors.New(errors.ErrorTypeData, "geometry must be an object")
	}

	*g = Geometry{}
	// null id is treated as absent and stays an ordinary member
	if raw, ok := members["id"]; ok && !isNull(raw) {
		id, err := parseFeatureID(raw)
		if err != nil {
			return err
		}
		g.ID = id
		delete(members, "id")
	}

	g.Members = members
	return nil
}

// MarshalJSON writes type, id, arcs and properties first, then the
// remaining members in key order.
func (g Geometry) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	if raw, ok := g.Members["type"]; ok {
		if err := w.member("type", raw); err != nil {
			return nil, err
		}
	}
	if g.ID != nil {
		if err := w.member("id", g.ID.raw); err != nil {
			return nil, err
		}
	} else if raw, ok := g.Members["id"]; ok {
		if err := w.member("id", raw); err != nil {
			return nil, err
		}
	}
	if g.Arcs != nil {
		arcs, _ := g.Arcs.MarshalJSON()
		if err := w.member("arcs", arcs); err != nil {
			return nil, err
		}
	} else if raw, ok := g.Members["arcs"]; ok {
		if err := w.member("arcs", raw); err != nil {
			return nil, err
		}
	}
	if raw, ok := g.Members["properties"]; ok {
		if err := w.member("properties", raw); err != nil {
			return nil, err
		}
	}
	if err := w.rest(g.Members, "type", "id", "arcs", "properties"); err != nil {
		return nil, err
	}
	return w.bytes(), nil
}

// GeometryCollection is a named object of a topology
type GeometryCollection struct {
	Type       string
	Geometries []Geometry
	Members    map[string]json.RawMessage
}

// NewCollection returns a GeometryCollection holding geometries
func NewCollection(geometries []Geometry) *GeometryCollection {
	if geometries == nil {
		geometries = []Geometry{}
	}
	return &GeometryCollection{Type: "GeometryCollection", Geometries: geometries}
}

// UnmarshalJSON decodes a collection. The geometries member is required.
func (c *GeometryCollection) UnmarshalJSON(data []byte) error {
	members, ok, err := decodeMembers(data)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "invalid geometry collection")
	}
	if !ok {
		return errors.New(errors.ErrorTypeData, "geometry collection must be an object")
	}

	*c = GeometryCollection{}
	if raw, ok := members["type"]; ok {
		if err := json.Unmarshal(raw, &c.Type); err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "collection type must be a string")
		}
		delete(members, "type")
	}

	raw, ok := members["geometries"]
	if !ok || isNull(raw) {
		return errors.New(errors.ErrorTypeData, "collection has no geometries")
	}
	if err := json.Unmarshal(raw, &c.Geometries); err != nil {
		if errors.TypeOf(err) == errors.ErrorTypeData {
			return err
		}
		return errors.Wrap(err, errors.ErrorTypeData, "geometries must be an array")
	}
	if c.Geometries == nil {
		c.Geometries = []Geometry{}
	}
	delete(members, "geometries")

	c.Members = members
	return nil
}

// MarshalJSON writes type and geometries first, then the remaining members
// in key order.
func (c GeometryCollection) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	if c.Type != "" {
		if err := w.value("type", c.Type); err != nil {
			return nil, err
		}
	}

	geometries := c.Geometries
	if geometries == nil {
		geometries = []Geometry{}
	}
	if err := w.value("geometries", geometries); err != nil {
		return nil, err
	}
	if err := w.rest(c.Members, "type", "geometries"); err != nil {
		return nil, err
	}
	return w.bytes(), nil
}

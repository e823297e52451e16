// Package topology models TopoJSON topology documents: the shared arc table,
// the named geometry collections and the nested arc references inside each
// geometry.
//
// Members the package does not interpret are kept as raw JSON and written
// back unchanged, so a decode/encode cycle preserves everything beyond key
// order.
package topology

import (
	"sort"

	"github.com/ajitpratap0/toposplit/pkg/errors"
	"github.com/ajitpratap0/toposplit/pkg/json"
)

// TypeTopology is the type member of every topology document
const TypeTopology = "Topology"

// Document is a decoded topology. Arcs are kept undecoded; their positions
// are the indices geometries refer to.
type Document struct {
	Type      string
	Transform json.RawMessage
	Objects   map[string]json.RawMessage
	Arcs      []json.RawMessage
	Members   map[string]json.RawMessage
}

// Decode parses a topology document
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := doc.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UnmarshalJSON decodes a topology document. type, objects and arcs are
// required; transform is optional.
func (d *Document) UnmarshalJSON(data []byte) error {
	members, ok, err := decodeMembers(data)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "invalid topology document")
	}
	if !ok {
		return errors.New(errors.ErrorTypeData, "topology document must be an object")
	}

	*d = Document{}

	raw, ok := members["type"]
	if !ok {
		return errors.New(errors.ErrorTypeData, "topology document has no type")
	}
	if err := json.Unmarshal(raw, &d.Type); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "topology type must be a string")
	}

	raw, ok = members["objects"]
	if !ok {
		return errors.New(errors.ErrorTypeData, "topology document has no objects")
	}
	objects, ok, err := decodeMembers(raw)
	if err != nil || !ok {
		return errors.Wrap(errOrNil(err), errors.ErrorTypeData, "objects must be an object")
	}
	d.Objects = objects

	raw, ok = members["arcs"]
	if !ok {
		return errors.New(errors.ErrorTypeData, "topology document has no arcs")
	}
	if err := json.Unmarshal(raw, &d.Arcs); err != nil || isNull(raw) {
		return errors.Wrap(errOrNil(err), errors.ErrorTypeData, "arcs must be an array")
	}
	if d.Arcs == nil {
		d.Arcs = []json.RawMessage{}
	}

	if raw, ok := members["transform"]; ok && !isNull(raw) {
		d.Transform = raw
	}

	for _, k := range []string{"type", "objects", "arcs", "transform"} {
		delete(members, k)
	}
	d.Members = members
	return nil
}

func errOrNil(err error) error {
	if err != nil {
		return err
	}
	return errors.New(errors.ErrorTypeData, "unexpected JSON value")
}

// MarshalJSON writes type, bbox, transform, objects and arcs in that order,
// followed by remaining members in key order.
func (d Document) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()

	typ := d.Type
	if typ == "" {
		typ = TypeTopology
	}
	if err := w.value("type", typ); err != nil {
		return nil, err
	}
	if raw, ok := d.Members["bbox"]; ok {
		if err := w.member("bbox", raw); err != nil {
			return nil, err
		}
	}
	if d.Transform != nil {
		if err := w.member("transform", d.Transform); err != nil {
			return nil, err
		}
	}

	objects := newObjectWriter()
	if err := objects.rest(d.Objects); err != nil {
		return nil, err
	}
	if err := w.member("objects", objects.bytes()); err != nil {
		return nil, err
	}

	arcs := d.Arcs
	if arcs == nil {
		arcs = []json.RawMessage{}
	}
	if err := w.value("arcs", arcs); err != nil {
		return nil, err
	}

	if err := w.rest(d.Members, "bbox"); err != nil {
		return nil, err
	}
	return w.bytes(), nil
}

// ObjectNames returns the names of the document's objects in sorted order
func (d *Document) ObjectNames() []string {
	names := make([]string, 0, len(d.Objects))
	for name := range d.Objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Collection decodes the named object as a geometry collection
func (d *Document) Collection(name string) (*GeometryCollection, error) {
	raw, ok := d.Objects[name]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeData, "topology has no object %q", name).
			WithDetail("objects", d.ObjectNames())
	}

	var c GeometryCollection
	if err := c.UnmarshalJSON(raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid object").WithDetail("object", name)
	}
	return &c, nil
}

// SetCollection encodes c and stores it under name
func (d *Document) SetCollection(name string, c *GeometryCollection) error {
	raw, err := c.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode collection").WithDetail("object", name)
	}
	if d.Objects == nil {
		d.Objects = make(map[string]json.RawMessage)
	}
	d.Objects[name] = raw
	return nil
}

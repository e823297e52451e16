package topology

import "strings"

// MoveToEnd moves every geometry whose identifier starts with one of
// prefixes to the end of the collection. Relative order within both the
// moved and the remaining geometries is preserved. Geometries without an
// identifier never match. It returns the number of geometries moved.
func MoveToEnd(c *GeometryCollection, prefixes []string) int {
	if len(prefixes) == 0 {
		return 0
	}

	kept := make([]Geometry, 0, len(c.Geometries))
	var moved []Geometry
	for _, g := range c.Geometries {
		if g.ID != nil && hasAnyPrefix(g.ID.String(), prefixes) {
			moved = append(moved, g)
			continue
		}
		kept = append(kept, g)
	}

	c.Geometries = append(kept, moved...)
	return len(moved)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

package models

// Point is a single lon/lat vertex of a boundary ring.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Feature is one administrative region: its shapefile attributes plus
// the polygon rings describing its boundary. The first ring is the
// outer boundary; any further rings are holes.
type Feature struct {
	Attrs map[string]string `json:"attrs"`
	Rings [][]Point         `json:"rings,omitempty"`
}

// GeoLayer associates a geometry collection with the line list column
// it joins against. JoinBy maps a geometry attribute name to a line
// list column name; NameVar is the attribute holding the display name
// of each region (usually also the join attribute).
type GeoLayer struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"` // display label, e.g. "District"
	NameVar  string            `json:"name_var"`
	JoinBy   map[string]string `json:"join_by"`
	Features []Feature         `json:"features,omitempty"`
}

// HasAttribute reports whether any feature carries the given attribute.
func (l *GeoLayer) HasAttribute(name string) bool {
	for _, f := range l.Features {
		if _, ok := f.Attrs[name]; ok {
			return true
		}
	}
	return false
}

// AttributeValues returns the attribute value of every feature, in
// feature order. Features missing the attribute contribute "".
func (l *GeoLayer) AttributeValues(name string) []string {
	out := make([]string, 0, len(l.Features))
	for _, f := range l.Features {
		out = append(out, f.Attrs[name])
	}
	return out
}

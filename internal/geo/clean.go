package geo

import "strings"

// Transform is a text cleaning step applied to a feature attribute so
// that geometry names line up with the category values in the line
// list (e.g. shapefile "Area Bo" vs line list "Bo").
type Transform func(string) string

// StripPrefix removes a literal prefix. It fires at most once per
// value, so already-clean names pass through unchanged.
func StripPrefix(prefix string) Transform {
	return func(s string) string {
		return strings.TrimPrefix(s, prefix)
	}
}

// TrimSpace trims surrounding whitespace.
func TrimSpace() Transform {
	return strings.TrimSpace
}

// Apply runs the transforms in order over a single value.
func Apply(v string, transforms ...Transform) string {
	for _, t := range transforms {
		v = t(v)
	}
	return v
}

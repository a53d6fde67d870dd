package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// LineList is tabular case data: one row per individual case.
//
// Columns come straight from the CSV header; every cell is kept as text
// and parsed on demand by the module builders. A LineList is built once
// by the loader and never mutated afterwards.
type LineList struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`

	index map[string]int
}

// NewLineList builds a LineList and its column lookup index.
func NewLineList(columns []string, rows [][]string) *LineList {
	ll := &LineList{Columns: columns, Rows: rows}
	ll.buildIndex()
	return ll
}

func (ll *LineList) buildIndex() {
	ll.index = make(map[string]int, len(ll.Columns))
	for i, c := range ll.Columns {
		ll.index[c] = i
	}
}

// Len returns the number of case records.
func (ll *LineList) Len() int { return len(ll.Rows) }

// ColumnIndex returns the position of a column by exact header name.
func (ll *LineList) ColumnIndex(name string) (int, bool) {
	if ll.index == nil {
		ll.buildIndex()
	}
	i, ok := ll.index[name]
	return i, ok
}

// HasColumn reports whether the header contains the given column.
func (ll *LineList) HasColumn(name string) bool {
	_, ok := ll.ColumnIndex(name)
	return ok
}

// Value returns the cell at (row, column name), or "" when out of range.
func (ll *LineList) Value(row int, name string) string {
	i, ok := ll.ColumnIndex(name)
	if !ok || row < 0 || row >= len(ll.Rows) || i >= len(ll.Rows[row]) {
		return ""
	}
	return ll.Rows[row][i]
}

// Values returns every cell of a column, one entry per case record.
func (ll *LineList) Values(name string) []string {
	i, ok := ll.ColumnIndex(name)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(ll.Rows))
	for _, row := range ll.Rows {
		if i < len(row) {
			out = append(out, row[i])
		} else {
			out = append(out, "")
		}
	}
	return out
}

// Levels returns the distinct non-empty values of a column, sorted.
// This is what the modules offer as selectable strata.
func (ll *LineList) Levels(name string) []string {
	seen := make(map[string]struct{})
	for _, v := range ll.Values(name) {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		seen[v] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// RequireColumns returns an error naming the first referenced column
// that is absent from the header.
func (ll *LineList) RequireColumns(names ...string) error {
	for _, n := range names {
		if !ll.HasColumn(n) {
			return fmt.Errorf("column %q not found in line list", n)
		}
	}
	return nil
}

// Dataset is the stored form of an imported line list.
type Dataset struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Source     string    `json:"source,omitempty"`
	Columns    []string  `json:"columns"`
	RowCount   int       `json:"row_count"`
	ImportedAt time.Time `json:"imported_at"`
}

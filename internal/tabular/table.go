// Package tabular materializes flattened rows into a column-complete table
// for documents small enough to hold in memory.
package tabular

import (
	"sort"

	"xmltab/internal/record"
)

// Table is a fully assembled result set: the lexicographically sorted union
// of every key observed across Rows, plus the rows themselves. A row missing
// a column reads as null.
type Table struct {
	Columns []string
	Rows    []*record.Record
}

// Assemble computes the union schema over recs.
//
// Column order is sorted lexicographically so the schema is a deterministic
// function of the input, independent of which row introduced which key. Row
// order is preserved. One pass over rows; O(rows x average row size).
func Assemble(recs []*record.Record) *Table {
	seen := make(map[string]struct{})
	var cols []string
	for _, rec := range recs {
		for _, k := range rec.Keys() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)
	return &Table{Columns: cols, Rows: recs}
}

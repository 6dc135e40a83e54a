package xml

import (
	"strconv"

	"xmltab/internal/record"
)

// Flatten turns a normalized value into a single-level record.
//
// Key composition: Fields entries join with "." ("parent.key"), List members
// index with "[i]" ("parent[0]"), and there is no leading separator at the
// top level. Key order follows source traversal order; any sorting is the
// assembler's policy, not this function's.
//
// A bare top-level Scalar has no key to compose and flattens to an empty
// record.
func Flatten(v Value) *record.Record {
	rec := record.New()
	flattenInto(rec, "", v)
	return rec
}

func flattenInto(rec *record.Record, key string, v Value) {
	switch t := v.(type) {
	case Scalar:
		if key == "" {
			return
		}
		if t.Null {
			rec.SetNull(key)
			return
		}
		rec.Set(key, t.S)

	case *Fields:
		for _, k := range t.Keys() {
			nk := k
			if key != "" {
				nk = key + "." + k
			}
			child, _ := t.At(k)
			flattenInto(rec, nk, child)
		}

	case List:
		for i, item := range t {
			flattenInto(rec, key+"["+strconv.Itoa(i)+"]", item)
		}
	}
}

// Package record defines the flat, path-keyed record that flows between the
// parsers, the assembler and the output writers.
//
// A Record is an ordered mapping from a flattened path key (e.g. "Tx.TradDt"
// or "item[2].v") to a nullable scalar. Key order follows insertion order,
// which for flattened XML is source traversal order. Keys are unique within a
// record: setting an existing key replaces its value without moving it.
package record

// Record is an ordered map of path key -> nullable string value.
//
// The zero value is not usable; construct with New.
type Record struct {
	keys []string
	vals map[string]*string
}

func New() *Record {
	return &Record{vals: make(map[string]*string)}
}

// Set assigns a non-null value at key, appending the key on first assignment.
func (r *Record) Set(key, value string) {
	v := value
	r.put(key, &v)
}

// SetNull assigns an explicit null at key.
func (r *Record) SetNull(key string) {
	r.put(key, nil)
}

func (r *Record) put(key string, v *string) {
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = v
}

// Lookup returns the value stored at key. The first return is nil for an
// explicit null; the second reports whether the key is present at all.
func (r *Record) Lookup(key string) (*string, bool) {
	v, ok := r.vals[key]
	return v, ok
}

// Keys returns the record's keys in insertion order. The returned slice is
// shared with the record and must not be modified.
func (r *Record) Keys() []string {
	return r.keys
}

func (r *Record) Len() int {
	return len(r.keys)
}

// Clone returns an independent copy of the record.
func (r *Record) Clone() *Record {
	out := &Record{
		keys: make([]string, len(r.keys)),
		vals: make(map[string]*string, len(r.vals)),
	}
	copy(out.keys, r.keys)
	for k, v := range r.vals {
		if v == nil {
			out.vals[k] = nil
			continue
		}
		s := *v
		out.vals[k] = &s
	}
	return out
}

package xml

// Value is the language-neutral shape of one normalized XML element.
//
// It is a closed union:
//
//	Scalar — leaf text (possibly null)
//	Fields — an ordered mapping of local name -> Value
//	List   — a repeated sibling group, in document order
//
// Consumers switch exhaustively on the three variants; there is no fourth.
type Value interface {
	isValue()
}

// Scalar is leaf element text, or null when the text is empty after trimming.
type Scalar struct {
	S    string
	Null bool
}

// Fields is an ordered mapping from local name (attributes prefixed with "@")
// to the normalized value of the child or attribute.
type Fields struct {
	keys []string
	vals map[string]Value
}

// List is an ordered repeated group: two or more same-named siblings.
type List []Value

func (Scalar) isValue()  {}
func (*Fields) isValue() {}
func (List) isValue()    {}

func NewFields() *Fields {
	return &Fields{vals: make(map[string]Value)}
}

// Set assigns v at key, appending the key on first assignment and replacing
// in place otherwise.
func (f *Fields) Set(key string, v Value) {
	if _, ok := f.vals[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.vals[key] = v
}

// At returns the value stored at key.
func (f *Fields) At(key string) (Value, bool) {
	v, ok := f.vals[key]
	return v, ok
}

// Keys returns the field names in insertion order. Shared slice; do not
// modify.
func (f *Fields) Keys() []string {
	return f.keys
}

func (f *Fields) Len() int {
	return len(f.keys)
}

// Normalize converts one element into a Value.
//
// Rules:
//   - Attributes become Fields entries keyed "@localname". A same-local-name
//     collision keeps the last attribute decoded.
//   - Children are grouped by local name in document order: a name seen once
//     keeps its Value directly, a name seen again becomes a List.
//   - A childless element normalizes to its trimmed text, or a null Scalar if
//     the text is empty. Attributes on childless elements do not survive; the
//     scalar replaces them.
//
// Normalize is pure: the same element always yields the same Value.
func Normalize(el *Element) Value {
	if len(el.Children) == 0 {
		txt := el.Text()
		if txt == "" {
			return Scalar{Null: true}
		}
		return Scalar{S: txt}
	}

	out := NewFields()
	for _, a := range el.Attrs {
		out.Set("@"+a.Name, Scalar{S: a.Value})
	}

	for _, child := range el.Children {
		v := Normalize(child)
		existing, ok := out.At(child.Name)
		if !ok {
			out.Set(child.Name, v)
			continue
		}
		if l, isList := existing.(List); isList {
			out.Set(child.Name, append(l, v))
			continue
		}
		out.Set(child.Name, List{existing, v})
	}
	return out
}

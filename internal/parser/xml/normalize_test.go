package xml

import (
	"reflect"
	"strings"
	"testing"
)

// mustParse parses doc or fails the test.
func mustParse(t *testing.T, doc string) *Element {
	t.Helper()
	root, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return root
}

// flatMap collects a flattened record into a comparable map, with "<nil>"
// standing in for explicit nulls.
func flatMap(t *testing.T, el *Element) map[string]string {
	t.Helper()
	rec := Flatten(Normalize(el))
	out := make(map[string]string, rec.Len())
	for _, k := range rec.Keys() {
		v, ok := rec.Lookup(k)
		if !ok {
			t.Fatalf("key %q listed but not present", k)
		}
		if v == nil {
			out[k] = "<nil>"
			continue
		}
		out[k] = *v
	}
	return out
}

func TestFlattenNestedRecord(t *testing.T) {
	root := mustParse(t, `<row><a>1</a><b><c>2</c></b></row>`)

	got := flatMap(t, root)
	want := map[string]string{"a": "1", "b.c": "2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFlattenRepeatedGroup(t *testing.T) {
	root := mustParse(t, `<row><item><v>x</v></item><item><v>y</v></item><item><v>z</v></item></row>`)

	got := flatMap(t, root)
	want := map[string]string{
		"item[0].v": "x",
		"item[1].v": "y",
		"item[2].v": "z",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFlattenKeyOrderFollowsTraversal(t *testing.T) {
	root := mustParse(t, `<row><b>2</b><a><z>1</z><y>0</y></a></row>`)

	rec := Flatten(Normalize(root))
	want := []string{"b", "a.z", "a.y"}
	if !reflect.DeepEqual(rec.Keys(), want) {
		t.Fatalf("key order = %v, want %v", rec.Keys(), want)
	}
}

func TestNormalizeFlattenDeterministic(t *testing.T) {
	const doc = `<row id="7"><a>1</a><a>2</a><b><c x="y">3</c></b></row>`
	root := mustParse(t, doc)

	first := Flatten(Normalize(root))
	second := Flatten(Normalize(root))

	if !reflect.DeepEqual(first.Keys(), second.Keys()) {
		t.Fatalf("key sets differ: %v vs %v", first.Keys(), second.Keys())
	}
	for _, k := range first.Keys() {
		a, _ := first.Lookup(k)
		b, _ := second.Lookup(k)
		if (a == nil) != (b == nil) || (a != nil && *a != *b) {
			t.Fatalf("value for %q differs between runs", k)
		}
	}
}

func TestAttributesBecomeAtKeys(t *testing.T) {
	root := mustParse(t, `<row id="7"><a x="dropped">v</a><b>2</b></row>`)

	got := flatMap(t, root)
	// Attributes on leaf elements do not survive; the scalar replaces them.
	want := map[string]string{"@id": "7", "a": "v", "b": "2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNamespacePrefixesStripped(t *testing.T) {
	root := mustParse(t,
		`<ns:row xmlns:ns="urn:example" ns:kind="k"><ns:a>1</ns:a><ns:a>2</ns:a></ns:row>`)

	got := flatMap(t, root)
	want := map[string]string{"@kind": "k", "a[0]": "1", "a[1]": "2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestEmptyLeafIsNull(t *testing.T) {
	root := mustParse(t, `<row><a/><b>   </b><c>x</c></row>`)

	rec := Flatten(Normalize(root))
	for _, key := range []string{"a", "b"} {
		v, ok := rec.Lookup(key)
		if !ok {
			t.Fatalf("key %q missing", key)
		}
		if v != nil {
			t.Fatalf("key %q = %q, want null", key, *v)
		}
	}
	if v, _ := rec.Lookup("c"); v == nil || *v != "x" {
		t.Fatalf("key c: want \"x\", got %v", v)
	}
}

func TestTopLevelScalarFlattensEmpty(t *testing.T) {
	root := mustParse(t, `<row>just text</row>`)

	rec := Flatten(Normalize(root))
	if rec.Len() != 0 {
		t.Fatalf("want empty record, got keys %v", rec.Keys())
	}
}

func TestParseMalformed(t *testing.T) {
	cases := []string{
		`<root><unclosed></root>`,
		`not xml at all`,
		``,
	}
	for _, doc := range cases {
		if _, err := Parse(strings.NewReader(doc)); err == nil {
			t.Errorf("Parse(%q): want error, got nil", doc)
		}
	}
}

func TestParseTextOutsideRoot(t *testing.T) {
	root, err := Parse(strings.NewReader("\n<row><a>1</a></row>\ntrailing text\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := flatMap(t, root); got["a"] != "1" {
		t.Fatalf("a = %q", got["a"])
	}
	if txt := root.Text(); txt != "" {
		t.Fatalf("stray document text leaked into the root: %q", txt)
	}
}

func TestParseMultipleRoots(t *testing.T) {
	if _, err := Parse(strings.NewReader(`<a/><b/>`)); err == nil {
		t.Fatal("want error for a second root element")
	}
}

func TestParseDeclaredEncoding(t *testing.T) {
	// "é" encoded as ISO-8859-1 byte 0xE9.
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><row><a>caf\xe9</a></row>"
	root, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := flatMap(t, root)
	if got["a"] != "café" {
		t.Fatalf("a = %q, want %q", got["a"], "café")
	}
}

package xml

import (
	"reflect"
	"testing"
)

func names(els []*Element) []string {
	out := make([]string, len(els))
	for i, el := range els {
		out[i] = el.Name
	}
	return out
}

func TestDetectRowsHighestCountWins(t *testing.T) {
	root := mustParse(t, `
<root>
  <a/><a/>
  <wrap><b/><b/><b/></wrap>
</root>`)

	got := names(DetectRows(root))
	want := []string{"b", "b", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDetectRowsCountBeatsDepth(t *testing.T) {
	// The shallow group has more members than the deep one.
	root := mustParse(t, `
<root>
  <a/><a/><a/>
  <wrap><deep><b/><b/></deep></wrap>
</root>`)

	got := names(DetectRows(root))
	want := []string{"a", "a", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDetectRowsDepthBreaksCountTie(t *testing.T) {
	root := mustParse(t, `
<root>
  <a/><a/>
  <wrap><c/><c/></wrap>
</root>`)

	got := names(DetectRows(root))
	want := []string{"c", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDetectRowsFirstSeenBreaksFullTie(t *testing.T) {
	// Same count, same depth: the group seen first in document order wins.
	root := mustParse(t, `
<root>
  <left><a/><a/></left>
  <right><b/><b/></right>
</root>`)

	got := names(DetectRows(root))
	want := []string{"a", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDetectRowsFallbackRootChildren(t *testing.T) {
	root := mustParse(t, `<root><a/></root>`)

	got := names(DetectRows(root))
	want := []string{"a"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDetectRowsFallbackRootItself(t *testing.T) {
	root := mustParse(t, `<root/>`)

	got := names(DetectRows(root))
	want := []string{"root"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDetectRowsDocumentOrderPreserved(t *testing.T) {
	root := mustParse(t, `<root><r i="1"/><x/><r i="2"/><r i="3"/></root>`)

	rows := DetectRows(root)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	for i, el := range rows {
		want := string(rune('1' + i))
		if el.Attrs[0].Value != want {
			t.Fatalf("row %d: attr i=%s, want %s", i, el.Attrs[0].Value, want)
		}
	}
}

func TestDetectRowsDeterministic(t *testing.T) {
	const doc = `
<root>
  <g><x/><x/></g>
  <h><y/><y/></h>
  <i><z/><z/></i>
</root>`
	first := names(DetectRows(mustParse(t, doc)))
	for i := 0; i < 10; i++ {
		again := names(DetectRows(mustParse(t, doc)))
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d selected %v, first run selected %v", i, again, first)
		}
	}
}

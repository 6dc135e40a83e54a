package writer

import (
	"bytes"
	"testing"

	"xmltab/internal/record"
)

func row(t *testing.T, kv ...string) *record.Record {
	t.Helper()
	r := record.New()
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "<nil>" {
			r.SetNull(kv[i])
			continue
		}
		r.Set(kv[i], kv[i+1])
	}
	return r
}

func writeAllRows(t *testing.T, format string, opts Options, rows ...*record.Record) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := New(format, &buf, opts)
	if err != nil {
		t.Fatalf("New(%q): %v", format, err)
	}
	for _, r := range rows {
		if err := w.WriteRow(r); err != nil {
			t.Fatalf("WriteRow: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func TestCSVHeaderFromFirstRecord(t *testing.T) {
	out := writeAllRows(t, FormatCSV, Options{},
		row(t, "a", "1", "b", "2"),
		row(t, "a", "3", "b", "<nil>"),
	)
	want := "a,b\n1,2\n3,\n"
	if string(out) != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestCSVInferredHeaderSorted(t *testing.T) {
	out := writeAllRows(t, FormatCSV, Options{},
		row(t, "qty", "2", "id", "1"),
		row(t, "qty", "4", "id", "3"),
	)
	want := "id,qty\n1,2\n3,4\n"
	if string(out) != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestCSVExplicitProjection(t *testing.T) {
	out := writeAllRows(t, FormatCSV, Options{Columns: []string{"b", "a", "missing"}},
		row(t, "a", "1", "b", "2"),
	)
	want := "b,a,missing\n2,1,\n"
	if string(out) != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestCSVAliases(t *testing.T) {
	out := writeAllRows(t, FormatCSV,
		Options{Columns: []string{"item.name"}, Aliases: map[string]string{"item.name": "Name"}},
		row(t, "item.name", "widget"),
	)
	want := "Name\nwidget\n"
	if string(out) != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestCSVSkipsEmptyRows(t *testing.T) {
	out := writeAllRows(t, FormatCSV, Options{Columns: []string{"a", "b"}},
		row(t, "a", "1"),
		row(t, "a", "<nil>", "b", ""),
		row(t, "c", "ignored entirely"),
		row(t, "b", "2"),
	)
	want := "a,b\n1,\n,2\n"
	if string(out) != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestCSVHeaderOnlyWithProjection(t *testing.T) {
	out := writeAllRows(t, FormatCSV, Options{Columns: []string{"a", "b"}})
	if string(out) != "a,b\n" {
		t.Fatalf("got %q, want header only", out)
	}
}

func TestCSVEmptyWithoutProjection(t *testing.T) {
	out := writeAllRows(t, FormatCSV, Options{})
	if len(out) != 0 {
		t.Fatalf("got %q, want no output", out)
	}
}

func TestNewUnsupportedFormat(t *testing.T) {
	if _, err := New("xml", &bytes.Buffer{}, Options{}); err == nil {
		t.Fatal("want error for unsupported format")
	}
	if Supported("xml") {
		t.Fatal("Supported(xml) = true")
	}
}

func TestSupportedAndExt(t *testing.T) {
	for format, ext := range map[string]string{
		FormatCSV:     "csv",
		FormatXLSX:    "xlsx",
		FormatParquet: "parquet",
	} {
		if !Supported(format) {
			t.Errorf("Supported(%q) = false", format)
		}
		if got := Ext(format); got != ext {
			t.Errorf("Ext(%q) = %q, want %q", format, got, ext)
		}
	}
}

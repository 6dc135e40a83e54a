// Package writer serializes flat records to the supported output formats.
//
// Backends register themselves under a format name, mirroring the job store
// registry: csv (delimited text), xlsx (row-oriented spreadsheet) and parquet
// (columnar) are registered by this package's init functions.
//
// Column selection is shared across backends: an explicit Options.Columns
// projection wins; otherwise the header is the sorted key set of the first
// record actually written, matching the assembler's column order. The
// whole-document path passes the assembler's full-union schema as the
// projection; keys first appearing in later records are still dropped on the
// inferred path.
//
// A record whose selected values are all null or empty is skipped entirely,
// so projection mismatches never produce blank rows.
package writer

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

const (
	FormatCSV     = "csv"
	FormatXLSX    = "xlsx"
	FormatParquet = "parquet"
)

// DefaultBatchSize is the columnar batch size when Options.BatchSize is 0.
const DefaultBatchSize = 20000

// Options configures one output stream.
type Options struct {
	// Columns is an explicit ordered projection in the flattener's key
	// format. Nil or empty means "infer from the first record". A projected
	// key absent from a given record degrades to an empty cell; it is never
	// an error.
	Columns []string

	// Aliases optionally renames header cells: path key -> friendly header.
	// Values and selection are still keyed by path; unknown keys are ignored.
	Aliases map[string]string

	// BatchSize bounds how many records the columnar backend buffers per
	// batch. Ignored by the other backends.
	BatchSize int
}

// RowWriter consumes a finite sequence of records and produces one artifact.
//
// WriteRow may be called zero or more times, then Close exactly once. Close
// finalizes the artifact; a RowWriter is not reusable afterwards.
type RowWriter interface {
	WriteRow(rec Row) error
	Close() error
}

// Row is the minimal record surface a backend needs: ordered keys and
// nullable lookup. *record.Record satisfies it.
type Row interface {
	Keys() []string
	Lookup(key string) (*string, bool)
}

type factory func(w io.Writer, opts Options) (RowWriter, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
	exts      = map[string]string{}
)

// register adds a backend under a format name. Called from init; duplicate
// registration is a programming error and panics.
func register(format, ext string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if format == "" {
		panic("writer: register called with empty format")
	}
	if f == nil {
		panic("writer: register called with nil factory")
	}
	if _, exists := factories[format]; exists {
		panic(fmt.Sprintf("writer: factory already registered for format %q", format))
	}
	factories[format] = f
	exts[format] = ext
}

// New constructs a RowWriter for the given format writing to w.
//
// An unknown format is an error; callers reject it before any input is
// processed.
func New(format string, w io.Writer, opts Options) (RowWriter, error) {
	mu.RLock()
	f, ok := factories[format]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("writer: unsupported format %q (supported: csv, xlsx, parquet)", format)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return f(w, opts)
}

// Supported reports whether format has a registered backend.
func Supported(format string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := factories[format]
	return ok
}

// Ext returns the artifact file extension for format, without the dot.
func Ext(format string) string {
	mu.RLock()
	defer mu.RUnlock()
	return exts[format]
}

// selectValues projects rec onto cols. Missing and null keys degrade to "";
// empty reports whether every selected value is null or empty.
func selectValues(rec Row, cols []string) (vals []string, empty bool) {
	vals = make([]string, len(cols))
	empty = true
	for i, c := range cols {
		v, ok := rec.Lookup(c)
		if !ok || v == nil {
			continue
		}
		vals[i] = *v
		if *v != "" {
			empty = false
		}
	}
	return vals, empty
}

// headerCells applies aliases to the projected column names.
func headerCells(cols []string, aliases map[string]string) []string {
	if len(aliases) == 0 {
		return cols
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		if alias, ok := aliases[c]; ok && alias != "" {
			out[i] = alias
			continue
		}
		out[i] = c
	}
	return out
}

// projectedColumns resolves the effective column set on first write. An
// inferred header is sorted lexicographically, the same order the assembler
// produces, so the header of a uniform-key document does not depend on which
// extraction path produced the records.
func projectedColumns(opts Options, first Row) []string {
	if len(opts.Columns) > 0 {
		return opts.Columns
	}
	keys := first.Keys()
	out := make([]string, len(keys))
	copy(out, keys)
	sort.Strings(out)
	return out
}

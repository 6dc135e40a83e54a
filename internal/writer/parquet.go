package writer

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

func init() {
	register(FormatParquet, "parquet", newParquet)
}

// parquetWriter buffers records into fixed-size batches and flushes each
// batch as its own row group.
//
// The schema is fixed from the projection (or the first record) as all
// optional UTF-8 columns: every value is coerced to text, so a later batch
// can never fail on cross-batch type drift. Peak memory is O(one batch).
//
// An input that produces no rows and has no explicit projection yields an
// empty (zero-byte) artifact, since parquet cannot express a zero-column
// file.
type parquetWriter struct {
	out   io.Writer
	opts  Options
	cols  []string
	names []string // aliased column names, parallel to cols
	gw    *parquet.GenericWriter[map[string]any]
	batch []map[string]any
}

func newParquet(w io.Writer, opts Options) (RowWriter, error) {
	return &parquetWriter{out: w, opts: opts}, nil
}

func (p *parquetWriter) init(cols []string) error {
	if len(cols) == 0 {
		return fmt.Errorf("parquet: cannot derive a schema from a record with no keys")
	}
	p.cols = cols
	p.names = headerCells(cols, p.opts.Aliases)

	group := parquet.Group{}
	for _, name := range p.names {
		group[name] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("rows", group)
	p.gw = parquet.NewGenericWriter[map[string]any](p.out, schema)
	p.batch = make([]map[string]any, 0, p.opts.BatchSize)
	return nil
}

func (p *parquetWriter) WriteRow(rec Row) error {
	if p.gw == nil {
		if err := p.init(projectedColumns(p.opts, rec)); err != nil {
			return err
		}
	}

	row := make(map[string]any, len(p.cols))
	empty := true
	for i, c := range p.cols {
		v, ok := rec.Lookup(c)
		if !ok || v == nil {
			continue
		}
		row[p.names[i]] = *v
		if *v != "" {
			empty = false
		}
	}
	if empty {
		return nil
	}

	p.batch = append(p.batch, row)
	if len(p.batch) >= p.opts.BatchSize {
		return p.flushBatch()
	}
	return nil
}

// flushBatch writes the buffered records and closes the current row group.
func (p *parquetWriter) flushBatch() error {
	if len(p.batch) == 0 {
		return nil
	}
	if _, err := p.gw.Write(p.batch); err != nil {
		return fmt.Errorf("parquet: write batch: %w", err)
	}
	if err := p.gw.Flush(); err != nil {
		return fmt.Errorf("parquet: flush row group: %w", err)
	}
	p.batch = p.batch[:0]
	return nil
}

func (p *parquetWriter) Close() error {
	if p.gw == nil {
		if len(p.opts.Columns) == 0 {
			return nil
		}
		if err := p.init(p.opts.Columns); err != nil {
			return err
		}
	}
	if err := p.flushBatch(); err != nil {
		return err
	}
	if err := p.gw.Close(); err != nil {
		return fmt.Errorf("parquet: close: %w", err)
	}
	return nil
}

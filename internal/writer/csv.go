package writer

import (
	"encoding/csv"
	"fmt"
	"io"
)

func init() {
	register(FormatCSV, "csv", newCSV)
}

// csvWriter emits a header row followed by one row per non-empty record.
type csvWriter struct {
	w    *csv.Writer
	opts Options
	cols []string
}

func newCSV(w io.Writer, opts Options) (RowWriter, error) {
	return &csvWriter{w: csv.NewWriter(w), opts: opts}, nil
}

func (c *csvWriter) WriteRow(rec Row) error {
	if c.cols == nil {
		c.cols = projectedColumns(c.opts, rec)
		if err := c.w.Write(headerCells(c.cols, c.opts.Aliases)); err != nil {
			return fmt.Errorf("csv: write header: %w", err)
		}
	}
	vals, empty := selectValues(rec, c.cols)
	if empty {
		return nil
	}
	if err := c.w.Write(vals); err != nil {
		return fmt.Errorf("csv: write row: %w", err)
	}
	return nil
}

// Close flushes buffered output. An explicit projection still produces its
// header even when no rows were written.
func (c *csvWriter) Close() error {
	if c.cols == nil && len(c.opts.Columns) > 0 {
		c.cols = c.opts.Columns
		if err := c.w.Write(headerCells(c.cols, c.opts.Aliases)); err != nil {
			return fmt.Errorf("csv: write header: %w", err)
		}
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}
	return nil
}

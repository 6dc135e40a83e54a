package writer

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

func init() {
	register(FormatXLSX, "xlsx", newXLSX)
}

// maxSheetColumns is the spreadsheet format's hard column ceiling. Wider
// tables are split into additional sheets, each carrying a disjoint column
// slice in original order, all sheets sharing row count and row order.
const maxSheetColumns = 16384

// xlsxWriter streams rows into one workbook. A single sheet is named "Rows";
// split sheets are "Rows_1", "Rows_2", ...
type xlsxWriter struct {
	out    io.Writer
	opts   Options
	f      *excelize.File
	sheets []*excelize.StreamWriter
	cols   []string
	next   int // next 1-based row index in every sheet
}

func newXLSX(w io.Writer, opts Options) (RowWriter, error) {
	return &xlsxWriter{out: w, opts: opts}, nil
}

func (x *xlsxWriter) init(cols []string) error {
	x.cols = cols
	x.f = excelize.NewFile()

	n := 1
	if len(cols) > maxSheetColumns {
		n = (len(cols) + maxSheetColumns - 1) / maxSheetColumns
	}
	names := sheetNames(n)

	if err := x.f.SetSheetName("Sheet1", names[0]); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	for _, name := range names[1:] {
		if _, err := x.f.NewSheet(name); err != nil {
			return fmt.Errorf("xlsx: add sheet %s: %w", name, err)
		}
	}
	for _, name := range names {
		sw, err := x.f.NewStreamWriter(name)
		if err != nil {
			return fmt.Errorf("xlsx: stream writer %s: %w", name, err)
		}
		x.sheets = append(x.sheets, sw)
	}

	x.next = 1
	if len(cols) == 0 {
		return nil
	}
	header := headerCells(cols, x.opts.Aliases)
	return x.setRow(toCells(header))
}

// setRow writes one logical row, slicing it across the sheets.
func (x *xlsxWriter) setRow(cells []interface{}) error {
	for i, sw := range x.sheets {
		lo := i * maxSheetColumns
		hi := lo + maxSheetColumns
		if hi > len(cells) {
			hi = len(cells)
		}
		cell, err := excelize.CoordinatesToCellName(1, x.next)
		if err != nil {
			return fmt.Errorf("xlsx: cell name: %w", err)
		}
		if err := sw.SetRow(cell, cells[lo:hi]); err != nil {
			return fmt.Errorf("xlsx: set row %d: %w", x.next, err)
		}
	}
	x.next++
	return nil
}

func (x *xlsxWriter) WriteRow(rec Row) error {
	if x.f == nil {
		if err := x.init(projectedColumns(x.opts, rec)); err != nil {
			return err
		}
	}
	vals, empty := selectValues(rec, x.cols)
	if empty {
		return nil
	}
	return x.setRow(toCells(vals))
}

func (x *xlsxWriter) Close() error {
	if x.f == nil {
		// No rows: still produce a valid workbook, with a header when an
		// explicit projection was supplied.
		cols := x.opts.Columns
		if cols == nil {
			cols = []string{}
		}
		if err := x.init(cols); err != nil {
			return err
		}
	}
	for _, sw := range x.sheets {
		if err := sw.Flush(); err != nil {
			return fmt.Errorf("xlsx: flush: %w", err)
		}
	}
	if err := x.f.Write(x.out); err != nil {
		return fmt.Errorf("xlsx: write workbook: %w", err)
	}
	return x.f.Close()
}

func sheetNames(n int) []string {
	if n <= 1 {
		return []string{"Rows"}
	}
	names := make([]string, n)
	for i := range names {
		names[i] = "Rows_" + strconv.Itoa(i+1)
	}
	return names
}

func toCells(vals []string) []interface{} {
	cells := make([]interface{}, len(vals))
	for i, v := range vals {
		cells[i] = v
	}
	return cells
}

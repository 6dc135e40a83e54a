// Package htmltable extracts the dominant <table> of an HTML document as a
// sequence of flat records, so tabular HTML reports convert through the same
// writers as XML documents.
package htmltable

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"xmltab/internal/record"
)

// Records parses the HTML document in r and returns one record per body row
// of the table with the most rows.
//
// Header cells come from the table's first row containing <th> cells; when no
// row has <th> cells, the first row's text is used as the header. Duplicate
// header names are disambiguated with a bracketed occurrence index, matching
// the flattener's repeated-group key style. Cells whose text is empty after
// trimming become nulls.
//
// Rows that are entirely empty are still returned; writers decide whether to
// skip them.
func Records(r io.Reader) ([]*record.Record, error) {
	cr, err := charset.NewReader(r, "text/html")
	if err != nil {
		return nil, fmt.Errorf("html: detect charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(cr)
	if err != nil {
		return nil, fmt.Errorf("html: %w", err)
	}

	table := largestTable(doc)
	if table == nil {
		return nil, fmt.Errorf("html: document contains no table")
	}

	rows := table.Find("tr")
	headerIdx, header := headerRow(rows)
	if len(header) == 0 {
		return nil, fmt.Errorf("html: table has no cells")
	}

	var out []*record.Record
	rows.Each(func(i int, tr *goquery.Selection) {
		if i == headerIdx {
			return
		}
		cells := tr.Find("td, th")
		if cells.Length() == 0 {
			return
		}
		rec := record.New()
		cells.Each(func(j int, cell *goquery.Selection) {
			if j >= len(header) {
				return
			}
			txt := strings.TrimSpace(cell.Text())
			if txt == "" {
				rec.SetNull(header[j])
				return
			}
			rec.Set(header[j], txt)
		})
		out = append(out, rec)
	})
	return out, nil
}

// largestTable returns the <table> with the most <tr> rows, or nil when the
// document has none. Nested tables count their own rows only insofar as
// goquery's descendant search includes them; ties keep the first table in
// DOM order.
func largestTable(doc *goquery.Document) *goquery.Selection {
	var best *goquery.Selection
	bestRows := 0
	doc.Find("table").Each(func(_ int, t *goquery.Selection) {
		n := t.Find("tr").Length()
		if n > bestRows {
			best, bestRows = t, n
		}
	})
	return best
}

// headerRow picks the header row index and its cell texts.
func headerRow(rows *goquery.Selection) (int, []string) {
	idx := -1
	var header []string

	rows.EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if tr.Find("th").Length() == 0 {
			return true
		}
		idx, header = i, cellTexts(tr.Find("th"))
		return false
	})
	if idx == -1 && rows.Length() > 0 {
		idx = 0
		header = cellTexts(rows.First().Find("td, th"))
	}
	return idx, dedupe(header)
}

func cellTexts(cells *goquery.Selection) []string {
	out := make([]string, 0, cells.Length())
	cells.Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.TrimSpace(c.Text()))
	})
	return out
}

// dedupe makes header names unique: the second "Name" becomes "Name[1]".
func dedupe(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		if h == "" {
			h = "column" + strconv.Itoa(i)
		}
		n := seen[h]
		seen[h] = n + 1
		if n == 0 {
			out[i] = h
			continue
		}
		out[i] = h + "[" + strconv.Itoa(n) + "]"
	}
	return out
}

package xml

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"xmltab/internal/record"
)

// DiscoverRowTag is pass 1 of the streaming path: a single forward scan that
// finds the local name of the repeating element to treat as "a row".
//
// For every open element it counts closed direct children by local name; the
// retained winner is the (name, count) pair with the highest count >= 2, the
// first such pair seen winning ties. If nothing repeats, the local name of
// the root's first direct child is used; if the root is childless, the root's
// own name.
//
// The reader is consumed to EOF. A second call needs a re-opened source.
func DiscoverRowTag(r io.Reader) (string, error) {
	dec := newDecoder(r)

	var (
		stack      []map[string]int
		bestName   string
		bestCount  int
		rootName   string
		firstChild string
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 && rootName == "" {
				rootName = t.Name.Local
			}
			if len(stack) == 1 && firstChild == "" {
				firstChild = t.Name.Local
			}
			stack = append(stack, nil)

		case xml.EndElement:
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				continue
			}
			top := len(stack) - 1
			if stack[top] == nil {
				stack[top] = make(map[string]int)
			}
			stack[top][t.Name.Local]++
			// Strictly greater keeps the first name to reach any given
			// count, which makes discovery deterministic.
			if c := stack[top][t.Name.Local]; c >= 2 && c > bestCount {
				bestName, bestCount = t.Name.Local, c
			}
		}
	}

	switch {
	case bestCount >= 2:
		return bestName, nil
	case firstChild != "":
		return firstChild, nil
	case rootName != "":
		return rootName, nil
	}
	return "", fmt.Errorf("xml: document has no root element")
}

// StreamRows is pass 2 of the streaming path: it scans the document and sends
// one flattened record to out for every element whose local name equals
// target, in document order.
//
// Memory stays bounded to one row: element state is only materialized while a
// target element is open, and is released as soon as its record is sent.
// Occurrences of target nested inside an open target are treated as content
// of the enclosing row, not as rows of their own.
//
// StreamRows does not close out; the caller owns the channel. onRowErr, when
// non-nil, is invoked once with the count of rows already emitted before a
// parse failure is returned.
//
// Returns ctx.Err() if the context is cancelled while sending.
func StreamRows(
	ctx context.Context,
	r io.Reader,
	target string,
	out chan<- *record.Record,
	onRowErr func(rows int, err error),
) error {
	dec := newDecoder(r)

	var capture []*Element
	rows := 0

	fail := func(err error) error {
		if onRowErr != nil {
			onRowErr(rows, err)
		}
		return fmt.Errorf("xml: after %d rows: %w", rows, err)
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fail(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if capture == nil && t.Name.Local != target {
				continue
			}
			el := &Element{Name: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				el.Attrs = append(el.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
			}
			if len(capture) > 0 {
				parent := capture[len(capture)-1]
				parent.Children = append(parent.Children, el)
			}
			capture = append(capture, el)

		case xml.CharData:
			if len(capture) > 0 {
				capture[len(capture)-1].text.Write(t)
			}

		case xml.EndElement:
			if len(capture) == 0 {
				continue
			}
			el := capture[len(capture)-1]
			capture = capture[:len(capture)-1]
			if len(capture) > 0 {
				continue
			}
			capture = nil // release the subtree before the next row

			rows++
			rec := Flatten(Normalize(el))
			select {
			case out <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

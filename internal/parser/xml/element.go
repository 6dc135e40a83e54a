// Package xml turns schema-free XML documents into flat, path-keyed records.
//
// It provides two paths with identical row semantics:
//
//   - Whole-document: Parse builds an element tree, DetectRows picks the
//     repeating sibling group that best represents "the rows", and
//     Normalize+Flatten turn each row element into a *record.Record.
//   - Streaming: DiscoverRowTag scans the document once to find the repeating
//     tag, and StreamRows scans it again emitting one flattened record per
//     matching element, holding at most one row in memory.
//
// All element and attribute names are reduced to their local name; namespace
// prefixes and URIs are ignored throughout.
package xml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// Attr is one attribute of an Element, namespace stripped.
type Attr struct {
	Name  string
	Value string
}

// Element is a minimal DOM node: local name, attributes and children in
// document order, and accumulated character data.
type Element struct {
	Name     string
	Attrs    []Attr
	Children []*Element
	text     strings.Builder
}

// Text returns the element's character data with surrounding whitespace
// trimmed.
func (e *Element) Text() string {
	return strings.TrimSpace(e.text.String())
}

// Parse reads one XML document from r and returns its root element.
//
// Documents in a declared non-UTF-8 encoding are decoded via x/text; an
// unknown declared charset is a parse error. A second root element is a parse
// error; character data outside the root element is discarded.
func Parse(r io.Reader) (*Element, error) {
	dec := newDecoder(r)

	var root *Element
	var stack []*Element

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Name: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				el.Attrs = append(el.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("xml: multiple root elements")
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}

		case xml.EndElement:
			stack = stack[:len(stack)-1]
		}
	}

	if root == nil {
		return nil, fmt.Errorf("xml: document has no root element")
	}
	return root, nil
}

func newDecoder(r io.Reader) *xml.Decoder {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader
	return dec
}

// charsetReader resolves declared encodings by IANA name, so documents using
// e.g. ISO-8859-1 or windows-1252 decode correctly.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

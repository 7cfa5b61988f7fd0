package decode

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sdejongh/diffnorris/pkg/graph"
)

const xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"

// XML decodes XML documents.
//
// The root element becomes the single field of the returned object. Child
// elements become fields in document order; repeated siblings are merged
// into a list at the position of their first occurrence. Attributes become
// "@name" fields and leaf text is typed by inference. xsi:nil="true" yields null.
type XML struct{}

// Name returns "xml"
func (XML) Name() string { return "xml" }

// Decode parses the document
func (XML) Decode(data []byte) (*graph.Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to decode xml: no root element")
			}
			return nil, fmt.Errorf("failed to decode xml: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			n, err := decodeXMLElement(dec, start)
			if err != nil {
				return nil, fmt.Errorf("failed to decode xml: %w", err)
			}
			return graph.Object(graph.F(start.Name.Local, n)), nil
		}
	}
}

// xmlBuilder accumulates the children of one element
type xmlBuilder struct {
	fields []graph.Field
	// index of the field holding each child name
	pos map[string]int
	// names already converted to lists
	lists map[string]bool
}

func (b *xmlBuilder) add(name string, n *graph.Node) {
	if b.pos == nil {
		b.pos = make(map[string]int)
		b.lists = make(map[string]bool)
	}
	i, seen := b.pos[name]
	if !seen {
		b.pos[name] = len(b.fields)
		b.fields = append(b.fields, graph.F(name, n))
		return
	}
	if !b.lists[name] {
		b.fields[i].Value = graph.List(b.fields[i].Value)
		b.lists[name] = true
	}
	b.fields[i].Value.Items = append(b.fields[i].Value.Items, n)
}

func decodeXMLElement(dec *xml.Decoder, start xml.StartElement) (*graph.Node, error) {
	var b xmlBuilder
	isNil := false
	for _, attr := range start.Attr {
		if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
			continue
		}
		if attr.Name.Local == "nil" && (attr.Name.Space == xsiNamespace || attr.Name.Space == "xsi") {
			isNil = attr.Value == "true"
			continue
		}
		b.add("@"+attr.Name.Local, inferScalar(attr.Value))
	}

	var text strings.Builder
	hasChildren := false
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeXMLElement(dec, t)
			if err != nil {
				return nil, err
			}
			hasChildren = true
			b.add(t.Name.Local, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if isNil {
				return graph.Null(), nil
			}
			content := text.String()
			if !hasChildren && len(b.fields) == 0 {
				return inferScalar(content), nil
			}
			if s := strings.TrimSpace(content); s != "" {
				b.add("#text", inferScalar(s))
			}
			return graph.Object(b.fields...), nil
		}
	}
}

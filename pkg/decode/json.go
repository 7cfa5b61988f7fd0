package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sdejongh/diffnorris/pkg/graph"
)

// JSON decodes JSON documents, keeping object keys in document order
type JSON struct{}

// Name returns "json"
func (JSON) Name() string { return "json" }

// Decode parses a single JSON value
func (JSON) Decode(data []byte) (*graph.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	n, err := decodeJSONValue(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode json: trailing data after top-level value")
	}
	return n, nil
}

func decodeJSONValue(dec *json.Decoder) (*graph.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch v := tok.(type) {
	case nil:
		return graph.Null(), nil
	case bool:
		return graph.Bool(v), nil
	case json.Number:
		return graph.Number(v.String()), nil
	case string:
		return stringScalar(v), nil
	case json.Delim:
		switch v {
		case '{':
			return decodeJSONObject(dec)
		case '[':
			return decodeJSONArray(dec)
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func decodeJSONObject(dec *json.Decoder) (*graph.Node, error) {
	var fields []graph.Field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		val, err := decodeJSONValue(dec)
		if err != nil {
			return nil, err
		}
		fields = append(fields, graph.F(key, val))
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return graph.Object(fields...), nil
}

func decodeJSONArray(dec *json.Decoder) (*graph.Node, error) {
	items := []*graph.Node{}
	for dec.More() {
		val, err := decodeJSONValue(dec)
		if err != nil {
			return nil, err
		}
		items = append(items, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return graph.List(items...), nil
}

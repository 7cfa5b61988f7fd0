// Package decode turns raw document bytes into object graphs.
package decode

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sdejongh/diffnorris/pkg/graph"
)

// Decoder parses one document into an object graph
type Decoder interface {
	// Decode parses data. It must be safe for concurrent use.
	Decode(data []byte) (*graph.Node, error)

	// Name returns the format handled by the decoder
	Name() string
}

// UnsupportedFormatError is returned when no decoder handles a format
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported document format %q", e.Format)
}

// ByFormat returns the decoder for a format name (json, xml, yaml)
func ByFormat(format string) (Decoder, error) {
	switch strings.ToLower(format) {
	case "json":
		return JSON{}, nil
	case "xml":
		return XML{}, nil
	case "yaml", "yml":
		return YAML{}, nil
	default:
		return nil, &UnsupportedFormatError{Format: format}
	}
}

// ForName picks a decoder from a document's file extension
func ForName(name string) (Decoder, error) {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return nil, &UnsupportedFormatError{Format: name}
	}
	return ByFormat(ext)
}

// Func adapts a plain function to the Decoder interface
type Func func(data []byte) (*graph.Node, error)

// Decode calls f
func (f Func) Decode(data []byte) (*graph.Node, error) { return f(data) }

// Name returns "custom"
func (f Func) Name() string { return "custom" }

// Auto selects a decoder per document name, optionally forcing one format
type Auto struct {
	forced Decoder
}

// NewAuto returns a resolver. An empty format means detection by extension.
func NewAuto(format string) (*Auto, error) {
	if format == "" || format == "auto" {
		return &Auto{}, nil
	}
	d, err := ByFormat(format)
	if err != nil {
		return nil, err
	}
	return &Auto{forced: d}, nil
}

// Resolve returns the decoder for the named document
func (a *Auto) Resolve(name string) (Decoder, error) {
	if a.forced != nil {
		return a.forced, nil
	}
	return ForName(name)
}

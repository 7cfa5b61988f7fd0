// Package graph defines the object graph walked by the structural comparator.
//
// A graph is a tree of nodes: null, scalar, ordered list, or object with
// ordered named fields. Decoders and schema descriptors build graphs; the
// comparator only ever sees this representation.
package graph

import (
	"strconv"
	"strings"
	"time"
)

// Kind is the variant tag of a node
type Kind uint8

const (
	KindNull Kind = iota
	KindScalar
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// ScalarType refines scalar nodes so leaves compare by parsed value
type ScalarType uint8

const (
	TypeString ScalarType = iota
	TypeNumber
	TypeBool
	TypeDate
)

func (t ScalarType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBool:
		return "bool"
	case TypeDate:
		return "date"
	default:
		return "unknown"
	}
}

// Field is a named member of an object node
type Field struct {
	Name     string
	Value    *Node
	ReadOnly bool
}

// Node is one vertex of an object graph.
// Only the members relevant to Kind are populated.
type Node struct {
	Kind Kind

	// Scalar
	Type ScalarType
	Raw  string

	// Object
	Fields []Field

	// List
	Items []*Node
}

var nullNode = &Node{Kind: KindNull}

// Null returns the shared null node
func Null() *Node { return nullNode }

// String returns a string scalar
func String(s string) *Node {
	return &Node{Kind: KindScalar, Type: TypeString, Raw: s}
}

// Number returns a numeric scalar from its textual form
func Number(raw string) *Node {
	return &Node{Kind: KindScalar, Type: TypeNumber, Raw: raw}
}

// Int returns a numeric scalar
func Int(v int64) *Node {
	return Number(strconv.FormatInt(v, 10))
}

// Float returns a numeric scalar
func Float(v float64) *Node {
	return Number(strconv.FormatFloat(v, 'f', -1, 64))
}

// Bool returns a boolean scalar
func Bool(v bool) *Node {
	return &Node{Kind: KindScalar, Type: TypeBool, Raw: strconv.FormatBool(v)}
}

// Time returns a date scalar
func Time(t time.Time) *Node {
	return &Node{Kind: KindScalar, Type: TypeDate, Raw: t.Format(time.RFC3339Nano)}
}

// Date returns a date scalar from its textual form
func Date(raw string) *Node {
	return &Node{Kind: KindScalar, Type: TypeDate, Raw: raw}
}

// Object returns an object node with the given fields in declaration order
func Object(fields ...Field) *Node {
	return &Node{Kind: KindObject, Fields: fields}
}

// List returns a list node
func List(items ...*Node) *Node {
	if items == nil {
		items = []*Node{}
	}
	return &Node{Kind: KindList, Items: items}
}

// F is shorthand for a writable field
func F(name string, v *Node) Field {
	return Field{Name: name, Value: orNull(v)}
}

// RO is shorthand for a read-only field
func RO(name string, v *Node) Field {
	return Field{Name: name, Value: orNull(v), ReadOnly: true}
}

func orNull(n *Node) *Node {
	if n == nil {
		return nullNode
	}
	return n
}

// IsNull reports whether n is nil or a null node
func (n *Node) IsNull() bool {
	return n == nil || n.Kind == KindNull
}

// Lookup returns the value of the named field of an object node
func (n *Node) Lookup(name string) (*Node, bool) {
	if n == nil || n.Kind != KindObject {
		return nil, false
	}
	for i := range n.Fields {
		if n.Fields[i].Name == name {
			return n.Fields[i].Value, true
		}
	}
	return nil, false
}

// Len returns the item count of a list or the field count of an object
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	switch n.Kind {
	case KindList:
		return len(n.Items)
	case KindObject:
		return len(n.Fields)
	}
	return 0
}

// Int64 parses a numeric scalar as an exact integer
func (n *Node) Int64() (int64, bool) {
	if n == nil || n.Kind != KindScalar || n.Type != TypeNumber {
		return 0, false
	}
	v, err := strconv.ParseInt(n.Raw, 10, 64)
	return v, err == nil
}

// Float64 parses a numeric scalar
func (n *Node) Float64() (float64, bool) {
	if n == nil || n.Kind != KindScalar || n.Type != TypeNumber {
		return 0, false
	}
	v, err := strconv.ParseFloat(n.Raw, 64)
	return v, err == nil
}

// BoolValue parses a boolean scalar
func (n *Node) BoolValue() (bool, bool) {
	if n == nil || n.Kind != KindScalar || n.Type != TypeBool {
		return false, false
	}
	v, err := strconv.ParseBool(n.Raw)
	return v, err == nil
}

// dateLayouts are tried in order when parsing date scalars
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// TimeValue parses a date scalar
func (n *Node) TimeValue() (time.Time, bool) {
	if n == nil || n.Kind != KindScalar || n.Type != TypeDate {
		return time.Time{}, false
	}
	return ParseTime(n.Raw)
}

// ParseTime parses s using the date layouts understood by graphs
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Text renders the node for inclusion in a difference.
// Composite nodes are summarised rather than expanded.
func (n *Node) Text() string {
	if n.IsNull() {
		return "null"
	}
	switch n.Kind {
	case KindScalar:
		return n.Raw
	case KindList:
		return "[" + strconv.Itoa(len(n.Items)) + " items]"
	case KindObject:
		return "{" + strconv.Itoa(len(n.Fields)) + " fields}"
	}
	return ""
}

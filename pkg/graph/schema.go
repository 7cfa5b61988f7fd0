package graph

// FieldDescriptor describes one field of a model type T
type FieldDescriptor[T any] struct {
	Name     string
	ReadOnly bool
	// Accessor returns the field value as a node; nil means null
	Accessor func(T) *Node
}

// Schema is an explicitly registered list of field descriptors for T.
// It converts typed values into object graphs without reflection.
type Schema[T any] struct {
	fields []FieldDescriptor[T]
}

// NewSchema registers the fields of T in declaration order
func NewSchema[T any](fields ...FieldDescriptor[T]) *Schema[T] {
	return &Schema[T]{fields: fields}
}

// Fields returns the registered descriptors
func (s *Schema[T]) Fields() []FieldDescriptor[T] {
	return s.fields
}

// Node builds the object graph of v
func (s *Schema[T]) Node(v T) *Node {
	fields := make([]Field, len(s.fields))
	for i, d := range s.fields {
		fields[i] = Field{Name: d.Name, Value: orNull(d.Accessor(v)), ReadOnly: d.ReadOnly}
	}
	return Object(fields...)
}

// ListOf builds a list node from items using schema s
func ListOf[T any](s *Schema[T], items []T) *Node {
	nodes := make([]*Node, len(items))
	for i, it := range items {
		nodes[i] = s.Node(it)
	}
	return List(nodes...)
}

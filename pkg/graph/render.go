package graph

import "strings"

// DefaultRenderLimit caps rendered composite values in differences
const DefaultRenderLimit = 256

// Render returns a compact single-line rendering of n, cut at limit bytes.
// Scalars render as their raw text.
func Render(n *Node, limit int) string {
	if n.IsNull() {
		return "null"
	}
	if n.Kind == KindScalar {
		return n.Raw
	}
	if limit <= 0 {
		limit = DefaultRenderLimit
	}
	var b strings.Builder
	render(&b, n, limit)
	if b.Len() > limit {
		return b.String()[:limit] + "..."
	}
	return b.String()
}

func render(b *strings.Builder, n *Node, limit int) {
	if b.Len() > limit {
		return
	}
	switch {
	case n.IsNull():
		b.WriteString("null")
	case n.Kind == KindScalar:
		b.WriteString(n.Raw)
	case n.Kind == KindList:
		b.WriteByte('[')
		for i, it := range n.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			render(b, it, limit)
		}
		b.WriteByte(']')
	case n.Kind == KindObject:
		b.WriteByte('{')
		for i, f := range n.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Name)
			b.WriteString(": ")
			render(b, f.Value, limit)
		}
		b.WriteByte('}')
	}
}

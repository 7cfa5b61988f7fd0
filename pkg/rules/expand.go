package rules

import (
	"github.com/sdejongh/diffnorris/pkg/graph"
	"github.com/sdejongh/diffnorris/pkg/models"
)

// Expand returns the concrete paths a wildcard pattern denotes in a pair of
// graphs. Each [*] is replaced by every index that exists on either side, so
// elements present in only one document are still covered. Paths that do
// not exist on either side produce nothing.
func Expand(pattern string, old, new *graph.Node) ([]string, error) {
	rule, err := Compile(models.IgnoreRule{PathPattern: pattern})
	if err != nil {
		return nil, err
	}

	var out []string
	var walk func(prefix []graph.Segment, rest []graph.Segment, a, b *graph.Node)
	walk = func(prefix []graph.Segment, rest []graph.Segment, a, b *graph.Node) {
		if a == nil && b == nil {
			return
		}
		if len(rest) == 0 {
			out = append(out, graph.FormatPath(prefix))
			return
		}
		seg := rest[0]
		switch {
		case !seg.IsIndex:
			walk(append(prefix, seg), rest[1:], field(a, seg.Name), field(b, seg.Name))
		case seg.IsWildcard():
			n := max(listLen(a), listLen(b))
			for i := 0; i < n; i++ {
				walk(append(prefix, graph.Index(i)), rest[1:], item(a, i), item(b, i))
			}
		default:
			walk(append(prefix, seg), rest[1:], item(a, seg.Index), item(b, seg.Index))
		}
	}
	walk(make([]graph.Segment, 0, len(rule.Segments)), rule.Segments, old, new)
	return out, nil
}

func field(n *graph.Node, name string) *graph.Node {
	v, ok := n.Lookup(name)
	if !ok {
		return nil
	}
	return v
}

func item(n *graph.Node, i int) *graph.Node {
	if n == nil || n.Kind != graph.KindList || i >= len(n.Items) {
		return nil
	}
	return n.Items[i]
}

func listLen(n *graph.Node) int {
	if n == nil || n.Kind != graph.KindList {
		return 0
	}
	return len(n.Items)
}

package compare

import (
	"strings"

	"github.com/sdejongh/diffnorris/pkg/graph"
)

// scalarEqual compares leaves by parsed value. Leaves of different scalar
// types, or values that fail to parse, fall back to text comparison.
func (c *Comparator) scalarEqual(a, b *graph.Node) bool {
	if a.Type == b.Type {
		switch a.Type {
		case graph.TypeNumber:
			if x, ok := a.Int64(); ok {
				if y, ok := b.Int64(); ok {
					return x == y
				}
			}
			if x, ok := a.Float64(); ok {
				if y, ok := b.Float64(); ok {
					return x == y
				}
			}
		case graph.TypeDate:
			if x, ok := a.TimeValue(); ok {
				if y, ok := b.TimeValue(); ok {
					return x.Equal(y)
				}
			}
		case graph.TypeBool:
			if x, ok := a.BoolValue(); ok {
				if y, ok := b.BoolValue(); ok {
					return x == y
				}
			}
		}
	}
	return c.textEqual(a.Raw, b.Raw)
}

func (c *Comparator) textEqual(x, y string) bool {
	if c.cfg.CaseSensitive {
		return x == y
	}
	return strings.EqualFold(x, y)
}

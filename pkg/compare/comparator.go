// Package compare implements the structural comparator.
//
// A Comparator walks two object graphs in lock-step and records every
// difference under a ComparisonConfig. Instances own scratch buffers and are
// not safe for concurrent use; the Pool hands one instance to each worker.
package compare

import (
	"strconv"

	"github.com/sdejongh/diffnorris/pkg/graph"
	"github.com/sdejongh/diffnorris/pkg/logging"
	"github.com/sdejongh/diffnorris/pkg/models"
	"github.com/sdejongh/diffnorris/pkg/rules"
)

// MissingValue stands in for the absent side of a shape difference
const MissingValue = "<missing>"

// CountField is the synthetic field carrying positional list length changes
const CountField = "Count"

// Comparator compares object graphs under one immutable configuration
type Comparator struct {
	cfg         models.ComparisonConfig
	rules       *rules.RuleSet
	fingerprint string
	version     uint64

	// per-call state
	diffs     []models.Difference
	truncated bool
	matching  bool
	matchHit  bool

	// scratch reused across calls
	path []graph.Segment
	buf  []byte
}

// New validates cfg and returns a comparator for it.
// Malformed rules are logged through logger and skipped.
func New(cfg models.ComparisonConfig, logger logging.Logger) (*Comparator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newComparator(cfg, rules.NewRuleSet(cfg, logger), rules.Fingerprint(cfg), 0), nil
}

func newComparator(cfg models.ComparisonConfig, rs *rules.RuleSet, fingerprint string, version uint64) *Comparator {
	return &Comparator{
		cfg:         cfg,
		rules:       rs,
		fingerprint: fingerprint,
		version:     version,
		path:        make([]graph.Segment, 0, 16),
		buf:         make([]byte, 0, 128),
	}
}

// Compare is a convenience wrapper building a one-off comparator
func Compare(old, new *graph.Node, cfg models.ComparisonConfig) (models.ComparisonResult, error) {
	c, err := New(cfg, nil)
	if err != nil {
		return models.ComparisonResult{}, err
	}
	return c.Compare(old, new), nil
}

// Config returns the configuration the comparator was built with
func (c *Comparator) Config() models.ComparisonConfig { return c.cfg }

// Fingerprint returns the configuration fingerprint
func (c *Comparator) Fingerprint() string { return c.fingerprint }

// Version returns the pool configuration version the instance belongs to
func (c *Comparator) Version() uint64 { return c.version }

// Compare walks both graphs and returns the differences in visitation order.
// The returned slice is owned by the caller.
func (c *Comparator) Compare(old, new *graph.Node) models.ComparisonResult {
	c.diffs = nil
	c.truncated = false
	c.matching = false
	c.matchHit = false
	c.path = c.path[:0]

	if kindOf(old) != kindOf(new) {
		// Incompatible roots: one summary difference, no descent
		c.addDiff(graph.Render(old, 0), graph.Render(new, 0), shapeCategory(old, new))
	} else {
		c.walk(old, new)
	}

	res := models.ComparisonResult{Differences: c.diffs, Truncated: c.truncated}
	c.diffs = nil
	return res
}

func kindOf(n *graph.Node) graph.Kind {
	if n == nil {
		return graph.KindNull
	}
	return n.Kind
}

// shapeCategory leaves null-versus-value differences for the categorizer
func shapeCategory(old, new *graph.Node) models.Category {
	if old.IsNull() || new.IsNull() {
		return models.CategoryNone
	}
	return models.CategoryOther
}

// stop reports whether the walk must not record anything further
func (c *Comparator) stop() bool {
	if c.matching {
		return c.matchHit
	}
	return c.truncated
}

func (c *Comparator) walk(a, b *graph.Node) {
	if c.stop() {
		return
	}
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		c.addDiff(graph.Render(a, 0), graph.Render(b, 0), shapeCategory(a, b))
		return
	}

	switch ka {
	case graph.KindNull:
	case graph.KindScalar:
		if !c.scalarEqual(a, b) {
			c.addDiff(a.Raw, b.Raw, models.CategoryNone)
		}
	case graph.KindObject:
		c.compareObjects(a, b)
	case graph.KindList:
		if c.rules.Unordered(c.path) {
			c.compareUnordered(a, b)
		} else {
			c.comparePositional(a, b)
		}
	}
}

// skipField applies ignore rules and the read-only policy to the current path
func (c *Comparator) skipField(readOnly bool) bool {
	if readOnly && !c.cfg.CompareReadOnlyFields {
		return true
	}
	return c.rules.Ignored(c.path)
}

func (c *Comparator) compareObjects(a, b *graph.Node) {
	// Old fields in declaration order
	for i := range a.Fields {
		if c.stop() {
			return
		}
		fa := &a.Fields[i]
		j := fieldIndex(b.Fields, fa.Name, i)

		c.push(graph.Name(fa.Name))
		readOnly := fa.ReadOnly || (j >= 0 && b.Fields[j].ReadOnly)
		if !c.skipField(readOnly) {
			if j < 0 {
				c.addDiff(graph.Render(fa.Value, 0), MissingValue, models.CategoryOther)
			} else {
				c.walk(fa.Value, b.Fields[j].Value)
			}
		}
		c.pop()
	}

	// Then fields only present in the new graph
	for j := range b.Fields {
		if c.stop() {
			return
		}
		fb := &b.Fields[j]
		if fieldIndex(a.Fields, fb.Name, j) >= 0 {
			continue
		}
		c.push(graph.Name(fb.Name))
		if !c.skipField(fb.ReadOnly) {
			c.addDiff(MissingValue, graph.Render(fb.Value, 0), models.CategoryOther)
		}
		c.pop()
	}
}

// fieldIndex finds name in fields, trying the positional hint first
func fieldIndex(fields []graph.Field, name string, hint int) int {
	if hint < len(fields) && fields[hint].Name == name {
		return hint
	}
	for i := range fields {
		if fields[i].Name == name {
			return i
		}
	}
	return -1
}

func (c *Comparator) comparePositional(a, b *graph.Node) {
	na, nb := len(a.Items), len(b.Items)
	if na != nb {
		c.push(graph.Name(CountField))
		c.addDiff(strconv.Itoa(na), strconv.Itoa(nb), models.CategoryNone)
		c.pop()
	}

	common := min(na, nb)
	for i := 0; i < common; i++ {
		if c.stop() {
			return
		}
		c.push(graph.Index(i))
		if !c.rules.Ignored(c.path) {
			c.walk(a.Items[i], b.Items[i])
		}
		c.pop()
	}
	for i := common; i < na; i++ {
		if c.stop() {
			return
		}
		c.push(graph.Index(i))
		if !c.rules.Ignored(c.path) {
			c.addDiff(graph.Render(a.Items[i], 0), MissingValue, models.CategoryItemRemoved)
		}
		c.pop()
	}
	for i := common; i < nb; i++ {
		if c.stop() {
			return
		}
		c.push(graph.Index(i))
		if !c.rules.Ignored(c.path) {
			c.addDiff(MissingValue, graph.Render(b.Items[i], 0), models.CategoryItemAdded)
		}
		c.pop()
	}
}

func (c *Comparator) push(s graph.Segment) {
	c.path = append(c.path, s)
}

func (c *Comparator) pop() {
	c.path = c.path[:len(c.path)-1]
}

// addDiff records a difference at the current path
func (c *Comparator) addDiff(oldValue, newValue string, cat models.Category) {
	if c.matching {
		c.matchHit = true
		return
	}
	if c.truncated {
		return
	}

	c.buf = c.buf[:0]
	for i, s := range c.path {
		c.buf = graph.AppendSegment(c.buf, s, i == 0)
	}
	c.diffs = append(c.diffs, models.Difference{
		PropertyPath: string(c.buf),
		OldValue:     oldValue,
		NewValue:     newValue,
		Category:     cat,
	})

	if c.cfg.MaxDifferences > 0 && len(c.diffs) >= c.cfg.MaxDifferences {
		c.truncated = true
	}
}

// Package categorize normalizes, deduplicates and classifies differences.
package categorize

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/sdejongh/diffnorris/pkg/graph"
	"github.com/sdejongh/diffnorris/pkg/models"
)

// missingValue mirrors the comparator's placeholder for an absent side
const missingValue = "<missing>"

// countSuffix marks a positional list length artifact
const countSuffix = "Count"

const backingFieldMarker = "k__BackingField"

var (
	indexPattern        = regexp.MustCompile(`\[\d+\]`)
	backingFieldPattern = regexp.MustCompile(`<([^<>]+)>k__BackingField`)
)

// NormalizePath collapses numeric indices to [*] and strips synthetic
// backing-field notation, e.g. Lines[3].<Sku>k__BackingField -> Lines[*].Sku
func NormalizePath(path string) string {
	if strings.IndexByte(path, '[') >= 0 {
		path = indexPattern.ReplaceAllLiteralString(path, "[*]")
	}
	if strings.Contains(path, backingFieldMarker) {
		path = backingFieldPattern.ReplaceAllString(path, "$1")
	}
	return path
}

// Categorizer holds scratch state reused across Process calls.
// Instances are not safe for concurrent use; check one out per worker.
type Categorizer struct {
	itemPrefixes map[string]struct{}
	groups       map[groupKey]int
}

type groupKey struct {
	path     string
	oldValue string
	newValue string
}

// New returns a categorizer with empty scratch maps
func New() *Categorizer {
	return &Categorizer{
		itemPrefixes: make(map[string]struct{}),
		groups:       make(map[groupKey]int),
	}
}

var pool = sync.Pool{New: func() any { return New() }}

// Get checks out a pooled categorizer
func Get() *Categorizer { return pool.Get().(*Categorizer) }

// Put returns a categorizer to the pool
func Put(c *Categorizer) {
	if c != nil {
		pool.Put(c)
	}
}

// Process drops list-count artifacts covered by item-level differences,
// collapses differences describing the same logical change, and assigns a
// category to every difference left uncategorized. Input order is kept;
// the input slice is not modified.
func (c *Categorizer) Process(diffs []models.Difference) []models.Difference {
	if len(diffs) == 0 {
		return diffs
	}
	clear(c.itemPrefixes)
	clear(c.groups)

	for i := range diffs {
		c.markItemPrefixes(diffs[i].PropertyPath)
	}

	out := make([]models.Difference, 0, len(diffs))
	for _, d := range diffs {
		if c.isCountArtifact(d.PropertyPath) {
			continue
		}
		key := groupKey{path: NormalizePath(d.PropertyPath), oldValue: d.OldValue, newValue: d.NewValue}
		if idx, ok := c.groups[key]; ok {
			if better(d.PropertyPath, out[idx].PropertyPath) {
				out[idx] = d
			}
			continue
		}
		c.groups[key] = len(out)
		out = append(out, d)
	}

	for i := range out {
		if out[i].Category == models.CategoryNone {
			out[i] = out[i].WithCategory(Classify(out[i]))
		}
	}
	return out
}

// markItemPrefixes records every list path that has an element-level difference
func (c *Categorizer) markItemPrefixes(path string) {
	for i := 0; i < len(path); i++ {
		if path[i] == '[' {
			c.itemPrefixes[path[:i]] = struct{}{}
		}
	}
}

func (c *Categorizer) isCountArtifact(path string) bool {
	var list string
	switch {
	case path == countSuffix:
		list = ""
	case strings.HasSuffix(path, "."+countSuffix):
		list = path[:len(path)-len(countSuffix)-1]
	default:
		return false
	}
	_, ok := c.itemPrefixes[list]
	return ok
}

// better reports whether candidate should replace the current representative:
// the least synthetic path wins, then the shortest; ties keep the first seen
func better(candidate, current string) bool {
	sc, sr := syntheticScore(candidate), syntheticScore(current)
	if sc != sr {
		return sc < sr
	}
	return len(candidate) < len(current)
}

func syntheticScore(path string) int {
	score := strings.Count(path, backingFieldMarker)
	if path == countSuffix || strings.HasSuffix(path, "."+countSuffix) {
		score++
	}
	return score
}

// valueClass is the inferred type of a rendered value
type valueClass int

const (
	classNull valueClass = iota
	classBool
	classNumber
	classDate
	classComposite
	classText
)

// Classify infers a category from a difference's path and values
func Classify(d models.Difference) models.Category {
	oldMissing, newMissing := d.OldValue == missingValue, d.NewValue == missingValue
	if oldMissing || newMissing {
		if strings.HasSuffix(d.PropertyPath, "]") {
			if oldMissing {
				return models.CategoryItemAdded
			}
			return models.CategoryItemRemoved
		}
		return models.CategoryOther
	}

	a, b := classify(d.OldValue), classify(d.NewValue)
	switch {
	case a == classComposite || b == classComposite:
		return models.CategoryOther
	case a == classNull && b == classNull:
		return models.CategoryOther
	case a == classNull:
		return categoryOf(b)
	case b == classNull:
		return categoryOf(a)
	case a == b:
		return categoryOf(a)
	case a == classText || b == classText:
		return models.CategoryText
	default:
		return models.CategoryOther
	}
}

func categoryOf(c valueClass) models.Category {
	switch c {
	case classBool:
		return models.CategoryBoolean
	case classNumber:
		return models.CategoryNumeric
	case classDate:
		return models.CategoryDate
	case classText:
		return models.CategoryText
	default:
		return models.CategoryOther
	}
}

func classify(s string) valueClass {
	t := strings.TrimSpace(s)
	switch {
	case t == "null":
		return classNull
	case strings.EqualFold(t, "true") || strings.EqualFold(t, "false"):
		return classBool
	case isNumber(t):
		return classNumber
	case isDate(t):
		return classDate
	case t != "" && (t[0] == '[' || t[0] == '{'):
		return classComposite
	default:
		return classText
	}
}

func isNumber(s string) bool {
	if s == "" || strings.Trim(s, "0123456789+-.eE") != "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isDate(s string) bool {
	if len(s) < 10 || s[4] != '-' || s[7] != '-' {
		return false
	}
	_, ok := graph.ParseTime(s)
	return ok
}

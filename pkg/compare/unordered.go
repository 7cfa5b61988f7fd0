package compare

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"

	"github.com/sdejongh/diffnorris/pkg/graph"
	"github.com/sdejongh/diffnorris/pkg/models"
)

// compareUnordered pairs elements by full structural equality regardless of
// position. Elements are bucketed by a rule-aware structural hash and each
// candidate is confirmed with an equality walk. Unmatched old elements are
// reported as removed in old index order, then unmatched new elements as
// added in new index order.
//
// Within an order-independent list, element identity is positionless: the
// hash and the equality walk evaluate rules against the [*] form of the
// element path, so only wildcard rules apply below it.
func (c *Comparator) compareUnordered(a, b *graph.Node) {
	na, nb := len(a.Items), len(b.Items)

	c.push(graph.Wildcard())
	if c.rules.Ignored(c.path) {
		c.pop()
		return
	}

	buckets := make(map[uint64][]int, nb)
	for j, it := range b.Items {
		h := c.hashNode(it)
		buckets[h] = append(buckets[h], j)
	}

	usedNew := make([]bool, nb)
	matchedOld := make([]bool, na)
	for i, it := range a.Items {
		h := c.hashNode(it)
		for _, j := range buckets[h] {
			if !usedNew[j] && c.matchEqual(it, b.Items[j]) {
				usedNew[j] = true
				matchedOld[i] = true
				break
			}
		}
	}

	c.pop()

	for i := range a.Items {
		if c.stop() {
			return
		}
		if matchedOld[i] {
			continue
		}
		c.push(graph.Index(i))
		c.addDiff(graph.Render(a.Items[i], 0), MissingValue, models.CategoryItemRemoved)
		c.pop()
	}
	for j := range b.Items {
		if c.stop() {
			return
		}
		if usedNew[j] {
			continue
		}
		c.push(graph.Index(j))
		c.addDiff(MissingValue, graph.Render(b.Items[j], 0), models.CategoryItemAdded)
		c.pop()
	}
}

// matchEqual runs the comparison walk at the current path without recording,
// stopping at the first difference
func (c *Comparator) matchEqual(a, b *graph.Node) bool {
	wasMatching, hadHit := c.matching, c.matchHit
	c.matching, c.matchHit = true, false

	if kindOf(a) != kindOf(b) {
		c.matchHit = true
	} else {
		c.walk(a, b)
	}
	equal := !c.matchHit

	c.matching, c.matchHit = wasMatching, hadHit
	return equal
}

// Hash seeds per node kind
const (
	seedNull      uint64 = 0x9e3779b97f4a7c15
	seedList      uint64 = 0xc2b2ae3d27d4eb4f
	seedUnordered uint64 = 0x165667b19e3779f9
	seedObject    uint64 = 0x27d4eb2f165667c5
	seedNumber    uint64 = 0x85ebca77c2b2ae63
	seedDate      uint64 = 0xff51afd7ed558ccd
	seedText      uint64 = 0xc4ceb9fe1a85ec53
)

func mix(h, v uint64) uint64 {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[:8], h)
	binary.LittleEndian.PutUint64(b[8:], v)
	return xxhash.Sum64(b[:])
}

// hashNode computes a structural hash consistent with the equality walk:
// nodes that compare equal under the current rules hash equally.
// Object fields and unordered list elements combine commutatively.
func (c *Comparator) hashNode(n *graph.Node) uint64 {
	switch kindOf(n) {
	case graph.KindNull:
		return seedNull
	case graph.KindScalar:
		return c.hashScalar(n)
	case graph.KindList:
		if c.rules.Unordered(c.path) {
			c.push(graph.Wildcard())
			defer c.pop()
			if c.rules.Ignored(c.path) {
				return seedUnordered
			}
			var sum uint64
			for _, it := range n.Items {
				sum += c.hashNode(it)
			}
			return mix(seedUnordered, mix(uint64(len(n.Items)), sum))
		}
		h := mix(seedList, uint64(len(n.Items)))
		for i, it := range n.Items {
			c.push(graph.Index(i))
			if !c.rules.Ignored(c.path) {
				h = mix(h, c.hashNode(it))
			}
			c.pop()
		}
		return h
	case graph.KindObject:
		var sum uint64
		for i := range n.Fields {
			f := &n.Fields[i]
			c.push(graph.Name(f.Name))
			if !c.skipField(f.ReadOnly) {
				sum += mix(xxhash.Sum64String(f.Name), c.hashNode(f.Value))
			}
			c.pop()
		}
		return mix(seedObject, sum)
	}
	return 0
}

// hashScalar hashes a leaf by a token derived from its text alone, so that
// leaves equal by parsed value and leaves equal by text fallback share a
// bucket. Boolean text maps onto 1 and 0 since a boolean leaf may equal a
// numeric one through its text.
func (c *Comparator) hashScalar(n *graph.Node) uint64 {
	text := n.Raw
	if !c.cfg.CaseSensitive {
		text = foldCase(text)
	}
	if v, err := strconv.ParseBool(text); err == nil {
		if v {
			return mix(seedNumber, math.Float64bits(1))
		}
		return mix(seedNumber, math.Float64bits(0))
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		if f == 0 {
			f = 0 // -0
		}
		if math.IsNaN(f) {
			f = math.NaN()
		}
		return mix(seedNumber, math.Float64bits(f))
	}
	if t, ok := graph.ParseTime(text); ok {
		return mix(seedDate, mix(uint64(t.Unix()), uint64(t.Nanosecond())))
	}
	return mix(seedText, xxhash.Sum64String(text))
}

// foldCase maps every rune to the smallest member of its case-folding orbit,
// the same equivalence strings.EqualFold uses
func foldCase(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return strings.ToUpper(s)
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		m := r
		for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
			if f < m {
				m = f
			}
		}
		b.WriteRune(m)
	}
	return b.String()
}

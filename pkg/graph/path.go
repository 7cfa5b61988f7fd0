package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// AnyIndex is the index value of a wildcard segment ([*])
const AnyIndex = -1

// Segment is one step of a property path: a field name or a list index
type Segment struct {
	Name    string
	Index   int
	IsIndex bool
}

// Name returns a field segment
func Name(n string) Segment { return Segment{Name: n} }

// Index returns an index segment
func Index(i int) Segment { return Segment{Index: i, IsIndex: true} }

// Wildcard returns an index segment matching any index
func Wildcard() Segment { return Segment{Index: AnyIndex, IsIndex: true} }

// IsWildcard reports whether the segment is [*]
func (s Segment) IsWildcard() bool {
	return s.IsIndex && s.Index == AnyIndex
}

// AppendSegment appends the textual form of seg to buf.
// first reports whether seg starts the path, in which case no dot is written.
func AppendSegment(buf []byte, seg Segment, first bool) []byte {
	if seg.IsIndex {
		buf = append(buf, '[')
		if seg.Index == AnyIndex {
			buf = append(buf, '*')
		} else {
			buf = strconv.AppendInt(buf, int64(seg.Index), 10)
		}
		return append(buf, ']')
	}
	if !first {
		buf = append(buf, '.')
	}
	return append(buf, seg.Name...)
}

// FormatPath renders segments in A.B[2].C notation. The root is "".
func FormatPath(segs []Segment) string {
	var buf []byte
	for i, s := range segs {
		buf = AppendSegment(buf, s, i == 0)
	}
	return string(buf)
}

// ParsePath parses A.B[2].C notation; [*] yields a wildcard segment
func ParsePath(s string) ([]Segment, error) {
	if s == "" {
		return nil, nil
	}
	var segs []Segment
	i := 0
	expectName := true
	for i < len(s) {
		switch c := s[i]; {
		case c == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated index at offset %d", i)
			}
			body := s[i+1 : i+end]
			if body == "*" {
				segs = append(segs, Wildcard())
			} else {
				idx, err := strconv.Atoi(body)
				if err != nil || idx < 0 {
					return nil, fmt.Errorf("invalid index %q at offset %d", body, i)
				}
				segs = append(segs, Index(idx))
			}
			i += end + 1
			expectName = false
		case c == '.':
			if expectName {
				return nil, fmt.Errorf("empty field name at offset %d", i)
			}
			i++
			expectName = true
			if i == len(s) {
				return nil, fmt.Errorf("trailing dot")
			}
		case c == ']':
			return nil, fmt.Errorf("unexpected ']' at offset %d", i)
		default:
			if !expectName {
				return nil, fmt.Errorf("missing '.' before offset %d", i)
			}
			j := i
			for j < len(s) && s[j] != '.' && s[j] != '[' && s[j] != ']' {
				j++
			}
			segs = append(segs, Name(s[i:j]))
			i = j
			expectName = false
		}
	}
	return segs, nil
}

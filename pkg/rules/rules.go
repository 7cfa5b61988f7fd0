// Package rules compiles ignore rules and matches them against property paths.
package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/sdejongh/diffnorris/pkg/graph"
	"github.com/sdejongh/diffnorris/pkg/logging"
	"github.com/sdejongh/diffnorris/pkg/models"
)

// InvalidRuleError reports a malformed rule pattern
type InvalidRuleError struct {
	Pattern string
	Err     error
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid ignore rule %q: %v", e.Pattern, e.Err)
}

func (e *InvalidRuleError) Unwrap() error {
	return e.Err
}

// Rule is a compiled ignore rule
type Rule struct {
	Pattern               string
	Segments              []graph.Segment
	IgnoreCompletely      bool
	IgnoreCollectionOrder bool
}

// Compile parses the rule's path pattern
func Compile(r models.IgnoreRule) (*Rule, error) {
	pattern := strings.TrimSpace(r.PathPattern)
	if pattern == "" {
		return nil, &InvalidRuleError{Pattern: r.PathPattern, Err: fmt.Errorf("empty pattern")}
	}
	segs, err := graph.ParsePath(pattern)
	if err != nil {
		return nil, &InvalidRuleError{Pattern: r.PathPattern, Err: err}
	}
	return &Rule{
		Pattern:               pattern,
		Segments:              segs,
		IgnoreCompletely:      r.IgnoreCompletely,
		IgnoreCollectionOrder: r.IgnoreCollectionOrder,
	}, nil
}

// Match reports whether the rule matches a concrete path.
// A wildcard segment matches any index; names and concrete indices match exactly.
func (r *Rule) Match(path []graph.Segment) bool {
	if len(path) != len(r.Segments) {
		return false
	}
	// Compare from the leaf up: leaves differ more often than prefixes
	for i := len(path) - 1; i >= 0; i-- {
		p, s := path[i], r.Segments[i]
		if p.IsIndex != s.IsIndex {
			return false
		}
		if s.IsIndex {
			if !s.IsWildcard() && s.Index != p.Index {
				return false
			}
			continue
		}
		if s.Name != p.Name {
			return false
		}
	}
	return true
}

// RuleSet is the immutable set of rules used by one comparator configuration
type RuleSet struct {
	// rules bucketed by segment count
	ignore    map[int][]*Rule
	unordered map[int][]*Rule
	global    bool
	count     int
	skipped   int
}

// NewRuleSet compiles cfg's rules. Malformed rules are logged and skipped.
func NewRuleSet(cfg models.ComparisonConfig, logger logging.Logger) *RuleSet {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	s := &RuleSet{
		ignore:    make(map[int][]*Rule),
		unordered: make(map[int][]*Rule),
		global:    cfg.IgnoreCollectionOrderGlobally,
	}
	for _, r := range cfg.Rules {
		rule, err := Compile(r)
		if err != nil {
			s.skipped++
			logger.Warn(context.Background(), "Skipping ignore rule", logging.Fields{
				"pattern": r.PathPattern,
				"error":   err.Error(),
			})
			continue
		}
		n := len(rule.Segments)
		if rule.IgnoreCompletely {
			s.ignore[n] = append(s.ignore[n], rule)
		}
		if rule.IgnoreCollectionOrder {
			s.unordered[n] = append(s.unordered[n], rule)
		}
		s.count++
	}
	return s
}

// Len returns the number of rules compiled successfully
func (s *RuleSet) Len() int { return s.count }

// Skipped returns the number of malformed rules dropped
func (s *RuleSet) Skipped() int { return s.skipped }

// Ignored reports whether the node at path must not be visited
func (s *RuleSet) Ignored(path []graph.Segment) bool {
	for _, r := range s.ignore[len(path)] {
		if r.Match(path) {
			return true
		}
	}
	return false
}

// Unordered reports whether the list at path compares order-independently
func (s *RuleSet) Unordered(path []graph.Segment) bool {
	if s.global {
		return true
	}
	for _, r := range s.unordered[len(path)] {
		if r.Match(path) {
			return true
		}
	}
	return false
}

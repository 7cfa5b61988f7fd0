package decode

import (
	"strconv"
	"strings"

	"github.com/sdejongh/diffnorris/pkg/graph"
)

// inferScalar types untyped text (XML content and attributes)
func inferScalar(s string) *graph.Node {
	t := strings.TrimSpace(s)
	switch {
	case t == "":
		return graph.String(s)
	case t == "true" || t == "false":
		return graph.Bool(t == "true")
	case looksNumeric(t):
		return graph.Number(t)
	case looksLikeDate(t):
		return graph.Date(t)
	}
	return graph.String(s)
}

// stringScalar types JSON strings: dates are recognised, everything else stays text
func stringScalar(s string) *graph.Node {
	if looksLikeDate(s) {
		return graph.Date(s)
	}
	return graph.String(s)
}

func looksNumeric(s string) bool {
	// Leading zeros are identifiers (zip codes, account numbers), not numbers
	digits := strings.TrimPrefix(s, "-")
	if len(digits) > 1 && digits[0] == '0' && digits[1] != '.' {
		return false
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return true
	}
	if strings.Trim(s, "0123456789+-.eE") != "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func looksLikeDate(s string) bool {
	if len(s) < 10 || s[4] != '-' || s[7] != '-' {
		return false
	}
	_, ok := graph.ParseTime(s)
	return ok
}

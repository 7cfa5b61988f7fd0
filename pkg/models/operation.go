package models

import "fmt"

// IgnoreRule excludes a path or relaxes collection ordering at that path.
// PathPattern uses the difference path notation and accepts [*] for any index.
type IgnoreRule struct {
	PathPattern           string `json:"path" yaml:"path"`
	IgnoreCompletely      bool   `json:"ignore,omitempty" yaml:"ignore,omitempty"`
	IgnoreCollectionOrder bool   `json:"ignore_order,omitempty" yaml:"ignore_order,omitempty"`
}

// ComparisonConfig drives one run of the structural comparator.
// It is constructed once per run and shared read-only across workers.
type ComparisonConfig struct {
	// MaxDifferences stops the walk once reached; 0 means unlimited
	MaxDifferences                int          `json:"max_differences" yaml:"max_differences"`
	CaseSensitive                 bool         `json:"case_sensitive" yaml:"case_sensitive"`
	CompareReadOnlyFields         bool         `json:"compare_read_only_fields" yaml:"compare_read_only_fields"`
	IgnoreCollectionOrderGlobally bool         `json:"ignore_collection_order_globally" yaml:"ignore_collection_order_globally"`
	Rules                         []IgnoreRule `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// DefaultComparisonConfig returns the settings used when nothing is configured
func DefaultComparisonConfig() ComparisonConfig {
	return ComparisonConfig{
		MaxDifferences: 1000,
		CaseSensitive:  true,
	}
}

// Validate checks the configuration. Malformed rule patterns are not
// validation errors; the rule engine skips them individually.
func (c ComparisonConfig) Validate() error {
	if c.MaxDifferences < 0 {
		return &ValidationError{Field: "MaxDifferences", Message: fmt.Sprintf("must not be negative (got %d)", c.MaxDifferences)}
	}
	for i, r := range c.Rules {
		if !r.IgnoreCompletely && !r.IgnoreCollectionOrder {
			return &ValidationError{Field: fmt.Sprintf("Rules[%d]", i), Message: "rule must set ignore or ignore_order"}
		}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

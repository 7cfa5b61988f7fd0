package models

// Category is a coarse classification of a difference, used for reporting only
type Category string

const (
	// CategoryNone marks a difference the categorizer has not classified yet
	CategoryNone Category = ""
	// CategoryNumeric indicates numeric values differ
	CategoryNumeric Category = "numeric"
	// CategoryDate indicates date/time values differ
	CategoryDate Category = "date"
	// CategoryBoolean indicates boolean values differ
	CategoryBoolean Category = "boolean"
	// CategoryItemAdded indicates a collection element exists only in the new document
	CategoryItemAdded Category = "item_added"
	// CategoryItemRemoved indicates a collection element exists only in the old document
	CategoryItemRemoved Category = "item_removed"
	// CategoryText indicates textual values differ
	CategoryText Category = "text"
	// CategoryOther covers shape mismatches and anything else
	CategoryOther Category = "other"
)

// Difference is one recorded discrepancy between two object graphs.
// Values are immutable once created; categorization produces new values.
type Difference struct {
	// PropertyPath uses dotted/bracketed notation, e.g. Order.Lines[2].Sku.
	// The root of the graph is the empty path.
	PropertyPath string   `json:"path" yaml:"path"`
	OldValue     string   `json:"old" yaml:"old"`
	NewValue     string   `json:"new" yaml:"new"`
	Category     Category `json:"category,omitempty" yaml:"category,omitempty"`
}

// WithCategory returns a copy of the difference carrying the given category
func (d Difference) WithCategory(c Category) Difference {
	d.Category = c
	return d
}

// ComparisonResult holds the ordered differences produced by one comparison
type ComparisonResult struct {
	// Differences are in graph visitation order
	Differences []Difference `json:"differences"`
	// Truncated is set when the max-differences cutoff stopped the walk
	Truncated bool `json:"truncated,omitempty"`
}

// IsEqual reports whether no differences were found
func (r ComparisonResult) IsEqual() bool {
	return len(r.Differences) == 0
}

// Clone returns a copy whose difference slice does not alias the receiver's
func (r ComparisonResult) Clone() ComparisonResult {
	out := ComparisonResult{Truncated: r.Truncated}
	if r.Differences != nil {
		out.Differences = make([]Difference, len(r.Differences))
		copy(out.Differences, r.Differences)
	}
	return out
}

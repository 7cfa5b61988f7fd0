package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/sdejongh/diffnorris/pkg/models"
)

// ProgressUpdate represents a progress notification during a batch
type ProgressUpdate struct {
	Completed int
	Total     int
	Status    string
}

// Formatter defines the interface for output formatting
// Implementations include human-readable, JSON and progress bar formatters
type Formatter interface {
	// Start initializes the formatter for a new batch
	Start(writer io.Writer, totalPairs int, fingerprint string) error

	// Progress reports progress during the batch
	Progress(update ProgressUpdate) error

	// Complete finalizes output and displays the summary
	Complete(result *models.BatchResult) error

	// Error reports an error outside any single pair
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// Formats lists the formatter names accepted by New
var Formats = []string{"human", "json", "progress"}

// New returns the formatter registered under name
func New(name string) (Formatter, error) {
	switch name {
	case "", "human":
		return NewHumanFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	case "progress":
		return NewProgressFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", name)
	}
}

// CategoryCount is the number of differences of one category in a batch
type CategoryCount struct {
	Category models.Category `json:"category"`
	Count    int             `json:"count"`
}

// CountCategories tallies differences by category, most frequent first
func CountCategories(result *models.BatchResult) []CategoryCount {
	counts := make(map[models.Category]int)
	for _, item := range result.Items {
		if item.Result == nil {
			continue
		}
		for _, d := range item.Result.Differences {
			counts[d.Category]++
		}
	}

	out := make([]CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// pairLabel names a pair, showing both names only when they differ
func pairLabel(item *models.FilePairComparisonResult) string {
	if item.Name1 == item.Name2 {
		return item.Name1
	}
	return item.Name1 + " <> " + item.Name2
}

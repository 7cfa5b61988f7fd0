package output

import (
	"fmt"
	"io"
	"time"

	"github.com/sdejongh/diffnorris/pkg/models"
)

// MaxDifferencesShown caps differences printed per pair in the summary
const MaxDifferencesShown = 20

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	writer      io.Writer
	totalPairs  int
	startTime   time.Time
	lastStatus  string
	lastDecile  int
	fingerprint string
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, totalPairs int, fingerprint string) error {
	f.writer = writer
	f.totalPairs = totalPairs
	f.fingerprint = fingerprint
	f.startTime = time.Now()
	f.lastStatus = ""
	f.lastDecile = 0

	if writer != nil {
		fmt.Fprintf(writer, "Comparing %d document pairs (config %s)\n", totalPairs, fingerprint)
	}

	return nil
}

// Progress prints a line on each status change and every tenth of the batch
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	if f.writer == nil || update.Total == 0 {
		return nil
	}

	decile := update.Completed * 10 / update.Total
	if update.Status == f.lastStatus && decile == f.lastDecile {
		return nil
	}
	f.lastStatus = update.Status
	f.lastDecile = decile

	fmt.Fprintf(f.writer, "[%d/%d] %s\n", update.Completed, update.Total, update.Status)
	return nil
}

// Complete finalizes output and displays summary
func (f *HumanFormatter) Complete(result *models.BatchResult) error {
	if f.writer == nil {
		f.writer = io.Discard
	}
	writeSummary(f.writer, result)
	return nil
}

// writeSummary prints the batch summary followed by each unequal pair
func writeSummary(w io.Writer, result *models.BatchResult) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Comparison %s in %s\n", result.Status, result.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Pairs:          %d submitted, %d reported\n", result.TotalPairs, len(result.Items))
	fmt.Fprintf(w, "  Equal:          %d\n", result.Stats.Equal)
	fmt.Fprintf(w, "  Different:      %d\n", result.Stats.Different)
	fmt.Fprintf(w, "  Errored:        %d\n", result.Stats.Errored)
	fmt.Fprintf(w, "  Cache hits:     %d\n", result.Stats.CacheHits)
	fmt.Fprintf(w, "  Differences:    %d", result.Stats.Differences)
	if result.Stats.Truncated > 0 {
		fmt.Fprintf(w, " (%d pairs truncated)", result.Stats.Truncated)
	}
	fmt.Fprintf(w, "\n")

	if counts := CountCategories(result); len(counts) > 0 {
		fmt.Fprintf(w, "\n  By category:\n")
		for _, c := range counts {
			fmt.Fprintf(w, "    %-14s %d\n", categoryLabel(c.Category)+":", c.Count)
		}
	}

	for i := range result.Items {
		item := &result.Items[i]
		if item.IsEqual() {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", pairLabel(item))
		if item.Failed() {
			fmt.Fprintf(w, "  ✗ %s error: %s\n", item.ErrorKind, item.ErrorMessage)
			continue
		}
		for j, d := range item.Result.Differences {
			if j == MaxDifferencesShown {
				fmt.Fprintf(w, "  ... %d more\n", len(item.Result.Differences)-j)
				break
			}
			fmt.Fprintf(w, "  %s: %s -> %s [%s]\n", displayPath(d.PropertyPath), d.OldValue, d.NewValue, categoryLabel(d.Category))
		}
		if item.Result.Truncated {
			fmt.Fprintf(w, "  (stopped at the difference limit)\n")
		}
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Status: %s\n", result.Status)
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	if f.writer != nil {
		fmt.Fprintf(f.writer, "Error: %v\n", err)
	}
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

func categoryLabel(c models.Category) string {
	if c == models.CategoryNone {
		return "uncategorized"
	}
	return string(c)
}

func displayPath(p string) string {
	if p == "" {
		return "(root)"
	}
	return p
}

// formatDuration formats duration in human-readable format
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

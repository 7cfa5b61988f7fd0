package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sdejongh/diffnorris/pkg/models"
)

// ReportSource describes where the compared documents came from
type ReportSource struct {
	Old         string
	New         string
	Fingerprint string
}

// WriteDifferencesReport writes every difference and error of a batch to a
// file. Format can be "human" or "json". No file is created when all pairs
// are equal.
func WriteDifferencesReport(result *models.BatchResult, source ReportSource, filepath string, format string) error {
	if result.AllEqual {
		return nil
	}

	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create differences file: %w", err)
	}
	defer file.Close()

	switch format {
	case "json":
		return writeDifferencesJSON(result, source, file)
	default:
		return writeDifferencesHuman(result, source, file)
	}
}

// writeDifferencesHuman writes differences grouped by pair, then category
func writeDifferencesHuman(result *models.BatchResult, source ReportSource, w io.Writer) error {
	fmt.Fprintf(w, "Differences Report\n")
	fmt.Fprintf(w, "==================\n\n")
	fmt.Fprintf(w, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Old: %s\n", source.Old)
	fmt.Fprintf(w, "New: %s\n", source.New)
	fmt.Fprintf(w, "Config: %s\n", source.Fingerprint)
	fmt.Fprintf(w, "Status: %s\n\n", result.Status)

	fmt.Fprintf(w, "Total Differences: %d in %d pairs\n", result.Stats.Differences, result.Stats.Different)
	fmt.Fprintf(w, "Errors: %d\n\n", result.Stats.Errored)

	for i := range result.Items {
		item := &result.Items[i]
		if item.IsEqual() {
			continue
		}

		label := pairLabel(item)
		fmt.Fprintf(w, "%s\n", label)
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", len(label)))

		if item.Failed() {
			fmt.Fprintf(w, "  Error (%s): %s\n\n", item.ErrorKind, item.ErrorMessage)
			continue
		}

		byCategory := make(map[models.Category][]models.Difference)
		var order []models.Category
		for _, d := range item.Result.Differences {
			if _, seen := byCategory[d.Category]; !seen {
				order = append(order, d.Category)
			}
			byCategory[d.Category] = append(byCategory[d.Category], d)
		}

		for _, c := range order {
			diffs := byCategory[c]
			fmt.Fprintf(w, "  %s (%d)\n", categoryLabel(c), len(diffs))
			for _, d := range diffs {
				fmt.Fprintf(w, "    %s\n", displayPath(d.PropertyPath))
				fmt.Fprintf(w, "      old: %s\n", d.OldValue)
				fmt.Fprintf(w, "      new: %s\n", d.NewValue)
			}
		}
		if item.Result.Truncated {
			fmt.Fprintf(w, "  (truncated at the difference limit)\n")
		}
		fmt.Fprintf(w, "\n")
	}

	return nil
}

// writeDifferencesJSON writes differences in JSON format
func writeDifferencesJSON(result *models.BatchResult, source ReportSource, w io.Writer) error {
	output := struct {
		Generated string         `json:"generated"`
		Old       string         `json:"old"`
		New       string         `json:"new"`
		Report    JSONReportData `json:"report"`
	}{
		Generated: time.Now().Format(time.RFC3339),
		Old:       source.Old,
		New:       source.New,
		Report:    BuildReport(result, source.Fingerprint),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

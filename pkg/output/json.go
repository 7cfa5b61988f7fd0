package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/sdejongh/diffnorris/pkg/models"
)

// JSONFormatter formats output as JSON for automation and scripting
type JSONFormatter struct {
	writer      io.Writer
	totalPairs  int
	fingerprint string
	startTime   time.Time
	events      []JSONEvent
}

// JSONEvent represents a single event recorded during the batch
type JSONEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
}

// JSONReportData represents the final report
type JSONReportData struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Duration    string            `json:"duration"`
	DurationMs  int64             `json:"duration_ms"`
	TotalPairs  int               `json:"total_pairs"`
	AllEqual    bool              `json:"all_equal"`
	Stats       models.BatchStats `json:"stats"`
	Categories  []CategoryCount   `json:"categories,omitempty"`
	Pairs       []JSONPairData    `json:"pairs,omitempty"`
	Errors      []JSONErrorData   `json:"errors,omitempty"`
}

// JSONPairData represents one unequal pair
type JSONPairData struct {
	Name1       string              `json:"name1"`
	Name2       string              `json:"name2"`
	FromCache   bool                `json:"from_cache,omitempty"`
	Truncated   bool                `json:"truncated,omitempty"`
	Differences []models.Difference `json:"differences"`
}

// JSONErrorData represents a failed pair
type JSONErrorData struct {
	Name1 string `json:"name1"`
	Name2 string `json:"name2"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{
		events: make([]JSONEvent, 0),
	}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, totalPairs int, fingerprint string) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.totalPairs = totalPairs
	f.fingerprint = fingerprint
	f.startTime = time.Now()

	f.events = append(f.events, JSONEvent{
		Timestamp: time.Now(),
		Type:      "start",
		Data:      map[string]any{"total_pairs": totalPairs, "fingerprint": fingerprint},
	})

	return nil
}

// Progress is not written in real time to keep the output parseable
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	return nil
}

// BuildReport converts a batch result into its JSON report form
func BuildReport(result *models.BatchResult, fingerprint string) JSONReportData {
	report := JSONReportData{
		ID:          result.ID,
		Status:      string(result.Status),
		Fingerprint: fingerprint,
		Duration:    result.Duration.Round(time.Millisecond).String(),
		DurationMs:  result.Duration.Milliseconds(),
		TotalPairs:  result.TotalPairs,
		AllEqual:    result.AllEqual,
		Stats:       result.Stats,
		Categories:  CountCategories(result),
	}

	for i := range result.Items {
		item := &result.Items[i]
		switch {
		case item.Failed():
			report.Errors = append(report.Errors, JSONErrorData{
				Name1: item.Name1,
				Name2: item.Name2,
				Kind:  string(item.ErrorKind),
				Error: item.ErrorMessage,
			})
		case !item.Result.IsEqual():
			report.Pairs = append(report.Pairs, JSONPairData{
				Name1:       item.Name1,
				Name2:       item.Name2,
				FromCache:   item.FromCache,
				Truncated:   item.Result.Truncated,
				Differences: item.Result.Differences,
			})
		}
	}

	return report
}

// Complete writes the final report as indented JSON
func (f *JSONFormatter) Complete(result *models.BatchResult) error {
	if f.writer == nil {
		f.writer = io.Discard
	}

	report := BuildReport(result, f.fingerprint)
	f.events = append(f.events, JSONEvent{
		Timestamp: time.Now(),
		Type:      "complete",
		Data:      report,
	})

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// Error records an error event
func (f *JSONFormatter) Error(err error) error {
	f.events = append(f.events, JSONEvent{
		Timestamp: time.Now(),
		Type:      "error",
		Data: map[string]string{
			"error": err.Error(),
		},
	})
	return nil
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

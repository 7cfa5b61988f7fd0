package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/diffnorris/pkg/models"
)

func sampleResult() *models.BatchResult {
	return &models.BatchResult{
		ID:         "batch-1",
		Status:     models.StatusCompleted,
		TotalPairs: 3,
		Duration:   1500 * time.Millisecond,
		Items: []models.FilePairComparisonResult{
			{Name1: "a.json", Name2: "a.json", Result: &models.ComparisonResult{}},
			{Name1: "b.json", Name2: "b.json", Result: &models.ComparisonResult{
				Differences: []models.Difference{
					{PropertyPath: "Amount", OldValue: "10", NewValue: "12", Category: models.CategoryNumeric},
					{PropertyPath: "Lines[*]", OldValue: "<missing>", NewValue: "{...}", Category: models.CategoryItemAdded},
					{PropertyPath: "Total", OldValue: "10", NewValue: "12", Category: models.CategoryNumeric},
				},
			}, FromCache: true},
			{Name1: "c.json", Name2: "c.json", ErrorKind: models.ErrorDeserialization, ErrorMessage: "old document c.json: unexpected EOF"},
		},
		Stats: models.BatchStats{Compared: 2, Equal: 1, Different: 1, Errored: 1, CacheHits: 1, Differences: 3},
	}
}

// ============== Formatter Registry Tests ==============

func TestNew(t *testing.T) {
	for _, name := range Formats {
		f, err := New(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, f.Name())
	}

	f, err := New("")
	require.NoError(t, err)
	assert.Equal(t, "human", f.Name())

	_, err = New("xml")
	assert.Error(t, err)
}

func TestCountCategories(t *testing.T) {
	counts := CountCategories(sampleResult())
	assert.Equal(t, []CategoryCount{
		{Category: models.CategoryNumeric, Count: 2},
		{Category: models.CategoryItemAdded, Count: 1},
	}, counts)
}

func TestPairLabel(t *testing.T) {
	assert.Equal(t, "a.json", pairLabel(&models.FilePairComparisonResult{Name1: "a.json", Name2: "a.json"}))
	assert.Equal(t, "a.json <> b.json", pairLabel(&models.FilePairComparisonResult{Name1: "a.json", Name2: "b.json"}))
}

// ============== Human Formatter Tests ==============

func TestHumanFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewHumanFormatter()
	require.NoError(t, f.Start(&buf, 3, "abcd"))

	require.NoError(t, f.Progress(ProgressUpdate{Completed: 1, Total: 3, Status: "comparing"}))
	// Same decile and status: suppressed
	require.NoError(t, f.Progress(ProgressUpdate{Completed: 1, Total: 3, Status: "comparing"}))
	require.NoError(t, f.Complete(sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "Comparing 3 document pairs (config abcd)")
	assert.Equal(t, 1, strings.Count(out, "[1/3] comparing"))
	assert.Contains(t, out, "Different:      1")
	assert.Contains(t, out, "Amount: 10 -> 12 [numeric]")
	assert.Contains(t, out, "deserialization error: old document c.json")
	assert.NotContains(t, out, "\na.json\n")
	assert.Contains(t, out, "Status: completed")
}

func TestHumanFormatterTruncatesListing(t *testing.T) {
	diffs := make([]models.Difference, MaxDifferencesShown+5)
	for i := range diffs {
		diffs[i] = models.Difference{PropertyPath: "X", OldValue: "1", NewValue: "2", Category: models.CategoryNumeric}
	}
	result := &models.BatchResult{
		Status: models.StatusCompleted,
		Items:  []models.FilePairComparisonResult{{Name1: "x", Name2: "x", Result: &models.ComparisonResult{Differences: diffs, Truncated: true}}},
	}

	var buf bytes.Buffer
	writeSummary(&buf, result)
	assert.Contains(t, buf.String(), "... 5 more")
	assert.Contains(t, buf.String(), "stopped at the difference limit")
}

func TestDisplayHelpers(t *testing.T) {
	assert.Equal(t, "(root)", displayPath(""))
	assert.Equal(t, "A.B", displayPath("A.B"))
	assert.Equal(t, "uncategorized", categoryLabel(models.CategoryNone))
	assert.Equal(t, "45s", formatDuration(45*time.Second))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h1m", formatDuration(61*time.Minute))
}

// ============== JSON Formatter Tests ==============

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter()
	require.NoError(t, f.Start(&buf, 3, "abcd"))
	require.NoError(t, f.Progress(ProgressUpdate{Completed: 1, Total: 3}))
	assert.Zero(t, buf.Len(), "progress must not be written")
	require.NoError(t, f.Error(errors.New("boom")))
	require.NoError(t, f.Complete(sampleResult()))

	var report JSONReportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, "batch-1", report.ID)
	assert.Equal(t, "abcd", report.Fingerprint)
	assert.Equal(t, int64(1500), report.DurationMs)
	require.Len(t, report.Pairs, 1)
	assert.Equal(t, "b.json", report.Pairs[0].Name1)
	assert.True(t, report.Pairs[0].FromCache)
	assert.Len(t, report.Pairs[0].Differences, 3)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "deserialization", report.Errors[0].Kind)
}

// ============== Progress Formatter Tests ==============

func TestProgressFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewProgressFormatter()
	require.NoError(t, f.Start(&buf, 3, "abcd"))
	require.NoError(t, f.Progress(ProgressUpdate{Completed: 2, Total: 3, Status: "comparing"}))
	require.NoError(t, f.Complete(sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "Comparing 3 document pairs")
	assert.Contains(t, out, "Compared 3 of 3 pairs")
	assert.Contains(t, out, "Status: completed")
}

func TestProgressFormatterWithoutStart(t *testing.T) {
	f := NewProgressFormatter()
	assert.NoError(t, f.Progress(ProgressUpdate{Completed: 1, Total: 2}))
	assert.NoError(t, f.Error(errors.New("ignored")))
}

// ============== Differences Report Tests ==============

func TestWriteDifferencesReport(t *testing.T) {
	source := ReportSource{Old: "/data/old", New: "gs://bucket/new", Fingerprint: "abcd"}

	t.Run("AllEqualWritesNothing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "diffs.txt")
		err := WriteDifferencesReport(&models.BatchResult{AllEqual: true}, source, path, "human")
		require.NoError(t, err)
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Human", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "diffs.txt")
		require.NoError(t, WriteDifferencesReport(sampleResult(), source, path, "human"))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		out := string(data)
		assert.Contains(t, out, "Old: /data/old")
		assert.Contains(t, out, "Total Differences: 3 in 1 pairs")
		assert.Contains(t, out, "numeric (2)")
		assert.Contains(t, out, "item_added (1)")
		assert.Contains(t, out, "Error (deserialization)")
		assert.NotContains(t, out, "a.json")
	})

	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "diffs.json")
		require.NoError(t, WriteDifferencesReport(sampleResult(), source, path, "json"))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var doc struct {
			Old    string         `json:"old"`
			New    string         `json:"new"`
			Report JSONReportData `json:"report"`
		}
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.Equal(t, "gs://bucket/new", doc.New)
		assert.Len(t, doc.Report.Pairs, 1)
		assert.Len(t, doc.Report.Errors, 1)
	})

	t.Run("BadPath", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "diffs.txt")
		assert.Error(t, WriteDifferencesReport(sampleResult(), source, path, "human"))
	})
}

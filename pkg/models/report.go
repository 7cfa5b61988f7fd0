package models

import (
	"time"
)

// BatchStatus is the lifecycle state of a submitted batch
type BatchStatus string

const (
	// StatusSubmitted indicates the batch was accepted but not started
	StatusSubmitted BatchStatus = "submitted"
	// StatusDeserializing indicates documents are being read and parsed
	StatusDeserializing BatchStatus = "deserializing"
	// StatusComparing indicates comparisons are running
	StatusComparing BatchStatus = "comparing"
	// StatusAggregating indicates remaining results are being collected
	StatusAggregating BatchStatus = "aggregating"
	// StatusCompleted indicates every pair produced a result
	StatusCompleted BatchStatus = "completed"
	// StatusCancelled indicates the batch stopped early; Items holds what completed
	StatusCancelled BatchStatus = "cancelled"
)

// Rank orders statuses along the state machine. Terminal states share the top rank.
func (s BatchStatus) Rank() int {
	switch s {
	case StatusSubmitted:
		return 0
	case StatusDeserializing:
		return 1
	case StatusComparing:
		return 2
	case StatusAggregating:
		return 3
	case StatusCompleted, StatusCancelled:
		return 4
	default:
		return -1
	}
}

// IsTerminal returns true for completed and cancelled
func (s BatchStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// BatchResult aggregates the outcome of comparing many document pairs
type BatchResult struct {
	ID         string      `json:"id"`
	Status     BatchStatus `json:"status"`
	TotalPairs int         `json:"total_pairs"`
	AllEqual   bool        `json:"all_equal"`
	// Items are sorted by Name1, then Name2
	Items []FilePairComparisonResult `json:"items"`

	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	Stats BatchStats `json:"stats"`
}

// BatchStats holds counters gathered by the aggregation stage
type BatchStats struct {
	Compared    int `json:"compared"`
	Equal       int `json:"equal"`
	Different   int `json:"different"`
	Errored     int `json:"errored"`
	CacheHits   int `json:"cache_hits"`
	Truncated   int `json:"truncated"`
	Differences int `json:"differences"`
}

// ExitCode returns the process exit code for this batch
func (r *BatchResult) ExitCode() int {
	switch {
	case r.Status == StatusCancelled:
		return 3
	case r.Stats.Errored > 0:
		return 2
	case !r.AllEqual:
		return 1
	default:
		return 0
	}
}

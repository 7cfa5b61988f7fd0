package batch

import (
	"golang.org/x/time/rate"

	"github.com/sdejongh/diffnorris/pkg/models"
)

// ProgressFunc observes batch progress. status is the current BatchStatus.
type ProgressFunc func(completed, total int, status string)

// maxProgressCallbacks bounds progress notifications per run, the final
// notification excluded
const maxProgressCallbacks = 100

// aggregator is the single writer collecting per-pair results
type aggregator struct {
	total     int
	items     []models.FilePairComparisonResult
	stats     models.BatchStats
	allEqual  bool
	completed int

	progress  ProgressFunc
	status    func() models.BatchStatus
	sometimes rate.Sometimes
}

func newAggregator(total int, progress ProgressFunc, status func() models.BatchStatus) *aggregator {
	return &aggregator{
		total:     total,
		items:     make([]models.FilePairComparisonResult, 0, total),
		allEqual:  true,
		progress:  progress,
		status:    status,
		sometimes: rate.Sometimes{Every: max(1, total/maxProgressCallbacks)},
	}
}

// add records one result. Cancelled pairs are dropped.
func (a *aggregator) add(r models.FilePairComparisonResult) {
	if r.ErrorKind == models.ErrorCancelled {
		return
	}

	a.items = append(a.items, r)
	a.completed++

	switch {
	case r.Failed():
		a.stats.Errored++
		a.allEqual = false
	case r.Result.IsEqual():
		a.stats.Compared++
		a.stats.Equal++
	default:
		a.stats.Compared++
		a.stats.Different++
		a.stats.Differences += len(r.Result.Differences)
		a.allEqual = false
	}
	if r.FromCache {
		a.stats.CacheHits++
	}
	if r.Result != nil && r.Result.Truncated {
		a.stats.Truncated++
	}

	if a.progress != nil {
		a.sometimes.Do(func() {
			a.progress(a.completed, a.total, string(a.status()))
		})
	}
}

// finish emits the final progress notification
func (a *aggregator) finish(status models.BatchStatus) {
	if a.progress != nil {
		a.progress(a.completed, a.total, string(status))
	}
}

package batch

import (
	"time"

	"github.com/sdejongh/diffnorris/pkg/graph"
	"github.com/sdejongh/diffnorris/pkg/models"
)

// PairTask carries one document pair between pipeline stages. Stage 1
// fills the content fields or Err; stage 2 reads them and produces a result.
type PairTask struct {
	Pair models.DocumentPair

	// Content hashes of the raw bytes
	OldHash uint64
	NewHash uint64
	// Identical is set when both documents have the same bytes
	Identical bool

	Old *graph.Node
	New *graph.Node

	// Err holds a read or decode failure; Cancelled marks work abandoned
	// because the batch was cancelled
	Err       error
	Cancelled bool

	LoadDuration time.Duration
}

// Failed reports whether the task carries an upstream error
func (t *PairTask) Failed() bool {
	return t.Err != nil || t.Cancelled
}

// errorResult converts a failed task into its per-pair result
func (t *PairTask) errorResult() models.FilePairComparisonResult {
	r := models.FilePairComparisonResult{Name1: t.Pair.Name1, Name2: t.Pair.Name2}
	if t.Cancelled {
		r.ErrorKind = models.ErrorCancelled
		r.ErrorMessage = "cancelled"
		return r
	}
	r.ErrorKind = models.ErrorDeserialization
	r.ErrorMessage = t.Err.Error()
	return r
}

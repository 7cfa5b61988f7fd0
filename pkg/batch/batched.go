package batch

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/sdejongh/diffnorris/pkg/logging"
	"github.com/sdejongh/diffnorris/pkg/models"
)

// runBatched processes pairs in fixed-size batches, each with a bounded
// parallel loop. Results of a batch are handed to the aggregator in input
// order once the batch completes.
func (e *Engine) runBatched(ctx context.Context, pairs []models.DocumentPair, agg *aggregator) {
	size := e.monitor.BatchSize(len(pairs))
	e.advance(models.StatusDeserializing)

	for start := 0; start < len(pairs); start += size {
		if ctx.Err() != nil {
			return
		}
		if start > 0 {
			if err := e.monitor.Throttle(ctx); err != nil {
				return
			}
		}

		end := min(start+size, len(pairs))
		batch := pairs[start:end]
		parallelism := e.monitor.Parallelism(len(batch))

		e.logger.Debug(ctx, "Processing batch", logging.Fields{
			"offset":      start,
			"size":        len(batch),
			"parallelism": parallelism,
		})

		results := e.processBatch(ctx, batch, parallelism)
		for _, r := range results {
			agg.add(r)
		}
	}
}

// processBatch runs one batch; pairs never started are returned as cancelled
func (e *Engine) processBatch(ctx context.Context, batch []models.DocumentPair, parallelism int) []models.FilePairComparisonResult {
	results := make([]models.FilePairComparisonResult, len(batch))
	for i := range results {
		results[i] = models.FilePairComparisonResult{
			Name1:     batch[i].Name1,
			Name2:     batch[i].Name2,
			ErrorKind: models.ErrorCancelled,
		}
	}

	sem := semaphore.NewWeighted(int64(parallelism))
	var wg sync.WaitGroup

	for i, pair := range batch {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, pair models.DocumentPair) {
			defer wg.Done()
			defer sem.Release(1)

			task := e.loader.load(ctx, pair)
			if task.Cancelled {
				return
			}
			e.advance(models.StatusComparing)

			w := e.acquireWorker()
			defer e.releaseWorker(w)
			results[i] = e.processPair(ctx, task, w)
		}(i, pair)
	}

	wg.Wait()
	return results
}

package batch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/diffnorris/pkg/logging"
	"github.com/sdejongh/diffnorris/pkg/models"
)

// runPipeline runs the staged path:
//
//	producer -> input -> load workers -> loaded -> compare workers -> results -> aggregator
//
// Sends into input and loaded give up when ctx is done, so cancellation
// stops admitting work. The results queue is always drained, so comparisons
// already in flight are reported.
func (e *Engine) runPipeline(ctx context.Context, pairs []models.DocumentPair, agg *aggregator) {
	loadWorkers := e.monitor.DeserializeWorkers()
	compareWorkers := e.monitor.CompareWorkers()

	input := make(chan models.DocumentPair, e.monitor.QueueCapacity(loadWorkers))
	loaded := make(chan *PairTask, e.monitor.QueueCapacity(compareWorkers))
	results := make(chan models.FilePairComparisonResult, e.monitor.QueueCapacity(compareWorkers))

	e.logger.Debug(ctx, "Starting pipeline", logging.Fields{
		"load_workers":    loadWorkers,
		"compare_workers": compareWorkers,
		"queue_capacity":  cap(loaded),
	})

	e.advance(models.StatusDeserializing)

	// Producer
	go func() {
		defer close(input)
		e.produce(ctx, pairs, input)
	}()

	// Stage 1: read and decode
	var loadGroup errgroup.Group
	for i := 0; i < loadWorkers; i++ {
		loadGroup.Go(func() error {
			e.runLoadWorker(ctx, input, loaded)
			return nil
		})
	}
	go func() {
		_ = loadGroup.Wait()
		close(loaded)
	}()

	// Stage 2: compare
	var compareGroup errgroup.Group
	for i := 0; i < compareWorkers; i++ {
		compareGroup.Go(func() error {
			e.runCompareWorker(ctx, loaded, results)
			return nil
		})
	}
	go func() {
		_ = compareGroup.Wait()
		e.advance(models.StatusAggregating)
		close(results)
	}()

	// Stage 3: single-writer aggregation
	for r := range results {
		agg.add(r)
	}
}

// produce feeds pairs into the input queue, pausing under host load every
// BatchSize pairs
func (e *Engine) produce(ctx context.Context, pairs []models.DocumentPair, input chan<- models.DocumentPair) {
	every := e.monitor.BatchSize(len(pairs))
	for i, pair := range pairs {
		if i > 0 && i%every == 0 {
			if err := e.monitor.Throttle(ctx); err != nil {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case input <- pair:
			e.observeQueue(QueueInput, len(input))
		}
	}
}

func (e *Engine) runLoadWorker(ctx context.Context, input <-chan models.DocumentPair, loaded chan<- *PairTask) {
	for {
		select {
		case <-ctx.Done():
			return
		case pair, ok := <-input:
			if !ok {
				return
			}
			task := e.loader.load(ctx, pair)
			if task.Cancelled {
				return
			}
			select {
			case <-ctx.Done():
				return
			case loaded <- task:
				e.observeQueue(QueueLoaded, len(loaded))
			}
		}
	}
}

func (e *Engine) runCompareWorker(ctx context.Context, loaded <-chan *PairTask, results chan<- models.FilePairComparisonResult) {
	w := e.acquireWorker()
	defer e.releaseWorker(w)

	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-loaded:
			if !ok {
				return
			}
			e.advance(models.StatusComparing)
			r := e.processPair(ctx, task, w)
			results <- r
			e.observeQueue(QueueResults, len(results))
		}
	}
}

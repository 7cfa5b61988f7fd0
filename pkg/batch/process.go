package batch

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/sdejongh/diffnorris/pkg/cache"
	"github.com/sdejongh/diffnorris/pkg/categorize"
	"github.com/sdejongh/diffnorris/pkg/compare"
	"github.com/sdejongh/diffnorris/pkg/logging"
	"github.com/sdejongh/diffnorris/pkg/metrics"
	"github.com/sdejongh/diffnorris/pkg/models"
)

// worker is the per-goroutine comparison state
type worker struct {
	cmp *compare.Comparator
	cat *categorize.Categorizer
}

func (e *Engine) acquireWorker() *worker {
	return &worker{cmp: e.pool.Get(), cat: categorize.Get()}
}

func (e *Engine) releaseWorker(w *worker) {
	e.pool.Put(w.cmp)
	categorize.Put(w.cat)
}

// processPair turns a loaded task into its result. Both execution paths
// call it, so results do not depend on the path taken.
func (e *Engine) processPair(ctx context.Context, task *PairTask, w *worker) models.FilePairComparisonResult {
	if task.Failed() {
		if !task.Cancelled {
			metrics.PairsTotal.WithLabelValues("error").Inc()
			e.logger.Warn(ctx, "Failed to load document pair", logging.Fields{
				"name1": task.Pair.Name1,
				"name2": task.Pair.Name2,
				"error": task.Err.Error(),
			})
		}
		return task.errorResult()
	}

	start := time.Now()
	w.cmp = e.pool.Refresh(w.cmp)

	_, span := tracer.Start(ctx, "batch.Pair")
	defer span.End()
	span.SetAttributes(
		attribute.String("pair.name1", task.Pair.Name1),
		attribute.String("pair.name2", task.Pair.Name2),
	)

	r := models.FilePairComparisonResult{Name1: task.Pair.Name1, Name2: task.Pair.Name2}
	key := cache.Key{Old: task.OldHash, New: task.NewHash, Fingerprint: w.cmp.Fingerprint()}

	if e.cache != nil {
		if res, ok := e.cache.TryGet(key); ok {
			r.Result = &res
			r.FromCache = true
			span.SetAttributes(attribute.Bool("pair.from_cache", true))
			e.recordOutcome(&r, start)
			return r
		}
	}

	v, err, shared := e.flight.Do(flightKey(key), func() (any, error) {
		return e.compute(task, key, w)
	})
	if err != nil {
		r.ErrorKind = models.ErrorComparison
		r.ErrorMessage = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error(ctx, "Comparison failed", err, logging.Fields{
			"name1": r.Name1,
			"name2": r.Name2,
		})
		e.recordOutcome(&r, start)
		return r
	}

	res := v.(models.ComparisonResult)
	if shared {
		res = res.Clone()
	}
	r.Result = &res

	span.SetAttributes(
		attribute.Int("pair.differences", len(res.Differences)),
		attribute.Bool("pair.truncated", res.Truncated),
	)
	e.recordOutcome(&r, start)
	return r
}

// compute runs the comparator and categorizer and stores the result
func (e *Engine) compute(task *PairTask, key cache.Key, w *worker) (res models.ComparisonResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("comparison panicked: %v", rec)
		}
	}()

	if !task.Identical {
		res = w.cmp.Compare(task.Old, task.New)
		e.comparisons.Add(1)
		res.Differences = w.cat.Process(res.Differences)
	}

	if e.cache != nil {
		e.cache.Put(key, res)
	}
	return res, nil
}

func (e *Engine) recordOutcome(r *models.FilePairComparisonResult, start time.Time) {
	metrics.PairDuration.Observe(time.Since(start).Seconds())
	switch {
	case r.Failed():
		metrics.PairsTotal.WithLabelValues("error").Inc()
	case r.Result.IsEqual():
		metrics.PairsTotal.WithLabelValues("equal").Inc()
	default:
		metrics.PairsTotal.WithLabelValues("different").Inc()
	}
}

func flightKey(k cache.Key) string {
	return fmt.Sprintf("%016x:%016x:%s", k.Old, k.New, k.Fingerprint)
}

// Package batch runs structural comparisons over many document pairs.
//
// Large batches flow through a three-stage pipeline (load, compare,
// aggregate) joined by bounded channels. Small batches take a batched fast
// path that runs the same per-pair processing under a weighted semaphore.
package batch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/sdejongh/diffnorris/pkg/cache"
	"github.com/sdejongh/diffnorris/pkg/compare"
	"github.com/sdejongh/diffnorris/pkg/decode"
	"github.com/sdejongh/diffnorris/pkg/logging"
	"github.com/sdejongh/diffnorris/pkg/metrics"
	"github.com/sdejongh/diffnorris/pkg/models"
	"github.com/sdejongh/diffnorris/pkg/monitor"
	"github.com/sdejongh/diffnorris/pkg/ratelimit"
	"github.com/sdejongh/diffnorris/pkg/storage"
)

// DefaultPipelineThreshold is the batch size from which the staged pipeline
// is used instead of the batched fast path
const DefaultPipelineThreshold = 100

// Queue names reported by QueueHighWater
const (
	QueueInput   = "input"
	QueueLoaded  = "loaded"
	QueueResults = "results"
)

var tracer = otel.Tracer("github.com/sdejongh/diffnorris/pkg/batch")

// EngineConfig holds everything needed to build an Engine
type EngineConfig struct {
	Comparison models.ComparisonConfig

	// Old and New resolve DocumentPair.Name1 and Name2
	Old storage.Backend
	New storage.Backend

	// Format forces a document format; empty selects by file extension
	Format string

	// Cache is shared across runs and engines. When nil the engine creates
	// its own, closed by Close. DisableCache turns caching off entirely.
	Cache        *cache.ResultCache
	DisableCache bool

	Monitor *monitor.Monitor
	Limiter *ratelimit.Limiter
	Logger  logging.Logger

	Progress ProgressFunc

	PipelineThreshold int
	BufferSize        int
}

// Engine runs batches. Run calls are expected to be sequential; Status and
// QueueHighWater describe the most recent one.
type Engine struct {
	cfg       EngineConfig
	pool      *compare.Pool
	cache     *cache.ResultCache
	ownsCache bool
	monitor   *monitor.Monitor
	loader    *loader
	logger    logging.Logger
	flight    singleflight.Group

	statusMu sync.Mutex
	status   models.BatchStatus

	highWater   sync.Map // queue name -> *atomic.Int64
	comparisons atomic.Int64
}

// NewEngine validates cfg and builds an engine.
// Only configuration errors are returned.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Old == nil || cfg.New == nil {
		return nil, &models.ValidationError{Field: "storage", Message: "both old and new backends are required"}
	}

	logger := logging.OrNull(cfg.Logger)

	pool, err := compare.NewPool(cfg.Comparison, logger)
	if err != nil {
		return nil, err
	}

	decoders, err := decode.NewAuto(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid document format: %w", err)
	}

	if cfg.PipelineThreshold <= 0 {
		cfg.PipelineThreshold = DefaultPipelineThreshold
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}

	e := &Engine{
		cfg:     cfg,
		pool:    pool,
		monitor: cfg.Monitor,
		loader:  newLoader(cfg.Old, cfg.New, decoders, cfg.Limiter, cfg.BufferSize),
		logger:  logger,
		status:  models.StatusSubmitted,
	}
	if e.monitor == nil {
		e.monitor = monitor.New(monitor.WithLogger(logger))
	}

	switch {
	case cfg.DisableCache:
	case cfg.Cache != nil:
		e.cache = cfg.Cache
	default:
		e.cache = cache.New(cache.WithLogger(logger))
		e.ownsCache = true
	}

	for _, q := range []string{QueueInput, QueueLoaded, QueueResults} {
		e.highWater.Store(q, new(atomic.Int64))
	}

	return e, nil
}

// Run compares every pair and returns the aggregated result. Per-pair
// failures are reported in the items; cancellation returns what completed
// with status cancelled.
func (e *Engine) Run(ctx context.Context, pairs []models.DocumentPair) *models.BatchResult {
	result := &models.BatchResult{
		ID:         uuid.NewString(),
		TotalPairs: len(pairs),
		StartTime:  time.Now(),
	}
	e.reset()

	mode := "pipeline"
	if len(pairs) < e.cfg.PipelineThreshold {
		mode = "batched"
	}

	ctx, span := tracer.Start(ctx, "batch.Run", trace.WithAttributes(
		attribute.String("batch.id", result.ID),
		attribute.Int("batch.pairs", len(pairs)),
		attribute.String("batch.mode", mode),
	))
	defer span.End()

	ruleSet := e.pool.Rules()
	e.logger.Info(ctx, "Starting batch comparison", logging.Fields{
		"batch_id":      result.ID,
		"pairs":         len(pairs),
		"mode":          mode,
		"fingerprint":   e.pool.Fingerprint(),
		"rules":         ruleSet.Len(),
		"skipped_rules": ruleSet.Skipped(),
	})

	agg := newAggregator(len(pairs), e.cfg.Progress, e.Status)
	if mode == "batched" {
		e.runBatched(ctx, pairs, agg)
	} else {
		e.runPipeline(ctx, pairs, agg)
	}

	e.advance(models.StatusAggregating)
	sort.Slice(agg.items, func(i, j int) bool {
		a, b := agg.items[i], agg.items[j]
		if a.Name1 != b.Name1 {
			return a.Name1 < b.Name1
		}
		return a.Name2 < b.Name2
	})

	cancelled := agg.completed < len(pairs)
	final := models.StatusCompleted
	if cancelled {
		final = models.StatusCancelled
	}
	e.setStatus(final)

	result.Status = final
	result.Items = agg.items
	result.Stats = agg.stats
	result.AllEqual = agg.allEqual && !cancelled
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	agg.finish(final)

	metrics.BatchesTotal.WithLabelValues(string(final)).Inc()
	for q, n := range e.QueueHighWater() {
		metrics.QueueHighWater.WithLabelValues(q).Set(float64(n))
	}

	span.SetAttributes(
		attribute.String("batch.status", string(final)),
		attribute.Int("batch.completed", agg.completed),
		attribute.Int("batch.errored", result.Stats.Errored),
		attribute.Int("batch.cache_hits", result.Stats.CacheHits),
	)
	if cancelled {
		span.SetAttributes(attribute.Bool("context_cancelled", true))
	}
	span.SetStatus(codes.Ok, "")

	e.logger.Info(ctx, "Batch comparison completed", logging.Fields{
		"batch_id":    result.ID,
		"status":      final,
		"duration":    result.Duration.String(),
		"equal":       result.Stats.Equal,
		"different":   result.Stats.Different,
		"errored":     result.Stats.Errored,
		"cache_hits":  result.Stats.CacheHits,
		"comparators": e.pool.Created(),
	})

	return result
}

// Reconfigure installs a new comparison configuration for subsequent pairs.
// Cached results computed under the previous fingerprint are dropped.
func (e *Engine) Reconfigure(cfg models.ComparisonConfig) error {
	old, err := e.pool.Reconfigure(cfg)
	if err != nil {
		return err
	}

	current := e.pool.Fingerprint()
	removed := 0
	if e.cache != nil && old != current {
		removed = e.cache.InvalidateByFingerprint(old)
	}

	e.logger.Info(context.Background(), "Comparison configuration changed", logging.Fields{
		"old_fingerprint": old,
		"fingerprint":     current,
		"invalidated":     removed,
	})
	return nil
}

// Status returns the state of the current or last batch
func (e *Engine) Status() models.BatchStatus {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	return e.status
}

// QueueHighWater returns the deepest observed occupancy of each inter-stage
// queue during the last run. The batched path uses no queues.
func (e *Engine) QueueHighWater() map[string]int {
	out := make(map[string]int, 3)
	e.highWater.Range(func(k, v any) bool {
		out[k.(string)] = int(v.(*atomic.Int64).Load())
		return true
	})
	return out
}

// Fingerprint returns the current configuration fingerprint
func (e *Engine) Fingerprint() string { return e.pool.Fingerprint() }

// Cache returns the result cache, nil when caching is disabled
func (e *Engine) Cache() *cache.ResultCache { return e.cache }

// Comparisons returns how many structural comparisons actually ran
func (e *Engine) Comparisons() int64 { return e.comparisons.Load() }

// Close releases the cache if the engine created it
func (e *Engine) Close() error {
	if e.ownsCache && e.cache != nil {
		return e.cache.Close()
	}
	return nil
}

func (e *Engine) reset() {
	e.setStatus(models.StatusSubmitted)
	e.highWater.Range(func(_, v any) bool {
		v.(*atomic.Int64).Store(0)
		return true
	})
}

func (e *Engine) setStatus(s models.BatchStatus) {
	e.statusMu.Lock()
	e.status = s
	e.statusMu.Unlock()
}

// advance moves the status forward along the state machine, never back
func (e *Engine) advance(s models.BatchStatus) {
	e.statusMu.Lock()
	if s.Rank() > e.status.Rank() {
		e.status = s
	}
	e.statusMu.Unlock()
}

// observeQueue records the occupancy of a queue after a send
func (e *Engine) observeQueue(name string, depth int) {
	v, ok := e.highWater.Load(name)
	if !ok {
		return
	}
	hw := v.(*atomic.Int64)
	for {
		cur := hw.Load()
		if int64(depth) <= cur || hw.CompareAndSwap(cur, int64(depth)) {
			return
		}
	}
}

// Package cache implements the in-process result cache.
//
// Results are keyed by the content hashes of both documents and the
// configuration fingerprint. The cache is a pure optimization: any failure
// inside it is recovered and degrades to a miss.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sdejongh/diffnorris/pkg/logging"
	"github.com/sdejongh/diffnorris/pkg/metrics"
	"github.com/sdejongh/diffnorris/pkg/models"
)

const shardCount = 32

// Defaults
const (
	DefaultTTL             = 24 * time.Hour
	DefaultMaxEntries      = 10000
	DefaultMaxBytes        = 500 << 20
	DefaultCleanupInterval = 15 * time.Minute

	perDifferenceBytes = 256
	baseEntryBytes     = 128
)

// Entry is a cached comparison result plus eviction metadata
type Entry struct {
	Result          models.ComparisonResult
	CachedAt        time.Time
	ApproxSizeBytes int64

	// insertion sequence, used for oldest-first eviction
	seq uint64
}

// ApproxSize estimates the memory held by a result
func ApproxSize(r models.ComparisonResult) int64 {
	return int64(len(r.Differences))*perDifferenceBytes + baseEntryBytes
}

// Options configures a ResultCache
type Options struct {
	TTL             time.Duration
	MaxEntries      int
	MaxBytes        int64
	CleanupInterval time.Duration
	Logger          logging.Logger
	// Now is the clock used for TTL decisions
	Now func() time.Time
	// Background runs the periodic cleanup goroutine
	Background bool
}

// Option mutates Options
type Option func(*Options)

// WithTTL sets the entry lifetime
func WithTTL(d time.Duration) Option { return func(o *Options) { o.TTL = d } }

// WithMaxEntries sets the soft entry cap
func WithMaxEntries(n int) Option { return func(o *Options) { o.MaxEntries = n } }

// WithMaxBytes sets the soft memory budget
func WithMaxBytes(n int64) Option { return func(o *Options) { o.MaxBytes = n } }

// WithCleanupInterval sets the background cleanup period
func WithCleanupInterval(d time.Duration) Option { return func(o *Options) { o.CleanupInterval = d } }

// WithLogger sets the logger for recovered failures and cleanup reports
func WithLogger(l logging.Logger) Option { return func(o *Options) { o.Logger = l } }

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option { return func(o *Options) { o.Now = now } }

// WithoutBackground disables the cleanup goroutine; Cleanup must then be
// called explicitly
func WithoutBackground() Option { return func(o *Options) { o.Background = false } }

type shard struct {
	mu    sync.RWMutex
	items map[Key]*Entry
}

// ResultCache is a sharded concurrent map from Key to Entry
type ResultCache struct {
	opts   Options
	logger logging.Logger
	shards [shardCount]shard

	seq       atomic.Uint64
	entries   atomic.Int64
	bytes     atomic.Int64
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	cleanupMu sync.Mutex
	nudge     chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// test hook invoked at the start of every operation
	onAccess func(op string)
}

// Stats is a snapshot of cache counters
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Entries     int64
	ApproxBytes int64
}

// HitRate returns hits / lookups, or 0 before the first lookup
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// New creates a cache and starts its cleanup goroutine
func New(opts ...Option) *ResultCache {
	o := Options{
		TTL:             DefaultTTL,
		MaxEntries:      DefaultMaxEntries,
		MaxBytes:        DefaultMaxBytes,
		CleanupInterval: DefaultCleanupInterval,
		Now:             time.Now,
		Background:      true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &ResultCache{
		opts:   o,
		logger: logging.OrNull(o.Logger),
		nudge:  make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for i := range c.shards {
		c.shards[i].items = make(map[Key]*Entry)
	}

	if o.Background {
		go c.cleanupLoop()
	} else {
		close(c.done)
	}
	return c
}

// TryGet returns a copy of the cached result for key.
// Expired entries are removed and reported as absent.
func (c *ResultCache) TryGet(key Key) (res models.ComparisonResult, found bool) {
	defer func() {
		if r := recover(); r != nil {
			c.failure("get", r)
			res, found = models.ComparisonResult{}, false
		}
	}()
	if c.onAccess != nil {
		c.onAccess("get")
	}

	s := &c.shards[key.shardIndex()]
	s.mu.RLock()
	e, ok := s.items[key]
	if ok && !c.expired(e) {
		res = e.Result.Clone()
		s.mu.RUnlock()
		c.hits.Add(1)
		metrics.CacheHits.Inc()
		return res, true
	}
	s.mu.RUnlock()

	if ok {
		// lazy TTL removal; re-check under the write lock
		s.mu.Lock()
		if e2, still := s.items[key]; still && e2 == e {
			delete(s.items, key)
			c.accountRemoval(e, "expired")
		}
		s.mu.Unlock()
	}

	c.misses.Add(1)
	metrics.CacheMisses.Inc()
	return models.ComparisonResult{}, false
}

// Put stores a copy of result under key
func (c *ResultCache) Put(key Key, result models.ComparisonResult) {
	defer func() {
		if r := recover(); r != nil {
			c.failure("put", r)
		}
	}()
	if c.onAccess != nil {
		c.onAccess("put")
	}

	e := &Entry{
		Result:          result.Clone(),
		CachedAt:        c.opts.Now(),
		ApproxSizeBytes: ApproxSize(result),
		seq:             c.seq.Add(1),
	}

	s := &c.shards[key.shardIndex()]
	s.mu.Lock()
	prev, replaced := s.items[key]
	s.items[key] = e
	s.mu.Unlock()

	if replaced {
		c.bytes.Add(e.ApproxSizeBytes - prev.ApproxSizeBytes)
	} else {
		c.entries.Add(1)
		c.bytes.Add(e.ApproxSizeBytes)
	}
	c.publishGauges()

	if c.overCapacity() {
		c.requestCleanup()
	}
}

// InvalidateByFingerprint removes every entry computed under fingerprint
func (c *ResultCache) InvalidateByFingerprint(fingerprint string) (removed int) {
	defer func() {
		if r := recover(); r != nil {
			c.failure("invalidate", r)
		}
	}()
	removed = c.removeWhere(func(k Key, _ *Entry) bool { return k.Fingerprint == fingerprint }, "invalidated")
	if removed > 0 {
		c.logger.Info(context.Background(), "Invalidated cached results", logging.Fields{
			"fingerprint": fingerprint,
			"removed":     removed,
		})
	}
	return removed
}

// Clear drops every entry. Counters other than entries and bytes are kept.
func (c *ResultCache) Clear() {
	defer func() {
		if r := recover(); r != nil {
			c.failure("clear", r)
		}
	}()
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		n := len(s.items)
		var size int64
		for _, e := range s.items {
			size += e.ApproxSizeBytes
		}
		s.items = make(map[Key]*Entry)
		s.mu.Unlock()
		c.entries.Add(-int64(n))
		c.bytes.Add(-size)
	}
	c.publishGauges()
}

// Len returns the number of stored entries, expired ones included
func (c *ResultCache) Len() int {
	return int(c.entries.Load())
}

// Stats returns a snapshot of the counters
func (c *ResultCache) Stats() Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Entries:     c.entries.Load(),
		ApproxBytes: c.bytes.Load(),
	}
}

// Close stops the cleanup goroutine. The cache stays usable.
func (c *ResultCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
	return nil
}

func (c *ResultCache) expired(e *Entry) bool {
	return c.opts.TTL > 0 && c.opts.Now().Sub(e.CachedAt) > c.opts.TTL
}

func (c *ResultCache) overCapacity() bool {
	return (c.opts.MaxEntries > 0 && c.entries.Load() > int64(c.opts.MaxEntries)) ||
		(c.opts.MaxBytes > 0 && c.bytes.Load() > c.opts.MaxBytes)
}

// accountRemoval updates counters for an entry deleted by the caller
func (c *ResultCache) accountRemoval(e *Entry, reason string) {
	c.entries.Add(-1)
	c.bytes.Add(-e.ApproxSizeBytes)
	c.evictions.Add(1)
	metrics.CacheEvictions.WithLabelValues(reason).Inc()
	c.publishGauges()
}

func (c *ResultCache) publishGauges() {
	metrics.CacheEntries.Set(float64(c.entries.Load()))
	metrics.CacheBytes.Set(float64(c.bytes.Load()))
}

func (c *ResultCache) failure(op string, r any) {
	metrics.CacheFailures.WithLabelValues(op).Inc()
	c.logger.Error(context.Background(), "Result cache operation failed", fmt.Errorf("panic: %v", r), logging.Fields{
		"op": op,
	})
}

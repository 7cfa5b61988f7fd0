// Package monitor samples host load and derives worker counts, batch sizes
// and throttling delays from it.
package monitor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/sdejongh/diffnorris/pkg/logging"
	"github.com/sdejongh/diffnorris/pkg/metrics"
)

// Thresholds and delays for throttling between batches
const (
	HighLoadPercent     = 90.0
	ElevatedLoadPercent = 75.0
	HighLoadDelay       = time.Second
	ElevatedLoadDelay   = 300 * time.Millisecond

	// DefaultSampleTTL is how long a sample is reused
	DefaultSampleTTL = 500 * time.Millisecond
)

// Monitor caches host samples and turns them into sizing decisions
type Monitor struct {
	sampler   Sampler
	cores     int
	sampleTTL time.Duration
	logger    logging.Logger
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error

	mu   sync.Mutex
	last Sample
	have bool
}

// Option configures a Monitor
type Option func(*Monitor)

// WithSampler replaces the host sampler
func WithSampler(s Sampler) Option { return func(m *Monitor) { m.sampler = s } }

// WithCores overrides the detected core count
func WithCores(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.cores = n
		}
	}
}

// WithSampleTTL sets how long a sample is reused
func WithSampleTTL(d time.Duration) Option { return func(m *Monitor) { m.sampleTTL = d } }

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option { return func(m *Monitor) { m.logger = l } }

// WithClock replaces time.Now for sample caching
func WithClock(now func() time.Time) Option { return func(m *Monitor) { m.now = now } }

// withSleep replaces the throttle sleep; used by tests
func withSleep(f func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Monitor) { m.sleep = f }
}

// New creates a monitor reading procfs, falling back to runtime statistics
func New(opts ...Option) *Monitor {
	m := &Monitor{
		cores:     runtime.NumCPU(),
		sampleTTL: DefaultSampleTTL,
		now:       time.Now,
		sleep:     sleepCtx,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrNull(m.logger)

	if m.sampler == nil {
		if ps, err := NewProcSampler(); err == nil {
			m.sampler = ps
		} else {
			m.logger.Debug(context.Background(), "procfs unavailable, using runtime sampler", logging.Fields{
				"error": err.Error(),
			})
			m.sampler = RuntimeSampler{}
		}
	}
	return m
}

// Cores returns the core count used for sizing
func (m *Monitor) Cores() int { return m.cores }

// Sample returns the current host load, reusing a recent reading
func (m *Monitor) Sample() Sample {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.have && now.Sub(m.last.At) < m.sampleTTL {
		return m.last
	}

	s, err := m.sampler.Sample()
	if err != nil {
		m.logger.Warn(context.Background(), "Host sampling failed", logging.Fields{"error": err.Error()})
		if m.have {
			return m.last
		}
		s = Sample{}
	}
	s.At = now
	m.last, m.have = s, true

	metrics.HostCPU.Set(s.CPUPercent)
	metrics.HostMemory.Set(s.MemoryPercent)
	return s
}

// BatchSize returns the fast-path batch size for a run of pairCount pairs:
// clamp(pairCount/4, 10, 50) scaled by clamp(cores-1, 1, 4), within [10, 100]
func (m *Monitor) BatchSize(pairCount int) int {
	base := clamp(pairCount/4, 10, 50)
	factor := clamp(m.cores-1, 1, 4)
	return clamp(base*factor, 10, 100)
}

// ThrottleDelay returns how long to pause before the next batch
func (m *Monitor) ThrottleDelay() time.Duration {
	s := m.Sample()
	switch {
	case s.CPUPercent > HighLoadPercent || s.MemoryPercent > HighLoadPercent:
		return HighLoadDelay
	case s.CPUPercent > ElevatedLoadPercent || s.MemoryPercent > ElevatedLoadPercent:
		return ElevatedLoadDelay
	}
	return 0
}

// Throttle sleeps for ThrottleDelay or until ctx is done
func (m *Monitor) Throttle(ctx context.Context) error {
	d := m.ThrottleDelay()
	if d == 0 {
		return ctx.Err()
	}
	m.logger.Debug(ctx, "Throttling under host load", logging.Fields{
		"delay_ms": d.Milliseconds(),
	})
	metrics.ThrottleSeconds.Add(d.Seconds())
	return m.sleep(ctx, d)
}

// Parallelism returns the worker count for one batch: the core count,
// halved under elevated load, never above the batch length
func (m *Monitor) Parallelism(batchLen int) int {
	p := m.cores
	if m.Sample().Load() > ElevatedLoadPercent {
		p /= 2
	}
	if batchLen > 0 && p > batchLen {
		p = batchLen
	}
	return max(p, 1)
}

// DeserializeWorkers returns the stage 1 pool size, max(2, cores/2)
func (m *Monitor) DeserializeWorkers() int {
	return max(2, m.cores/2)
}

// CompareWorkers returns the stage 2 pool size, max(1, cores-2)
func (m *Monitor) CompareWorkers() int {
	return max(1, m.cores-2)
}

// QueueCapacity returns the bounded queue size for a stage of parallelism p
func (m *Monitor) QueueCapacity(p int) int {
	return 4 * max(p, 1)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Package metrics declares the Prometheus collectors shared by the cache,
// the resource monitor and the batch engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "diffnorris"

var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_hits_total",
		Help:      "Result cache lookups served from the cache",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_misses_total",
		Help:      "Result cache lookups that found no live entry",
	})

	// CacheEvictions is labelled by reason: expired, oldest, memory, invalidated
	CacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_evictions_total",
		Help:      "Result cache entries removed, by reason",
	}, []string{"reason"})

	CacheFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_failures_total",
		Help:      "Recovered result cache failures, by operation",
	}, []string{"op"})

	CacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_entries",
		Help:      "Live result cache entries",
	})

	CacheBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_approx_bytes",
		Help:      "Approximate memory held by result cache entries",
	})

	// PairsTotal is labelled by outcome: equal, different, error
	PairsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pairs_total",
		Help:      "Document pairs processed, by outcome",
	}, []string{"outcome"})

	PairDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pair_duration_seconds",
		Help:      "Time spent comparing one document pair",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	BatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batches_total",
		Help:      "Batches run, by final status",
	}, []string{"status"})

	QueueHighWater = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_high_water",
		Help:      "Highest observed inter-stage queue depth of the last batch",
	}, []string{"queue"})

	HostCPU = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "host_cpu_percent",
		Help:      "Last sampled host CPU usage",
	})

	HostMemory = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "host_memory_percent",
		Help:      "Last sampled host memory usage",
	})

	ThrottleSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "throttle_seconds_total",
		Help:      "Time spent sleeping between batches under host load",
	})
)

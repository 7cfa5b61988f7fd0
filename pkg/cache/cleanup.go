package cache

import (
	"context"
	"slices"
	"time"

	"github.com/sdejongh/diffnorris/pkg/logging"
)

// CleanupReport summarizes one cleanup pass
type CleanupReport struct {
	Expired int
	Oldest  int
	Memory  int
}

// Total returns the number of entries removed
func (r CleanupReport) Total() int {
	return r.Expired + r.Oldest + r.Memory
}

// requestCleanup nudges the cleanup goroutine; concurrent requests coalesce
func (c *ResultCache) requestCleanup() {
	select {
	case c.nudge <- struct{}{}:
	default:
	}
}

func (c *ResultCache) cleanupLoop() {
	defer close(c.done)

	interval := c.opts.CleanupInterval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Cleanup()
		case <-c.nudge:
			c.Cleanup()
		case <-c.stop:
			return
		}
	}
}

// Cleanup removes expired entries and, when a cap was exceeded, evicts:
// if expiry freed less than a quarter of the entry capacity the oldest
// quarter of entries goes; if the memory budget is still exceeded the
// largest-and-oldest half goes.
func (c *ResultCache) Cleanup() (report CleanupReport) {
	defer func() {
		if r := recover(); r != nil {
			c.failure("cleanup", r)
		}
	}()
	c.cleanupMu.Lock()
	defer c.cleanupMu.Unlock()

	over := c.overCapacity()
	report.Expired = c.removeWhere(func(_ Key, e *Entry) bool { return c.expired(e) }, "expired")

	if over {
		quarter := c.opts.MaxEntries / 4
		if report.Expired < quarter {
			n := int(c.entries.Load()) / 4
			report.Oldest = c.evictSorted(max(n, 1), byInsertion, "oldest")
		}
		if c.opts.MaxBytes > 0 && c.bytes.Load() > c.opts.MaxBytes {
			n := int(c.entries.Load()) / 2
			report.Memory = c.evictSorted(max(n, 1), byLargestOldest, "memory")
		}
	}

	if report.Total() > 0 {
		c.logger.Debug(context.Background(), "Result cache cleanup", logging.Fields{
			"expired": report.Expired,
			"oldest":  report.Oldest,
			"memory":  report.Memory,
			"entries": c.entries.Load(),
			"bytes":   c.bytes.Load(),
		})
	}
	return report
}

// removeWhere deletes matching entries shard by shard
func (c *ResultCache) removeWhere(match func(Key, *Entry) bool, reason string) int {
	removed := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		for k, e := range s.items {
			if match(k, e) {
				delete(s.items, k)
				c.accountRemoval(e, reason)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

type candidate struct {
	key  Key
	seq  uint64
	size int64
}

func byInsertion(a, b candidate) int {
	switch {
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	}
	return 0
}

func byLargestOldest(a, b candidate) int {
	switch {
	case a.size > b.size:
		return -1
	case a.size < b.size:
		return 1
	}
	return byInsertion(a, b)
}

// evictSorted snapshots all entries, orders them and removes the first n.
// Entries replaced since the snapshot are left alone.
func (c *ResultCache) evictSorted(n int, order func(a, b candidate) int, reason string) int {
	all := make([]candidate, 0, c.entries.Load())
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.RLock()
		for k, e := range s.items {
			all = append(all, candidate{key: k, seq: e.seq, size: e.ApproxSizeBytes})
		}
		s.mu.RUnlock()
	}
	slices.SortFunc(all, order)

	removed := 0
	for _, cand := range all {
		if removed >= n {
			break
		}
		s := &c.shards[cand.key.shardIndex()]
		s.mu.Lock()
		if e, ok := s.items[cand.key]; ok && e.seq == cand.seq {
			delete(s.items, cand.key)
			c.accountRemoval(e, reason)
			removed++
		}
		s.mu.Unlock()
	}
	return removed
}

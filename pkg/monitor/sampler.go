package monitor

import (
	"fmt"
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/procfs"
)

// Sample is one reading of host load, in percent
type Sample struct {
	CPUPercent    float64
	MemoryPercent float64
	At            time.Time
}

// Load returns the higher of CPU and memory usage
func (s Sample) Load() float64 {
	return math.Max(s.CPUPercent, s.MemoryPercent)
}

// Sampler reads current host load
type Sampler interface {
	Sample() (Sample, error)
}

// ProcSampler reads /proc/stat and /proc/meminfo.
// CPU usage is the busy share of jiffies since the previous call.
type ProcSampler struct {
	fs procfs.FS

	mu        sync.Mutex
	prevBusy  float64
	prevTotal float64
	havePrev  bool
}

// NewProcSampler opens the default procfs mount
func NewProcSampler() (*ProcSampler, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs: %w", err)
	}
	return &ProcSampler{fs: fs}, nil
}

// Sample reads CPU and memory usage
func (p *ProcSampler) Sample() (Sample, error) {
	stat, err := p.fs.Stat()
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read cpu stats: %w", err)
	}
	mem, err := p.fs.Meminfo()
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read meminfo: %w", err)
	}

	c := stat.CPUTotal
	idle := c.Idle + c.Iowait
	busy := c.User + c.Nice + c.System + c.IRQ + c.SoftIRQ + c.Steal
	total := idle + busy

	p.mu.Lock()
	var cpu float64
	if p.havePrev && total > p.prevTotal {
		cpu = (busy - p.prevBusy) / (total - p.prevTotal) * 100
	} else if total > 0 {
		cpu = busy / total * 100
	}
	p.prevBusy, p.prevTotal, p.havePrev = busy, total, true
	p.mu.Unlock()

	var memPct float64
	if mem.MemTotal != nil && mem.MemAvailable != nil && *mem.MemTotal > 0 {
		used := float64(*mem.MemTotal) - float64(*mem.MemAvailable)
		memPct = used / float64(*mem.MemTotal) * 100
	}

	return Sample{CPUPercent: clampPct(cpu), MemoryPercent: clampPct(memPct), At: time.Now()}, nil
}

// RuntimeSampler is used where procfs is unavailable. It reports no CPU
// load and measures memory against the Go memory limit when one is set.
type RuntimeSampler struct{}

// Sample reads Go runtime memory statistics
func (RuntimeSampler) Sample() (Sample, error) {
	s := Sample{At: time.Now()}
	limit := debug.SetMemoryLimit(-1)
	if limit > 0 && limit != math.MaxInt64 {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		s.MemoryPercent = clampPct(float64(ms.Sys) / float64(limit) * 100)
	}
	return s, nil
}

// StaticSampler always returns the same reading
type StaticSampler struct {
	CPU    float64
	Memory float64
}

// Sample returns the configured reading
func (s StaticSampler) Sample() (Sample, error) {
	return Sample{CPUPercent: s.CPU, MemoryPercent: s.Memory, At: time.Now()}, nil
}

func clampPct(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

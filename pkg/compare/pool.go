package compare

import (
	"sync"
	"sync/atomic"

	"github.com/sdejongh/diffnorris/pkg/logging"
	"github.com/sdejongh/diffnorris/pkg/models"
	"github.com/sdejongh/diffnorris/pkg/rules"
)

// snapshot is one immutable configuration generation
type snapshot struct {
	version     uint64
	cfg         models.ComparisonConfig
	rules       *rules.RuleSet
	fingerprint string
}

// Pool hands out per-worker comparator instances keyed by configuration
// version. Reconfigure bumps the version; instances from an older version
// are discarded on checkout instead of silently keeping stale rules.
type Pool struct {
	current atomic.Pointer[snapshot]
	pool    sync.Pool
	logger  logging.Logger

	created atomic.Int64
	mu      sync.Mutex // serializes Reconfigure
}

// NewPool validates cfg and creates an empty pool
func NewPool(cfg models.ComparisonConfig, logger logging.Logger) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pool{logger: logging.OrNull(logger)}
	p.current.Store(p.build(cfg, 1))
	return p, nil
}

func (p *Pool) build(cfg models.ComparisonConfig, version uint64) *snapshot {
	return &snapshot{
		version:     version,
		cfg:         cfg,
		rules:       rules.NewRuleSet(cfg, p.logger),
		fingerprint: rules.Fingerprint(cfg),
	}
}

// Get checks out an instance for the current configuration
func (p *Pool) Get() *Comparator {
	snap := p.current.Load()
	for {
		v := p.pool.Get()
		if v == nil {
			break
		}
		c := v.(*Comparator)
		if c.version == snap.version {
			return c
		}
	}
	p.created.Add(1)
	return newComparator(snap.cfg, snap.rules, snap.fingerprint, snap.version)
}

// Refresh returns c if it still matches the current configuration,
// otherwise a new instance built for it
func (p *Pool) Refresh(c *Comparator) *Comparator {
	if c != nil && c.version == p.current.Load().version {
		return c
	}
	return p.Get()
}

// Put returns an instance to the pool; stale instances are dropped
func (p *Pool) Put(c *Comparator) {
	if c == nil || c.version != p.current.Load().version {
		return
	}
	p.pool.Put(c)
}

// Reconfigure installs cfg and returns the fingerprint it replaces so callers
// can invalidate cached results computed under it.
// An invalid cfg leaves the current configuration in place.
func (p *Pool) Reconfigure(cfg models.ComparisonConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.current.Load()
	p.current.Store(p.build(cfg, old.version+1))
	return old.fingerprint, nil
}

// Fingerprint returns the current configuration fingerprint
func (p *Pool) Fingerprint() string { return p.current.Load().fingerprint }

// Version returns the current configuration version
func (p *Pool) Version() uint64 { return p.current.Load().version }

// Config returns the current configuration
func (p *Pool) Config() models.ComparisonConfig { return p.current.Load().cfg }

// Rules returns the compiled rules of the current configuration
func (p *Pool) Rules() *rules.RuleSet { return p.current.Load().rules }

// Created returns how many instances the pool has built
func (p *Pool) Created() int64 { return p.created.Load() }

package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/edgegate/cache"
	"github.com/jonwraymond/edgegate/connpool"
)

// CacheCheckerConfig sets the pressure thresholds for the cache checker.
type CacheCheckerConfig struct {
	// Pressure is the fraction of either bound (entries or memory) at
	// which the cache reports degraded. Zero applies the default of 0.9.
	Pressure float64
}

// CacheChecker watches the customer-scoped cache's occupancy against its
// configured bounds. A cache near its bounds still serves, since eviction
// keeps it inside them, so pressure degrades and never fails.
type CacheChecker struct {
	cfg    CacheCheckerConfig
	stats  func() cache.Stats
	bounds cache.Config
}

// NewCacheChecker creates a checker over a stats snapshot source, usually
// the cache's own Stats method. bounds are the limits the cache was built
// with; unset fields take the cache defaults, mirroring the cache itself.
func NewCacheChecker(stats func() cache.Stats, bounds cache.Config, cfg ...CacheCheckerConfig) *CacheChecker {
	def := cache.DefaultConfig()
	if bounds.MaxEntries <= 0 {
		bounds.MaxEntries = def.MaxEntries
	}
	if bounds.MaxMemory <= 0 {
		bounds.MaxMemory = def.MaxMemory
	}

	var c CacheCheckerConfig
	if len(cfg) > 0 {
		c = cfg[0]
	}
	if c.Pressure <= 0 || c.Pressure > 1 {
		c.Pressure = 0.9
	}
	return &CacheChecker{cfg: c, stats: stats, bounds: bounds}
}

// Name identifies the component.
func (c *CacheChecker) Name() string { return "cache" }

// Check inspects the cache's occupancy.
func (c *CacheChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("check cancelled", ctx.Err())
	default:
	}

	s := c.stats()
	entryRatio := float64(s.Entries) / float64(c.bounds.MaxEntries)
	memoryRatio := float64(s.Memory) / float64(c.bounds.MaxMemory)

	details := map[string]any{
		"entries":          s.Entries,
		"max_entries":      c.bounds.MaxEntries,
		"memory_bytes":     s.Memory,
		"max_memory_bytes": c.bounds.MaxMemory,
		"hit_rate":         s.HitRate(),
		"evictions":        s.Evictions,
		"expirations":      s.Expirations,
	}

	switch {
	case entryRatio >= c.cfg.Pressure:
		return Degraded(fmt.Sprintf("entry pressure: %d of %d entries",
			s.Entries, c.bounds.MaxEntries)).WithDetails(details)
	case memoryRatio >= c.cfg.Pressure:
		return Degraded(fmt.Sprintf("memory pressure: %d of %d bytes",
			s.Memory, c.bounds.MaxMemory)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("%d entries, %.0f%% of memory bound",
			s.Entries, memoryRatio*100)).WithDetails(details)
	}
}

// PoolCheckerConfig sets the exhaustion thresholds for the pool checker.
type PoolCheckerConfig struct {
	// Pressure is the fraction of the connection cap at which the pool
	// reports degraded. Zero applies the default of 0.8.
	Pressure float64
}

// PoolChecker watches the upstream connection pool for exhaustion. At the
// cap, new requests queue behind in-flight ones and call latency climbs.
type PoolChecker struct {
	cfg    PoolCheckerConfig
	stats  func() connpool.Stats
	bounds connpool.Config
}

// NewPoolChecker creates a checker over a stats snapshot source, usually
// the pool's own Stats method.
func NewPoolChecker(stats func() connpool.Stats, bounds connpool.Config, cfg ...PoolCheckerConfig) *PoolChecker {
	if bounds.MaxConns <= 0 {
		bounds.MaxConns = connpool.DefaultConfig().MaxConns
	}

	var c PoolCheckerConfig
	if len(cfg) > 0 {
		c = cfg[0]
	}
	if c.Pressure <= 0 || c.Pressure > 1 {
		c.Pressure = 0.8
	}
	return &PoolChecker{cfg: c, stats: stats, bounds: bounds}
}

// Name identifies the component.
func (c *PoolChecker) Name() string { return "pool" }

// Check inspects the pool's connection accounting.
func (c *PoolChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("check cancelled", ctx.Err())
	default:
	}

	s := c.stats()
	activeRatio := float64(s.Active) / float64(c.bounds.MaxConns)

	details := map[string]any{
		"created":    s.Created,
		"open":       s.Open,
		"active":     s.Active,
		"idle":       s.Idle,
		"reused":     s.Reused,
		"reuse_rate": s.ReuseRate(),
		"max_conns":  c.bounds.MaxConns,
	}

	switch {
	case activeRatio >= 1:
		return Unhealthy(fmt.Sprintf("pool exhausted: %d of %d connections busy",
			s.Active, c.bounds.MaxConns), ErrCheckFailed).WithDetails(details)
	case activeRatio >= c.cfg.Pressure:
		return Degraded(fmt.Sprintf("pool pressure: %d of %d connections busy",
			s.Active, c.bounds.MaxConns)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("%d active, %d idle connections",
			s.Active, s.Idle)).WithDetails(details)
	}
}

var (
	_ Checker = (*CacheChecker)(nil)
	_ Checker = (*PoolChecker)(nil)
)

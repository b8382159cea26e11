package cache

import (
	"encoding/json"
	"time"
)

// DefaultSizeEstimate is the footprint charged to a value whose size cannot
// be estimated, in bytes.
const DefaultSizeEstimate = 1024

// Config bounds a cache instance.
type Config struct {
	// MaxEntries caps the number of live entries. Zero applies the default
	// of 1000.
	MaxEntries int

	// MaxMemory caps the estimated memory footprint in bytes. Zero applies
	// the default of 100 MiB.
	MaxMemory int64

	// DefaultTTL is the lifetime for entries stored without an explicit TTL.
	// Zero applies the default of 5 minutes.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Explicit TTLs are clamped to this.
	// Zero applies the default of 1 hour.
	MaxTTL time.Duration
}

// DefaultConfig returns the default cache bounds.
// MaxEntries: 1000, MaxMemory: 100 MiB, DefaultTTL: 5 minutes, MaxTTL: 1 hour.
func DefaultConfig() Config {
	return Config{
		MaxEntries: 1000,
		MaxMemory:  100 << 20,
		DefaultTTL: 5 * time.Minute,
		MaxTTL:     1 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxEntries <= 0 {
		c.MaxEntries = def.MaxEntries
	}
	if c.MaxMemory <= 0 {
		c.MaxMemory = def.MaxMemory
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = def.DefaultTTL
	}
	if c.MaxTTL <= 0 {
		c.MaxTTL = def.MaxTTL
	}
	return c
}

// EffectiveTTL returns the TTL to store an entry with, applying the default
// when override is zero or negative and clamping to MaxTTL.
func (c Config) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = c.DefaultTTL
	}
	if c.MaxTTL > 0 && ttl > c.MaxTTL {
		ttl = c.MaxTTL
	}
	return ttl
}

// SizeFunc estimates the in-memory footprint of a value in bytes. Estimates
// that are zero or negative fall back to DefaultSizeEstimate.
type SizeFunc[V any] func(v V) int64

// JSONSize estimates a value's footprint as twice its JSON encoding length,
// covering Go object overhead beyond the raw bytes. Values that cannot be
// encoded fall back to DefaultSizeEstimate.
func JSONSize[V any](v V) int64 {
	b, err := json.Marshal(v)
	if err != nil {
		return DefaultSizeEstimate
	}
	return int64(len(b)) * 2
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	// Entries is the number of live entries.
	Entries int

	// Memory is the estimated footprint of live entries in bytes.
	Memory int64

	// Hits counts reads served from the cache.
	Hits uint64

	// LiveHits counts the hits carried by entries still resident. An entry
	// takes its hits with it when it leaves.
	LiveHits uint64

	// Misses counts reads that found nothing live, including expirations.
	Misses uint64

	// Evictions counts entries dropped to stay within bounds.
	Evictions uint64

	// Expirations counts entries dropped because their TTL lapsed.
	Expirations uint64
}

// HitRate returns hits as a fraction of all reads, or 0 when nothing has
// been read yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// AvgHitsPerEntry returns how often the average live entry has been read,
// or 0 when the cache is empty. Low values alongside a full cache suggest
// the bounds are churning entries before they pay off.
func (s Stats) AvgHitsPerEntry() float64 {
	if s.Entries == 0 {
		return 0
	}
	return float64(s.LiveHits) / float64(s.Entries)
}

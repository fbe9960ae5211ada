package events

import (
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
)

// DeduplicationConfig holds configuration for event deduplication
type DeduplicationConfig struct {
	TTL       time.Duration
	HighWater int // entry count above which expired entries are swept
}

// DefaultDeduplicationConfig returns the default window and sweep mark
func DefaultDeduplicationConfig() DeduplicationConfig {
	return DeduplicationConfig{
		TTL:       120 * time.Second,
		HighWater: 4000,
	}
}

// DeduplicationStats is a point-in-time view of the deduplicator
type DeduplicationStats struct {
	TotalSeen       uint64
	TotalSuppressed uint64
	Sweeps          uint64
	CacheSize       int
}

// Deduplicator suppresses events whose (kind, round) was already handled
// within the TTL. Expired keys stay in the cache until the entry count
// passes the high-water mark, then all expired keys are swept at once.
type Deduplicator struct {
	cache     *cache.Cache
	highWater int

	totalSeen       atomic.Uint64
	totalSuppressed atomic.Uint64
	sweeps          atomic.Uint64
}

// NewDeduplicator creates a deduplicator. Zero config values fall back to
// the defaults.
func NewDeduplicator(cfg DeduplicationConfig) *Deduplicator {
	def := DefaultDeduplicationConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.HighWater <= 0 {
		cfg.HighWater = def.HighWater
	}

	return &Deduplicator{
		// cleanup interval 0 disables the janitor goroutine; sweeping is
		// driven by ShouldProcess
		cache:     cache.New(cfg.TTL, 0),
		highWater: cfg.HighWater,
	}
}

// ShouldProcess reports whether ev is new within the TTL window and, if so,
// records it. The check and the insert are a single atomic step.
func (d *Deduplicator) ShouldProcess(ev *Event) bool {
	return d.ShouldProcessKey(ev.Key())
}

// ShouldProcessKey is ShouldProcess for a precomputed key
func (d *Deduplicator) ShouldProcessKey(key string) bool {
	d.totalSeen.Add(1)

	// Add fails only when an unexpired entry exists
	if err := d.cache.Add(key, struct{}{}, cache.DefaultExpiration); err != nil {
		d.totalSuppressed.Add(1)
		return false
	}

	if d.cache.ItemCount() > d.highWater {
		d.cache.DeleteExpired()
		d.sweeps.Add(1)
	}
	return true
}

// GetStats returns counters and the current entry count, expired entries included
func (d *Deduplicator) GetStats() DeduplicationStats {
	return DeduplicationStats{
		TotalSeen:       d.totalSeen.Load(),
		TotalSuppressed: d.totalSuppressed.Load(),
		Sweeps:          d.sweeps.Load(),
		CacheSize:       d.cache.ItemCount(),
	}
}

package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDeduplicatorSuppressesWithinTTL(t *testing.T) {
	t.Parallel()

	dedup := NewDeduplicator(DeduplicationConfig{TTL: 50 * time.Millisecond, HighWater: 100})
	ev := &Event{Kind: KindTimeout, Round: 10}

	assert.True(t, dedup.ShouldProcess(ev), "first occurrence should be processed")
	assert.False(t, dedup.ShouldProcess(ev), "duplicate within TTL should be suppressed")
	assert.True(t, dedup.ShouldProcess(&Event{Kind: KindFinalizedBlock, Round: 10}), "different kind is a different key")
	assert.True(t, dedup.ShouldProcess(&Event{Kind: KindTimeout, Round: 11}), "different round is a different key")

	stats := dedup.GetStats()
	assert.Equal(t, uint64(4), stats.TotalSeen)
	assert.Equal(t, uint64(1), stats.TotalSuppressed)
	assert.Equal(t, 3, stats.CacheSize)

	require.Eventually(t, func() bool { return dedup.ShouldProcess(ev) },
		time.Second, 10*time.Millisecond, "same key after TTL should be processed again")
	assert.False(t, dedup.ShouldProcess(ev))
}

func TestDeduplicatorSweepsPastHighWater(t *testing.T) {
	t.Parallel()

	dedup := NewDeduplicator(DeduplicationConfig{TTL: 20 * time.Millisecond, HighWater: 3})

	assert.True(t, dedup.ShouldProcessKey("a"))
	assert.True(t, dedup.ShouldProcessKey("b"))
	require.Eventually(t, func() bool {
		_, okA := dedup.cache.Get("a")
		_, okB := dedup.cache.Get("b")
		return !okA && !okB
	}, time.Second, 5*time.Millisecond)

	assert.True(t, dedup.ShouldProcessKey("c"))
	assert.Equal(t, 3, dedup.GetStats().CacheSize, "expired entries linger below the mark")
	assert.Zero(t, dedup.GetStats().Sweeps)

	assert.True(t, dedup.ShouldProcessKey("d"))
	stats := dedup.GetStats()
	assert.Equal(t, uint64(1), stats.Sweeps)
	assert.Equal(t, 2, stats.CacheSize, "a and b swept, c and d kept")
}

func TestDeduplicatorConcurrentSameKey(t *testing.T) {
	t.Parallel()

	dedup := NewDeduplicator(DeduplicationConfig{TTL: time.Minute})
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	for range 32 {
		wg.Go(func() {
			if dedup.ShouldProcessKey("timeout:7") {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
}

func TestDeduplicatorDefaults(t *testing.T) {
	t.Parallel()

	dedup := NewDeduplicator(DeduplicationConfig{})
	assert.Equal(t, 4000, dedup.highWater)
}

func TestDeduplicatorFirstSightingProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		dedup := NewDeduplicator(DeduplicationConfig{TTL: time.Hour, HighWater: 10})
		rounds := rapid.SliceOf(rapid.Int64Range(0, 20)).Draw(t, "rounds")

		seen := map[int64]bool{}
		for _, r := range rounds {
			got := dedup.ShouldProcess(&Event{Kind: KindTimeout, Round: r})
			if got == seen[r] {
				t.Fatalf("round %d: ShouldProcess=%v after seen=%v", r, got, seen[r])
			}
			seen[r] = true
		}
		if n := dedup.GetStats().CacheSize; n != len(seen) {
			t.Fatalf("cache holds %d keys, want %d", n, len(seen))
		}
	})
}

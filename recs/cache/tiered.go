package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/recwise/recwise/recs"
	"github.com/recwise/recwise/recs/metrics"
)

// FastTTL is the fixed fast-tier lifetime, used both for direct writes
// and for backfills from durable hits. Backfilled entries deliberately
// do not inherit the durable entry's remaining life: hot keys stay
// fast-tier-resident without pinning month-long TTLs in memory.
const FastTTL = 8 * time.Minute

// envelope wraps a stored set with its own freshness bookkeeping, so
// expiry holds even on stores without native TTL enforcement.
type envelope struct {
	Payload    *recs.RecommendationSet `json:"payload"`
	StoredAt   time.Time               `json:"storedAt"`
	TTLSeconds int64                   `json:"ttlSeconds"`
}

func (e envelope) expired(now time.Time) bool {
	return now.Sub(e.StoredAt) > time.Duration(e.TTLSeconds)*time.Second
}

// Tiered serves RecommendationSet lookups through a fast in-process
// tier backed by a durable shared store. Reads check fast then
// durable; durable hits backfill the fast tier. Writes go to both
// tiers, with the durable write best-effort.
type Tiered struct {
	fast    *Memory[string, *recs.RecommendationSet]
	durable Store
	exp     *metrics.Exporter
	fastTTL time.Duration
}

// NewTiered composes the two tiers. durable may be nil, leaving a
// purely in-process cache; exp may be nil to run unmetered.
func NewTiered(capacity int, durable Store, exp *metrics.Exporter) *Tiered {
	fast := NewMemory[string, *recs.RecommendationSet](capacity)
	fast.OnEvict = func(string) { exp.CacheEviction() }
	return &Tiered{
		fast:    fast,
		durable: durable,
		exp:     exp,
		fastTTL: FastTTL,
	}
}

// Get looks key up in the fast tier, then the durable tier. A durable
// hit backfills the fast tier with the short fixed TTL. The returned
// tier reports where the hit landed; misses report TierNone.
func (c *Tiered) Get(ctx context.Context, key string) (*recs.RecommendationSet, recs.Tier, bool) {
	if set, ok := c.fast.Get(key); ok {
		c.exp.CacheHit(string(recs.TierFast))
		return set, recs.TierFast, true
	}

	if c.durable != nil {
		if raw, ok := c.durable.Get(ctx, key); ok {
			var env envelope
			if err := json.Unmarshal([]byte(raw), &env); err != nil {
				slog.Warn("durable cache entry is not decodable", "key", key, "error", err)
			} else if env.Payload != nil && !env.expired(time.Now()) {
				c.fast.Set(key, env.Payload, c.fastTTL)
				c.exp.CacheBackfill()
				c.exp.CacheHit(string(recs.TierDurable))
				return env.Payload, recs.TierDurable, true
			}
		}
	}

	c.exp.CacheMiss()
	return nil, recs.TierNone, false
}

// Set writes both tiers. The fast tier gets the short fixed TTL,
// capped by ttl so a deliberately short-lived entry never outlives its
// request. The durable write carries the full ttl and its failure is
// logged, not propagated.
func (c *Tiered) Set(ctx context.Context, key string, set *recs.RecommendationSet, ttl time.Duration) {
	fastTTL := c.fastTTL
	if ttl < fastTTL {
		fastTTL = ttl
	}
	c.fast.Set(key, set, fastTTL)

	if c.durable == nil {
		return
	}

	raw, err := json.Marshal(envelope{
		Payload:    set,
		StoredAt:   time.Now().UTC(),
		TTLSeconds: int64(ttl / time.Second),
	})
	if err != nil {
		slog.Error("recommendation set is not encodable", "key", key, "error", err)
		return
	}

	if err := c.durable.Set(ctx, key, string(raw), ttl); err != nil {
		// Best-effort: a shared-store outage must not fail the write.
		slog.Warn("durable cache write failed", "key", key, "error", err)
	}
}

// Invalidate removes key from both tiers.
func (c *Tiered) Invalidate(ctx context.Context, key string) {
	c.fast.Remove(key)
	if c.durable != nil {
		if err := c.durable.Delete(ctx, key); err != nil {
			slog.Warn("durable cache delete failed", "key", key, "error", err)
		}
	}
}

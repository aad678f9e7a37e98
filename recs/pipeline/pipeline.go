// Package pipeline orchestrates recommendation retrieval: input
// validation, cache lookup, upstream generation, tolerant parsing,
// fallback completion and cache write-through. Its guiding rule is
// that a caller always receives a complete, well-formed set annotated
// with provenance; only unusable input is a hard failure.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/recwise/recwise/recs"
	"github.com/recwise/recwise/recs/fallback"
	"github.com/recwise/recwise/recs/metrics"
	"github.com/recwise/recwise/recs/parse"
	"github.com/recwise/recwise/recs/policy"
)

// failureTTL caches a synthesized set produced after an upstream
// failure. Short on purpose: it shields the upstream from a retry
// storm on a hot key without pinning placeholder data for weeks.
const failureTTL = 8 * time.Minute

// requestCeiling bounds one pipeline invocation end to end, on top of
// the client's per-attempt timeouts, so a pathological retry sequence
// cannot run unbounded.
const requestCeiling = 30 * time.Second

// Generator produces raw completion text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt, apiKey string) (string, error)
}

// Cache is the tiered recommendation cache.
type Cache interface {
	Get(ctx context.Context, key string) (*recs.RecommendationSet, recs.Tier, bool)
	Set(ctx context.Context, key string, set *recs.RecommendationSet, ttl time.Duration)
}

// Result is one pipeline answer plus provenance metadata.
type Result struct {
	Set           *recs.RecommendationSet
	Cached        bool
	Tier          recs.Tier
	UsingFallback bool
	Latency       time.Duration
}

// Pipeline wires the generator, parser, synthesizer and cache into
// the recommendation flow. Construct one per service instance; it is
// safe for concurrent use. Concurrent requests for the same key are
// not coalesced: redundant fetches race to populate the cache and the
// last writer wins with equivalent data.
type Pipeline struct {
	gen   Generator
	cache Cache
	exp   *metrics.Exporter
	now   func() time.Time
}

// New creates a pipeline. exp may be nil to run unmetered.
func New(gen Generator, cache Cache, exp *metrics.Exporter) *Pipeline {
	return &Pipeline{
		gen:   gen,
		cache: cache,
		exp:   exp,
		now:   time.Now,
	}
}

// Recommend returns the recommendation set for a product. apiKey is an
// optional caller-supplied upstream credential. The only error ever
// returned is recs.ErrInvalidInput; upstream and cache trouble degrade
// to synthesized data instead.
func (p *Pipeline) Recommend(ctx context.Context, d recs.ProductDescriptor, apiKey string) (*Result, error) {
	start := p.now()

	if err := d.Validate(); err != nil {
		return nil, err
	}
	key, err := policy.DeriveKey(d)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestCeiling)
	defer cancel()

	if set, tier, ok := p.cache.Get(ctx, key); ok {
		latency := p.now().Sub(start)
		p.exp.RequestLatency(latency)
		slog.Debug("recommendation served from cache",
			"key", key,
			"tier", tier,
			"latency_ms", latency.Milliseconds(),
		)
		return &Result{
			Set:           set,
			Cached:        true,
			Tier:          tier,
			UsingFallback: set.Source == recs.SourceFallback,
			Latency:       latency,
		}, nil
	}

	set, synthesized, ttl := p.fetch(ctx, d, apiKey)
	p.cache.Set(ctx, key, set, ttl)

	latency := p.now().Sub(start)
	p.exp.RequestLatency(latency)
	p.exp.FallbackRecords(synthesized)

	slog.Info("recommendation generated",
		"key", key,
		"source", set.Source,
		"synthesized_records", synthesized,
		"latency_ms", latency.Milliseconds(),
	)

	return &Result{
		Set:           set,
		Cached:        false,
		Tier:          recs.TierNone,
		UsingFallback: synthesized > 0,
		Latency:       latency,
	}, nil
}

// fetch produces a complete set from the upstream generator, degrading
// to pure synthesis when the call fails. It returns the set, how many
// records were synthesized, and the TTL to cache under.
func (p *Pipeline) fetch(ctx context.Context, d recs.ProductDescriptor, apiKey string) (*recs.RecommendationSet, int, time.Duration) {
	text, err := p.gen.Generate(ctx, recs.BuildPrompt(d), apiKey)
	if err != nil {
		// Degrade, never propagate: the synthesized set is cached
		// briefly so a failing upstream is not hammered per request.
		slog.Error("upstream generation failed, synthesizing fallback",
			"category", d.CategoryOrDefault(),
			"error", err,
		)
		return &recs.RecommendationSet{
			Records:     fallback.Fill(nil, d),
			Source:      recs.SourceFallback,
			GeneratedAt: p.now().UTC(),
		}, len(recs.Labels), failureTTL
	}

	parsed := parse.Parse(text, d)
	records := fallback.Fill(parsed, d)
	synthesized := len(records) - len(parsed)

	source := recs.SourceModel
	ttl := policy.TTLFor(d.Category)
	if len(parsed) == 0 {
		// A fully unusable answer is cached as briefly as a transport
		// failure; placeholder data must not live out the category TTL.
		source = recs.SourceFallback
		ttl = failureTTL
	}

	return &recs.RecommendationSet{
		Records:     records,
		Source:      source,
		GeneratedAt: p.now().UTC(),
	}, synthesized, ttl
}

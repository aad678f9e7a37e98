// Package policy holds the pure cache-key and freshness rules shared
// by the recommendation pipeline and its cache tiers.
package policy

import (
	"regexp"
	"strings"
	"time"

	"github.com/recwise/recwise/recs"
)

// titlePrefixLen bounds title-derived keys. Truncation is intentional:
// near-duplicate titles collapse to one key, trading precision for
// cache hit-rate.
const titlePrefixLen = 40

var whitespace = regexp.MustCompile(`\s+`)

// DeriveKey derives the cache key for a product. Identifier-based keys
// are stable across title drift; title-based keys are normalized and
// truncated. Returns recs.ErrInvalidInput when neither identifier nor
// title is usable.
func DeriveKey(d recs.ProductDescriptor) (string, error) {
	id := strings.TrimSpace(d.Identifier)
	title := strings.TrimSpace(d.Title)

	var key string
	switch {
	case id != "":
		key = "id:" + id
	case title != "":
		prefix := title
		if len(prefix) > titlePrefixLen {
			prefix = prefix[:titlePrefixLen]
		}
		key = "title:" + normalize(prefix)
	default:
		return "", recs.ErrInvalidInput
	}

	if cat := strings.TrimSpace(d.Category); cat != "" {
		key += ":cat:" + normalize(cat)
	}
	return key, nil
}

func normalize(s string) string {
	return whitespace.ReplaceAllString(strings.ToLower(s), "_")
}

const day = 24 * time.Hour

// categoryTTLs maps category keywords to durable-tier freshness.
// Matching is case-insensitive substring matching in declaration
// order; the first match wins. Slow-moving categories keep entries
// longer than fast-moving ones.
var categoryTTLs = []struct {
	keyword string
	ttl     time.Duration
}{
	{"electronics", 30 * day},
	{"books", 90 * day},
	{"fashion", 60 * day},
	{"kitchen", 45 * day},
	{"home", 60 * day},
	{"beauty", 30 * day},
	{"toys", 60 * day},
}

// DefaultTTL applies when the category is absent or matches no table
// entry.
const DefaultTTL = 45 * day

// TTLFor returns the durable-tier TTL for a product category.
func TTLFor(category string) time.Duration {
	if category == "" {
		return DefaultTTL
	}
	lowered := strings.ToLower(category)
	for _, entry := range categoryTTLs {
		if strings.Contains(lowered, entry.keyword) {
			return entry.ttl
		}
	}
	return DefaultTTL
}

package recs

import (
	"time"
)

// Label classifies one recommendation within a set. Every complete set
// carries each label exactly once.
type Label string

const (
	LabelBetterValue Label = "BetterValue"
	LabelPremium     Label = "Premium"
	LabelMostPopular Label = "MostPopular"
)

// Labels is the closed label set in fixed precedence order. Records in
// a RecommendationSet are always ordered this way.
var Labels = []Label{LabelBetterValue, LabelPremium, LabelMostPopular}

// Qualifier returns the human-facing phrasing used in prompts and
// synthesized titles ("Better Value Alternative", etc.).
func (l Label) Qualifier() string {
	switch l {
	case LabelBetterValue:
		return "Better Value"
	case LabelPremium:
		return "Premium"
	case LabelMostPopular:
		return "Most Popular"
	}
	return string(l)
}

// Precedence returns the label's position in the fixed ordering, or
// len(Labels) for an unknown label.
func (l Label) Precedence() int {
	for i, known := range Labels {
		if l == known {
			return i
		}
	}
	return len(Labels)
}

// Record is one suggested alternative product.
type Record struct {
	Title       string `json:"title"`
	Price       string `json:"price"`
	Reason      string `json:"reason"`
	Label       Label  `json:"type"`
	Brand       string `json:"brand,omitempty"`
	Rating      string `json:"rating,omitempty"`
	ReviewCount string `json:"reviewCount,omitempty"`
}

// Source identifies how a RecommendationSet was produced.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// RecommendationSet is the complete, ordered answer for one product:
// exactly one record per label, in label precedence order. It is
// immutable once built and is shared read-only between the cache and
// the response envelope.
type RecommendationSet struct {
	Records     []Record  `json:"recommendations"`
	Source      Source    `json:"source"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Tier names where a cache lookup was satisfied.
type Tier string

const (
	TierFast    Tier = "fast"
	TierDurable Tier = "durable"
	TierNone    Tier = "none"
)

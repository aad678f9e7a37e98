package recs

import (
	"strings"
)

// ProductDescriptor is the product a caller is currently viewing.
// It is owned by the caller for the duration of one request and is
// never mutated by the pipeline.
type ProductDescriptor struct {
	// Identifier is the marketplace-assigned id (e.g. an ASIN).
	Identifier string `json:"asin,omitempty"`
	// Title is the product title. This is the only required field.
	Title    string  `json:"title"`
	Price    float64 `json:"price,omitempty"`
	Brand    string  `json:"brand,omitempty"`
	Category string  `json:"category,omitempty"`
}

// Validate checks that the descriptor is usable as pipeline input.
// A missing or blank title is the only fatal input error.
func (d ProductDescriptor) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrInvalidInput
	}
	return nil
}

// CategoryOrDefault returns the descriptor category, or "General" when
// the caller did not supply one.
func (d ProductDescriptor) CategoryOrDefault() string {
	if d.Category == "" {
		return "General"
	}
	return d.Category
}

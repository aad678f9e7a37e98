package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recwise/recwise/recs"
)

func TestDeriveKey_IdentifierWins(t *testing.T) {
	testCases := []struct {
		name       string
		descriptor recs.ProductDescriptor
		expectKey  string
	}{
		{
			"identifier only",
			recs.ProductDescriptor{Identifier: "B0863TXGM3", Title: "Sony WH-1000XM4"},
			"id:B0863TXGM3",
		},
		{
			"identifier with category",
			recs.ProductDescriptor{Identifier: "B0863TXGM3", Title: "Sony WH-1000XM4", Category: "Electronics"},
			"id:B0863TXGM3:cat:electronics",
		},
		{
			"category whitespace normalized",
			recs.ProductDescriptor{Identifier: "X1", Category: "Home  Kitchen"},
			"id:X1:cat:home_kitchen",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := DeriveKey(tc.descriptor)
			require.NoError(t, err)
			assert.Equal(t, tc.expectKey, key)
		})
	}
}

func TestDeriveKey_SameIdentifierSameKey(t *testing.T) {
	a := recs.ProductDescriptor{Identifier: "B0863TXGM3", Title: "Sony WH-1000XM4 Headphones", Price: 299.99}
	b := recs.ProductDescriptor{Identifier: "B0863TXGM3", Title: "Sony WH1000XM4 (renewed)", Price: 199.99, Brand: "Sony"}

	keyA, err := DeriveKey(a)
	require.NoError(t, err)
	keyB, err := DeriveKey(b)
	require.NoError(t, err)
	assert.Equal(t, keyA, keyB, "title and price drift must not change identifier-based keys")
}

func TestDeriveKey_TitleFallback(t *testing.T) {
	key, err := DeriveKey(recs.ProductDescriptor{Title: "Sony WH-1000XM4 Wireless Noise Cancelling Headphones"})
	require.NoError(t, err)
	assert.Equal(t, "title:sony_wh-1000xm4_wireless_noise_cancell", key)

	// Near-duplicate titles beyond the prefix bound collapse.
	other, err := DeriveKey(recs.ProductDescriptor{Title: "Sony WH-1000XM4 Wireless Noise Cancelling Headphones, Black"})
	require.NoError(t, err)
	assert.Equal(t, key, other)
}

func TestDeriveKey_InvalidInput(t *testing.T) {
	for _, d := range []recs.ProductDescriptor{
		{},
		{Identifier: "  ", Title: "   "},
		{Price: 10, Brand: "Acme", Category: "Electronics"},
	} {
		_, err := DeriveKey(d)
		assert.ErrorIs(t, err, recs.ErrInvalidInput)
	}
}

func TestTTLFor(t *testing.T) {
	day := 24 * time.Hour
	testCases := []struct {
		category string
		expect   time.Duration
	}{
		{"Electronics", 30 * day},
		{"Books", 90 * day},
		{"books & literature", 90 * day},
		{"Home & Kitchen", 45 * day}, // "kitchen" is declared before "home"
		{"Beauty", 30 * day},
		{"", DefaultTTL},
		{"Garden", DefaultTTL},
	}

	for _, tc := range testCases {
		t.Run(tc.category, func(t *testing.T) {
			assert.Equal(t, tc.expect, TTLFor(tc.category))
		})
	}
}

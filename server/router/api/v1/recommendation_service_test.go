package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recwise/recwise/internal/profile"
	"github.com/recwise/recwise/recs"
	"github.com/recwise/recwise/recs/cache"
	"github.com/recwise/recwise/recs/pipeline"
)

type stubGenerator struct {
	completion string
	err        error
}

func (g *stubGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	return g.completion, g.err
}

const wellFormedCompletion = `**Better Value Alternative:** Anker Soundcore Q30 - $59.99
* Why it's better: More affordable with most of the features of the original product.

**Premium Alternative:** Bose QuietComfort Ultra - $429.00
* Why it's better: Superior noise cancellation and battery life.

**Most Popular Alternative:** Jabra Elite 85h - $179.99
* Why it's better: Highly rated by thousands of customers.`

func newTestService(t *testing.T, gen pipeline.Generator) *APIV1Service {
	t.Helper()
	tiered := cache.NewTiered(10, nil, nil)
	instanceProfile := &profile.Profile{Mode: "dev", Port: 8081}
	return NewAPIV1Service(instanceProfile, pipeline.New(gen, tiered, nil))
}

func performRequest(t *testing.T, service *APIV1Service, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	service.RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGetRecommendations(t *testing.T) {
	service := newTestService(t, &stubGenerator{completion: wellFormedCompletion})

	body := `{"product": {"asin": "B0863TXGM3", "title": "Sony WH-1000XM4 Wireless Headphones", "price": 299.99, "category": "Electronics"}}`
	rec := performRequest(t, service, body)
	require.Equal(t, http.StatusOK, rec.Code)

	response := &RecommendationResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), response))

	assert.Len(t, response.Recommendations, 3)
	assert.Equal(t, recs.SourceModel, response.Source)
	assert.False(t, response.Cached)
	assert.Equal(t, "none", response.Tier)
	assert.False(t, response.UsingFallback)
	assert.NotEmpty(t, response.RequestID)
	assert.NotEmpty(t, response.Timestamp)

	assert.Equal(t, "Anker Soundcore Q30", response.Recommendations[0].Title)
	assert.Equal(t, recs.LabelBetterValue, response.Recommendations[0].Label)
}

func TestGetRecommendationsSecondCallCached(t *testing.T) {
	service := newTestService(t, &stubGenerator{completion: wellFormedCompletion})
	body := `{"product": {"asin": "B0863TXGM3", "title": "Sony WH-1000XM4 Wireless Headphones", "price": 299.99, "category": "Electronics"}}`

	first := performRequest(t, service, body)
	require.Equal(t, http.StatusOK, first.Code)

	second := performRequest(t, service, body)
	require.Equal(t, http.StatusOK, second.Code)

	response := &RecommendationResponse{}
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), response))
	assert.True(t, response.Cached)
	assert.Equal(t, "fast", response.Tier)
}

func TestGetRecommendationsUpstreamFailureDegrades(t *testing.T) {
	service := newTestService(t, &stubGenerator{err: &recs.UpstreamError{StatusCode: 503, Body: "unavailable"}})

	body := `{"product": {"title": "Instant Pot Duo 7-in-1", "price": 99.99, "category": "Kitchen"}}`
	rec := performRequest(t, service, body)
	require.Equal(t, http.StatusOK, rec.Code)

	response := &RecommendationResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), response))
	assert.True(t, response.UsingFallback)
	assert.Equal(t, recs.SourceFallback, response.Source)
	assert.Len(t, response.Recommendations, 3)
}

func TestGetRecommendationsInvalidInput(t *testing.T) {
	service := newTestService(t, &stubGenerator{completion: wellFormedCompletion})

	rec := performRequest(t, service, `{"product": {"title": "   "}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	response := &errorResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), response))
	assert.NotEmpty(t, response.Message)
	assert.NotEmpty(t, response.RequestID)
}

func TestGetRecommendationsMalformedBody(t *testing.T) {
	service := newTestService(t, &stubGenerator{completion: wellFormedCompletion})

	rec := performRequest(t, service, `{"product": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/recwise/recwise/recs"
)

type RecommendationRequest struct {
	Product recs.ProductDescriptor `json:"product"`
	// APIKey is an upstream credential used only when the server has
	// none configured.
	APIKey string `json:"apiKey,omitempty"`
}

type RecommendationResponse struct {
	RequestID       string        `json:"requestId"`
	Recommendations []recs.Record `json:"recommendations"`
	Source          recs.Source   `json:"source"`
	Cached          bool          `json:"cached"`
	Tier            string        `json:"tier"`
	UsingFallback   bool          `json:"usingFallback"`
	LatencyMs       int64         `json:"latencyMs"`
	Timestamp       string        `json:"timestamp"`
}

type errorResponse struct {
	RequestID string `json:"requestId"`
	Message   string `json:"message"`
}

// GetRecommendations handles POST /api/v1/recommendations. Upstream or
// cache trouble never surfaces as an error status; the response then
// carries synthesized recommendations with usingFallback set.
func (s *APIV1Service) GetRecommendations(c echo.Context) error {
	requestID := uuid.NewString()

	request := &RecommendationRequest{}
	if err := c.Bind(request); err != nil {
		return c.JSON(http.StatusBadRequest, &errorResponse{
			RequestID: requestID,
			Message:   "malformed request body",
		})
	}

	result, err := s.Pipeline.Recommend(c.Request().Context(), request.Product, request.APIKey)
	if err != nil {
		if errors.Is(err, recs.ErrInvalidInput) {
			return c.JSON(http.StatusBadRequest, &errorResponse{
				RequestID: requestID,
				Message:   err.Error(),
			})
		}
		slog.Error("recommendation request failed", "requestId", requestID, "error", err)
		return c.JSON(http.StatusInternalServerError, &errorResponse{
			RequestID: requestID,
			Message:   "internal error",
		})
	}

	return c.JSON(http.StatusOK, &RecommendationResponse{
		RequestID:       requestID,
		Recommendations: result.Set.Records,
		Source:          result.Set.Source,
		Cached:          result.Cached,
		Tier:            string(result.Tier),
		UsingFallback:   result.UsingFallback,
		LatencyMs:       result.Latency.Milliseconds(),
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	})
}

package v1

import (
	"github.com/labstack/echo/v4"

	"github.com/recwise/recwise/internal/profile"
	"github.com/recwise/recwise/recs/pipeline"
)

type APIV1Service struct {
	Profile  *profile.Profile
	Pipeline *pipeline.Pipeline
}

func NewAPIV1Service(profile *profile.Profile, p *pipeline.Pipeline) *APIV1Service {
	return &APIV1Service{
		Profile:  profile,
		Pipeline: p,
	}
}

// RegisterRoutes registers the v1 REST endpoints with the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	group := echoServer.Group("/api/v1")
	group.POST("/recommendations", s.GetRecommendations)
}

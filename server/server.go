package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/recwise/recwise/internal/profile"
	"github.com/recwise/recwise/internal/version"
	"github.com/recwise/recwise/recs/cache"
	"github.com/recwise/recwise/recs/llm"
	"github.com/recwise/recwise/recs/metrics"
	"github.com/recwise/recwise/recs/pipeline"
	apiv1 "github.com/recwise/recwise/server/router/api/v1"
)

type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	pipeline   *pipeline.Pipeline
	exporter   *metrics.Exporter
}

func NewServer(ctx context.Context, instanceProfile *profile.Profile) (*Server, error) {
	e := echo.New()
	e.Debug = instanceProfile.IsDev()
	e.HideBanner = true
	e.HidePort = true

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	exporter := metrics.New(registry)

	s := &Server{
		Profile:    instanceProfile,
		echoServer: e,
		exporter:   exporter,
	}

	var durable cache.Store
	if instanceProfile.RedisURL != "" {
		redisStore, err := cache.NewRedisStore(ctx, instanceProfile.RedisURL)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect durable cache")
		}
		durable = redisStore
	} else {
		slog.Warn("no redis URL configured, running with the in-memory tier only")
	}
	tiered := cache.NewTiered(instanceProfile.CacheCapacity, durable, exporter)

	generator := llm.New(llm.Config{
		APIKey:     instanceProfile.GenAPIKey,
		BaseURL:    instanceProfile.GenBaseURL,
		Model:      instanceProfile.GenModel,
		Timeout:    time.Duration(instanceProfile.GenTimeout) * time.Second,
		MaxRetries: instanceProfile.GenRetries,
	}, exporter)

	s.pipeline = pipeline.New(generator, tiered, exporter)

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.BodyLimit("100K"))
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(30))))
	e.Use(requestLogger())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":    "ok",
			"version":   version.String(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	e.GET("/metrics", echo.WrapHandler(exporter.Handler()))

	apiV1Service := apiv1.NewAPIV1Service(instanceProfile, s.pipeline)
	apiV1Service.RegisterRoutes(e)

	return s, nil
}

func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("recwise stopped properly")
}

// requestLogger logs each request with its latency at debug level,
// and at warn level for non-2xx responses.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logger := slog.Debug
			if v.Status >= http.StatusBadRequest {
				logger = slog.Warn
			}
			logger("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.String(),
			)
			return nil
		},
	})
}

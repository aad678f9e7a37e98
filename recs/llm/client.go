// Package llm is the upstream client for the external text-generation
// endpoint. It isolates the pipeline from transport concerns: bounded
// per-attempt timeouts, retry with exponential backoff, and
// structured-error classification.
package llm

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/semaphore"

	"github.com/recwise/recwise/recs"
	"github.com/recwise/recwise/recs/metrics"
)

// Generation parameters. Low temperature keeps the output close to the
// requested format; the token bound fits three recommendations.
const (
	defaultModel       = "gemini-1.5-flash"
	defaultMaxTokens   = 800
	defaultTemperature = 0.1
	defaultTopP        = 0.85
)

// Retry policy: a small fixed budget with monotonically growing delay.
// Timeouts are enforced per attempt, never cumulatively, so one slow
// attempt cannot eat the whole budget.
const (
	defaultTimeout        = 12 * time.Second
	defaultMaxRetries     = 2
	defaultInitialBackoff = 300 * time.Millisecond
	defaultMaxElapsed     = 45 * time.Second
	defaultMaxConcurrent  = 4
)

// Config configures the upstream client. The endpoint speaks the
// OpenAI-compatible chat protocol; BaseURL selects the provider.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxTokens      int
	Temperature    float32
	TopP           float32
	Timeout        time.Duration // per attempt
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrent  int64
}

func (cfg *Config) applyDefaults() {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.TopP <= 0 {
		cfg.TopP = defaultTopP
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
}

// Client issues generation requests. Concurrent generations are
// bounded by a weighted semaphore so a burst of cache misses cannot
// flood the upstream endpoint.
type Client struct {
	cfg  Config
	base *openai.Client
	sem  *semaphore.Weighted
	exp  *metrics.Exporter
}

// New creates an upstream client. The API key may be empty when
// callers supply their own per request.
func New(cfg Config, exp *metrics.Exporter) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:  cfg,
		base: newAPIClient(cfg, cfg.APIKey),
		sem:  semaphore.NewWeighted(cfg.MaxConcurrent),
		exp:  exp,
	}
}

func newAPIClient(cfg Config, apiKey string) *openai.Client {
	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout + time.Second}
	return openai.NewClientWithConfig(clientConfig)
}

// Generate sends prompt to the generation endpoint and returns the raw
// completion text. The configured credential always wins; apiKey is
// used only when the server has none. With neither present the call
// fails with ErrAuthentication and is not retried. Transient failures
// are retried within the backoff budget; the retry sleep is
// cancellable through ctx.
func (c *Client) Generate(ctx context.Context, prompt, apiKey string) (string, error) {
	client := c.base
	switch {
	case apiKey == "" && c.cfg.APIKey == "":
		return "", recs.ErrAuthentication
	case c.cfg.APIKey == "":
		client = newAPIClient(c.cfg, apiKey)
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", errors.Wrap(err, "acquire generation slot")
	}
	defer c.sem.Release(1)

	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.InitialBackoff
	policy.Multiplier = 2
	policy.RandomizationFactor = 0 // monotonic, deterministic growth
	policy.MaxElapsedTime = defaultMaxElapsed

	var content string
	var lastErr error
	attempt := 0

	start := time.Now()
	err := backoff.Retry(func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		resp, err := client.CreateChatCompletion(attemptCtx, req)
		if err != nil {
			classified := classify(err)
			lastErr = classified
			if errors.Is(classified, recs.ErrAuthentication) {
				return backoff.Permanent(classified)
			}
			slog.Warn("upstream attempt failed",
				"attempt", attempt,
				"model", c.cfg.Model,
				"error", err,
			)
			return classified
		}

		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			lastErr = &recs.UpstreamError{StatusCode: http.StatusOK, Body: "empty completion"}
			return lastErr
		}

		content = resp.Choices[0].Message.Content
		slog.Debug("upstream generation succeeded",
			"attempt", attempt,
			"model", c.cfg.Model,
			"content_length", len(content),
			"tokens_total", resp.Usage.TotalTokens,
		)
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.cfg.MaxRetries)), ctx))

	elapsed := time.Since(start)
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		c.exp.UpstreamCall(statusOf(lastErr), elapsed)
		return "", lastErr
	}

	c.exp.UpstreamCall("ok", elapsed)
	return content, nil
}

// classify maps transport errors onto the pipeline's error taxonomy.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden {
			return recs.ErrAuthentication
		}
		return &recs.UpstreamError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusUnauthorized || reqErr.HTTPStatusCode == http.StatusForbidden {
			return recs.ErrAuthentication
		}
		return &recs.UpstreamError{StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return recs.ErrUpstreamTimeout
	}
	return err
}

func statusOf(err error) string {
	switch {
	case errors.Is(err, recs.ErrAuthentication):
		return "auth_error"
	case errors.Is(err, recs.ErrUpstreamTimeout):
		return "timeout"
	default:
		return "upstream_error"
	}
}

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recwise/recwise/recs"
)

func completionBody(content string) map[string]any {
	return map[string]any{
		"id":      "cmpl-test",
		"object":  "chat.completion",
		"model":   "gemini-1.5-flash",
		"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
		"usage":   map[string]any{"prompt_tokens": 100, "completion_tokens": 200, "total_tokens": 300},
	}
}

func errorBody(message string) map[string]any {
	return map[string]any{"error": map[string]any{"message": message, "type": "server_error"}}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{
		APIKey:         "test-key",
		BaseURL:        srv.URL,
		InitialBackoff: time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, nil)
}

func TestGenerate_Success(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(completionBody("**Premium Alternative:** Bose QC Ultra - $429.00"))
	}, nil)

	content, err := client.Generate(context.Background(), "prompt", "")
	require.NoError(t, err)
	assert.Contains(t, content, "Bose QC Ultra")
	assert.Equal(t, int32(1), calls.Load(), "success must not retry")
}

func TestGenerate_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(errorBody("overloaded"))
			return
		}
		_ = json.NewEncoder(w).Encode(completionBody("recovered"))
	}, nil)

	content, err := client.Generate(context.Background(), "prompt", "")
	require.NoError(t, err)
	assert.Equal(t, "recovered", content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerate_UpstreamErrorAfterBudget(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(errorBody("boom"))
	}, func(cfg *Config) { cfg.MaxRetries = 2 })

	_, err := client.Generate(context.Background(), "prompt", "")
	require.Error(t, err)

	var upstreamErr *recs.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusInternalServerError, upstreamErr.StatusCode)
	assert.Contains(t, upstreamErr.Body, "boom")
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
}

func TestGenerate_AuthErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(errorBody("bad key"))
	}, nil)

	_, err := client.Generate(context.Background(), "prompt", "")
	assert.ErrorIs(t, err, recs.ErrAuthentication)
	assert.Equal(t, int32(1), calls.Load(), "authentication failures are permanent")
}

func TestGenerate_MissingCredentials(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, func(cfg *Config) { cfg.APIKey = "" })

	_, err := client.Generate(context.Background(), "prompt", "")
	assert.ErrorIs(t, err, recs.ErrAuthentication)
	assert.Equal(t, int32(0), calls.Load(), "no request without credentials")
}

func TestGenerate_CallerSuppliedKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer caller-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(completionBody("ok"))
	}, func(cfg *Config) { cfg.APIKey = "" })

	content, err := client.Generate(context.Background(), "prompt", "caller-key")
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
}

func TestGenerate_ConfiguredKeyWinsOverCallerKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(completionBody("ok"))
	}, nil)

	content, err := client.Generate(context.Background(), "prompt", "caller-key")
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
}

func TestGenerate_TimeoutPerAttempt(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(300 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(completionBody("too late"))
	}, func(cfg *Config) {
		cfg.Timeout = 30 * time.Millisecond
		cfg.MaxRetries = 1
	})

	_, err := client.Generate(context.Background(), "prompt", "")
	assert.ErrorIs(t, err, recs.ErrUpstreamTimeout)
	assert.Equal(t, int32(2), calls.Load(), "each attempt is independently time-bounded")
}

func TestGenerate_CancelledContextStopsRetrying(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(errorBody("overloaded"))
	}, func(cfg *Config) {
		cfg.MaxRetries = 10
		cfg.InitialBackoff = time.Hour // cancellation must cut the sleep short
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Generate(ctx, "prompt", "")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "no retry may outlive the request")
}

package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Store is the durable shared tier: a plain key/value interface with
// per-key TTL, values serialized as text. Implementations degrade
// gracefully; a broken store manifests as misses, never as pipeline
// failures.
type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool)
	// Set stores value under key for ttl. Errors are reported so the
	// caller can log them, but callers treat the write as best-effort.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key.
	Delete(ctx context.Context, key string) error
}

// defaultQueryTimeout bounds every durable-store operation so a slow
// shared store cannot stall a request; a timed-out read is a miss.
const defaultQueryTimeout = 2 * time.Second

// RedisStore is the Redis-backed durable tier.
type RedisStore struct {
	client       *redis.Client
	queryTimeout time.Duration
}

// NewRedisStore parses redisURL, verifies the connection with a ping
// and returns the store. The returned store owns the client.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}

	return &RedisStore{client: client, queryTimeout: defaultQueryTimeout}, nil
}

// NewRedisStoreFromClient wraps an existing client; the caller keeps
// ownership of its lifecycle. Used by tests against miniredis.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, queryTimeout: defaultQueryTimeout}
}

// Get returns the value for key, treating every error as a miss.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("durable cache read failed", "key", key, "error", err)
		}
		return "", false
	}
	return val, true
}

// Set stores value under key with ttl.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Wrapf(err, "redis set %s", key)
	}
	return nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrapf(err, "redis del %s", key)
	}
	return nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

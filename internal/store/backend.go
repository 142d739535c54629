package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend is the minimal hash-capable key-value surface the Store needs.
// redisBackend is the only production implementation; tests substitute a
// fake for unit coverage without a running Redis instance.
type Backend interface {
	Exists(ctx context.Context, key string) (bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HMSet(ctx context.Context, key string, fields map[string]string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	Save(ctx context.Context) error
}

// redisBackend adapts a *redis.Client to Backend.
type redisBackend struct {
	client *redis.Client
}

// NewRedisBackend opens a connection to a Redis-compatible hash store.
func NewRedisBackend(addr, password string, db int) Backend {
	return &redisBackend{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (b *redisBackend) Exists(ctx context.Context, key string) (bool, error) {
	n, err := b.client.Exists(ctx, key).Result()
	return n > 0, err
}

func (b *redisBackend) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return b.client.HGetAll(ctx, key).Result()
}

func (b *redisBackend) HMSet(ctx context.Context, key string, fields map[string]string) error {
	anyFields := make(map[string]any, len(fields))
	for k, v := range fields {
		anyFields[k] = v
	}
	return b.client.HSet(ctx, key, anyFields).Err()
}

func (b *redisBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := b.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func (b *redisBackend) Save(ctx context.Context) error {
	return b.client.BgSave(ctx).Err()
}

// isTransient reports whether err is the kind of connect/loading failure
// spec §4.1 says to retry with fixed delay: the backend still warming up
// or momentarily unreachable.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, redis.ErrClosed) {
		return true
	}
	var loading interface{ Error() string }
	if errors.As(err, &loading) {
		msg := loading.Error()
		if containsAny(msg, "LOADING", "connect: connection refused", "i/o timeout", "broken pipe") {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if len(sub) > 0 && indexOf(s, sub) >= 0 {
			return true
		}
	}
	return false
}

func indexOf(s, sub string) int {
	n, m := len(s), len(sub)
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return i
		}
	}
	return -1
}

// RetryConfig bounds the transient-failure retry behavior of every Backend
// call issued through Store.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryConfig matches spec §4.1's default: 5 attempts, 5s apart.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Attempts: 5, Delay: 5 * time.Second}
}

func withRetry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !isTransient(err) {
			return zero, err
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(cfg.Delay):
		}
	}
	return zero, fmt.Errorf("store: backend unavailable after %d attempts: %w", attempts, lastErr)
}

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the client shared by every Redis-backed adapter and carries the
// per-call timeout applied to store round trips.
type Redis struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedis creates a new Redis store handle.
// The redisURL should be in the format: redis://[:password@]host[:port][/database]
func NewRedis(redisURL string, timeout time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	return &Redis{
		client:  redis.NewClient(opts),
		timeout: timeout,
	}, nil
}

// Client exposes the underlying go-redis client.
func (r *Redis) Client() *redis.Client {
	return r.client
}

// Bound derives a context limited by the store timeout. A zero timeout leaves ctx untouched.
func (r *Redis) Bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Ping checks if Redis is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := r.Bound(ctx)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

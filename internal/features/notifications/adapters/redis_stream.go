package adapters

import (
	"context"
	"fmt"
	"time"

	"fulfillment-engine/internal/core/store"
	"fulfillment-engine/internal/features/notifications/domain"

	"github.com/redis/go-redis/v9"
)

// streamMaxLen caps the stream so an absent consumer cannot grow it without bound.
const streamMaxLen = 10000

// RedisStreamPublisher appends events to a Redis stream, trimmed to roughly maxLen entries.
type RedisStreamPublisher struct {
	db     *store.Redis
	stream string
	maxLen int64
}

// NewRedisStreamPublisher creates a new RedisStreamPublisher.
func NewRedisStreamPublisher(db *store.Redis, stream string) *RedisStreamPublisher {
	return &RedisStreamPublisher{db: db, stream: stream, maxLen: streamMaxLen}
}

func (p *RedisStreamPublisher) Name() string { return "redis" }

// Publish adds the envelope as one stream entry.
func (p *RedisStreamPublisher) Publish(ctx context.Context, env domain.Envelope) error {
	err := p.db.Client().XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"id":          env.ID,
			"type":        env.Type,
			"source":      env.Source,
			"key":         env.Key,
			"occurred_at": env.OccurredAt.Format(time.RFC3339Nano),
			"payload":     string(env.Payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append to stream %s: %w", p.stream, err)
	}
	return nil
}

// Close is a no-op; the shared client is owned by the caller.
func (p *RedisStreamPublisher) Close() error { return nil }

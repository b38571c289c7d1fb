package adapters

import (
	"context"

	"fulfillment-engine/internal/core/logger"
	"fulfillment-engine/internal/features/notifications/domain"

	"go.uber.org/zap"
)

// LogPublisher writes events to the application log.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Name() string { return "log" }

func (p *LogPublisher) Publish(_ context.Context, env domain.Envelope) error {
	logger.Get().Info("Domain event",
		zap.String("event_id", env.ID),
		zap.String("type", env.Type),
		zap.String("key", env.Key),
		zap.Time("occurred_at", env.OccurredAt),
		zap.ByteString("payload", env.Payload),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

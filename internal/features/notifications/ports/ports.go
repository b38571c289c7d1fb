package ports

import (
	"context"

	"fulfillment-engine/internal/features/notifications/domain"
)

// Publisher delivers envelopes to one external sink.
type Publisher interface {
	// Name identifies the sink in logs.
	Name() string
	Publish(ctx context.Context, env domain.Envelope) error
	Close() error
}

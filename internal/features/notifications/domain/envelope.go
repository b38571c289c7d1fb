package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownSink is returned for sink names that have no publisher.
var ErrUnknownSink = errors.New("unknown event sink")

// Keyed is implemented by payloads that belong to an aggregate. Sinks that
// partition (kafka) use the key so one aggregate's events stay ordered.
type Keyed interface {
	EventKey() string
}

// Envelope wraps a domain event for delivery.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Source     string          `json:"source"`
	Key        string          `json:"key,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope serializes payload into a new envelope.
func NewEnvelope(source, eventType string, payload any, now time.Time) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	env := Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		Source:     source,
		OccurredAt: now.UTC(),
		Payload:    body,
	}
	if k, ok := payload.(Keyed); ok {
		env.Key = k.EventKey()
	}
	return env, nil
}

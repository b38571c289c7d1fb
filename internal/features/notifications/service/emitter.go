package service

import (
	"context"
	"sync/atomic"
	"time"

	"fulfillment-engine/internal/core/logger"
	"fulfillment-engine/internal/features/notifications/domain"
	"fulfillment-engine/internal/features/notifications/ports"

	"go.uber.org/zap"
)

const (
	defaultBuffer         = 256
	defaultPublishTimeout = 5 * time.Second
)

// Options tune the emitter.
type Options struct {
	// Source is stamped on every envelope.
	Source string
	// Buffer is the queue capacity. Events beyond it are dropped.
	Buffer int
	// PublishTimeout bounds one publish to one sink.
	PublishTimeout time.Duration
}

// Emitter queues domain events in memory and delivers them to every sink
// from a single background loop. Emit never blocks.
type Emitter struct {
	queue   chan domain.Envelope
	sinks   []ports.Publisher
	source  string
	timeout time.Duration

	dropped   atomic.Int64
	delivered atomic.Int64
	now       func() time.Time
}

// NewEmitter creates a new Emitter. Call Run to start delivery.
func NewEmitter(sinks []ports.Publisher, opts Options) *Emitter {
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}
	return &Emitter{
		queue:   make(chan domain.Envelope, opts.Buffer),
		sinks:   sinks,
		source:  opts.Source,
		timeout: opts.PublishTimeout,
		now:     time.Now,
	}
}

// Emit enqueues an event. When the queue is full the event is dropped and logged.
func (e *Emitter) Emit(eventType string, payload any) {
	env, err := domain.NewEnvelope(e.source, eventType, payload, e.now())
	if err != nil {
		e.dropped.Add(1)
		logger.Get().Error("Dropping unserializable event", zap.String("type", eventType), zap.Error(err))
		return
	}

	select {
	case e.queue <- env:
	default:
		e.dropped.Add(1)
		logger.Get().Warn("Event queue full, dropping event",
			zap.String("event_id", env.ID),
			zap.String("type", env.Type),
			zap.Int("capacity", cap(e.queue)),
		)
	}
}

// Run delivers queued events until ctx is cancelled, then drains what is left
// and closes the sinks.
func (e *Emitter) Run(ctx context.Context) error {
	logger.Get().Info("Event emitter started", zap.Int("sinks", len(e.sinks)))

	for {
		select {
		case env := <-e.queue:
			e.dispatch(ctx, env)
		case <-ctx.Done():
			e.drain(ctx)
			e.closeSinks()
			return nil
		}
	}
}

func (e *Emitter) drain(ctx context.Context) {
	for {
		select {
		case env := <-e.queue:
			e.dispatch(ctx, env)
		default:
			return
		}
	}
}

// dispatch publishes to every sink. A failing sink does not stop the others.
// Publishes are bounded by the publish timeout only, so shutdown still delivers.
func (e *Emitter) dispatch(ctx context.Context, env domain.Envelope) {
	ctx = context.WithoutCancel(ctx)
	for _, sink := range e.sinks {
		pctx, cancel := context.WithTimeout(ctx, e.timeout)
		err := sink.Publish(pctx, env)
		cancel()

		if err != nil {
			logger.Get().Warn("Failed to publish event",
				zap.String("sink", sink.Name()),
				zap.String("event_id", env.ID),
				zap.String("type", env.Type),
				zap.Error(err),
			)
			continue
		}
		e.delivered.Add(1)
	}
}

func (e *Emitter) closeSinks() {
	for _, sink := range e.sinks {
		if err := sink.Close(); err != nil {
			logger.Get().Warn("Failed to close event sink", zap.String("sink", sink.Name()), zap.Error(err))
		}
	}
	logger.Get().Info("Event emitter stopped",
		zap.Int64("delivered", e.delivered.Load()),
		zap.Int64("dropped", e.dropped.Load()),
	)
}

// Dropped returns how many events were discarded.
func (e *Emitter) Dropped() int64 {
	return e.dropped.Load()
}

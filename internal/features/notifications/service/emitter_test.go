package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fulfillment-engine/internal/features/notifications/domain"
	"fulfillment-engine/internal/features/notifications/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSink records what it receives.
type fakeSink struct {
	name string
	err  error

	mu       sync.Mutex
	received []domain.Envelope
	closed   bool
	block    chan struct{}
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Publish(ctx context.Context, env domain.Envelope) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, env)
	return f.err
}

func (f *fakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSink) Received() []domain.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Envelope(nil), f.received...)
}

func (f *fakeSink) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestEmitter_DeliversToAllSinks(t *testing.T) {
	good := &fakeSink{name: "good"}
	bad := &fakeSink{name: "bad", err: errors.New("broker down")}
	e := NewEmitter([]ports.Publisher{good, bad}, Options{Source: "test"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	e.Emit("order.created", map[string]string{"order_id": "o1"})
	e.Emit("order.status_changed", map[string]string{"order_id": "o1"})

	require.Eventually(t, func() bool { return len(good.Received()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Len(t, bad.Received(), 2, "a failing sink still receives every event")

	cancel()
	require.NoError(t, <-done)
	assert.True(t, good.Closed())
	assert.True(t, bad.Closed())

	got := good.Received()
	assert.Equal(t, "order.created", got[0].Type)
	assert.Equal(t, "test", got[0].Source)
	assert.Equal(t, "order.status_changed", got[1].Type)
}

func TestEmitter_DropsWhenFull(t *testing.T) {
	e := NewEmitter(nil, Options{Buffer: 2})

	for i := 0; i < 5; i++ {
		e.Emit("order.created", i)
	}

	assert.Equal(t, int64(3), e.Dropped())
	assert.Len(t, e.queue, 2)
}

func TestEmitter_EmitDoesNotBlockOnSlowSink(t *testing.T) {
	slow := &fakeSink{name: "slow", block: make(chan struct{})}
	e := NewEmitter([]ports.Publisher{slow}, Options{Buffer: 1, PublishTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	start := time.Now()
	for i := 0; i < 50; i++ {
		e.Emit("order.created", i)
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Positive(t, e.Dropped())
	close(slow.block)
}

func TestEmitter_DrainsOnShutdown(t *testing.T) {
	sink := &fakeSink{name: "sink"}
	e := NewEmitter([]ports.Publisher{sink}, Options{Buffer: 10})

	for i := 0; i < 4; i++ {
		e.Emit("order.created", i)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, e.Run(ctx))

	assert.Len(t, sink.Received(), 4)
	assert.True(t, sink.Closed())
}

func TestEmitter_UnserializablePayload(t *testing.T) {
	e := NewEmitter(nil, Options{})

	e.Emit("bad", make(chan int))

	assert.Equal(t, int64(1), e.Dropped())
	assert.Empty(t, e.queue)
}

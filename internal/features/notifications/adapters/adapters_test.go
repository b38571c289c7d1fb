package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fulfillment-engine/internal/core/config"
	"fulfillment-engine/internal/core/store"
	"fulfillment-engine/internal/features/notifications/domain"

	"github.com/alicebob/miniredis/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleEnvelope() domain.Envelope {
	return domain.Envelope{
		ID:         "6f1c2a9e-0000-4000-8000-000000000001",
		Type:       "order.created",
		Source:     "fulfillment-engine",
		Key:        "o1",
		OccurredAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Payload:    json.RawMessage(`{"order_id":"o1","total":220}`),
	}
}

func setupRedis(t *testing.T) (*store.Redis, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	db, err := store.NewRedis("redis://"+mr.Addr(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mr
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher()
	assert.Equal(t, "log", p.Name())
	assert.NoError(t, p.Publish(context.Background(), sampleEnvelope()))
	assert.NoError(t, p.Close())
}

func TestRedisStreamPublisher(t *testing.T) {
	db, _ := setupRedis(t)
	p := NewRedisStreamPublisher(db, "orders.events")

	require.NoError(t, p.Publish(context.Background(), sampleEnvelope()))
	require.NoError(t, p.Publish(context.Background(), sampleEnvelope()))

	entries, err := db.Client().XRange(context.Background(), "orders.events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "order.created", entries[0].Values["type"])
	assert.Equal(t, "o1", entries[0].Values["key"])
	assert.JSONEq(t, `{"order_id":"o1","total":220}`, entries[0].Values["payload"].(string))

	t.Run("Trimmed to max length", func(t *testing.T) {
		p := NewRedisStreamPublisher(db, "orders.trimmed")
		p.maxLen = 2

		for i := 0; i < 5; i++ {
			require.NoError(t, p.Publish(context.Background(), sampleEnvelope()))
		}

		n, err := db.Client().XLen(context.Background(), "orders.trimmed").Result()
		require.NoError(t, err)
		assert.LessOrEqual(t, n, int64(2))
	})
}

// MockWriter is a mock implementation of MessageWriter
type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockWriter) Close() error {
	return m.Called().Error(0)
}

func TestKafkaPublisher(t *testing.T) {
	t.Run("Keyed message", func(t *testing.T) {
		w := new(MockWriter)
		w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			var env domain.Envelope
			if err := json.Unmarshal(msgs[0].Value, &env); err != nil {
				return false
			}
			return string(msgs[0].Key) == "o1" && env.Type == "order.created" &&
				string(msgs[0].Headers[0].Value) == "order.created"
		})).Return(nil).Once()
		w.On("Close").Return(nil).Once()

		p := NewKafkaPublisherWithWriter(w)
		require.NoError(t, p.Publish(context.Background(), sampleEnvelope()))
		require.NoError(t, p.Close())
		w.AssertExpectations(t)
	})

	t.Run("Write failure", func(t *testing.T) {
		w := new(MockWriter)
		w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("leader not available"))

		err := NewKafkaPublisherWithWriter(w).Publish(context.Background(), sampleEnvelope())
		assert.ErrorContains(t, err, "leader not available")
	})

	t.Run("Requires brokers", func(t *testing.T) {
		_, err := NewKafkaPublisher(nil, "orders.events")
		assert.Error(t, err)
	})
}

// MockChannel is a mock implementation of Channel
type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

func (m *MockChannel) Close() error {
	return m.Called().Error(0)
}

func TestAMQPPublisher(t *testing.T) {
	ch := new(MockChannel)
	ch.On("PublishWithContext", mock.Anything, "orders", "order.created", false, false,
		mock.MatchedBy(func(msg amqp.Publishing) bool {
			return msg.MessageId == sampleEnvelope().ID &&
				msg.ContentType == "application/json" &&
				msg.DeliveryMode == amqp.Persistent
		})).Return(nil).Once()
	ch.On("Close").Return(nil).Once()

	p := NewAMQPPublisher(ch, "orders")
	assert.Equal(t, "amqp", p.Name())
	require.NoError(t, p.Publish(context.Background(), sampleEnvelope()))
	require.NoError(t, p.Close())
	ch.AssertExpectations(t)
}

func TestWebhookPublisher(t *testing.T) {
	t.Run("Posts the envelope", func(t *testing.T) {
		var gotAuth, gotType string
		var got domain.Envelope
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotType = r.Header.Get("X-Event-Type")
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &got)
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		p, err := NewWebhookPublisher(srv.URL, "s3cret", time.Second)
		require.NoError(t, err)
		require.NoError(t, p.Publish(context.Background(), sampleEnvelope()))

		assert.Equal(t, "Bearer s3cret", gotAuth)
		assert.Equal(t, "order.created", gotType)
		assert.Equal(t, "o1", got.Key)
		assert.NoError(t, p.Close())
	})

	t.Run("Error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		p, err := NewWebhookPublisher(srv.URL, "", time.Second)
		require.NoError(t, err)
		assert.ErrorContains(t, p.Publish(context.Background(), sampleEnvelope()), "status 502")
	})

	t.Run("Requires URL", func(t *testing.T) {
		_, err := NewWebhookPublisher("", "", time.Second)
		assert.Error(t, err)
	})
}

func TestBuildSinks(t *testing.T) {
	db, _ := setupRedis(t)

	t.Run("Log and redis", func(t *testing.T) {
		sinks, err := BuildSinks(config.EventsConfig{Sinks: "log, redis", Stream: "s"}, db)
		require.NoError(t, err)
		require.Len(t, sinks, 2)
		assert.Equal(t, "log", sinks[0].Name())
		assert.Equal(t, "redis", sinks[1].Name())
	})

	t.Run("Unknown sink", func(t *testing.T) {
		_, err := BuildSinks(config.EventsConfig{Sinks: "log,carrier-pigeon"}, db)
		assert.ErrorIs(t, err, domain.ErrUnknownSink)
	})

	t.Run("Misconfigured sink", func(t *testing.T) {
		_, err := BuildSinks(config.EventsConfig{Sinks: "webhook"}, db)
		assert.ErrorContains(t, err, "WEBHOOK_URL")
	})
}

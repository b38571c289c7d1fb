package adapters

import (
	"errors"
	"fmt"

	"fulfillment-engine/internal/core/config"
	"fulfillment-engine/internal/core/store"
	"fulfillment-engine/internal/features/notifications/domain"
	"fulfillment-engine/internal/features/notifications/ports"
)

// BuildSinks creates the publishers named in cfg. On error every publisher
// already created is closed.
func BuildSinks(cfg config.EventsConfig, db *store.Redis) ([]ports.Publisher, error) {
	var sinks []ports.Publisher
	fail := func(err error) ([]ports.Publisher, error) {
		for _, s := range sinks {
			err = errors.Join(err, s.Close())
		}
		return nil, err
	}

	for _, name := range cfg.SinkNames() {
		switch name {
		case "log":
			sinks = append(sinks, NewLogPublisher())
		case "redis":
			sinks = append(sinks, NewRedisStreamPublisher(db, cfg.Stream))
		case "kafka":
			p, err := NewKafkaPublisher(cfg.Brokers(), cfg.KafkaTopic)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, p)
		case "amqp":
			p, err := DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, p)
		case "webhook":
			p, err := NewWebhookPublisher(cfg.WebhookURL, cfg.WebhookToken, cfg.PublishTimeout)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, p)
		default:
			return fail(fmt.Errorf("%w: %s", domain.ErrUnknownSink, name))
		}
	}
	return sinks, nil
}

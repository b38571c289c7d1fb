package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`
	// ServiceName identifies this process in traces and event envelopes.
	ServiceName string `mapstructure:"SERVICE_NAME" default:"fulfillment-engine"`

	// Redis holds the authoritative datastore configuration.
	Redis RedisConfig `mapstructure:",squash"`

	// Checkout holds pricing and timeout rules for order placement.
	Checkout CheckoutConfig `mapstructure:",squash"`

	// Events holds the event emitter and sink configuration.
	Events EventsConfig `mapstructure:",squash"`

	// Telemetry holds the tracing exporter configuration.
	Telemetry TelemetryConfig `mapstructure:",squash"`
}

// RedisConfig holds the connection details for the Redis store.
type RedisConfig struct {
	// URL is the connection string, e.g. redis://[:password@]host[:port][/database].
	URL string `mapstructure:"REDIS_URL" required:"true"`
	// Timeout bounds every individual store round trip.
	Timeout time.Duration `mapstructure:"STORE_TIMEOUT" default:"3s"`
}

// CheckoutConfig holds the pricing rules applied by the order builder.
type CheckoutConfig struct {
	// Timeout bounds a whole checkout (reserve, persist, rollback).
	Timeout time.Duration `mapstructure:"CHECKOUT_TIMEOUT" default:"10s"`
	// FreeShippingThreshold is the subtotal from which shipping is free.
	FreeShippingThreshold int64 `mapstructure:"FREE_SHIPPING_THRESHOLD" default:"499"`
	// ShippingFlatFee is charged when the subtotal is below the threshold.
	ShippingFlatFee int64 `mapstructure:"SHIPPING_FLAT_FEE" default:"50"`
	// DefaultCountry fills shipping addresses sent without a country.
	DefaultCountry string `mapstructure:"DEFAULT_COUNTRY" default:"India"`
}

// EventsConfig holds the domain event delivery settings.
type EventsConfig struct {
	// Sinks is a comma separated list of: log, redis, kafka, amqp, webhook.
	Sinks string `mapstructure:"EVENT_SINKS" default:"log"`
	// Buffer is the capacity of the in-process event queue.
	Buffer int `mapstructure:"EVENT_BUFFER" default:"256"`
	// PublishTimeout bounds a single publish to a single sink.
	PublishTimeout time.Duration `mapstructure:"EVENT_PUBLISH_TIMEOUT" default:"5s"`
	// Stream is the Redis stream key used by the redis sink.
	Stream string `mapstructure:"EVENT_STREAM" default:"orders.events"`
	// KafkaBrokers is a comma separated broker list for the kafka sink.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// KafkaTopic is the topic written by the kafka sink.
	KafkaTopic string `mapstructure:"KAFKA_TOPIC" default:"orders.events"`
	// AMQPURL is the broker URL for the amqp sink.
	AMQPURL string `mapstructure:"AMQP_URL"`
	// AMQPExchange is the topic exchange used by the amqp sink.
	AMQPExchange string `mapstructure:"AMQP_EXCHANGE" default:"orders"`
	// WebhookURL receives events as JSON POSTs for the webhook sink.
	WebhookURL string `mapstructure:"WEBHOOK_URL"`
	// WebhookToken is sent as a bearer token to the webhook.
	WebhookToken string `mapstructure:"WEBHOOK_TOKEN"`
}

// SinkNames returns the configured sinks, lower-cased and trimmed.
func (e EventsConfig) SinkNames() []string {
	return splitList(e.Sinks)
}

// Brokers returns the configured Kafka brokers.
func (e EventsConfig) Brokers() []string {
	return splitList(e.KafkaBrokers)
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	// OTLPEndpoint is the collector host:port. Empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// processTags iterates over the struct fields, binds env keys and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			if err := v.BindEnv(key); err != nil {
				return fmt.Errorf("failed to bind %s: %w", key, err)
			}
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

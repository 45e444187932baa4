package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/multierr"

	"github.com/angelmondragon/courierline-backend/pkg/config"
)

// Sink delivers an encoded event to one transport.
type Sink interface {
	Name() string
	Publish(ctx context.Context, channels []string, ev Event, payload []byte) error
	Close() error
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) (int64, error)
}

// RedisSink PUBLISHes the payload once per channel.
type RedisSink struct {
	client redisPublisher
}

func NewRedisSink(client redisPublisher) (*RedisSink, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisSink{client: client}, nil
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Publish(ctx context.Context, channels []string, _ Event, payload []byte) error {
	var errs error
	for _, channel := range channels {
		if _, err := s.client.Publish(ctx, channel, payload); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("publish %s: %w", channel, err))
		}
	}
	return errs
}

func (s *RedisSink) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink appends one message per event keyed by order id, so a partition
// carries an order's events in order.
type KafkaSink struct {
	writer messageWriter
}

// NewKafkaWriter builds the tracking topic writer.
func NewKafkaWriter(cfg config.KafkaConfig) (*kafka.Writer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers required")
	}
	if cfg.TrackingTopic == "" {
		return nil, errors.New("kafka tracking topic required")
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TrackingTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, nil
}

func NewKafkaSink(writer messageWriter) (*KafkaSink, error) {
	if writer == nil {
		return nil, errors.New("kafka writer required")
	}
	return &KafkaSink{writer: writer}, nil
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Publish(ctx context.Context, _ []string, ev Event, payload []byte) error {
	key := ev.OrderID.String()
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(ev.Name)},
		},
	})
}

func (s *KafkaSink) Close() error { return s.writer.Close() }

type latestStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	TrackingLatestKey(orderID string) string
}

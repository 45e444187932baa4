package tracking

import (
	"fmt"

	"github.com/angelmondragon/courierline-backend/pkg/config"
	"github.com/angelmondragon/courierline-backend/pkg/logger"
)

type redisBackend interface {
	redisPublisher
	latestStore
}

// NewFromConfig builds the broadcaster used by the api and cron processes:
// Redis always, Kafka when the tracking stream feature is on.
func NewFromConfig(cfg *config.Config, client redisBackend, metrics failureCounter, logg *logger.Logger) (*Broadcaster, error) {
	redisSink, err := NewRedisSink(client)
	if err != nil {
		return nil, err
	}
	sinks := []Sink{redisSink}

	if cfg.Features.KafkaTracking {
		writer, err := NewKafkaWriter(cfg.Kafka)
		if err != nil {
			return nil, fmt.Errorf("kafka tracking sink: %w", err)
		}
		kafkaSink, err := NewKafkaSink(writer)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, kafkaSink)
	}

	return NewBroadcaster(BroadcasterParams{
		Logger:         logg,
		Sinks:          sinks,
		Latest:         client,
		Metrics:        metrics,
		PublishTimeout: cfg.Tracking.PublishTimeout,
		LatestTTL:      cfg.Tracking.LatestTTL,
	})
}

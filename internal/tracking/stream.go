package tracking

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/courierline-backend/pkg/logger"
)

type subscriber interface {
	Subscribe(ctx context.Context, channels ...string) (*redis.PubSub, error)
}

// Stream reads tracking events back from Redis pub/sub for live clients.
type Stream struct {
	client subscriber
	logg   *logger.Logger
}

func NewStream(client subscriber, logg *logger.Logger) (*Stream, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Stream{client: client, logg: logg}, nil
}

// Subscribe returns decoded events for the channels until ctx is done. The
// returned channel is closed when the subscription ends.
func (s *Stream) Subscribe(ctx context.Context, channels ...string) (<-chan Event, error) {
	sub, err := s.client.Subscribe(ctx, channels...)
	if err != nil {
		return nil, err
	}
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					s.logg.Warn(ctx, "dropping undecodable tracking message on "+msg.Channel)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

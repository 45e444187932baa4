package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/angelmondragon/courierline-backend/pkg/logger"
)

const (
	defaultPublishTimeout = 2 * time.Second
	defaultLatestTTL      = 24 * time.Hour
)

type failureCounter interface {
	IncBroadcastFailure(sink string)
}

// BroadcasterParams configure the tracking fan-out.
type BroadcasterParams struct {
	Logger         *logger.Logger
	Sinks          []Sink
	Latest         latestStore
	Metrics        failureCounter
	PublishTimeout time.Duration
	LatestTTL      time.Duration
}

// Broadcaster pushes tracking events to every sink. Delivery is at-most-once
// and asynchronous; a failing sink is logged and counted but never reported
// back to the caller.
type Broadcaster struct {
	logg    *logger.Logger
	sinks   []Sink
	latest  latestStore
	metrics failureCounter
	timeout time.Duration
	ttl     time.Duration
	wg      sync.WaitGroup
}

func NewBroadcaster(params BroadcasterParams) (*Broadcaster, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	timeout := params.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	ttl := params.LatestTTL
	if ttl <= 0 {
		ttl = defaultLatestTTL
	}
	return &Broadcaster{
		logg:    params.Logger,
		sinks:   params.Sinks,
		latest:  params.Latest,
		metrics: params.Metrics,
		timeout: timeout,
		ttl:     ttl,
	}, nil
}

// PublishStatusChanged fans a committed status change out to the order, store,
// customer, rider and admin channels.
func (b *Broadcaster) PublishStatusChanged(ctx context.Context, change StatusChanged) {
	ev, err := change.event()
	if err != nil {
		b.logg.Error(ctx, "tracking event encode failed", err)
		return
	}
	b.dispatch(ctx, change.channels(), ev, true)
}

// PublishLocationUpdate fans a rider position out to the rider, order and admin channels.
func (b *Broadcaster) PublishLocationUpdate(ctx context.Context, update LocationUpdate) {
	ev, err := update.event()
	if err != nil {
		b.logg.Error(ctx, "tracking event encode failed", err)
		return
	}
	b.dispatch(ctx, update.channels(), ev, false)
}

func (b *Broadcaster) dispatch(ctx context.Context, channels []string, ev Event, remember bool) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.logg.Error(ctx, "tracking event encode failed", err)
		return
	}
	base := context.WithoutCancel(ctx)
	logCtx := b.logg.WithFields(base, map[string]any{
		"event":    ev.Name,
		"order_id": ev.OrderID.String(),
	})

	for _, sink := range b.sinks {
		b.wg.Add(1)
		go func(sink Sink) {
			defer b.wg.Done()
			sinkCtx, cancel := context.WithTimeout(base, b.timeout)
			defer cancel()
			if err := sink.Publish(sinkCtx, channels, ev, payload); err != nil {
				b.countFailure(sink.Name())
				b.logg.Warn(b.logg.WithField(logCtx, "sink", sink.Name()), "tracking publish failed: "+err.Error())
			}
		}(sink)
	}

	if remember && b.latest != nil && ev.OrderID != uuid.Nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			storeCtx, cancel := context.WithTimeout(base, b.timeout)
			defer cancel()
			key := b.latest.TrackingLatestKey(ev.OrderID.String())
			if err := b.latest.Set(storeCtx, key, payload, b.ttl); err != nil {
				b.countFailure("latest")
				b.logg.Warn(logCtx, "tracking latest store failed: "+err.Error())
			}
		}()
	}
}

func (b *Broadcaster) countFailure(sink string) {
	if b.metrics != nil {
		b.metrics.IncBroadcastFailure(sink)
	}
}

// Latest returns the most recent status event of an order, or nil if none is cached.
func (b *Broadcaster) Latest(ctx context.Context, orderID uuid.UUID) (*Event, error) {
	if b.latest == nil {
		return nil, nil
	}
	raw, err := b.latest.Get(ctx, b.latest.TrackingLatestKey(orderID.String()))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read latest tracking event: %w", err)
	}
	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return nil, fmt.Errorf("decode latest tracking event: %w", err)
	}
	return &ev, nil
}

// Wait blocks until in-flight publishes finish.
func (b *Broadcaster) Wait() {
	b.wg.Wait()
}

// Close waits for in-flight publishes and closes every sink.
func (b *Broadcaster) Close() error {
	b.wg.Wait()
	var errs error
	for _, sink := range b.sinks {
		errs = multierr.Append(errs, sink.Close())
	}
	return errs
}

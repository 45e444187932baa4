package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	"github.com/angelmondragon/courierline-backend/pkg/logger"
	"github.com/angelmondragon/courierline-backend/pkg/types"
)

type recordingSink struct {
	name string
	err  error

	mu       sync.Mutex
	channels [][]string
	events   []Event
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(_ context.Context, channels []string, ev Event, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = append(s.channels, channels)
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) Close() error { return nil }

type memoryLatest struct {
	mu   sync.Mutex
	data map[string]string
	ttl  time.Duration
}

func (m *memoryLatest) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	m.ttl = ttl
	return nil
}

func (m *memoryLatest) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryLatest) TrackingLatestKey(orderID string) string {
	return "cl:tracking:latest:" + orderID
}

type countingMetrics struct {
	mu    sync.Mutex
	sinks []string
}

func (c *countingMetrics) IncBroadcastFailure(sink string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks = append(c.sinks, sink)
}

func newStatusChange() StatusChanged {
	rider := uuid.New()
	note := "on the way"
	return StatusChanged{
		OrderID:    uuid.New(),
		StoreID:    uuid.New(),
		CustomerID: uuid.New(),
		RiderID:    &rider,
		Status:     enums.OrderStatusOnTheWay,
		Entry: models.OrderTrackingEntry{
			Sequence:   4,
			Status:     enums.OrderStatusOnTheWay,
			Notes:      &note,
			ActorRole:  enums.ActorRoleRider,
			RecordedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestPublishStatusChangedFansOutToEveryChannel(t *testing.T) {
	sink := &recordingSink{name: "redis"}
	latest := &memoryLatest{data: map[string]string{}}
	b, err := NewBroadcaster(BroadcasterParams{Logger: logger.Nop(), Sinks: []Sink{sink}, Latest: latest, LatestTTL: time.Hour})
	require.NoError(t, err)

	change := newStatusChange()
	b.PublishStatusChanged(context.Background(), change)
	b.Wait()

	require.Len(t, sink.channels, 1)
	assert.Equal(t, []string{
		"order:" + change.OrderID.String(),
		"store:" + change.StoreID.String(),
		"customer:" + change.CustomerID.String(),
		"rider:" + change.RiderID.String(),
		"admin",
	}, sink.channels[0])

	ev := sink.events[0]
	assert.Equal(t, EventStatusChanged, ev.Name)
	var data map[string]any
	require.NoError(t, json.Unmarshal(ev.Data, &data))
	assert.Equal(t, "on_the_way", data["status"])
	tracking := data["trackingData"].(map[string]any)
	assert.Equal(t, float64(4), tracking["sequence"])
	assert.Equal(t, "rider", tracking["actorRole"])

	cached, err := b.Latest(context.Background(), change.OrderID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, change.OrderID, cached.OrderID)
	assert.Equal(t, time.Hour, latest.ttl)
}

func TestSinkFailureIsCountedNotReturned(t *testing.T) {
	good := &recordingSink{name: "redis"}
	bad := &recordingSink{name: "kafka", err: errors.New("broker down")}
	metrics := &countingMetrics{}
	b, err := NewBroadcaster(BroadcasterParams{Logger: logger.Nop(), Sinks: []Sink{good, bad}, Metrics: metrics})
	require.NoError(t, err)

	b.PublishStatusChanged(context.Background(), newStatusChange())
	b.Wait()

	assert.Len(t, good.events, 1)
	assert.Equal(t, []string{"kafka"}, metrics.sinks)
}

func TestPublishSurvivesCallerCancellation(t *testing.T) {
	sink := &recordingSink{name: "redis"}
	b, err := NewBroadcaster(BroadcasterParams{Logger: logger.Nop(), Sinks: []Sink{sink}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.PublishStatusChanged(ctx, newStatusChange())
	b.Wait()
	assert.Len(t, sink.events, 1)
}

func TestLocationUpdateChannelsAndNoLatest(t *testing.T) {
	sink := &recordingSink{name: "redis"}
	latest := &memoryLatest{data: map[string]string{}}
	b, err := NewBroadcaster(BroadcasterParams{Logger: logger.Nop(), Sinks: []Sink{sink}, Latest: latest})
	require.NoError(t, err)

	rider, order := uuid.New(), uuid.New()
	b.PublishLocationUpdate(context.Background(), LocationUpdate{
		RiderID:     rider,
		OrderID:     &order,
		Coordinates: types.GeoPoint{Lat: 6.2, Lng: -75.5},
	})
	b.Wait()

	require.Len(t, sink.events, 1)
	assert.Equal(t, EventLocationUpdate, sink.events[0].Name)
	assert.Equal(t, []string{"rider:" + rider.String(), "order:" + order.String(), "admin"}, sink.channels[0])
	assert.Empty(t, latest.data)
}

func TestLatestMissingIsNil(t *testing.T) {
	b, err := NewBroadcaster(BroadcasterParams{Logger: logger.Nop(), Latest: &memoryLatest{data: map[string]string{}}})
	require.NoError(t, err)
	ev, err := b.Latest(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, ev)
}

type fakePublisher struct {
	channels []string
	failOn   string
}

func (f *fakePublisher) Publish(_ context.Context, channel string, _ any) (int64, error) {
	f.channels = append(f.channels, channel)
	if channel == f.failOn {
		return 0, errors.New("closed")
	}
	return 1, nil
}

func TestRedisSinkPublishesEveryChannel(t *testing.T) {
	pub := &fakePublisher{failOn: "admin"}
	sink, err := NewRedisSink(pub)
	require.NoError(t, err)

	err = sink.Publish(context.Background(), []string{"order:1", "admin", "store:2"}, Event{}, []byte("{}"))
	require.Error(t, err)
	assert.Equal(t, []string{"order:1", "admin", "store:2"}, pub.channels)
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaSinkKeysByOrder(t *testing.T) {
	w := &fakeWriter{}
	sink, err := NewKafkaSink(w)
	require.NoError(t, err)

	orderID := uuid.New()
	require.NoError(t, sink.Publish(context.Background(), nil, Event{Name: EventStatusChanged, OrderID: orderID}, []byte(`{"a":1}`)))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, orderID.String(), string(w.msgs[0].Key))
	assert.Equal(t, `{"a":1}`, string(w.msgs[0].Value))
	assert.Equal(t, EventStatusChanged, string(w.msgs[0].Headers[0].Value))
}

package tracking

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	"github.com/angelmondragon/courierline-backend/pkg/types"
)

const (
	EventStatusChanged  = "order:status-changed"
	EventLocationUpdate = "driver:location-update"

	ChannelAdmin = "admin"
)

// Event is what subscribers receive on every sink.
type Event struct {
	Name       string          `json:"event"`
	OrderID    uuid.UUID       `json:"orderId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// StatusChanged is published after an order mutation commits.
type StatusChanged struct {
	OrderID    uuid.UUID
	StoreID    uuid.UUID
	CustomerID uuid.UUID
	RiderID    *uuid.UUID
	Status     enums.OrderStatus
	Entry      models.OrderTrackingEntry
}

// LocationUpdate is published when a rider reports coordinates.
type LocationUpdate struct {
	RiderID     uuid.UUID
	OrderID     *uuid.UUID
	Coordinates types.GeoPoint
	RecordedAt  time.Time
}

type trackingData struct {
	Sequence   int               `json:"sequence"`
	Status     enums.OrderStatus `json:"status"`
	Notes      *string           `json:"notes,omitempty"`
	ActorRole  enums.ActorRole   `json:"actorRole"`
	RecordedAt time.Time         `json:"recordedAt"`
}

type statusChangedData struct {
	OrderID      uuid.UUID         `json:"orderId"`
	StoreID      uuid.UUID         `json:"storeId"`
	CustomerID   uuid.UUID         `json:"customerId"`
	RiderID      *uuid.UUID        `json:"riderId,omitempty"`
	Status       enums.OrderStatus `json:"status"`
	TrackingData trackingData      `json:"trackingData"`
}

type locationData struct {
	RiderID    uuid.UUID      `json:"riderId"`
	OrderID    *uuid.UUID     `json:"orderId,omitempty"`
	Location   types.GeoPoint `json:"location"`
	RecordedAt time.Time      `json:"recordedAt"`
}

// OrderChannel and friends name the pub/sub channels an event fans out to.
func OrderChannel(id uuid.UUID) string    { return "order:" + id.String() }
func StoreChannel(id uuid.UUID) string    { return "store:" + id.String() }
func CustomerChannel(id uuid.UUID) string { return "customer:" + id.String() }
func RiderChannel(id uuid.UUID) string    { return "rider:" + id.String() }

func (s StatusChanged) channels() []string {
	out := []string{
		OrderChannel(s.OrderID),
		StoreChannel(s.StoreID),
		CustomerChannel(s.CustomerID),
	}
	if s.RiderID != nil {
		out = append(out, RiderChannel(*s.RiderID))
	}
	return append(out, ChannelAdmin)
}

func (s StatusChanged) event() (Event, error) {
	data, err := json.Marshal(statusChangedData{
		OrderID:    s.OrderID,
		StoreID:    s.StoreID,
		CustomerID: s.CustomerID,
		RiderID:    s.RiderID,
		Status:     s.Status,
		TrackingData: trackingData{
			Sequence:   s.Entry.Sequence,
			Status:     s.Entry.Status,
			Notes:      s.Entry.Notes,
			ActorRole:  s.Entry.ActorRole,
			RecordedAt: s.Entry.RecordedAt,
		},
	})
	if err != nil {
		return Event{}, fmt.Errorf("encode status change: %w", err)
	}
	at := s.Entry.RecordedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return Event{Name: EventStatusChanged, OrderID: s.OrderID, OccurredAt: at, Data: data}, nil
}

func (l LocationUpdate) channels() []string {
	out := []string{RiderChannel(l.RiderID)}
	if l.OrderID != nil {
		out = append(out, OrderChannel(*l.OrderID))
	}
	return append(out, ChannelAdmin)
}

func (l LocationUpdate) event() (Event, error) {
	at := l.RecordedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	data, err := json.Marshal(locationData{
		RiderID:    l.RiderID,
		OrderID:    l.OrderID,
		Location:   l.Coordinates,
		RecordedAt: at,
	})
	if err != nil {
		return Event{}, fmt.Errorf("encode location update: %w", err)
	}
	ev := Event{Name: EventLocationUpdate, OccurredAt: at, Data: data}
	if l.OrderID != nil {
		ev.OrderID = *l.OrderID
	}
	return ev, nil
}

package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/courierline-backend/internal/lifecycle"
	"github.com/angelmondragon/courierline-backend/internal/tracking"
	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
	"github.com/angelmondragon/courierline-backend/pkg/outbox"
	"github.com/angelmondragon/courierline-backend/pkg/outbox/payloads"
)

// mutation is one versioned write against an order. When track is set a
// tracking entry for To is appended and an order_status_changed event queued.
type mutation struct {
	Order   *models.Order
	To      enums.OrderStatus
	Actor   lifecycle.Actor
	Notes   *string
	Updates map[string]any
	Track   bool
}

// writer holds the write path shared by the service and the refund applier.
type writer struct {
	repo        Repository
	outbox      outboxPublisher
	broadcaster StatusBroadcaster
	metrics     TransitionMetrics
	now         func() time.Time
}

// commit runs m inside tx. On success m.Order reflects the new status and version.
func (w *writer) commit(ctx context.Context, tx *gorm.DB, m mutation) (*models.OrderTrackingEntry, error) {
	repo := w.repo.WithTx(tx)
	order := m.Order
	from := order.Status

	updates := make(map[string]any, len(m.Updates)+1)
	for k, v := range m.Updates {
		updates[k] = v
	}
	if m.To != "" && m.To != from {
		updates["status"] = m.To
	}
	if err := repo.UpdateOrderVersioned(ctx, order.ID, order.Version, updates); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, &pkgerrors.ConcurrentModificationError{Resource: "order", ID: order.ID, ExpectedVersion: order.Version}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	order.Version++
	if m.To != "" {
		order.Status = m.To
	}
	if !m.Track {
		return nil, nil
	}

	entry := &models.OrderTrackingEntry{
		OrderID:    order.ID,
		Status:     order.Status,
		Notes:      m.Notes,
		ActorRole:  m.Actor.Role,
		ActorID:    actorID(m.Actor),
		RecordedAt: w.now().UTC(),
	}
	if err := repo.AppendTrackingEntry(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking entry")
	}

	if err := w.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         buildActor(m.Actor),
		OccurredAt:    entry.RecordedAt,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:    order.ID,
			StoreID:    order.StoreID,
			CustomerID: order.CustomerID,
			RiderID:    order.RiderID,
			FromStatus: from,
			ToStatus:   order.Status,
			Notes:      m.Notes,
			ActorRole:  m.Actor.Role,
			Sequence:   entry.Sequence,
			OccurredAt: entry.RecordedAt,
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order status event")
	}
	if from != order.Status && w.metrics != nil {
		w.metrics.IncTransition(string(from), string(order.Status), string(m.Actor.Role))
	}
	return entry, nil
}

// publish fans a committed tracking entry out to live subscribers.
func (w *writer) publish(ctx context.Context, order *models.Order, entry *models.OrderTrackingEntry) {
	if entry == nil || order == nil {
		return
	}
	w.broadcaster.PublishStatusChanged(ctx, tracking.StatusChanged{
		OrderID:    order.ID,
		StoreID:    order.StoreID,
		CustomerID: order.CustomerID,
		RiderID:    order.RiderID,
		Status:     order.Status,
		Entry:      *entry,
	})
}

func (w *writer) notify(ctx context.Context, tx *gorm.DB, order *models.Order, role enums.ActorRole, recipient uuid.UUID, template enums.NotificationTemplate) error {
	event := outbox.NotificationEvent(order.ID, role, recipient, template, map[string]string{
		"order_number": order.OrderNumber,
		"status":       string(order.Status),
	})
	if err := w.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit notification request")
	}
	return nil
}

func actorID(actor lifecycle.Actor) *uuid.UUID {
	if actor.UserID == uuid.Nil {
		return nil
	}
	id := actor.UserID
	return &id
}

func buildActor(actor lifecycle.Actor) *outbox.ActorRef {
	return outbox.NewActorRef(actor.UserID, actor.StoreID, actor.Role)
}

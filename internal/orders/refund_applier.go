package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/courierline-backend/internal/lifecycle"
	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
	"github.com/angelmondragon/courierline-backend/pkg/outbox"
	"github.com/angelmondragon/courierline-backend/pkg/outbox/payloads"
)

// ApplierParams wires the refund applier.
type ApplierParams struct {
	Repository  Repository
	Outbox      outboxPublisher
	Broadcaster StatusBroadcaster
	Metrics     TransitionMetrics
}

// RefundApplier books settled refunds against the order row. It is separate
// from Service so refund settlement can depend on it without a cycle.
type RefundApplier struct {
	writer
}

func NewRefundApplier(params ApplierParams) (*RefundApplier, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Broadcaster == nil {
		return nil, fmt.Errorf("status broadcaster required")
	}
	return &RefundApplier{writer: writer{
		repo:        params.Repository,
		outbox:      params.Outbox,
		broadcaster: params.Broadcaster,
		metrics:     params.Metrics,
		now:         time.Now,
	}}, nil
}

// ApplyRefund adds amountCents to the order's refunded total inside tx. Once
// the total is covered the order moves to refunded when the lifecycle allows
// it. The returned func publishes the status change and must run after commit.
func (a *RefundApplier) ApplyRefund(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, amountCents int64, actor lifecycle.Actor) (func(), error) {
	noop := func() {}
	if amountCents <= 0 {
		return noop, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	order, err := a.load(ctx, a.repo.WithTx(tx), orderID)
	if err != nil {
		return noop, err
	}
	refunded := order.RefundedCents + amountCents
	if refunded > order.TotalCents {
		return noop, pkgerrors.New(pkgerrors.CodeValidation, "refunds exceed order total").
			WithDetails(map[string]any{
				"refunded_cents": refunded,
				"total_cents":    order.TotalCents,
			})
	}

	updates := map[string]any{
		"refunded_cents": refunded,
		"refund_status":  enums.RefundStatusFor(refunded, order.TotalCents),
	}
	if refunded == order.TotalCents {
		updates["payment_status"] = enums.PaymentStatusRefunded
	}
	if _, err := a.commit(ctx, tx, mutation{Order: order, Actor: actor, Updates: updates}); err != nil {
		return noop, err
	}
	order.RefundedCents = refunded

	if refunded < order.TotalCents || !lifecycle.CanTransition(order.Status, enums.OrderStatusRefunded, actor.Role) {
		return noop, nil
	}
	entry, err := a.markRefunded(ctx, tx, order, actor)
	if err != nil {
		return noop, err
	}
	return func() { a.publish(ctx, order, entry) }, nil
}

// markRefunded moves order to refunded and queues order_refunded once per order.
func (w *writer) markRefunded(ctx context.Context, tx *gorm.DB, order *models.Order, actor lifecycle.Actor) (*models.OrderTrackingEntry, error) {
	entry, err := w.commit(ctx, tx, mutation{
		Order: order,
		To:    enums.OrderStatusRefunded,
		Actor: actor,
		Updates: map[string]any{
			"payment_status": enums.PaymentStatusRefunded,
			"refund_status":  enums.RefundStatusFull,
		},
		Track: true,
	})
	if err != nil {
		return nil, err
	}
	if err := w.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderRefunded,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         buildActor(actor),
		Data: payloads.OrderRefundedEvent{
			OrderID:       order.ID,
			CustomerID:    order.CustomerID,
			RefundedCents: order.RefundedCents,
			TotalCents:    order.TotalCents,
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order refunded event")
	}
	return entry, nil
}

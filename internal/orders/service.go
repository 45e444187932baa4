package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/courierline-backend/internal/lifecycle"
	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
	"github.com/angelmondragon/courierline-backend/pkg/logger"
	"github.com/angelmondragon/courierline-backend/pkg/outbox"
	"github.com/angelmondragon/courierline-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/courierline-backend/pkg/pagination"
)

// Service defines the order aggregate operations.
type Service interface {
	Get(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID) (*OrderView, error)
	List(ctx context.Context, actor lifecycle.Actor, filters ListFilters, params pagination.Params) (*OrderList, error)
	UpdateStatus(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderView, error)
	AssignRider(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, input AssignRiderInput) (*OrderView, error)
	Cancel(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, input CancelInput) (*OrderView, error)
	Reject(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, input RejectInput) (*OrderView, error)
	UpdateNotes(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, input UpdateNotesInput) (*OrderView, error)
	MarkRefunded(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, expectedVersion *int64) (*OrderView, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repository  Repository
	Tx          txRunner
	Outbox      outboxPublisher
	Riders      RiderStoreFactory
	Refunder    CancellationRefunder
	Broadcaster StatusBroadcaster
	Metrics     TransitionMetrics
	Logger      *logger.Logger
}

type service struct {
	writer
	tx       txRunner
	riders   RiderStoreFactory
	refunder CancellationRefunder
	logg     *logger.Logger
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Riders == nil {
		return nil, fmt.Errorf("rider store factory required")
	}
	if params.Refunder == nil {
		return nil, fmt.Errorf("cancellation refunder required")
	}
	if params.Broadcaster == nil {
		return nil, fmt.Errorf("status broadcaster required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		writer: writer{
			repo:        params.Repository,
			outbox:      params.Outbox,
			broadcaster: params.Broadcaster,
			metrics:     params.Metrics,
			now:         time.Now,
		},
		tx:       params.Tx,
		riders:   params.Riders,
		refunder: params.Refunder,
		logg:     logg,
	}, nil
}

func (s *service) Get(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.load(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, order); err != nil {
		return nil, err
	}
	view := newOrderView(order, actor)
	return &view, nil
}

func (s *service) List(ctx context.Context, actor lifecycle.Actor, filters ListFilters, params pagination.Params) (*OrderList, error) {
	filters, err := scopeFilters(actor, filters)
	if err != nil {
		return nil, err
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListOrders(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page := pagination.BuildPage(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	out := OrderList{Items: make([]OrderView, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, newOrderView(&page.Items[i], actor))
	}
	return &out, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderView, error) {
	switch input.Status {
	case enums.OrderStatusCancelled:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "use the cancel operation to cancel an order")
	case enums.OrderStatusRejected:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "use the reject operation to reject an order")
	case enums.OrderStatusRefunded:
		return s.MarkRefunded(ctx, actor, orderID, input.ExpectedVersion)
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}

	var (
		order *models.Order
		entry *models.OrderTrackingEntry
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadForWrite(ctx, repo, actor, orderID, input.ExpectedVersion)
		if err != nil {
			return err
		}
		if err := s.checkTransition(current.Status, input.Status, actor); err != nil {
			return err
		}
		if input.Status == enums.OrderStatusAssigned && current.RiderID == nil {
			s.countRejected(input.Status, actor)
			return &lifecycle.InvalidTransitionError{From: current.Status, To: input.Status, Role: actor.Role, Reason: "assign a rider first"}
		}

		updates := map[string]any{}
		delivered := input.Status == enums.OrderStatusDelivered
		if delivered {
			updates["delivered_at"] = s.now().UTC()
		}
		entry, err = s.commit(ctx, tx, mutation{
			Order:   current,
			To:      input.Status,
			Actor:   actor,
			Notes:   input.Notes,
			Updates: updates,
			Track:   true,
		})
		if err != nil {
			return err
		}
		if delivered {
			if err := s.releaseRider(ctx, tx, current); err != nil {
				return err
			}
		}
		if input.NotifyCustomer {
			if err := s.notify(ctx, tx, current, enums.ActorRoleCustomer, current.CustomerID, enums.NotificationOrderStatusChanged); err != nil {
				return err
			}
		}
		order, err = s.load(ctx, repo, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, order, entry)
	view := newOrderView(order, actor)
	return &view, nil
}

func (s *service) AssignRider(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, input AssignRiderInput) (*OrderView, error) {
	if input.RiderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rider_id is required")
	}

	var (
		order *models.Order
		entry *models.OrderTrackingEntry
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadForWrite(ctx, repo, actor, orderID, input.ExpectedVersion)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckAssign(current.Status, current.RiderID, actor.Role); err != nil {
			s.countRejected(enums.OrderStatusAssigned, actor)
			return err
		}

		riders := s.riders(tx)
		rider, err := riders.FindByID(ctx, input.RiderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &pkgerrors.NotFoundError{Resource: "rider", ID: input.RiderID}
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rider")
		}
		switch {
		case rider.IsSuspended:
			return pkgerrors.New(pkgerrors.CodeValidation, "rider is suspended")
		case !rider.IsAvailable:
			return pkgerrors.New(pkgerrors.CodeValidation, "rider is not available")
		case rider.ActiveOrderID != nil:
			return pkgerrors.New(pkgerrors.CodeConflict, "rider already has an active order")
		}

		// Orders still in the kitchen jump to assigned; later statuses keep their value.
		target := current.Status
		if precedes(current.Status, enums.OrderStatusAssigned) {
			target = enums.OrderStatusAssigned
		}
		riderID := rider.ID
		entry, err = s.commit(ctx, tx, mutation{
			Order:   current,
			To:      target,
			Actor:   actor,
			Updates: map[string]any{"rider_id": riderID},
			Track:   true,
		})
		if err != nil {
			return err
		}
		current.RiderID = &riderID

		at := s.now().UTC()
		if err := repo.CreateAssignment(ctx, &models.OrderAssignment{
			ID:               uuid.New(),
			OrderID:          current.ID,
			RiderID:          riderID,
			AssignedByUserID: actorID(actor),
			AssignedAt:       at,
			Active:           true,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record assignment")
		}
		if err := riders.SetActiveOrder(ctx, riderID, &current.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark rider busy")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRiderAssigned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   current.ID,
			Actor:         buildActor(actor),
			Data: payloads.OrderRiderAssignedEvent{
				OrderID:    current.ID,
				StoreID:    current.StoreID,
				CustomerID: current.CustomerID,
				RiderID:    riderID,
				AssignedBy: actorID(actor),
				AssignedAt: at,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit rider assigned event")
		}
		if input.NotifyRider {
			if err := s.notify(ctx, tx, current, enums.ActorRoleRider, riderID, enums.NotificationOrderRiderAssigned); err != nil {
				return err
			}
		}
		order, err = s.load(ctx, repo, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, order, entry)
	view := newOrderView(order, actor)
	return &view, nil
}

func (s *service) Cancel(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, input CancelInput) (*OrderView, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason is required")
	}
	if input.RefundAmountCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount cannot be negative")
	}

	var (
		order *models.Order
		entry *models.OrderTrackingEntry
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadForWrite(ctx, repo, actor, orderID, input.ExpectedVersion)
		if err != nil {
			return err
		}
		if err := s.checkTransition(current.Status, enums.OrderStatusCancelled, actor); err != nil {
			return err
		}
		if input.RefundAmountCents > current.TotalCents {
			return pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds order total").
				WithDetails(map[string]any{
					"refund_amount_cents": input.RefundAmountCents,
					"total_cents":         current.TotalCents,
				})
		}

		at := s.now().UTC()
		updates := map[string]any{
			"cancellation_reason": reason,
			"cancelled_at":        at,
		}
		if id := actorID(actor); id != nil {
			updates["cancelled_by"] = *id
		}
		entry, err = s.commit(ctx, tx, mutation{
			Order:   current,
			To:      enums.OrderStatusCancelled,
			Actor:   actor,
			Notes:   &reason,
			Updates: updates,
			Track:   true,
		})
		if err != nil {
			return err
		}
		if err := s.releaseRider(ctx, tx, current); err != nil {
			return err
		}

		var refundID *uuid.UUID
		if input.RefundAmountCents > 0 {
			refund, err := s.refunder.SettleCancellation(ctx, tx, current, input.RefundAmountCents, actor)
			if err != nil {
				return err
			}
			refundID = &refund.ID
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   current.ID,
			Actor:         buildActor(actor),
			OccurredAt:    at,
			Data: payloads.OrderCancelledEvent{
				OrderID:           current.ID,
				StoreID:           current.StoreID,
				CustomerID:        current.CustomerID,
				RiderID:           current.RiderID,
				Reason:            reason,
				RefundAmountCents: input.RefundAmountCents,
				RefundRequestID:   refundID,
				ActorRole:         actor.Role,
				CancelledAt:       at,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order cancelled event")
		}
		if input.NotifyCustomer {
			if err := s.notify(ctx, tx, current, enums.ActorRoleCustomer, current.CustomerID, enums.NotificationOrderCancelled); err != nil {
				return err
			}
		}
		order, err = s.load(ctx, repo, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, order, entry)
	view := newOrderView(order, actor)
	return &view, nil
}

func (s *service) Reject(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, input RejectInput) (*OrderView, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}

	var (
		order *models.Order
		entry *models.OrderTrackingEntry
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadForWrite(ctx, repo, actor, orderID, input.ExpectedVersion)
		if err != nil {
			return err
		}
		if err := s.checkTransition(current.Status, enums.OrderStatusRejected, actor); err != nil {
			return err
		}

		at := s.now().UTC()
		role := actor.Role
		updates := map[string]any{
			"rejection_reason": reason,
			"rejected_by_role": role,
			"rejected_at":      at,
		}
		if id := actorID(actor); id != nil {
			updates["rejected_by"] = *id
		}
		entry, err = s.commit(ctx, tx, mutation{
			Order:   current,
			To:      enums.OrderStatusRejected,
			Actor:   actor,
			Notes:   &reason,
			Updates: updates,
			Track:   true,
		})
		if err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRejected,
			AggregateType: enums.AggregateOrder,
			AggregateID:   current.ID,
			Actor:         buildActor(actor),
			OccurredAt:    at,
			Data: payloads.OrderRejectedEvent{
				OrderID:        current.ID,
				StoreID:        current.StoreID,
				CustomerID:     current.CustomerID,
				Reason:         reason,
				RejectedBy:     actorID(actor),
				RejectedByRole: role,
				RejectedAt:     at,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order rejected event")
		}
		if input.NotifyCustomer {
			if err := s.notify(ctx, tx, current, enums.ActorRoleCustomer, current.CustomerID, enums.NotificationOrderRejected); err != nil {
				return err
			}
		}
		order, err = s.load(ctx, repo, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, order, entry)
	view := newOrderView(order, actor)
	return &view, nil
}

func (s *service) UpdateNotes(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, input UpdateNotesInput) (*OrderView, error) {
	if input.InternalNotes == nil && input.SpecialInstructions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	if !seesInternalNotes(actor.Role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot edit order notes")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadForWrite(ctx, repo, actor, orderID, input.ExpectedVersion)
		if err != nil {
			return err
		}
		updates := map[string]any{}
		if input.InternalNotes != nil {
			updates["internal_notes"] = *input.InternalNotes
		}
		if input.SpecialInstructions != nil {
			updates["special_instructions"] = *input.SpecialInstructions
		}
		if _, err := s.commit(ctx, tx, mutation{Order: current, Actor: actor, Updates: updates}); err != nil {
			return err
		}
		order, err = s.load(ctx, repo, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	view := newOrderView(order, actor)
	return &view, nil
}

// MarkRefunded closes a delivered or cancelled order whose completed refunds
// cover its total.
func (s *service) MarkRefunded(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, expectedVersion *int64) (*OrderView, error) {
	var (
		order *models.Order
		entry *models.OrderTrackingEntry
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadForWrite(ctx, repo, actor, orderID, expectedVersion)
		if err != nil {
			return err
		}
		if err := s.checkTransition(current.Status, enums.OrderStatusRefunded, actor); err != nil {
			return err
		}
		if current.RefundedCents < current.TotalCents {
			return pkgerrors.New(pkgerrors.CodeValidation, "order is not fully refunded").
				WithDetails(map[string]any{
					"refunded_cents": current.RefundedCents,
					"total_cents":    current.TotalCents,
				})
		}
		entry, err = s.markRefunded(ctx, tx, current, actor)
		if err != nil {
			return err
		}
		order, err = s.load(ctx, repo, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, order, entry)
	view := newOrderView(order, actor)
	return &view, nil
}

func (s *service) loadForWrite(ctx context.Context, repo Repository, actor lifecycle.Actor, orderID uuid.UUID, expectedVersion *int64) (*models.Order, error) {
	order, err := s.load(ctx, repo, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, order); err != nil {
		return nil, err
	}
	if expectedVersion != nil && *expectedVersion != order.Version {
		return nil, &pkgerrors.ConcurrentModificationError{Resource: "order", ID: order.ID, ExpectedVersion: *expectedVersion}
	}
	return order, nil
}

func (s *service) checkTransition(from, to enums.OrderStatus, actor lifecycle.Actor) error {
	if err := lifecycle.CheckTransition(from, to, actor.Role); err != nil {
		s.countRejected(to, actor)
		return err
	}
	return nil
}

func (s *service) countRejected(to enums.OrderStatus, actor lifecycle.Actor) {
	if s.metrics != nil {
		s.metrics.IncRejectedTransition(string(to), string(actor.Role))
	}
}

// releaseRider frees the rider attached to order, if any.
func (s *service) releaseRider(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if order.RiderID == nil {
		return nil
	}
	if err := s.riders(tx).SetActiveOrder(ctx, *order.RiderID, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release rider")
	}
	if err := s.repo.WithTx(tx).DeactivateAssignments(ctx, order.ID, s.now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close assignment")
	}
	return nil
}

func (w *writer) load(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &pkgerrors.NotFoundError{Resource: "order", ID: orderID}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// authorize scopes an actor to the orders they are party to.
func authorize(actor lifecycle.Actor, order *models.Order) error {
	switch actor.Role {
	case enums.ActorRoleAdmin, enums.ActorRoleSystem:
		return nil
	case enums.ActorRoleStoreManager:
		if actor.StoreID != nil && *actor.StoreID == order.StoreID {
			return nil
		}
	case enums.ActorRoleRider:
		if order.RiderID != nil && *order.RiderID == actor.UserID {
			return nil
		}
	case enums.ActorRoleCustomer:
		if order.CustomerID == actor.UserID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order not accessible")
}

func scopeFilters(actor lifecycle.Actor, filters ListFilters) (ListFilters, error) {
	switch actor.Role {
	case enums.ActorRoleAdmin, enums.ActorRoleSystem:
	case enums.ActorRoleStoreManager:
		if actor.StoreID == nil {
			return filters, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
		}
		filters.StoreID = actor.StoreID
	case enums.ActorRoleRider:
		id := actor.UserID
		filters.RiderID = &id
	case enums.ActorRoleCustomer:
		id := actor.UserID
		filters.CustomerID = &id
	default:
		return filters, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot list orders")
	}
	return filters, nil
}

// precedes reports whether a comes strictly before b on the forward path.
func precedes(a, b enums.OrderStatus) bool {
	for status, ok := a, true; ok; status, ok = lifecycle.Next(status) {
		if status == b {
			return status != a
		}
	}
	return false
}

package refunds

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/courierline-backend/internal/ledger"
	"github.com/angelmondragon/courierline-backend/internal/lifecycle"
	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
	"github.com/angelmondragon/courierline-backend/pkg/logger"
	"github.com/angelmondragon/courierline-backend/pkg/outbox"
	"github.com/angelmondragon/courierline-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/courierline-backend/pkg/pagination"
)

const cancellationRationale = "order cancelled with refund"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type refundLedger interface {
	PostRefund(ctx context.Context, tx *gorm.DB, posting ledger.RefundPosting) ([]models.LedgerEvent, error)
}

// OrderRefundApplier books a settled refund on the order row.
type OrderRefundApplier interface {
	ApplyRefund(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, amountCents int64, actor lifecycle.Actor) (func(), error)
}

type settlementMetrics interface {
	IncSettlement(outcome string)
}

// Service covers the refund request lifecycle from request to wallet credit.
type Service interface {
	Create(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, input CreateInput) (*RefundView, error)
	Get(ctx context.Context, actor lifecycle.Actor, refundID uuid.UUID) (*RefundView, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (*RefundList, error)
	StartReview(ctx context.Context, actor lifecycle.Actor, refundID uuid.UUID) (*RefundView, error)
	Approve(ctx context.Context, actor lifecycle.Actor, refundID uuid.UUID, input ApproveInput) (*RefundView, error)
	Reject(ctx context.Context, actor lifecycle.Actor, refundID uuid.UUID, input RejectInput) (*RefundView, error)
	SettleCancellation(ctx context.Context, tx *gorm.DB, order *models.Order, amountCents int64, actor lifecycle.Actor) (*models.RefundRequest, error)
	ListSettleable(ctx context.Context, limit int) ([]models.RefundRequest, error)
	Settle(ctx context.Context, refundID uuid.UUID) (*models.RefundRequest, error)
}

// ServiceParams wires the refund service.
type ServiceParams struct {
	Repository *Repository
	Tx         txRunner
	Ledger     refundLedger
	Orders     OrderRefundApplier
	Outbox     outboxPublisher
	Metrics    settlementMetrics
	Logger     *logger.Logger

	// SettlementLease is how long a processing claim stays exclusive before
	// another settlement run may take the refund over.
	SettlementLease time.Duration
}

const defaultSettlementLease = 15 * time.Minute

type service struct {
	repo    *Repository
	tx      txRunner
	ledger  refundLedger
	orders  OrderRefundApplier
	outbox  outboxPublisher
	metrics settlementMetrics
	logg    *logger.Logger
	lease   time.Duration
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("refund repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order refund applier required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	lease := params.SettlementLease
	if lease <= 0 {
		lease = defaultSettlementLease
	}
	return &service{
		repo:    params.Repository,
		tx:      params.Tx,
		ledger:  params.Ledger,
		orders:  params.Orders,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    logg,
		lease:   lease,
		now:     time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, input CreateInput) (*RefundView, error) {
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown refund reason")
	}
	if input.RequestedAmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested amount must be positive")
	}

	var refund *models.RefundRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &pkgerrors.NotFoundError{Resource: "order", ID: orderID}
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !actor.Role.IsPrivileged() && !(actor.Role == enums.ActorRoleCustomer && order.CustomerID == actor.UserID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order not accessible")
		}
		if order.Status != enums.OrderStatusDelivered && order.Status != enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refunds can only be requested for delivered or cancelled orders").
				WithDetails(map[string]any{"status": order.Status})
		}
		refundable := order.TotalCents - order.RefundedCents
		if input.RequestedAmountCents > refundable {
			return &InvalidAmountError{
				Reason:         "requested amount exceeds the refundable balance",
				SumCents:       input.RequestedAmountCents,
				RequestedCents: input.RequestedAmountCents,
				OrderTotal:     order.TotalCents,
			}
		}

		now := s.now().UTC()
		refund = &models.RefundRequest{
			ID:                   uuid.New(),
			OrderID:              order.ID,
			CustomerID:           order.CustomerID,
			StoreID:              order.StoreID,
			RiderID:              order.RiderID,
			OrderSnapshot:        order.Snapshot(now),
			RequestedAmountCents: input.RequestedAmountCents,
			Reason:               input.Reason,
			Description:          input.Description,
			Status:               enums.RefundRequestPendingReview,
		}
		if err := repo.Create(ctx, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund request")
		}
		return s.emit(ctx, tx, enums.EventRefundRequested, refund.ID, actor, payloads.RefundRequestedEvent{
			RefundRequestID:      refund.ID,
			OrderID:              refund.OrderID,
			CustomerID:           refund.CustomerID,
			StoreID:              refund.StoreID,
			RequestedAmountCents: refund.RequestedAmountCents,
			Reason:               refund.Reason,
		})
	})
	if err != nil {
		return nil, err
	}
	view := newRefundView(refund)
	return &view, nil
}

func (s *service) Get(ctx context.Context, actor lifecycle.Actor, refundID uuid.UUID) (*RefundView, error) {
	refund, err := s.find(ctx, s.repo, refundID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsPrivileged() && !(actor.Role == enums.ActorRoleCustomer && refund.CustomerID == actor.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "refund not accessible")
	}
	view := newRefundView(refund)
	return &view, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (*RefundList, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list refunds")
	}
	page := pagination.BuildPage(rows, params.Limit, func(r models.RefundRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	out := RefundList{Items: make([]RefundView, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, newRefundView(&page.Items[i]))
	}
	return &out, nil
}

func (s *service) StartReview(ctx context.Context, actor lifecycle.Actor, refundID uuid.UUID) (*RefundView, error) {
	if !actor.Role.IsPrivileged() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	var refund *models.RefundRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.TransitionFrom(ctx, refundID, []enums.RefundRequestStatus{enums.RefundRequestPendingReview},
			&models.RefundRequest{Status: enums.RefundRequestUnderReview})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start refund review")
		}
		refund, err = s.find(ctx, repo, refundID)
		if err != nil {
			return err
		}
		if !ok && refund.Status != enums.RefundRequestUnderReview {
			return &AlreadyDecidedError{RefundID: refundID, Status: refund.Status}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := newRefundView(refund)
	return &view, nil
}

func (s *service) Approve(ctx context.Context, actor lifecycle.Actor, refundID uuid.UUID, input ApproveInput) (*RefundView, error) {
	if !actor.Role.IsPrivileged() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	var refund *models.RefundRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.find(ctx, repo, refundID)
		if err != nil {
			return err
		}
		if current.Status.IsDecided() {
			return &AlreadyDecidedError{RefundID: refundID, Status: current.Status}
		}
		total := current.OrderSnapshot.TotalCents
		approval, err := ValidateApproval(input.Distribution, capsFor(current.OrderSnapshot, current.RiderID), current.RequestedAmountCents, total, input.Rationale)
		if err != nil {
			return err
		}
		if err := repo.LockOrder(ctx, current.OrderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		committed, err := repo.CommittedCents(ctx, current.OrderID, &current.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum committed refunds")
		}
		if committed+approval.ApprovedAmountCents > total {
			return &InvalidAmountError{
				Reason:         "refund amount exceeds the order's remaining refundable balance",
				SumCents:       approval.ApprovedAmountCents,
				RequestedCents: current.RequestedAmountCents,
				OrderTotal:     total,
			}
		}

		now := s.now().UTC()
		rationale := strings.TrimSpace(input.Rationale)
		amount := approval.ApprovedAmountCents
		dist := approval.Distribution
		ok, err := repo.TransitionFrom(ctx, refundID, enums.UndecidedRefundStatuses, &models.RefundRequest{
			Status:              enums.RefundRequestApproved,
			ApprovedAmountCents: &amount,
			CostDistribution:    &dist,
			Rationale:           &rationale,
			AdminNote:           input.AdminNote,
			ReviewedBy:          reviewer(actor),
			ReviewedAt:          &now,
		}, "approved_amount_cents", "cost_distribution", "rationale", "admin_note", "reviewed_by", "reviewed_at")
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve refund")
		}
		refund, err = s.find(ctx, repo, refundID)
		if err != nil {
			return err
		}
		if !ok {
			return &AlreadyDecidedError{RefundID: refundID, Status: refund.Status}
		}
		if err := s.emit(ctx, tx, enums.EventRefundApproved, refund.ID, actor, payloads.RefundDecisionEvent{
			RefundRequestID:     refund.ID,
			OrderID:             refund.OrderID,
			CustomerID:          refund.CustomerID,
			Status:              refund.Status,
			ApprovedAmountCents: &amount,
			Distribution:        &dist,
			ReviewedBy:          reviewer(actor),
			ReviewedAt:          now,
		}); err != nil {
			return err
		}
		return s.notifyCustomer(ctx, tx, refund, enums.NotificationRefundApproved)
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"refund_id": refund.ID.String(),
		"order_id":  refund.OrderID.String(),
	}), "refund approved")
	view := newRefundView(refund)
	return &view, nil
}

func (s *service) Reject(ctx context.Context, actor lifecycle.Actor, refundID uuid.UUID, input RejectInput) (*RefundView, error) {
	if !actor.Role.IsPrivileged() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}
	var refund *models.RefundRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()
		ok, err := repo.TransitionFrom(ctx, refundID, enums.UndecidedRefundStatuses, &models.RefundRequest{
			Status:          enums.RefundRequestRejected,
			RejectionReason: &reason,
			AdminNote:       input.AdminNote,
			ReviewedBy:      reviewer(actor),
			ReviewedAt:      &now,
		}, "rejection_reason", "admin_note", "reviewed_by", "reviewed_at")
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject refund")
		}
		refund, err = s.find(ctx, repo, refundID)
		if err != nil {
			return err
		}
		if !ok {
			return &AlreadyDecidedError{RefundID: refundID, Status: refund.Status}
		}
		if err := s.emit(ctx, tx, enums.EventRefundRejected, refund.ID, actor, payloads.RefundDecisionEvent{
			RefundRequestID: refund.ID,
			OrderID:         refund.OrderID,
			CustomerID:      refund.CustomerID,
			Status:          refund.Status,
			RejectionReason: &reason,
			ReviewedBy:      reviewer(actor),
			ReviewedAt:      now,
		}); err != nil {
			return err
		}
		return s.notifyCustomer(ctx, tx, refund, enums.NotificationRefundRejected)
	})
	if err != nil {
		return nil, err
	}
	view := newRefundView(refund)
	return &view, nil
}

// SettleCancellation records the refund attached to a cancellation as already
// approved, charging the store first, then the driver, then the platform.
func (s *service) SettleCancellation(ctx context.Context, tx *gorm.DB, order *models.Order, amountCents int64, actor lifecycle.Actor) (*models.RefundRequest, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if order == nil {
		return nil, fmt.Errorf("order required")
	}
	if amountCents <= 0 || amountCents > order.TotalCents {
		return nil, &InvalidAmountError{
			Reason:         "cancellation refund must be within the order total",
			SumCents:       amountCents,
			RequestedCents: amountCents,
			OrderTotal:     order.TotalCents,
		}
	}
	repo := s.repo.WithTx(tx)
	if err := repo.LockOrder(ctx, order.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
	}
	committed, err := repo.CommittedCents(ctx, order.ID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum committed refunds")
	}
	if committed+amountCents > order.TotalCents {
		return nil, &InvalidAmountError{
			Reason:         "refund amount exceeds the order's remaining refundable balance",
			SumCents:       amountCents,
			RequestedCents: amountCents,
			OrderTotal:     order.TotalCents,
		}
	}

	now := s.now().UTC()
	snapshot := order.Snapshot(now)
	dist := DistributeCancellation(amountCents, capsFor(snapshot, order.RiderID))
	amount := amountCents
	rationale := cancellationRationale
	refund := &models.RefundRequest{
		ID:                   uuid.New(),
		OrderID:              order.ID,
		CustomerID:           order.CustomerID,
		StoreID:              order.StoreID,
		RiderID:              order.RiderID,
		OrderSnapshot:        snapshot,
		RequestedAmountCents: amountCents,
		ApprovedAmountCents:  &amount,
		Reason:               enums.RefundReasonOrderCancelled,
		Status:               enums.RefundRequestApproved,
		CostDistribution:     &dist,
		Rationale:            &rationale,
		ReviewedBy:           reviewer(actor),
		ReviewedAt:           &now,
	}
	if err := repo.Create(ctx, refund); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cancellation refund")
	}
	if err := s.emit(ctx, tx, enums.EventRefundApproved, refund.ID, actor, payloads.RefundDecisionEvent{
		RefundRequestID:     refund.ID,
		OrderID:             refund.OrderID,
		CustomerID:          refund.CustomerID,
		Status:              refund.Status,
		ApprovedAmountCents: &amount,
		Distribution:        &dist,
		ReviewedBy:          reviewer(actor),
		ReviewedAt:          now,
	}); err != nil {
		return nil, err
	}
	return refund, nil
}

func (s *service) ListSettleable(ctx context.Context, limit int) ([]models.RefundRequest, error) {
	rows, err := s.repo.ListSettleable(ctx, s.staleBefore(), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settleable refunds")
	}
	return rows, nil
}

// Settle credits the customer's wallet for an approved refund, or for a
// processing refund whose claim outlived the settlement lease. A ledger or
// order failure leaves the refund failed with the reason recorded; that is a
// settled outcome, not an error.
func (s *service) Settle(ctx context.Context, refundID uuid.UUID) (*models.RefundRequest, error) {
	refund, err := s.find(ctx, s.repo, refundID)
	if err != nil {
		return nil, err
	}
	if refund.Status == enums.RefundRequestCompleted {
		return refund, nil
	}
	staleBefore := s.staleBefore()
	if refund.Status == enums.RefundRequestProcessing && !claimExpired(refund, staleBefore) {
		// a live claim is settling it
		return refund, nil
	}
	awaiting := refund.Status == enums.RefundRequestApproved || refund.Status == enums.RefundRequestProcessing
	if !awaiting || refund.ApprovedAmountCents == nil || refund.CostDistribution == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refund is not awaiting settlement").
			WithDetails(map[string]any{"status": refund.Status})
	}
	actor := lifecycle.SystemActor()
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"refund_id": refund.ID.String(),
		"order_id":  refund.OrderID.String(),
	})

	processedAt := s.now().UTC()
	claimed, err := s.repo.ClaimForSettlement(ctx, refundID, staleBefore, processedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim refund for settlement")
	}
	if !claimed {
		// another worker got there first
		return s.find(ctx, s.repo, refundID)
	}

	amount := *refund.ApprovedAmountCents
	var afterCommit func()
	settleErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.ledger.PostRefund(ctx, tx, ledger.RefundPosting{
			RefundRequestID: refund.ID,
			OrderID:         refund.OrderID,
			CustomerID:      refund.CustomerID,
			StoreID:         refund.StoreID,
			RiderID:         refund.RiderID,
			AmountCents:     amount,
			Distribution:    *refund.CostDistribution,
		}); err != nil {
			return fmt.Errorf("post ledger entries: %w", err)
		}
		after, err := s.orders.ApplyRefund(ctx, tx, refund.OrderID, amount, actor)
		if err != nil {
			return fmt.Errorf("apply refund to order: %w", err)
		}
		completedAt := s.now().UTC()
		ok, err := repo.TransitionFrom(ctx, refundID, []enums.RefundRequestStatus{enums.RefundRequestProcessing},
			&models.RefundRequest{Status: enums.RefundRequestCompleted, CompletedAt: &completedAt}, "completed_at")
		if err != nil {
			return fmt.Errorf("complete refund: %w", err)
		}
		if !ok {
			return fmt.Errorf("refund %s left processing during settlement", refundID)
		}
		if err := s.emitOnce(ctx, tx, enums.EventRefundCompleted, refund.ID, actor, payloads.RefundSettlementEvent{
			RefundRequestID: refund.ID,
			OrderID:         refund.OrderID,
			CustomerID:      refund.CustomerID,
			Status:          enums.RefundRequestCompleted,
			AmountCents:     amount,
			SettledAt:       completedAt,
		}); err != nil {
			return err
		}
		if err := s.notifyCustomer(ctx, tx, refund, enums.NotificationRefundCompleted); err != nil {
			return err
		}
		afterCommit = after
		return nil
	})
	if settleErr != nil {
		s.logg.Error(logCtx, "refund settlement failed", settleErr)
		// the failure is recorded even when ctx itself ended the settlement
		failCtx := context.WithoutCancel(ctx)
		if err := s.markFailed(failCtx, refund, amount, settleErr); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, multierr.Append(settleErr, err), "record refund failure")
		}
		s.countSettlement("failed")
		return s.find(failCtx, s.repo, refundID)
	}

	afterCommit()
	s.countSettlement("completed")
	s.logg.Info(logCtx, "refund settled")
	return s.find(ctx, s.repo, refundID)
}

func (s *service) staleBefore() time.Time {
	return s.now().UTC().Add(-s.lease)
}

func claimExpired(refund *models.RefundRequest, staleBefore time.Time) bool {
	return refund.ProcessedAt == nil || refund.ProcessedAt.Before(staleBefore)
}

func (s *service) markFailed(ctx context.Context, refund *models.RefundRequest, amount int64, cause error) error {
	reason := cause.Error()
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).TransitionFrom(ctx, refund.ID, []enums.RefundRequestStatus{enums.RefundRequestProcessing},
			&models.RefundRequest{Status: enums.RefundRequestFailed, FailureReason: &reason}, "failure_reason")
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		return s.emitOnce(ctx, tx, enums.EventRefundFailed, refund.ID, lifecycle.SystemActor(), payloads.RefundSettlementEvent{
			RefundRequestID: refund.ID,
			OrderID:         refund.OrderID,
			CustomerID:      refund.CustomerID,
			Status:          enums.RefundRequestFailed,
			AmountCents:     amount,
			FailureReason:   &reason,
			SettledAt:       s.now().UTC(),
		})
	})
}

func (s *service) find(ctx context.Context, repo *Repository, refundID uuid.UUID) (*models.RefundRequest, error) {
	refund, err := repo.FindByID(ctx, refundID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &pkgerrors.NotFoundError{Resource: "refund request", ID: refundID}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund request")
	}
	return refund, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, refundID uuid.UUID, actor lifecycle.Actor, data any) error {
	if err := s.outbox.Emit(ctx, tx, refundEvent(eventType, refundID, actor, data)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(eventType))
	}
	return nil
}

func (s *service) emitOnce(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, refundID uuid.UUID, actor lifecycle.Actor, data any) error {
	if err := s.outbox.EmitIfNotExists(ctx, tx, refundEvent(eventType, refundID, actor, data)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(eventType))
	}
	return nil
}

func (s *service) notifyCustomer(ctx context.Context, tx *gorm.DB, refund *models.RefundRequest, template enums.NotificationTemplate) error {
	event := outbox.NotificationEvent(refund.OrderID, enums.ActorRoleCustomer, refund.CustomerID, template, map[string]string{
		"refund_id":    refund.ID.String(),
		"order_number": refund.OrderSnapshot.OrderNumber,
	})
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit notification request")
	}
	return nil
}

func (s *service) countSettlement(outcome string) {
	if s.metrics != nil {
		s.metrics.IncSettlement(outcome)
	}
}

func refundEvent(eventType enums.OutboxEventType, refundID uuid.UUID, actor lifecycle.Actor, data any) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateRefundRequest,
		AggregateID:   refundID,
		Actor:         outbox.NewActorRef(actor.UserID, actor.StoreID, actor.Role),
		Data:          data,
	}
}

func reviewer(actor lifecycle.Actor) *uuid.UUID {
	if actor.UserID == uuid.Nil {
		return nil
	}
	id := actor.UserID
	return &id
}

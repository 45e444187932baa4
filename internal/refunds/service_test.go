package refunds

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/courierline-backend/internal/ledger"
	"github.com/angelmondragon/courierline-backend/internal/lifecycle"
	"github.com/angelmondragon/courierline-backend/internal/orders"
	"github.com/angelmondragon/courierline-backend/internal/tracking"
	dbpkg "github.com/angelmondragon/courierline-backend/pkg/db"
	"github.com/angelmondragon/courierline-backend/pkg/db/dbtest"
	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
	"github.com/angelmondragon/courierline-backend/pkg/logger"
	"github.com/angelmondragon/courierline-backend/pkg/outbox"
	"github.com/angelmondragon/courierline-backend/pkg/pagination"
	"github.com/angelmondragon/courierline-backend/pkg/types"
)

type recordingBroadcaster struct {
	mu      sync.Mutex
	changes []tracking.StatusChanged
}

func (r *recordingBroadcaster) PublishStatusChanged(_ context.Context, change tracking.StatusChanged) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

type failingLedger struct{}

func (failingLedger) PostRefund(context.Context, *gorm.DB, ledger.RefundPosting) ([]models.LedgerEvent, error) {
	return nil, errors.New("wallet store unavailable")
}

// cancellingLedger ends the settlement's context mid-transaction, the way a
// job deadline would.
type cancellingLedger struct {
	cancel context.CancelFunc
}

func (l cancellingLedger) PostRefund(ctx context.Context, _ *gorm.DB, _ ledger.RefundPosting) ([]models.LedgerEvent, error) {
	l.cancel()
	return nil, ctx.Err()
}

type countingSettlements struct {
	outcomes []string
}

func (c *countingSettlements) IncSettlement(outcome string) {
	c.outcomes = append(c.outcomes, outcome)
}

type fixture struct {
	db          *gorm.DB
	svc         Service
	broadcaster *recordingBroadcaster
	metrics     *countingSettlements
}

func newFixture(t *testing.T, ledgerOverride refundLedger) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logger.Nop())
	broadcaster := &recordingBroadcaster{}
	applier, err := orders.NewRefundApplier(orders.ApplierParams{
		Repository:  orders.NewRepository(conn),
		Outbox:      outboxSvc,
		Broadcaster: broadcaster,
	})
	require.NoError(t, err)

	var book refundLedger = ledgerOverride
	if book == nil {
		ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
		require.NoError(t, err)
		book = ledgerSvc
	}
	metrics := &countingSettlements{}
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		Tx:         dbpkg.FromConn(conn),
		Ledger:     book,
		Orders:     applier,
		Outbox:     outboxSvc,
		Metrics:    metrics,
		Logger:     logger.Nop(),
	})
	require.NoError(t, err)
	return &fixture{db: conn, svc: svc, broadcaster: broadcaster, metrics: metrics}
}

// seedOrder stores the reference order: subtotal 120, delivery 20, tip 10,
// total 150 with a store share of 100.
func (f *fixture) seedOrder(t *testing.T, status enums.OrderStatus) *models.Order {
	t.Helper()
	rider := uuid.New()
	order := &models.Order{
		ID:                 uuid.New(),
		OrderNumber:        "CL-" + uuid.NewString()[:8],
		CustomerID:         uuid.New(),
		StoreID:            uuid.New(),
		RiderID:            &rider,
		Status:             status,
		PaymentStatus:      enums.PaymentStatusPaid,
		RefundStatus:       enums.RefundStatusNone,
		SubtotalCents:      120,
		DeliveryFeeCents:   20,
		TipCents:           10,
		TotalCents:         150,
		PlatformMarkupRate: decimal.RequireFromString("0.1667"),
		PaymentSplit: types.PaymentSplit{
			StoreAmountCents:    100,
			DriverAmountCents:   30,
			PlatformAmountCents: 20,
			TotalMarkupCents:    20,
			NetEarningsCents:    20,
		},
	}
	require.NoError(t, orders.NewRepository(f.db).CreateOrder(context.Background(), order))
	return order
}

func customer(order *models.Order) lifecycle.Actor {
	return lifecycle.Actor{UserID: order.CustomerID, Role: enums.ActorRoleCustomer}
}

func admin() lifecycle.Actor {
	return lifecycle.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
}

func (f *fixture) requestRefund(t *testing.T, order *models.Order, amount int64) *RefundView {
	t.Helper()
	view, err := f.svc.Create(context.Background(), customer(order), order.ID, CreateInput{
		RequestedAmountCents: amount,
		Reason:               enums.RefundReasonLateDelivery,
	})
	require.NoError(t, err)
	return view
}

func (f *fixture) countEvents(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func TestCreateCapturesSnapshot(t *testing.T) {
	f := newFixture(t, nil)
	order := f.seedOrder(t, enums.OrderStatusDelivered)

	view := f.requestRefund(t, order, 120)

	assert.Equal(t, enums.RefundRequestPendingReview, view.Status)
	assert.Equal(t, int64(150), view.OrderSnapshot.TotalCents)
	assert.Equal(t, int64(100), view.Caps.MaxFromStoreCents)
	assert.Equal(t, int64(30), view.Caps.MaxFromDriverCents)
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventRefundRequested))
}

func TestCreateGuards(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	active := f.seedOrder(t, enums.OrderStatusPreparing)
	_, err := f.svc.Create(ctx, customer(active), active.ID, CreateInput{RequestedAmountCents: 10, Reason: enums.RefundReasonOther})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	delivered := f.seedOrder(t, enums.OrderStatusDelivered)
	_, err = f.svc.Create(ctx, customer(delivered), delivered.ID, CreateInput{RequestedAmountCents: 151, Reason: enums.RefundReasonOther})
	var amountErr *InvalidAmountError
	require.ErrorAs(t, err, &amountErr)

	stranger := lifecycle.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	_, err = f.svc.Create(ctx, stranger, delivered.ID, CreateInput{RequestedAmountCents: 10, Reason: enums.RefundReasonOther})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	_, err = f.svc.Create(ctx, customer(delivered), uuid.New(), CreateInput{RequestedAmountCents: 10, Reason: enums.RefundReasonOther})
	var notFound *pkgerrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestApproveWithinCaps(t *testing.T) {
	f := newFixture(t, nil)
	order := f.seedOrder(t, enums.OrderStatusDelivered)
	refund := f.requestRefund(t, order, 120)

	view, err := f.svc.Approve(context.Background(), admin(), refund.ID, ApproveInput{
		Distribution: types.CostDistribution{FromStoreCents: 80, FromDriverCents: 30, FromPlatformCents: 10},
		Rationale:    "driver was 40 minutes late",
	})
	require.NoError(t, err)

	assert.Equal(t, enums.RefundRequestApproved, view.Status)
	require.NotNil(t, view.ApprovedAmountCents)
	assert.Equal(t, int64(120), *view.ApprovedAmountCents)
	require.NotNil(t, view.CostDistribution)
	assert.Equal(t, int64(80), view.CostDistribution.FromStoreCents)
	assert.NotNil(t, view.ReviewedAt)
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventRefundApproved))
}

func TestApproveRejectsInvalidDistributions(t *testing.T) {
	f := newFixture(t, nil)
	order := f.seedOrder(t, enums.OrderStatusDelivered)
	refund := f.requestRefund(t, order, 120)
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, admin(), refund.ID, ApproveInput{
		Distribution: types.CostDistribution{FromStoreCents: 80, FromDriverCents: 31, FromPlatformCents: 9},
		Rationale:    "x",
	})
	var capErr *CapExceededError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "driver", capErr.Party)

	_, err = f.svc.Approve(ctx, admin(), refund.ID, ApproveInput{
		Distribution: types.CostDistribution{FromStoreCents: 101},
		Rationale:    "x",
	})
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "store", capErr.Party)

	_, err = f.svc.Approve(ctx, admin(), refund.ID, ApproveInput{Rationale: "x"})
	var amountErr *InvalidAmountError
	require.ErrorAs(t, err, &amountErr)

	_, err = f.svc.Approve(ctx, admin(), refund.ID, ApproveInput{
		Distribution: types.CostDistribution{FromStoreCents: 10},
	})
	var rationaleErr *MissingRationaleError
	require.ErrorAs(t, err, &rationaleErr)

	// nothing was written by the failed attempts
	view, err := f.svc.Get(ctx, admin(), refund.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundRequestPendingReview, view.Status)
	assert.Nil(t, view.ApprovedAmountCents)
}

func TestApproveRequiresAdmin(t *testing.T) {
	f := newFixture(t, nil)
	order := f.seedOrder(t, enums.OrderStatusDelivered)
	refund := f.requestRefund(t, order, 50)

	_, err := f.svc.Approve(context.Background(), customer(order), refund.ID, ApproveInput{
		Distribution: types.CostDistribution{FromStoreCents: 50},
		Rationale:    "x",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestSecondDecisionIsAlreadyDecided(t *testing.T) {
	f := newFixture(t, nil)
	order := f.seedOrder(t, enums.OrderStatusDelivered)
	refund := f.requestRefund(t, order, 120)
	ctx := context.Background()
	input := ApproveInput{
		Distribution: types.CostDistribution{FromStoreCents: 80, FromDriverCents: 30, FromPlatformCents: 10},
		Rationale:    "late",
	}

	_, err := f.svc.Approve(ctx, admin(), refund.ID, input)
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, admin(), refund.ID, input)
	var decided *AlreadyDecidedError
	require.ErrorAs(t, err, &decided)
	assert.Equal(t, enums.RefundRequestApproved, decided.Status)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	_, err = f.svc.Reject(ctx, admin(), refund.ID, RejectInput{Reason: "changed my mind"})
	require.ErrorAs(t, err, &decided)
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventRefundApproved))
}

func TestRejectRecordsReason(t *testing.T) {
	f := newFixture(t, nil)
	order := f.seedOrder(t, enums.OrderStatusDelivered)
	refund := f.requestRefund(t, order, 40)
	ctx := context.Background()

	_, err := f.svc.Reject(ctx, admin(), refund.ID, RejectInput{Reason: "  "})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	note := "photo shows intact food"
	view, err := f.svc.Reject(ctx, admin(), refund.ID, RejectInput{Reason: "no evidence of damage", AdminNote: &note})
	require.NoError(t, err)
	assert.Equal(t, enums.RefundRequestRejected, view.Status)
	require.NotNil(t, view.RejectionReason)
	assert.Equal(t, "no evidence of damage", *view.RejectionReason)
	require.NotNil(t, view.AdminNote)
	assert.Equal(t, note, *view.AdminNote)
}

func TestStartReviewIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	order := f.seedOrder(t, enums.OrderStatusDelivered)
	refund := f.requestRefund(t, order, 40)
	ctx := context.Background()

	view, err := f.svc.StartReview(ctx, admin(), refund.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundRequestUnderReview, view.Status)

	view, err = f.svc.StartReview(ctx, admin(), refund.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundRequestUnderReview, view.Status)

	_, err = f.svc.Approve(ctx, admin(), refund.ID, ApproveInput{
		Distribution: types.CostDistribution{FromPlatformCents: 40},
		Rationale:    "goodwill",
	})
	require.NoError(t, err)

	_, err = f.svc.StartReview(ctx, admin(), refund.ID)
	var decided *AlreadyDecidedError
	require.ErrorAs(t, err, &decided)
}

func TestApproveRespectsRemainingBalance(t *testing.T) {
	f := newFixture(t, nil)
	order := f.seedOrder(t, enums.OrderStatusDelivered)
	ctx := context.Background()

	first := f.requestRefund(t, order, 100)
	second := f.requestRefund(t, order, 100)

	_, err := f.svc.Approve(ctx, admin(), first.ID, ApproveInput{
		Distribution: types.CostDistribution{FromStoreCents: 100},
		Rationale:    "wrong items",
	})
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, admin(), second.ID, ApproveInput{
		Distribution: types.CostDistribution{FromDriverCents: 30, FromPlatformCents: 30},
		Rationale:    "also wrong",
	})
	var amountErr *InvalidAmountError
	require.ErrorAs(t, err, &amountErr)
}

func TestSettleFullRefundMarksOrderRefunded(t *testing.T) {
	f := newFixture(t, nil)
	order := f.seedOrder(t, enums.OrderStatusDelivered)
	refund := f.requestRefund(t, order, 150)
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, admin(), refund.ID, ApproveInput{
		Distribution: types.CostDistribution{FromStoreCents: 100, FromDriverCents: 30, FromPlatformCents: 20},
		Rationale:    "never arrived",
	})
	require.NoError(t, err)

	settleable, err := f.svc.ListSettleable(ctx, 10)
	require.NoError(t, err)
	require.Len(t, settleable, 1)

	settled, err := f.svc.Settle(ctx, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundRequestCompleted, settled.Status)
	assert.NotNil(t, settled.CompletedAt)
	assert.Nil(t, settled.FailureReason)

	var entries []models.LedgerEvent
	require.NoError(t, f.db.Where("refund_request_id = ?", refund.ID).Find(&entries).Error)
	assert.Len(t, entries, 4)
	var sum int64
	for _, e := range entries {
		sum += e.AmountCents
	}
	assert.Equal(t, int64(0), sum)

	stored, err := orders.NewRepository(f.db).FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusRefunded, stored.Status)
	assert.Equal(t, int64(150), stored.RefundedCents)
	assert.Equal(t, enums.RefundStatusFull, stored.RefundStatus)
	assert.Equal(t, enums.PaymentStatusRefunded, stored.PaymentStatus)
	require.NotEmpty(t, stored.TrackingHistory)
	assert.Equal(t, enums.OrderStatusRefunded, stored.TrackingHistory[len(stored.TrackingHistory)-1].Status)

	require.Len(t, f.broadcaster.changes, 1)
	assert.Equal(t, enums.OrderStatusRefunded, f.broadcaster.changes[0].Status)
	assert.Equal(t, []string{"completed"}, f.metrics.outcomes)
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventOrderRefunded))

	again, err := f.svc.Settle(ctx, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundRequestCompleted, again.Status)
	require.NoError(t, f.db.Where("refund_request_id = ?", refund.ID).Find(&entries).Error)
	assert.Len(t, entries, 4)
}

func TestSettlePartialRefundKeepsOrderStatus(t *testing.T) {
	f := newFixture(t, nil)
	order := f.seedOrder(t, enums.OrderStatusDelivered)
	refund := f.requestRefund(t, order, 120)
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, admin(), refund.ID, ApproveInput{
		Distribution: types.CostDistribution{FromStoreCents: 80, FromDriverCents: 30, FromPlatformCents: 10},
		Rationale:    "late",
	})
	require.NoError(t, err)

	settled, err := f.svc.Settle(ctx, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundRequestCompleted, settled.Status)

	stored, err := orders.NewRepository(f.db).FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, stored.Status)
	assert.Equal(t, int64(120), stored.RefundedCents)
	assert.Equal(t, enums.RefundStatusPartial, stored.RefundStatus)
	assert.Empty(t, f.broadcaster.changes)
}

func TestSettleLedgerFailureMarksRefundFailed(t *testing.T) {
	f := newFixture(t, failingLedger{})
	order := f.seedOrder(t, enums.OrderStatusDelivered)
	refund := f.requestRefund(t, order, 50)
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, admin(), refund.ID, ApproveInput{
		Distribution: types.CostDistribution{FromStoreCents: 50},
		Rationale:    "cold food",
	})
	require.NoError(t, err)

	settled, err := f.svc.Settle(ctx, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundRequestFailed, settled.Status)
	require.NotNil(t, settled.FailureReason)
	assert.Contains(t, *settled.FailureReason, "wallet store unavailable")
	assert.Equal(t, []string{"failed"}, f.metrics.outcomes)
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventRefundFailed))

	stored, err := orders.NewRepository(f.db).FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.RefundedCents)
}

func TestSettleRecordsFailureWhenContextEnds(t *testing.T) {
	settleCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t, cancellingLedger{cancel: cancel})
	order := f.seedOrder(t, enums.OrderStatusDelivered)
	refund := f.requestRefund(t, order, 50)
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, admin(), refund.ID, ApproveInput{
		Distribution: types.CostDistribution{FromStoreCents: 50},
		Rationale:    "cold food",
	})
	require.NoError(t, err)

	settled, err := f.svc.Settle(settleCtx, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundRequestFailed, settled.Status)
	require.NotNil(t, settled.FailureReason)
	assert.Contains(t, *settled.FailureReason, context.Canceled.Error())
	assert.Equal(t, []string{"failed"}, f.metrics.outcomes)
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventRefundFailed))

	stored, err := f.svc.Get(ctx, admin(), refund.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundRequestFailed, stored.Status)
}

func (f *fixture) approveAndClaim(t *testing.T, order *models.Order, claimedAt time.Time) *RefundView {
	t.Helper()
	refund := f.requestRefund(t, order, 120)
	_, err := f.svc.Approve(context.Background(), admin(), refund.ID, ApproveInput{
		Distribution: types.CostDistribution{FromStoreCents: 80, FromDriverCents: 30, FromPlatformCents: 10},
		Rationale:    "late",
	})
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.RefundRequest{}).Where("id = ?", refund.ID).Updates(map[string]any{
		"status":       enums.RefundRequestProcessing,
		"processed_at": claimedAt.UTC(),
	}).Error)
	return refund
}

func TestSettleTakesOverExpiredClaim(t *testing.T) {
	f := newFixture(t, nil)
	order := f.seedOrder(t, enums.OrderStatusDelivered)
	refund := f.approveAndClaim(t, order, time.Now().Add(-time.Hour))
	ctx := context.Background()

	settleable, err := f.svc.ListSettleable(ctx, 10)
	require.NoError(t, err)
	require.Len(t, settleable, 1)
	assert.Equal(t, refund.ID, settleable[0].ID)

	settled, err := f.svc.Settle(ctx, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundRequestCompleted, settled.Status)
	assert.Equal(t, []string{"completed"}, f.metrics.outcomes)

	var entries []models.LedgerEvent
	require.NoError(t, f.db.Where("refund_request_id = ?", refund.ID).Find(&entries).Error)
	assert.Len(t, entries, 4)
}

func TestSettleLeavesLiveClaimAlone(t *testing.T) {
	f := newFixture(t, nil)
	order := f.seedOrder(t, enums.OrderStatusDelivered)
	refund := f.approveAndClaim(t, order, time.Now().Add(-time.Minute))
	ctx := context.Background()

	settleable, err := f.svc.ListSettleable(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, settleable)

	current, err := f.svc.Settle(ctx, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundRequestProcessing, current.Status)
	assert.Empty(t, f.metrics.outcomes)

	var entries int64
	require.NoError(t, f.db.Model(&models.LedgerEvent{}).Where("refund_request_id = ?", refund.ID).Count(&entries).Error)
	assert.Zero(t, entries)
}

func TestConcurrentApprovalsStayWithinOrderTotal(t *testing.T) {
	f := newFixture(t, nil)
	order := f.seedOrder(t, enums.OrderStatusDelivered)
	first := f.requestRefund(t, order, 120)
	second := f.requestRefund(t, order, 120)
	input := ApproveInput{
		Distribution: types.CostDistribution{FromStoreCents: 80, FromDriverCents: 30, FromPlatformCents: 10},
		Rationale:    "late",
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uuid.UUID{first.ID, second.ID} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.Approve(context.Background(), admin(), id, input)
		}()
	}
	wg.Wait()

	var amountErr *InvalidAmountError
	failures := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorAs(t, err, &amountErr)
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	committed, err := NewRepository(f.db).CommittedCents(context.Background(), order.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(120), committed)
}

func TestSettleRequiresApproval(t *testing.T) {
	f := newFixture(t, nil)
	order := f.seedOrder(t, enums.OrderStatusDelivered)
	refund := f.requestRefund(t, order, 50)

	_, err := f.svc.Settle(context.Background(), refund.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestSettleCancellationDistributesWithinCaps(t *testing.T) {
	f := newFixture(t, nil)
	order := f.seedOrder(t, enums.OrderStatusCancelled)
	ctx := context.Background()

	var refund *models.RefundRequest
	err := dbpkg.FromConn(f.db).WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		refund, err = f.svc.SettleCancellation(ctx, tx, order, 140, admin())
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, enums.RefundRequestApproved, refund.Status)
	assert.Equal(t, enums.RefundReasonOrderCancelled, refund.Reason)
	require.NotNil(t, refund.CostDistribution)
	assert.Equal(t, types.CostDistribution{FromStoreCents: 100, FromDriverCents: 30, FromPlatformCents: 10}, *refund.CostDistribution)
	assert.Equal(t, int64(140), refund.CostDistribution.SumCents())

	err = dbpkg.FromConn(f.db).WithTx(ctx, func(tx *gorm.DB) error {
		_, err := f.svc.SettleCancellation(ctx, tx, order, 20, admin())
		return err
	})
	var amountErr *InvalidAmountError
	require.ErrorAs(t, err, &amountErr)
}

func TestSettleCancellationWithoutRiderChargesNoDriver(t *testing.T) {
	f := newFixture(t, nil)
	order := f.seedOrder(t, enums.OrderStatusCancelled)
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", order.ID).Update("rider_id", nil).Error)
	order.RiderID = nil
	ctx := context.Background()

	var refund *models.RefundRequest
	err := dbpkg.FromConn(f.db).WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		refund, err = f.svc.SettleCancellation(ctx, tx, order, 140, admin())
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, refund.CostDistribution)
	assert.Equal(t, types.CostDistribution{FromStoreCents: 100, FromPlatformCents: 40}, *refund.CostDistribution)
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(t, nil)
	order := f.seedOrder(t, enums.OrderStatusDelivered)
	ctx := context.Background()
	first := f.requestRefund(t, order, 10)
	f.requestRefund(t, order, 20)

	_, err := f.svc.Reject(ctx, admin(), first.ID, RejectInput{Reason: "duplicate"})
	require.NoError(t, err)

	status := enums.RefundRequestPendingReview
	list, err := f.svc.List(ctx, ListFilters{Status: &status}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, int64(20), list.Items[0].RequestedAmountCents)
	assert.Empty(t, list.NextCursor)
}

package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/courierline-backend/pkg/db/dbtest"
	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	"github.com/angelmondragon/courierline-backend/pkg/pagination"
	"github.com/angelmondragon/courierline-backend/pkg/types"
)

// newOrder returns the reference order: subtotal 120, delivery 20, tip 10,
// total 150 with a store share of 100.
func newOrder(status enums.OrderStatus) *models.Order {
	return &models.Order{
		ID:                 uuid.New(),
		OrderNumber:        "CL-" + uuid.NewString()[:8],
		CustomerID:         uuid.New(),
		StoreID:            uuid.New(),
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
		Items: []models.OrderItem{
			{Name: "Pad thai", Quantity: 2, UnitPriceCents: 40, TotalPriceCents: 80},
			{Name: "Spring rolls", Quantity: 1, UnitPriceCents: 40, TotalPriceCents: 40},
		},
	}
}

func createOrder(t *testing.T, db *gorm.DB, order *models.Order) *models.Order {
	t.Helper()
	require.NoError(t, NewRepository(db).CreateOrder(context.Background(), order))
	return order
}

func TestRepositoryCreateAndFindKeepsItemOrder(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	order := createOrder(t, db, newOrder(enums.OrderStatusPlaced))

	found, err := repo.FindOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), found.Version)
	require.Len(t, found.Items, 2)
	assert.Equal(t, "Pad thai", found.Items[0].Name)
	assert.Equal(t, 0, found.Items[0].Position)
	assert.Equal(t, "Spring rolls", found.Items[1].Name)
	assert.Equal(t, int64(100), found.PaymentSplit.StoreAmountCents)
	assert.True(t, decimal.RequireFromString("0.1667").Equal(found.PlatformMarkupRate))
}

func TestRepositoryFindMissing(t *testing.T) {
	db := dbtest.Open(t)
	_, err := NewRepository(db).FindOrder(context.Background(), uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryUpdateOrderVersioned(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	order := createOrder(t, db, newOrder(enums.OrderStatusPlaced))

	require.NoError(t, repo.UpdateOrderVersioned(ctx, order.ID, 1, map[string]any{"status": enums.OrderStatusConfirmed}))

	err := repo.UpdateOrderVersioned(ctx, order.ID, 1, map[string]any{"status": enums.OrderStatusPreparing})
	require.ErrorIs(t, err, ErrVersionConflict)

	found, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, found.Status)
	assert.Equal(t, int64(2), found.Version)
}

func TestRepositoryAppendTrackingEntrySequences(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	order := createOrder(t, db, newOrder(enums.OrderStatusPlaced))

	for _, status := range []enums.OrderStatus{enums.OrderStatusConfirmed, enums.OrderStatusPreparing, enums.OrderStatusReadyForPickup} {
		require.NoError(t, repo.AppendTrackingEntry(ctx, &models.OrderTrackingEntry{
			OrderID:    order.ID,
			Status:     status,
			ActorRole:  enums.ActorRoleStoreManager,
			RecordedAt: time.Now().UTC(),
		}))
	}

	found, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, found.TrackingHistory, 3)
	for i, entry := range found.TrackingHistory {
		assert.Equal(t, i+1, entry.Sequence)
	}
	assert.Equal(t, enums.OrderStatusReadyForPickup, found.TrackingHistory[2].Status)
}

func TestRepositoryAssignments(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	order := createOrder(t, db, newOrder(enums.OrderStatusReadyForPickup))

	require.NoError(t, repo.CreateAssignment(ctx, &models.OrderAssignment{
		OrderID:    order.ID,
		RiderID:    uuid.New(),
		AssignedAt: time.Now().UTC(),
		Active:     true,
	}))
	require.NoError(t, repo.DeactivateAssignments(ctx, order.ID, time.Now().UTC()))

	var active int64
	require.NoError(t, db.Model(&models.OrderAssignment{}).Where("order_id = ? AND active = ?", order.ID, true).Count(&active).Error)
	assert.Equal(t, int64(0), active)
}

func TestRepositoryListOrdersFiltersAndPages(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	store := uuid.New()

	for i := 0; i < 3; i++ {
		order := newOrder(enums.OrderStatusPlaced)
		order.StoreID = store
		createOrder(t, db, order)
	}
	createOrder(t, db, newOrder(enums.OrderStatusPlaced))

	rows, err := repo.ListOrders(ctx, ListFilters{StoreID: &store}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	// one extra row signals another page
	assert.Len(t, rows, 3)

	delivered := enums.OrderStatusDelivered
	rows, err = repo.ListOrders(ctx, ListFilters{StoreID: &store, Status: &delivered}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

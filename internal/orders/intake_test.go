package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/courierline-backend/pkg/db/dbtest"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
)

func referenceIntake() IntakeInput {
	return IntakeInput{
		OrderNumber: "CL-1001",
		CustomerID:  uuid.New(),
		StoreID:     uuid.New(),
		Items: []IntakeItem{
			{Name: "Pad thai", Quantity: 2, UnitPriceCents: 40},
			{Name: "Spring rolls", Quantity: 1, UnitPriceCents: 40},
		},
		DeliveryFeeCents:   20,
		TipCents:           10,
		PlatformMarkupRate: decimal.RequireFromString("0.1667"),
	}
}

func TestBuildOrderDerivesTotalsAndSplit(t *testing.T) {
	now := time.Now().UTC()
	order, err := BuildOrder(referenceIntake(), now)
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPlaced, order.Status)
	assert.Equal(t, int64(120), order.SubtotalCents)
	assert.Equal(t, int64(150), order.TotalCents)
	assert.Equal(t, int64(100), order.PaymentSplit.StoreAmountCents)
	assert.Equal(t, int64(30), order.PaymentSplit.DriverAmountCents)
	assert.Equal(t, int64(20), order.PaymentSplit.PlatformAmountCents)
	assert.Equal(t, order.TotalCents, order.PaymentSplit.SumCents())
	require.Len(t, order.TrackingHistory, 1)
	assert.Equal(t, 1, order.TrackingHistory[0].Sequence)
	assert.Equal(t, now, order.TrackingHistory[0].RecordedAt)

	db := dbtest.Open(t)
	repo := NewRepository(db)
	require.NoError(t, repo.CreateOrder(context.Background(), order))
	found, err := repo.FindOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, found.Items, 2)
	assert.Len(t, found.TrackingHistory, 1)
	assert.Equal(t, int64(80), found.Items[0].TotalPriceCents)
}

func TestBuildOrderRejectsBadInput(t *testing.T) {
	cases := map[string]func(*IntakeInput){
		"no items":        func(in *IntakeInput) { in.Items = nil },
		"zero quantity":   func(in *IntakeInput) { in.Items[0].Quantity = 0 },
		"missing store":   func(in *IntakeInput) { in.StoreID = uuid.Nil },
		"blank number":    func(in *IntakeInput) { in.OrderNumber = " " },
		"markup too high": func(in *IntakeInput) { in.PlatformMarkupRate = decimal.NewFromInt(1) },
		"huge discount":   func(in *IntakeInput) { in.DiscountCents = 1000 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := referenceIntake()
			mutate(&in)
			_, err := BuildOrder(in, time.Now())
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}

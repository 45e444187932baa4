package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/courierline-backend/internal/split"
	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
)

// IntakeItem is one priced line handed over by checkout.
type IntakeItem struct {
	ProductID      *uuid.UUID
	Name           string
	Quantity       int
	UnitPriceCents int64
}

// IntakeInput is a paid order as checkout hands it over. Prices are taken as
// given; only the split and totals are derived here.
type IntakeInput struct {
	OrderNumber         string
	CustomerID          uuid.UUID
	StoreID             uuid.UUID
	Items               []IntakeItem
	DeliveryFeeCents    int64
	TipCents            int64
	DiscountCents       int64
	PlatformMarkupRate  decimal.Decimal
	SpecialInstructions *string
}

// BuildOrder turns a checkout handoff into a placed order with its payment
// split and the first tracking entry. The result is ready for CreateOrder.
func BuildOrder(in IntakeInput, now time.Time) (*models.Order, error) {
	if strings.TrimSpace(in.OrderNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	if in.CustomerID == uuid.Nil || in.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer and store are required")
	}
	if len(in.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item")
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	var subtotal int64
	for i, item := range in.Items {
		if item.Quantity <= 0 || item.UnitPriceCents < 0 || strings.TrimSpace(item.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d is invalid", i))
		}
		line := int64(item.Quantity) * item.UnitPriceCents
		subtotal += line
		items = append(items, models.OrderItem{
			ProductID:       item.ProductID,
			Name:            strings.TrimSpace(item.Name),
			Quantity:        item.Quantity,
			UnitPriceCents:  item.UnitPriceCents,
			TotalPriceCents: line,
		})
	}

	splitIn := split.Input{
		SubtotalCents:      subtotal,
		DeliveryFeeCents:   in.DeliveryFeeCents,
		TipCents:           in.TipCents,
		DiscountCents:      in.DiscountCents,
		PlatformMarkupRate: in.PlatformMarkupRate,
	}
	paymentSplit, err := split.ComputeSplit(splitIn)
	if err != nil {
		return nil, err
	}
	total := splitIn.TotalCents()
	if err := split.Verify(paymentSplit, total); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "payment split does not balance")
	}

	return &models.Order{
		ID:                  uuid.New(),
		OrderNumber:         strings.TrimSpace(in.OrderNumber),
		CustomerID:          in.CustomerID,
		StoreID:             in.StoreID,
		Status:              enums.OrderStatusPlaced,
		PaymentStatus:       enums.PaymentStatusPaid,
		RefundStatus:        enums.RefundStatusNone,
		SubtotalCents:       subtotal,
		DeliveryFeeCents:    in.DeliveryFeeCents,
		TipCents:            in.TipCents,
		DiscountCents:       in.DiscountCents,
		TotalCents:          total,
		PlatformMarkupRate:  in.PlatformMarkupRate,
		PaymentSplit:        paymentSplit,
		SpecialInstructions: in.SpecialInstructions,
		Version:             1,
		Items:               items,
		TrackingHistory: []models.OrderTrackingEntry{{
			ID:         uuid.New(),
			Sequence:   1,
			Status:     enums.OrderStatusPlaced,
			ActorRole:  enums.ActorRoleSystem,
			RecordedAt: now,
		}},
	}, nil
}

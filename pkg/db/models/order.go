package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/courierline-backend/pkg/enums"
	"github.com/angelmondragon/courierline-backend/pkg/types"
)

// Order is a single customer delivery order placed with one store.
type Order struct {
	ID                  uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber         string               `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID          uuid.UUID            `gorm:"column:customer_id;type:uuid;not null"`
	StoreID             uuid.UUID            `gorm:"column:store_id;type:uuid;not null"`
	RiderID             *uuid.UUID           `gorm:"column:rider_id;type:uuid"`
	Status              enums.OrderStatus    `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus       enums.PaymentStatus  `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	RefundStatus        enums.RefundStatus   `gorm:"column:refund_status;type:refund_status;not null;default:'none'"`
	SubtotalCents       int64                `gorm:"column:subtotal_cents;not null"`
	DeliveryFeeCents    int64                `gorm:"column:delivery_fee_cents;not null;default:0"`
	TipCents            int64                `gorm:"column:tip_cents;not null;default:0"`
	DiscountCents       int64                `gorm:"column:discount_cents;not null;default:0"`
	TotalCents          int64                `gorm:"column:total_cents;not null"`
	RefundedCents       int64                `gorm:"column:refunded_cents;not null;default:0"`
	PlatformMarkupRate  decimal.Decimal      `gorm:"column:platform_markup_rate;type:numeric(5,4);not null"`
	PaymentSplit        types.PaymentSplit   `gorm:"embedded;embeddedPrefix:split_"`
	InternalNotes       *string              `gorm:"column:internal_notes"`
	SpecialInstructions *string              `gorm:"column:special_instructions"`
	CancellationReason  *string              `gorm:"column:cancellation_reason"`
	CancelledBy         *uuid.UUID           `gorm:"column:cancelled_by;type:uuid"`
	CancelledAt         *time.Time           `gorm:"column:cancelled_at"`
	RejectionReason     *string              `gorm:"column:rejection_reason"`
	RejectedBy          *uuid.UUID           `gorm:"column:rejected_by;type:uuid"`
	RejectedByRole      *enums.ActorRole     `gorm:"column:rejected_by_role;type:text"`
	RejectedAt          *time.Time           `gorm:"column:rejected_at"`
	DeliveredAt         *time.Time           `gorm:"column:delivered_at"`
	Version             int64                `gorm:"column:version;not null;default:1"`
	Items               []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TrackingHistory     []OrderTrackingEntry `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// Snapshot freezes the order economics for a refund request.
func (o *Order) Snapshot(at time.Time) types.OrderSnapshot {
	return types.OrderSnapshot{
		OrderNumber:      o.OrderNumber,
		Status:           string(o.Status),
		SubtotalCents:    o.SubtotalCents,
		DeliveryFeeCents: o.DeliveryFeeCents,
		TipCents:         o.TipCents,
		DiscountCents:    o.DiscountCents,
		TotalCents:       o.TotalCents,
		PaymentSplit:     o.PaymentSplit,
		CapturedAt:       at,
	}
}

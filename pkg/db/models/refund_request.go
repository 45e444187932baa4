package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/pkg/enums"
	"github.com/angelmondragon/courierline-backend/pkg/types"
)

// RefundRequest is a customer (or cancellation) refund moving through review and settlement.
type RefundRequest struct {
	ID                   uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrderID              uuid.UUID                 `gorm:"column:order_id;type:uuid;not null"`
	CustomerID           uuid.UUID                 `gorm:"column:customer_id;type:uuid;not null"`
	StoreID              uuid.UUID                 `gorm:"column:store_id;type:uuid;not null"`
	RiderID              *uuid.UUID                `gorm:"column:rider_id;type:uuid"`
	OrderSnapshot        types.OrderSnapshot       `gorm:"column:order_snapshot;type:jsonb;serializer:json;not null"`
	RequestedAmountCents int64                     `gorm:"column:requested_amount_cents;not null"`
	ApprovedAmountCents  *int64                    `gorm:"column:approved_amount_cents"`
	Reason               enums.RefundReason        `gorm:"column:reason;type:refund_reason;not null"`
	Description          *string                   `gorm:"column:description"`
	Status               enums.RefundRequestStatus `gorm:"column:status;type:refund_request_status;not null;default:'pending_review'"`
	CostDistribution     *types.CostDistribution   `gorm:"column:cost_distribution;type:jsonb;serializer:json"`
	Rationale            *string                   `gorm:"column:rationale"`
	RejectionReason      *string                   `gorm:"column:rejection_reason"`
	AdminNote            *string                   `gorm:"column:admin_note"`
	ReviewedBy           *uuid.UUID                `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt           *time.Time                `gorm:"column:reviewed_at"`
	ProcessedAt          *time.Time                `gorm:"column:processed_at"`
	CompletedAt          *time.Time                `gorm:"column:completed_at"`
	FailureReason        *string                   `gorm:"column:failure_reason"`
	CreatedAt            time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

package refunds

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	"github.com/angelmondragon/courierline-backend/pkg/pagination"
	"github.com/angelmondragon/courierline-backend/pkg/types"
)

// CreateInput opens a refund request against an order.
type CreateInput struct {
	RequestedAmountCents int64
	Reason               enums.RefundReason
	Description          *string
}

// ApproveInput is an admin approval with the per-party split.
type ApproveInput struct {
	Distribution types.CostDistribution
	Rationale    string
	AdminNote    *string
}

// RejectInput is an admin rejection.
type RejectInput struct {
	Reason    string
	AdminNote *string
}

// RefundList is a cursor page of refunds.
type RefundList = pagination.Page[RefundView]

// RefundView is the admin representation of a refund, including the caps an
// approval must respect.
type RefundView struct {
	ID                   uuid.UUID                 `json:"id"`
	OrderID              uuid.UUID                 `json:"order_id"`
	CustomerID           uuid.UUID                 `json:"customer_id"`
	StoreID              uuid.UUID                 `json:"store_id"`
	RiderID              *uuid.UUID                `json:"rider_id,omitempty"`
	OrderSnapshot        types.OrderSnapshot       `json:"order_snapshot"`
	RequestedAmountCents int64                     `json:"requested_amount_cents"`
	ApprovedAmountCents  *int64                    `json:"approved_amount_cents,omitempty"`
	Reason               enums.RefundReason        `json:"reason"`
	Description          *string                   `json:"description,omitempty"`
	Status               enums.RefundRequestStatus `json:"status"`
	CostDistribution     *types.CostDistribution   `json:"cost_distribution,omitempty"`
	Rationale            *string                   `json:"rationale,omitempty"`
	RejectionReason      *string                   `json:"rejection_reason,omitempty"`
	AdminNote            *string                   `json:"admin_note,omitempty"`
	ReviewedBy           *uuid.UUID                `json:"reviewed_by,omitempty"`
	ReviewedAt           *time.Time                `json:"reviewed_at,omitempty"`
	ProcessedAt          *time.Time                `json:"processed_at,omitempty"`
	CompletedAt          *time.Time                `json:"completed_at,omitempty"`
	FailureReason        *string                   `json:"failure_reason,omitempty"`
	Caps                 Caps                      `json:"caps"`
	CreatedAt            time.Time                 `json:"created_at"`
	UpdatedAt            time.Time                 `json:"updated_at"`
}

func newRefundView(r *models.RefundRequest) RefundView {
	return RefundView{
		ID:                   r.ID,
		OrderID:              r.OrderID,
		CustomerID:           r.CustomerID,
		StoreID:              r.StoreID,
		RiderID:              r.RiderID,
		OrderSnapshot:        r.OrderSnapshot,
		RequestedAmountCents: r.RequestedAmountCents,
		ApprovedAmountCents:  r.ApprovedAmountCents,
		Reason:               r.Reason,
		Description:          r.Description,
		Status:               r.Status,
		CostDistribution:     r.CostDistribution,
		Rationale:            r.Rationale,
		RejectionReason:      r.RejectionReason,
		AdminNote:            r.AdminNote,
		ReviewedBy:           r.ReviewedBy,
		ReviewedAt:           r.ReviewedAt,
		ProcessedAt:          r.ProcessedAt,
		CompletedAt:          r.CompletedAt,
		FailureReason:        r.FailureReason,
		Caps:                 capsFor(r.OrderSnapshot, r.RiderID),
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

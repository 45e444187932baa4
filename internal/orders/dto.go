package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/internal/lifecycle"
	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	"github.com/angelmondragon/courierline-backend/pkg/pagination"
	"github.com/angelmondragon/courierline-backend/pkg/types"
)

// ListFilters narrows the order list. Role scoping is applied on top.
type ListFilters struct {
	Status      *enums.OrderStatus
	StoreID     *uuid.UUID
	RiderID     *uuid.UUID
	CustomerID  *uuid.UUID
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// UpdateStatusInput moves an order one step along the lifecycle.
type UpdateStatusInput struct {
	Status          enums.OrderStatus
	Notes           *string
	NotifyCustomer  bool
	ExpectedVersion *int64
}

// AssignRiderInput attaches a rider to an order.
type AssignRiderInput struct {
	RiderID         uuid.UUID
	NotifyRider     bool
	ExpectedVersion *int64
}

// CancelInput cancels an order, optionally refunding part of it.
type CancelInput struct {
	Reason            string
	RefundAmountCents int64
	NotifyCustomer    bool
	ExpectedVersion   *int64
}

// RejectInput records a store or admin rejection.
type RejectInput struct {
	Reason          string
	NotifyCustomer  bool
	ExpectedVersion *int64
}

// UpdateNotesInput edits free-text fields; nil leaves a field untouched.
type UpdateNotesInput struct {
	InternalNotes       *string
	SpecialInstructions *string
	ExpectedVersion     *int64
}

// OrderList is a cursor page of orders.
type OrderList = pagination.Page[OrderView]

// OrderView is the read model returned to dashboards and apps.
type OrderView struct {
	ID                  uuid.UUID               `json:"id"`
	OrderNumber         string                  `json:"order_number"`
	CustomerID          uuid.UUID               `json:"customer_id"`
	StoreID             uuid.UUID               `json:"store_id"`
	RiderID             *uuid.UUID              `json:"rider_id,omitempty"`
	Status              enums.OrderStatus       `json:"status"`
	PaymentStatus       enums.PaymentStatus     `json:"payment_status"`
	RefundStatus        enums.RefundStatus      `json:"refund_status"`
	SubtotalCents       int64                   `json:"subtotal_cents"`
	DeliveryFeeCents    int64                   `json:"delivery_fee_cents"`
	TipCents            int64                   `json:"tip_cents"`
	DiscountCents       int64                   `json:"discount_cents"`
	TotalCents          int64                   `json:"total_cents"`
	RefundedCents       int64                   `json:"refunded_cents"`
	PaymentSplit        types.PaymentSplit      `json:"payment_split"`
	PlatformBreakdown   types.PlatformBreakdown `json:"platform_breakdown"`
	InternalNotes       *string                 `json:"internal_notes,omitempty"`
	SpecialInstructions *string                 `json:"special_instructions,omitempty"`
	CancellationReason  *string                 `json:"cancellation_reason,omitempty"`
	CancelledAt         *time.Time              `json:"cancelled_at,omitempty"`
	RejectionReason     *string                 `json:"rejection_reason,omitempty"`
	RejectedByRole      *enums.ActorRole        `json:"rejected_by_role,omitempty"`
	RejectedAt          *time.Time              `json:"rejected_at,omitempty"`
	DeliveredAt         *time.Time              `json:"delivered_at,omitempty"`
	Version             int64                   `json:"version"`
	Items               []ItemView              `json:"items"`
	TrackingHistory     []TrackingEntryView     `json:"tracking_history"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

type ItemView struct {
	ID              uuid.UUID                `json:"id"`
	ProductID       *uuid.UUID               `json:"product_id,omitempty"`
	Name            string                   `json:"name"`
	Quantity        int                      `json:"quantity"`
	UnitPriceCents  int64                    `json:"unit_price_cents"`
	TotalPriceCents int64                    `json:"total_price_cents"`
	Customizations  types.ItemCustomizations `json:"customizations,omitempty"`
	SelectedVariant *types.ItemVariant       `json:"selected_variant,omitempty"`
}

type TrackingEntryView struct {
	Sequence   int               `json:"sequence"`
	Status     enums.OrderStatus `json:"status"`
	Notes      *string           `json:"notes,omitempty"`
	ActorRole  enums.ActorRole   `json:"actor_role"`
	RecordedAt time.Time         `json:"recorded_at"`
}

// seesInternalNotes reports whether the actor works on the store or ops side.
func seesInternalNotes(role enums.ActorRole) bool {
	return role.IsPrivileged() || role == enums.ActorRoleStoreManager
}

func newOrderView(order *models.Order, actor lifecycle.Actor) OrderView {
	view := OrderView{
		ID:                  order.ID,
		OrderNumber:         order.OrderNumber,
		CustomerID:          order.CustomerID,
		StoreID:             order.StoreID,
		RiderID:             order.RiderID,
		Status:              order.Status,
		PaymentStatus:       order.PaymentStatus,
		RefundStatus:        order.RefundStatus,
		SubtotalCents:       order.SubtotalCents,
		DeliveryFeeCents:    order.DeliveryFeeCents,
		TipCents:            order.TipCents,
		DiscountCents:       order.DiscountCents,
		TotalCents:          order.TotalCents,
		RefundedCents:       order.RefundedCents,
		PaymentSplit:        order.PaymentSplit,
		PlatformBreakdown:   order.PaymentSplit.Breakdown(),
		SpecialInstructions: order.SpecialInstructions,
		CancellationReason:  order.CancellationReason,
		CancelledAt:         order.CancelledAt,
		RejectionReason:     order.RejectionReason,
		RejectedByRole:      order.RejectedByRole,
		RejectedAt:          order.RejectedAt,
		DeliveredAt:         order.DeliveredAt,
		Version:             order.Version,
		Items:               make([]ItemView, 0, len(order.Items)),
		TrackingHistory:     make([]TrackingEntryView, 0, len(order.TrackingHistory)),
		CreatedAt:           order.CreatedAt,
		UpdatedAt:           order.UpdatedAt,
	}
	if seesInternalNotes(actor.Role) {
		view.InternalNotes = order.InternalNotes
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, ItemView{
			ID:              item.ID,
			ProductID:       item.ProductID,
			Name:            item.Name,
			Quantity:        item.Quantity,
			UnitPriceCents:  item.UnitPriceCents,
			TotalPriceCents: item.TotalPriceCents,
			Customizations:  item.Customizations,
			SelectedVariant: item.SelectedVariant,
		})
	}
	for _, entry := range order.TrackingHistory {
		view.TrackingHistory = append(view.TrackingHistory, TrackingEntryView{
			Sequence:   entry.Sequence,
			Status:     entry.Status,
			Notes:      entry.Notes,
			ActorRole:  entry.ActorRole,
			RecordedAt: entry.RecordedAt,
		})
	}
	return view
}

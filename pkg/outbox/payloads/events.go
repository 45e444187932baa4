package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/pkg/enums"
	"github.com/angelmondragon/courierline-backend/pkg/types"
)

// OrderStatusChangedEvent is emitted for every tracking entry appended to an order.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	StoreID    uuid.UUID         `json:"store_id"`
	CustomerID uuid.UUID         `json:"customer_id"`
	RiderID    *uuid.UUID        `json:"rider_id,omitempty"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	Notes      *string           `json:"notes,omitempty"`
	ActorRole  enums.ActorRole   `json:"actor_role"`
	Sequence   int               `json:"sequence"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// OrderRiderAssignedEvent is emitted when a rider takes an order.
type OrderRiderAssignedEvent struct {
	OrderID    uuid.UUID  `json:"order_id"`
	StoreID    uuid.UUID  `json:"store_id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	RiderID    uuid.UUID  `json:"rider_id"`
	AssignedBy *uuid.UUID `json:"assigned_by,omitempty"`
	AssignedAt time.Time  `json:"assigned_at"`
}

// OrderCancelledEvent is emitted when an order is cancelled.
type OrderCancelledEvent struct {
	OrderID           uuid.UUID       `json:"order_id"`
	StoreID           uuid.UUID       `json:"store_id"`
	CustomerID        uuid.UUID       `json:"customer_id"`
	RiderID           *uuid.UUID      `json:"rider_id,omitempty"`
	Reason            string          `json:"reason"`
	RefundAmountCents int64           `json:"refund_amount_cents"`
	RefundRequestID   *uuid.UUID      `json:"refund_request_id,omitempty"`
	ActorRole         enums.ActorRole `json:"actor_role"`
	CancelledAt       time.Time       `json:"cancelled_at"`
}

// OrderRejectedEvent is emitted when a store or admin rejects an order.
type OrderRejectedEvent struct {
	OrderID        uuid.UUID       `json:"order_id"`
	StoreID        uuid.UUID       `json:"store_id"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	Reason         string          `json:"reason"`
	RejectedBy     *uuid.UUID      `json:"rejected_by,omitempty"`
	RejectedByRole enums.ActorRole `json:"rejected_by_role"`
	RejectedAt     time.Time       `json:"rejected_at"`
}

// OrderRefundedEvent is emitted once completed refunds cover the order total.
type OrderRefundedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	RefundedCents int64     `json:"refunded_cents"`
	TotalCents    int64     `json:"total_cents"`
}

// RefundRequestedEvent is emitted when a customer opens a refund request.
type RefundRequestedEvent struct {
	RefundRequestID      uuid.UUID          `json:"refund_request_id"`
	OrderID              uuid.UUID          `json:"order_id"`
	CustomerID           uuid.UUID          `json:"customer_id"`
	StoreID              uuid.UUID          `json:"store_id"`
	RequestedAmountCents int64              `json:"requested_amount_cents"`
	Reason               enums.RefundReason `json:"reason"`
}

// RefundDecisionEvent covers both approvals and rejections.
type RefundDecisionEvent struct {
	RefundRequestID     uuid.UUID                 `json:"refund_request_id"`
	OrderID             uuid.UUID                 `json:"order_id"`
	CustomerID          uuid.UUID                 `json:"customer_id"`
	Status              enums.RefundRequestStatus `json:"status"`
	ApprovedAmountCents *int64                    `json:"approved_amount_cents,omitempty"`
	Distribution        *types.CostDistribution   `json:"distribution,omitempty"`
	RejectionReason     *string                   `json:"rejection_reason,omitempty"`
	ReviewedBy          *uuid.UUID                `json:"reviewed_by,omitempty"`
	ReviewedAt          time.Time                 `json:"reviewed_at"`
}

// RefundSettlementEvent reports the wallet credit outcome of an approved refund.
type RefundSettlementEvent struct {
	RefundRequestID uuid.UUID                 `json:"refund_request_id"`
	OrderID         uuid.UUID                 `json:"order_id"`
	CustomerID      uuid.UUID                 `json:"customer_id"`
	Status          enums.RefundRequestStatus `json:"status"`
	AmountCents     int64                     `json:"amount_cents"`
	FailureReason   *string                   `json:"failure_reason,omitempty"`
	SettledAt       time.Time                 `json:"settled_at"`
}

// NotificationRequestedEvent asks the notification service to alert a party.
type NotificationRequestedEvent struct {
	OrderID       uuid.UUID                  `json:"order_id"`
	RecipientRole enums.ActorRole            `json:"recipient_role"`
	RecipientID   uuid.UUID                  `json:"recipient_id"`
	Template      enums.NotificationTemplate `json:"template"`
	Data          map[string]string          `json:"data,omitempty"`
}

package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregateRefundRequest OutboxAggregateType = "refund_request"
	AggregateNotification  OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateRefundRequest,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderStatusChanged    OutboxEventType = "order_status_changed"
	EventOrderRiderAssigned    OutboxEventType = "order_rider_assigned"
	EventOrderCancelled        OutboxEventType = "order_cancelled"
	EventOrderRejected         OutboxEventType = "order_rejected"
	EventOrderRefunded         OutboxEventType = "order_refunded"
	EventRefundRequested       OutboxEventType = "refund_requested"
	EventRefundApproved        OutboxEventType = "refund_approved"
	EventRefundRejected        OutboxEventType = "refund_rejected"
	EventRefundCompleted       OutboxEventType = "refund_completed"
	EventRefundFailed          OutboxEventType = "refund_failed"
	EventNotificationRequested OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderStatusChanged,
	EventOrderRiderAssigned,
	EventOrderCancelled,
	EventOrderRejected,
	EventOrderRefunded,
	EventRefundRequested,
	EventRefundApproved,
	EventRefundRejected,
	EventRefundCompleted,
	EventRefundFailed,
	EventNotificationRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

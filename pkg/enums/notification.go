package enums

import "fmt"

// NotificationTemplate names the message a notification_requested event renders.
type NotificationTemplate string

const (
	NotificationOrderStatusChanged NotificationTemplate = "order_status_changed"
	NotificationOrderRiderAssigned NotificationTemplate = "order_rider_assigned"
	NotificationOrderCancelled     NotificationTemplate = "order_cancelled"
	NotificationOrderRejected      NotificationTemplate = "order_rejected"
	NotificationRefundApproved     NotificationTemplate = "refund_approved"
	NotificationRefundRejected     NotificationTemplate = "refund_rejected"
	NotificationRefundCompleted    NotificationTemplate = "refund_completed"
)

var validNotificationTemplates = []NotificationTemplate{
	NotificationOrderStatusChanged,
	NotificationOrderRiderAssigned,
	NotificationOrderCancelled,
	NotificationOrderRejected,
	NotificationRefundApproved,
	NotificationRefundRejected,
	NotificationRefundCompleted,
}

// IsValid checks whether the given template matches the canonical list.
func (n NotificationTemplate) IsValid() bool {
	for _, candidate := range validNotificationTemplates {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationTemplate converts raw strings into NotificationTemplate.
func ParseNotificationTemplate(value string) (NotificationTemplate, error) {
	for _, candidate := range validNotificationTemplates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification template %q", value)
}

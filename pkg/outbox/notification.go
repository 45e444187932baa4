package outbox

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/pkg/enums"
	"github.com/angelmondragon/courierline-backend/pkg/outbox/payloads"
)

// NotificationEvent builds a notification_requested event about an order.
func NotificationEvent(orderID uuid.UUID, role enums.ActorRole, recipient uuid.UUID, template enums.NotificationTemplate, data map[string]string) DomainEvent {
	return DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateNotification,
		AggregateID:   orderID,
		Data: payloads.NotificationRequestedEvent{
			OrderID:       orderID,
			RecipientRole: role,
			RecipientID:   recipient,
			Template:      template,
			Data:          data,
		},
	}
}

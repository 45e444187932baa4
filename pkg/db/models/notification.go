package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/pkg/enums"
)

// Notification is an in-app inbox entry rendered from a notification_requested
// event. EventID is unique so a redelivered event never creates a second row.
type Notification struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	EventID       uuid.UUID                  `gorm:"column:event_id;type:uuid;not null" json:"-"`
	OrderID       uuid.UUID                  `gorm:"column:order_id;type:uuid;not null" json:"order_id"`
	RecipientRole enums.ActorRole            `gorm:"column:recipient_role;type:text;not null" json:"recipient_role"`
	RecipientID   uuid.UUID                  `gorm:"column:recipient_id;type:uuid;not null" json:"recipient_id"`
	Template      enums.NotificationTemplate `gorm:"column:template;type:text;not null" json:"template"`
	Title         string                     `gorm:"column:title;not null" json:"title"`
	Message       string                     `gorm:"column:message;not null" json:"message"`
	Link          *string                    `gorm:"column:link" json:"link,omitempty"`
	Data          map[string]string          `gorm:"column:data;type:jsonb;serializer:json" json:"data,omitempty"`
	ReadAt        *time.Time                 `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt     time.Time                  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

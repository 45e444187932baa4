package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/pkg/enums"
)

// OrderTrackingEntry is an insert-only timeline row. Sequence is unique per order.
type OrderTrackingEntry struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	Sequence   int               `gorm:"column:sequence;not null"`
	Status     enums.OrderStatus `gorm:"column:status;type:order_status;not null"`
	Notes      *string           `gorm:"column:notes"`
	ActorRole  enums.ActorRole   `gorm:"column:actor_role;type:text;not null"`
	ActorID    *uuid.UUID        `gorm:"column:actor_id;type:uuid"`
	RecordedAt time.Time         `gorm:"column:recorded_at;not null"`
}

func (OrderTrackingEntry) TableName() string {
	return "order_tracking_entries"
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderAssignment captures rider assignment history for an order.
type OrderAssignment struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	RiderID          uuid.UUID  `gorm:"column:rider_id;type:uuid;not null"`
	AssignedByUserID *uuid.UUID `gorm:"column:assigned_by_user_id;type:uuid"`
	AssignedAt       time.Time  `gorm:"column:assigned_at;not null"`
	UnassignedAt     *time.Time `gorm:"column:unassigned_at"`
	Active           bool       `gorm:"column:active;not null;default:true"`
}

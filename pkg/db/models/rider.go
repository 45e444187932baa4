package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/pkg/types"
)

// Rider is the delivery driver profile. ID equals the rider's user id.
type Rider struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	DisplayName       string          `gorm:"column:display_name;not null"`
	Phone             *string         `gorm:"column:phone"`
	IsAvailable       bool            `gorm:"column:is_available;not null;default:false"`
	IsSuspended       bool            `gorm:"column:is_suspended;not null;default:false"`
	CurrentLocation   *types.GeoPoint `gorm:"column:current_location;type:jsonb;serializer:json"`
	LocationUpdatedAt *time.Time      `gorm:"column:location_updated_at"`
	ActiveOrderID     *uuid.UUID      `gorm:"column:active_order_id;type:uuid"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

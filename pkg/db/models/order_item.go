package models

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/pkg/types"
)

// OrderItem is one line of an order. Position keeps the checkout ordering.
type OrderItem struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID                `gorm:"column:order_id;type:uuid;not null"`
	Position        int                      `gorm:"column:position;not null"`
	ProductID       *uuid.UUID               `gorm:"column:product_id;type:uuid"`
	Name            string                   `gorm:"column:name;not null"`
	Quantity        int                      `gorm:"column:quantity;not null"`
	UnitPriceCents  int64                    `gorm:"column:unit_price_cents;not null"`
	TotalPriceCents int64                    `gorm:"column:total_price_cents;not null"`
	Customizations  types.ItemCustomizations `gorm:"column:customizations;type:jsonb;serializer:json"`
	SelectedVariant *types.ItemVariant       `gorm:"column:selected_variant;type:jsonb;serializer:json"`
}

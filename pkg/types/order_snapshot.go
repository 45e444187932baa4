package types

import "time"

// OrderSnapshot freezes the order economics a refund request was raised against.
type OrderSnapshot struct {
	OrderNumber      string       `json:"order_number"`
	Status           string       `json:"status"`
	SubtotalCents    int64        `json:"subtotal_cents"`
	DeliveryFeeCents int64        `json:"delivery_fee_cents"`
	TipCents         int64        `json:"tip_cents"`
	DiscountCents    int64        `json:"discount_cents"`
	TotalCents       int64        `json:"total_cents"`
	PaymentSplit     PaymentSplit `json:"payment_split"`
	CapturedAt       time.Time    `json:"captured_at"`
}

// CostDistribution says which party funds each part of an approved refund.
type CostDistribution struct {
	FromStoreCents    int64 `json:"from_store_cents"`
	FromDriverCents   int64 `json:"from_driver_cents"`
	FromPlatformCents int64 `json:"from_platform_cents"`
}

func (d CostDistribution) SumCents() int64 {
	return d.FromStoreCents + d.FromDriverCents + d.FromPlatformCents
}

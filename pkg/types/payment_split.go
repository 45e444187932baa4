package types

// PaymentSplit is the three-way division of an order total. It is stored as
// flat columns on the order row.
type PaymentSplit struct {
	StoreAmountCents      int64 `gorm:"column:store_amount_cents;not null;default:0" json:"store_amount_cents"`
	DriverAmountCents     int64 `gorm:"column:driver_amount_cents;not null;default:0" json:"driver_amount_cents"`
	PlatformAmountCents   int64 `gorm:"column:platform_amount_cents;not null;default:0" json:"platform_amount_cents"`
	TotalMarkupCents      int64 `gorm:"column:total_markup_cents;not null;default:0" json:"total_markup_cents"`
	DiscountAbsorbedCents int64 `gorm:"column:discount_absorbed_cents;not null;default:0" json:"discount_absorbed_cents"`
	NetEarningsCents      int64 `gorm:"column:net_earnings_cents;not null;default:0" json:"net_earnings_cents"`
}

// PlatformBreakdown explains how the platform share was derived.
type PlatformBreakdown struct {
	TotalMarkupCents      int64 `json:"total_markup_cents"`
	DiscountAbsorbedCents int64 `json:"discount_absorbed_cents"`
	NetEarningsCents      int64 `json:"net_earnings_cents"`
}

func (p PaymentSplit) Breakdown() PlatformBreakdown {
	return PlatformBreakdown{
		TotalMarkupCents:      p.TotalMarkupCents,
		DiscountAbsorbedCents: p.DiscountAbsorbedCents,
		NetEarningsCents:      p.NetEarningsCents,
	}
}

// SumCents is store + driver + platform.
func (p PaymentSplit) SumCents() int64 {
	return p.StoreAmountCents + p.DriverAmountCents + p.PlatformAmountCents
}

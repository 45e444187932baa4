// Package split divides an order total between store, rider and platform.
package split

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
	"github.com/angelmondragon/courierline-backend/pkg/types"
)

// Input carries the order amounts in cents.
type Input struct {
	SubtotalCents      int64
	DeliveryFeeCents   int64
	TipCents           int64
	DiscountCents      int64
	PlatformMarkupRate decimal.Decimal
}

// TotalCents is subtotal + delivery fee + tip - discount.
func (in Input) TotalCents() int64 {
	return in.SubtotalCents + in.DeliveryFeeCents + in.TipCents - in.DiscountCents
}

var one = decimal.NewFromInt(1)

// ComputeSplit derives the payment split. The rider receives the delivery fee
// plus tip, the store receives the subtotal less the platform markup, and the
// platform takes whatever remains so the three shares sum to the total exactly.
// The platform absorbs the whole discount, so its share can go negative.
func ComputeSplit(in Input) (types.PaymentSplit, error) {
	if err := validate(in); err != nil {
		return types.PaymentSplit{}, err
	}
	total := in.TotalCents()

	markup := decimal.NewFromInt(in.SubtotalCents).Mul(in.PlatformMarkupRate).Round(0).IntPart()
	store := in.SubtotalCents - markup
	driver := in.DeliveryFeeCents + in.TipCents
	platform := total - store - driver

	return types.PaymentSplit{
		StoreAmountCents:      store,
		DriverAmountCents:     driver,
		PlatformAmountCents:   platform,
		TotalMarkupCents:      markup,
		DiscountAbsorbedCents: in.DiscountCents,
		NetEarningsCents:      platform,
	}, nil
}

func validate(in Input) error {
	amounts := map[string]int64{
		"subtotal_cents":     in.SubtotalCents,
		"delivery_fee_cents": in.DeliveryFeeCents,
		"tip_cents":          in.TipCents,
		"discount_cents":     in.DiscountCents,
	}
	for field, v := range amounts {
		if v < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be >= 0", field))
		}
	}
	if in.PlatformMarkupRate.IsNegative() || in.PlatformMarkupRate.GreaterThanOrEqual(one) {
		return pkgerrors.New(pkgerrors.CodeValidation, "platform markup rate must be in [0, 1)")
	}
	if in.TotalCents() < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount exceeds order amount")
	}
	return nil
}

// Verify checks the split sums to total and the platform breakdown is consistent.
func Verify(s types.PaymentSplit, totalCents int64) error {
	if s.SumCents() != totalCents {
		return fmt.Errorf("split sums to %d, expected %d", s.SumCents(), totalCents)
	}
	if s.TotalMarkupCents-s.DiscountAbsorbedCents != s.PlatformAmountCents {
		return fmt.Errorf("platform amount %d does not match markup %d minus discount %d",
			s.PlatformAmountCents, s.TotalMarkupCents, s.DiscountAbsorbedCents)
	}
	if s.NetEarningsCents != s.PlatformAmountCents {
		return fmt.Errorf("net earnings %d differ from platform amount %d", s.NetEarningsCents, s.PlatformAmountCents)
	}
	return nil
}

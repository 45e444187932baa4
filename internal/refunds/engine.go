package refunds

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/pkg/types"
)

// Caps bound how much of a refund each party can be charged. The platform is
// uncapped.
type Caps struct {
	MaxFromStoreCents  int64 `json:"max_from_store_cents"`
	MaxFromDriverCents int64 `json:"max_from_driver_cents"`
}

// Approval is a validated refund decision.
type Approval struct {
	ApprovedAmountCents int64
	Distribution        types.CostDistribution
}

// ComputeCaps derives the caps from the order snapshot taken when the refund was opened.
func ComputeCaps(snapshot types.OrderSnapshot) Caps {
	return Caps{
		MaxFromStoreCents:  snapshot.PaymentSplit.StoreAmountCents,
		MaxFromDriverCents: snapshot.DeliveryFeeCents + snapshot.TipCents,
	}
}

// capsFor is ComputeCaps for a concrete refund: without a rider there is no
// driver wallet to debit.
func capsFor(snapshot types.OrderSnapshot, riderID *uuid.UUID) Caps {
	caps := ComputeCaps(snapshot)
	if riderID == nil {
		caps.MaxFromDriverCents = 0
	}
	return caps
}

// ValidateApproval checks caps first, then amounts, then the rationale.
func ValidateApproval(dist types.CostDistribution, caps Caps, requestedCents, orderTotalCents int64, rationale string) (Approval, error) {
	if dist.FromStoreCents > caps.MaxFromStoreCents {
		return Approval{}, &CapExceededError{Party: "store", AmountCents: dist.FromStoreCents, CapCents: caps.MaxFromStoreCents}
	}
	if dist.FromDriverCents > caps.MaxFromDriverCents {
		return Approval{}, &CapExceededError{Party: "driver", AmountCents: dist.FromDriverCents, CapCents: caps.MaxFromDriverCents}
	}

	sum := dist.SumCents()
	invalid := func(reason string) error {
		return &InvalidAmountError{
			Reason:         reason,
			SumCents:       sum,
			RequestedCents: requestedCents,
			OrderTotal:     orderTotalCents,
		}
	}
	switch {
	case dist.FromStoreCents < 0 || dist.FromDriverCents < 0 || dist.FromPlatformCents < 0:
		return Approval{}, invalid("distribution amounts must not be negative")
	case sum <= 0:
		return Approval{}, invalid("refund amount must be greater than zero")
	case sum > orderTotalCents:
		return Approval{}, invalid("refund amount exceeds the order total")
	case sum > requestedCents:
		return Approval{}, invalid("refund amount exceeds the requested amount")
	}

	if strings.TrimSpace(rationale) == "" {
		return Approval{}, &MissingRationaleError{}
	}
	return Approval{ApprovedAmountCents: sum, Distribution: dist}, nil
}

// DistributeCancellation splits a cancellation refund store first, then
// driver, then platform, staying inside the caps.
func DistributeCancellation(amountCents int64, caps Caps) types.CostDistribution {
	remaining := amountCents
	take := func(limit int64) int64 {
		if limit < 0 {
			limit = 0
		}
		v := min(remaining, limit)
		remaining -= v
		return v
	}
	dist := types.CostDistribution{}
	dist.FromStoreCents = take(caps.MaxFromStoreCents)
	dist.FromDriverCents = take(caps.MaxFromDriverCents)
	dist.FromPlatformCents = remaining
	return dist
}

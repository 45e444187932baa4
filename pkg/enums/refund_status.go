package enums

import "fmt"

// RefundStatus summarises how much of an order has been refunded.
type RefundStatus string

const (
	RefundStatusNone    RefundStatus = "none"
	RefundStatusPartial RefundStatus = "partial"
	RefundStatusFull    RefundStatus = "full"
)

var validRefundStatuses = []RefundStatus{
	RefundStatusNone,
	RefundStatusPartial,
	RefundStatusFull,
}

// RefundStatusFor derives the order refund status from cumulative refunded cents.
func RefundStatusFor(refundedCents, totalCents int64) RefundStatus {
	switch {
	case refundedCents <= 0:
		return RefundStatusNone
	case refundedCents >= totalCents:
		return RefundStatusFull
	default:
		return RefundStatusPartial
	}
}

func (r RefundStatus) String() string {
	return string(r)
}

func (r RefundStatus) IsValid() bool {
	for _, candidate := range validRefundStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseRefundStatus(value string) (RefundStatus, error) {
	for _, candidate := range validRefundStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund status %q", value)
}

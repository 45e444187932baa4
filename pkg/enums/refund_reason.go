package enums

import "fmt"

// RefundReason is the customer-facing reason attached to a refund request.
type RefundReason string

const (
	RefundReasonNotDelivered        RefundReason = "not_delivered"
	RefundReasonDeliveredWrongItems RefundReason = "delivered_wrong_items"
	RefundReasonMissingItems        RefundReason = "missing_items"
	RefundReasonDamagedItems        RefundReason = "damaged_items"
	RefundReasonQualityIssue        RefundReason = "quality_issue"
	RefundReasonLateDelivery        RefundReason = "late_delivery"
	RefundReasonOrderCancelled      RefundReason = "order_cancelled"
	RefundReasonOther               RefundReason = "other"
)

var validRefundReasons = []RefundReason{
	RefundReasonNotDelivered,
	RefundReasonDeliveredWrongItems,
	RefundReasonMissingItems,
	RefundReasonDamagedItems,
	RefundReasonQualityIssue,
	RefundReasonLateDelivery,
	RefundReasonOrderCancelled,
	RefundReasonOther,
}

func (r RefundReason) String() string {
	return string(r)
}

func (r RefundReason) IsValid() bool {
	for _, candidate := range validRefundReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseRefundReason(value string) (RefundReason, error) {
	for _, candidate := range validRefundReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund reason %q", value)
}

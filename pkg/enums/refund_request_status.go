package enums

import "fmt"

// RefundRequestStatus tracks a refund request through review and settlement.
type RefundRequestStatus string

const (
	RefundRequestPendingReview RefundRequestStatus = "pending_review"
	RefundRequestUnderReview   RefundRequestStatus = "under_review"
	RefundRequestApproved      RefundRequestStatus = "approved"
	RefundRequestRejected      RefundRequestStatus = "rejected"
	RefundRequestProcessing    RefundRequestStatus = "processing"
	RefundRequestCompleted     RefundRequestStatus = "completed"
	RefundRequestFailed        RefundRequestStatus = "failed"
)

var validRefundRequestStatuses = []RefundRequestStatus{
	RefundRequestPendingReview,
	RefundRequestUnderReview,
	RefundRequestApproved,
	RefundRequestRejected,
	RefundRequestProcessing,
	RefundRequestCompleted,
	RefundRequestFailed,
}

// UndecidedRefundStatuses are the statuses from which an admin decision is accepted.
var UndecidedRefundStatuses = []RefundRequestStatus{
	RefundRequestPendingReview,
	RefundRequestUnderReview,
}

func (s RefundRequestStatus) String() string {
	return string(s)
}

func (s RefundRequestStatus) IsValid() bool {
	for _, candidate := range validRefundRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsDecided reports whether an approve/reject decision has already been recorded.
func (s RefundRequestStatus) IsDecided() bool {
	for _, candidate := range UndecidedRefundStatuses {
		if candidate == s {
			return false
		}
	}
	return true
}

func ParseRefundRequestStatus(value string) (RefundRequestStatus, error) {
	for _, candidate := range validRefundRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund request status %q", value)
}

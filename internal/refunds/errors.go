package refunds

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
)

// CapExceededError is returned when a party is charged more than its cap.
type CapExceededError struct {
	Party       string
	AmountCents int64
	CapCents    int64
}

func (e *CapExceededError) Error() string {
	return fmt.Sprintf("from_%s %d exceeds cap %d", e.Party, e.AmountCents, e.CapCents)
}

func (e *CapExceededError) APIError() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("refund share for %s exceeds its cap", e.Party)).
		WithDetails(map[string]any{
			"party":        e.Party,
			"amount_cents": e.AmountCents,
			"cap_cents":    e.CapCents,
		})
}

// InvalidAmountError covers non-positive, negative or oversized refund amounts.
type InvalidAmountError struct {
	Reason         string
	SumCents       int64
	RequestedCents int64
	OrderTotal     int64
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid refund amount %d: %s", e.SumCents, e.Reason)
}

func (e *InvalidAmountError) APIError() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, e.Reason).
		WithDetails(map[string]any{
			"sum_cents":         e.SumCents,
			"requested_cents":   e.RequestedCents,
			"order_total_cents": e.OrderTotal,
		})
}

type MissingRationaleError struct{}

func (e *MissingRationaleError) Error() string { return "approval rationale is required" }

func (e *MissingRationaleError) APIError() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, e.Error()).
		WithDetails(map[string]any{"field": "rationale"})
}

// AlreadyDecidedError is returned when a refund has left the review queue.
type AlreadyDecidedError struct {
	RefundID uuid.UUID
	Status   enums.RefundRequestStatus
}

func (e *AlreadyDecidedError) Error() string {
	return fmt.Sprintf("refund %s already decided (%s)", e.RefundID, e.Status)
}

func (e *AlreadyDecidedError) APIError() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeConflict, "refund request has already been decided").
		WithDetails(map[string]any{
			"refund_id": e.RefundID.String(),
			"status":    e.Status,
		})
}

package lifecycle

import (
	"fmt"

	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
)

// InvalidTransitionError is returned when the table refuses a status change.
type InvalidTransitionError struct {
	From   enums.OrderStatus
	To     enums.OrderStatus
	Role   enums.ActorRole
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s for %s: %s", e.From, e.To, e.Role, e.Reason)
}

func (e *InvalidTransitionError) APIError() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed").
		WithDetails(map[string]any{
			"from":   e.From,
			"to":     e.To,
			"role":   e.Role,
			"reason": e.Reason,
		})
}

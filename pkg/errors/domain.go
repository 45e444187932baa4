package errors

import (
	"fmt"

	"github.com/google/uuid"
)

// NotFoundError reports an unknown aggregate id.
type NotFoundError struct {
	Resource string
	ID       uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) APIError() *Error {
	return New(CodeNotFound, e.Resource+" not found")
}

// ConcurrentModificationError is returned when a versioned write lost the race.
type ConcurrentModificationError struct {
	Resource        string
	ID              uuid.UUID
	ExpectedVersion int64
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("%s %s changed since version %d", e.Resource, e.ID, e.ExpectedVersion)
}

func (e *ConcurrentModificationError) APIError() *Error {
	return New(CodeConcurrentModification, e.Resource+" was modified concurrently; reload and retry").
		WithDetails(map[string]any{
			"resource":         e.Resource,
			"id":               e.ID.String(),
			"expected_version": e.ExpectedVersion,
		})
}

package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/courierline-backend/internal/lifecycle"
	"github.com/angelmondragon/courierline-backend/internal/tracking"
	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/outbox"
	"github.com/angelmondragon/courierline-backend/pkg/pagination"
)

// ErrVersionConflict is returned by versioned writes that matched no row.
var ErrVersionConflict = errors.New("order version conflict")

// Repository defines persistence operations for the order aggregate tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	UpdateOrderVersioned(ctx context.Context, orderID uuid.UUID, version int64, updates map[string]any) error
	AppendTrackingEntry(ctx context.Context, entry *models.OrderTrackingEntry) error
	CreateAssignment(ctx context.Context, assignment *models.OrderAssignment) error
	DeactivateAssignments(ctx context.Context, orderID uuid.UUID, at time.Time) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// RiderStore is the slice of rider persistence the order service needs.
type RiderStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Rider, error)
	SetActiveOrder(ctx context.Context, riderID uuid.UUID, orderID *uuid.UUID) error
}

// RiderStoreFactory binds a RiderStore to the current transaction.
type RiderStoreFactory func(tx *gorm.DB) RiderStore

// CancellationRefunder books the refund attached to a cancellation inside the
// cancelling transaction.
type CancellationRefunder interface {
	SettleCancellation(ctx context.Context, tx *gorm.DB, order *models.Order, amountCents int64, actor lifecycle.Actor) (*models.RefundRequest, error)
}

// StatusBroadcaster pushes committed status changes to live subscribers.
type StatusBroadcaster interface {
	PublishStatusChanged(ctx context.Context, change tracking.StatusChanged)
}

// TransitionMetrics counts accepted and refused lifecycle moves.
type TransitionMetrics interface {
	IncTransition(from, to, role string)
	IncRejectedTransition(to, role string)
}

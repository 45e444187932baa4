package riders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/courierline-backend/internal/tracking"
	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
	"github.com/angelmondragon/courierline-backend/pkg/types"
)

type riderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Rider, error)
	UpdateLocation(ctx context.Context, riderID uuid.UUID, point types.GeoPoint, at time.Time) error
}

type locationPublisher interface {
	PublishLocationUpdate(ctx context.Context, update tracking.LocationUpdate)
}

// Service exposes rider operations used by the rider app.
type Service interface {
	Get(ctx context.Context, riderID uuid.UUID) (*models.Rider, error)
	UpdateLocation(ctx context.Context, riderID uuid.UUID, input UpdateLocationInput) (*models.Rider, error)
}

// UpdateLocationInput is a position report. OrderID, when set, must be the
// rider's active order.
type UpdateLocationInput struct {
	OrderID  *uuid.UUID
	Location types.GeoPoint
}

type service struct {
	repo      riderRepository
	publisher locationPublisher
	now       func() time.Time
}

func NewService(repo riderRepository, publisher locationPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rider repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("location publisher required")
	}
	return &service{repo: repo, publisher: publisher, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, riderID uuid.UUID) (*models.Rider, error) {
	rider, err := s.repo.FindByID(ctx, riderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &pkgerrors.NotFoundError{Resource: "rider", ID: riderID}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rider")
	}
	return rider, nil
}

func (s *service) UpdateLocation(ctx context.Context, riderID uuid.UUID, input UpdateLocationInput) (*models.Rider, error) {
	if err := input.Location.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	rider, err := s.Get(ctx, riderID)
	if err != nil {
		return nil, err
	}
	if rider.IsSuspended {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "rider is suspended")
	}
	orderID := rider.ActiveOrderID
	if input.OrderID != nil {
		if rider.ActiveOrderID == nil || *rider.ActiveOrderID != *input.OrderID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this rider")
		}
	}

	at := s.now().UTC()
	if err := s.repo.UpdateLocation(ctx, riderID, input.Location, at); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rider location")
	}
	rider.CurrentLocation = &input.Location
	rider.LocationUpdatedAt = &at

	s.publisher.PublishLocationUpdate(ctx, tracking.LocationUpdate{
		RiderID:     riderID,
		OrderID:     orderID,
		Coordinates: input.Location,
		RecordedAt:  at,
	})
	return rider, nil
}

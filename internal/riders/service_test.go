package riders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/courierline-backend/internal/tracking"
	"github.com/angelmondragon/courierline-backend/pkg/db/dbtest"
	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
	"github.com/angelmondragon/courierline-backend/pkg/types"
)

type capturePublisher struct {
	updates []tracking.LocationUpdate
}

func (c *capturePublisher) PublishLocationUpdate(_ context.Context, update tracking.LocationUpdate) {
	c.updates = append(c.updates, update)
}

func setup(t *testing.T) (*Repository, *capturePublisher, Service) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	pub := &capturePublisher{}
	svc, err := NewService(repo, pub)
	require.NoError(t, err)
	return repo, pub, svc
}

func TestUpdateLocationStoresAndPublishes(t *testing.T) {
	repo, pub, svc := setup(t)
	ctx := context.Background()
	orderID := uuid.New()
	rider := &models.Rider{DisplayName: "Ana", IsAvailable: true, ActiveOrderID: &orderID}
	require.NoError(t, repo.Create(ctx, rider))

	point := types.GeoPoint{Lat: 6.25, Lng: -75.56}
	got, err := svc.UpdateLocation(ctx, rider.ID, UpdateLocationInput{OrderID: &orderID, Location: point})
	require.NoError(t, err)
	assert.Equal(t, point, *got.CurrentLocation)

	stored, err := repo.FindByID(ctx, rider.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CurrentLocation)
	assert.Equal(t, point, *stored.CurrentLocation)
	assert.NotNil(t, stored.LocationUpdatedAt)

	require.Len(t, pub.updates, 1)
	assert.Equal(t, orderID, *pub.updates[0].OrderID)
}

func TestUpdateLocationRejectsForeignOrder(t *testing.T) {
	repo, pub, svc := setup(t)
	ctx := context.Background()
	rider := &models.Rider{DisplayName: "Ben"}
	require.NoError(t, repo.Create(ctx, rider))

	other := uuid.New()
	_, err := svc.UpdateLocation(ctx, rider.ID, UpdateLocationInput{OrderID: &other, Location: types.GeoPoint{Lat: 1, Lng: 1}})
	apiErr := pkgerrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, pkgerrors.CodeForbidden, apiErr.Code())
	assert.Empty(t, pub.updates)
}

func TestUpdateLocationValidatesCoordinates(t *testing.T) {
	_, _, svc := setup(t)
	_, err := svc.UpdateLocation(context.Background(), uuid.New(), UpdateLocationInput{Location: types.GeoPoint{Lat: 91}})
	apiErr := pkgerrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, pkgerrors.CodeValidation, apiErr.Code())
}

func TestGetUnknownRider(t *testing.T) {
	_, _, svc := setup(t)
	_, err := svc.Get(context.Background(), uuid.New())
	apiErr := pkgerrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, pkgerrors.CodeNotFound, apiErr.Code())
}

func TestSetActiveOrderClears(t *testing.T) {
	repo, _, _ := setup(t)
	ctx := context.Background()
	orderID := uuid.New()
	rider := &models.Rider{DisplayName: "Cy", ActiveOrderID: &orderID}
	require.NoError(t, repo.Create(ctx, rider))

	require.NoError(t, repo.SetActiveOrder(ctx, rider.ID, nil))
	stored, err := repo.FindByID(ctx, rider.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ActiveOrderID)
}

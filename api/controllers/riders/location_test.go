package riders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/api/middleware"
	"github.com/angelmondragon/courierline-backend/internal/lifecycle"
	internalriders "github.com/angelmondragon/courierline-backend/internal/riders"
	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
	"github.com/angelmondragon/courierline-backend/pkg/logger"
)

type stubRiderService struct {
	update func(ctx context.Context, riderID uuid.UUID, input internalriders.UpdateLocationInput) (*models.Rider, error)
}

func (s *stubRiderService) Get(ctx context.Context, riderID uuid.UUID) (*models.Rider, error) {
	panic("not implemented")
}

func (s *stubRiderService) UpdateLocation(ctx context.Context, riderID uuid.UUID, input internalriders.UpdateLocationInput) (*models.Rider, error) {
	return s.update(ctx, riderID, input)
}

func riderRequest(body string, role enums.ActorRole, riderID uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rider/location", strings.NewReader(body))
	return req.WithContext(middleware.WithActor(req.Context(), lifecycle.Actor{UserID: riderID, Role: role}))
}

func TestUpdateLocation(t *testing.T) {
	riderID := uuid.New()
	orderID := uuid.New()
	var got internalriders.UpdateLocationInput
	svc := &stubRiderService{
		update: func(ctx context.Context, id uuid.UUID, input internalriders.UpdateLocationInput) (*models.Rider, error) {
			if id != riderID {
				t.Fatalf("expected rider %s got %s", riderID, id)
			}
			got = input
			now := time.Now()
			return &models.Rider{ID: id, ActiveOrderID: &orderID, LocationUpdatedAt: &now}, nil
		},
	}

	resp := httptest.NewRecorder()
	UpdateLocation(svc, logger.Nop())(resp, riderRequest(`{"order_id":"`+orderID.String()+`","lat":40.4168,"lng":-3.7038}`, enums.ActorRoleRider, riderID))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.OrderID == nil || *got.OrderID != orderID {
		t.Fatalf("expected order id passed through")
	}
	if got.Location.Lat != 40.4168 || got.Location.Lng != -3.7038 {
		t.Fatalf("unexpected location %+v", got.Location)
	}
}

func TestUpdateLocationRequiresRider(t *testing.T) {
	resp := httptest.NewRecorder()
	UpdateLocation(&stubRiderService{}, logger.Nop())(resp, riderRequest(`{"lat":1,"lng":1}`, enums.ActorRoleCustomer, uuid.New()))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestUpdateLocationValidatesCoordinates(t *testing.T) {
	resp := httptest.NewRecorder()
	UpdateLocation(&stubRiderService{}, logger.Nop())(resp, riderRequest(`{"lat":91,"lng":1}`, enums.ActorRoleRider, uuid.New()))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	UpdateLocation(&stubRiderService{}, logger.Nop())(resp, riderRequest(`{"lng":1}`, enums.ActorRoleRider, uuid.New()))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestUpdateLocationForbiddenForOtherOrder(t *testing.T) {
	svc := &stubRiderService{
		update: func(ctx context.Context, id uuid.UUID, input internalriders.UpdateLocationInput) (*models.Rider, error) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this rider")
		},
	}
	resp := httptest.NewRecorder()
	UpdateLocation(svc, logger.Nop())(resp, riderRequest(`{"order_id":"`+uuid.NewString()+`","lat":1,"lng":1}`, enums.ActorRoleRider, uuid.New()))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

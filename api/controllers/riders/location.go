package riders

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/api/middleware"
	"github.com/angelmondragon/courierline-backend/api/responses"
	"github.com/angelmondragon/courierline-backend/api/validators"
	internalriders "github.com/angelmondragon/courierline-backend/internal/riders"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
	"github.com/angelmondragon/courierline-backend/pkg/logger"
	"github.com/angelmondragon/courierline-backend/pkg/types"
)

type locationRequest struct {
	OrderID *string  `json:"order_id" validate:"omitempty,uuid"`
	Lat     *float64 `json:"lat" validate:"required,latitude"`
	Lng     *float64 `json:"lng" validate:"required,longitude"`
}

type locationResponse struct {
	RiderID       uuid.UUID      `json:"rider_id"`
	ActiveOrderID *uuid.UUID     `json:"active_order_id,omitempty"`
	Location      types.GeoPoint `json:"location"`
	UpdatedAt     *time.Time     `json:"updated_at,omitempty"`
}

// UpdateLocation stores the rider's position and fans it out to trackers of
// the active order.
func UpdateLocation(svc internalriders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok || actor.Role != enums.ActorRoleRider {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "rider role required"))
			return
		}

		var req locationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalriders.UpdateLocationInput{
			Location: types.GeoPoint{Lat: *req.Lat, Lng: *req.Lng},
		}
		if req.OrderID != nil {
			orderID, err := uuid.Parse(*req.OrderID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order_id"))
				return
			}
			input.OrderID = &orderID
		}

		ctx := logg.WithRiderID(r.Context(), actor.UserID.String())
		rider, err := svc.UpdateLocation(ctx, actor.UserID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, locationResponse{
			RiderID:       rider.ID,
			ActiveOrderID: rider.ActiveOrderID,
			Location:      input.Location,
			UpdatedAt:     rider.LocationUpdatedAt,
		})
	}
}

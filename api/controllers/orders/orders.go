package orders

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/courierline-backend/api/middleware"
	"github.com/angelmondragon/courierline-backend/api/responses"
	"github.com/angelmondragon/courierline-backend/api/validators"
	"github.com/angelmondragon/courierline-backend/internal/lifecycle"
	internalorders "github.com/angelmondragon/courierline-backend/internal/orders"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
	"github.com/angelmondragon/courierline-backend/pkg/logger"
)

const (
	maxReasonLength = 500
	maxNotesLength  = 1000
)

type updateStatusRequest struct {
	Status          string  `json:"status" validate:"required,order_status"`
	Notes           *string `json:"notes" validate:"omitempty,max=1000"`
	NotifyCustomer  bool    `json:"notify_customer"`
	ExpectedVersion *int64  `json:"expected_version" validate:"omitempty,gte=1"`
}

type assignRiderRequest struct {
	RiderID         string `json:"rider_id" validate:"required,uuid"`
	NotifyRider     bool   `json:"notify_rider"`
	ExpectedVersion *int64 `json:"expected_version" validate:"omitempty,gte=1"`
}

type cancelRequest struct {
	Reason            string `json:"reason" validate:"required,max=500"`
	RefundAmountCents int64  `json:"refund_amount_cents" validate:"gte=0"`
	NotifyCustomer    bool   `json:"notify_customer"`
	ExpectedVersion   *int64 `json:"expected_version" validate:"omitempty,gte=1"`
}

type rejectRequest struct {
	Reason          string `json:"reason" validate:"required,max=500"`
	NotifyCustomer  bool   `json:"notify_customer"`
	ExpectedVersion *int64 `json:"expected_version" validate:"omitempty,gte=1"`
}

type updateNotesRequest struct {
	InternalNotes       *string `json:"internal_notes" validate:"omitempty,max=2000"`
	SpecialInstructions *string `json:"special_instructions" validate:"omitempty,max=2000"`
	ExpectedVersion     *int64  `json:"expected_version" validate:"omitempty,gte=1"`
}

// List returns a cursor page of orders visible to the caller.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		filters, err := buildListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), actor, filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one order with its items and tracking history.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// UpdateStatus advances an order one lifecycle step.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(strings.TrimSpace(req.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		ctx := logg.WithOrderID(r.Context(), orderID.String())
		view, err := svc.UpdateStatus(ctx, actor, orderID, internalorders.UpdateStatusInput{
			Status:          status,
			Notes:           validators.SanitizePtr(req.Notes, maxNotesLength),
			NotifyCustomer:  req.NotifyCustomer,
			ExpectedVersion: req.ExpectedVersion,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// AssignRider attaches an available rider to the order.
func AssignRider(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req assignRiderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		riderID, err := parseUUID(req.RiderID, "rider_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithOrderID(r.Context(), orderID.String())
		ctx = logg.WithRiderID(ctx, riderID.String())
		view, err := svc.AssignRider(ctx, actor, orderID, internalorders.AssignRiderInput{
			RiderID:         riderID,
			NotifyRider:     req.NotifyRider,
			ExpectedVersion: req.ExpectedVersion,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Cancel cancels the order, settling refund_amount_cents immediately when positive.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cancelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithOrderID(r.Context(), orderID.String())
		view, err := svc.Cancel(ctx, actor, orderID, internalorders.CancelInput{
			Reason:            validators.SanitizeString(req.Reason, maxReasonLength),
			RefundAmountCents: req.RefundAmountCents,
			NotifyCustomer:    req.NotifyCustomer,
			ExpectedVersion:   req.ExpectedVersion,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func Reject(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req rejectRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithOrderID(r.Context(), orderID.String())
		view, err := svc.Reject(ctx, actor, orderID, internalorders.RejectInput{
			Reason:          validators.SanitizeString(req.Reason, maxReasonLength),
			NotifyCustomer:  req.NotifyCustomer,
			ExpectedVersion: req.ExpectedVersion,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func UpdateNotes(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateNotesRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.InternalNotes == nil && req.SpecialInstructions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update"))
			return
		}

		ctx := logg.WithOrderID(r.Context(), orderID.String())
		view, err := svc.UpdateNotes(ctx, actor, orderID, internalorders.UpdateNotesInput{
			InternalNotes:       req.InternalNotes,
			SpecialInstructions: req.SpecialInstructions,
			ExpectedVersion:     req.ExpectedVersion,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (lifecycle.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor missing"))
		return lifecycle.Actor{}, false
	}
	return actor, true
}

func buildListFilters(r *http.Request) (internalorders.ListFilters, error) {
	var filters internalorders.ListFilters
	var err error

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, parseErr := enums.ParseOrderStatus(raw)
		if parseErr != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter")
		}
		filters.Status = &status
	}
	if filters.StoreID, err = validators.ParseQueryUUID(r, "store_id"); err != nil {
		return filters, err
	}
	if filters.RiderID, err = validators.ParseQueryUUID(r, "rider_id"); err != nil {
		return filters, err
	}
	if filters.CustomerID, err = validators.ParseQueryUUID(r, "customer_id"); err != nil {
		return filters, err
	}
	if filters.CreatedFrom, err = validators.ParseQueryTime(r, "from"); err != nil {
		return filters, err
	}
	if filters.CreatedTo, err = validators.ParseQueryTime(r, "to"); err != nil {
		return filters, err
	}
	if filters.CreatedFrom != nil && filters.CreatedTo != nil && filters.CreatedTo.Before(*filters.CreatedFrom) {
		return filters, pkgerrors.New(pkgerrors.CodeValidation, "to must not precede from")
	}
	return filters, nil
}

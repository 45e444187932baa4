package refunds

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/courierline-backend/api/middleware"
	"github.com/angelmondragon/courierline-backend/api/responses"
	"github.com/angelmondragon/courierline-backend/api/validators"
	"github.com/angelmondragon/courierline-backend/internal/lifecycle"
	internalrefunds "github.com/angelmondragon/courierline-backend/internal/refunds"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
	"github.com/angelmondragon/courierline-backend/pkg/logger"
	"github.com/angelmondragon/courierline-backend/pkg/types"
)

const (
	maxNoteLength         = 2000
	maxRejectReasonLength = 1000
)

type createRequest struct {
	RequestedAmountCents int64   `json:"requested_amount_cents" validate:"gt=0"`
	Reason               string  `json:"reason" validate:"required,refund_reason"`
	Description          *string `json:"description" validate:"omitempty,max=2000"`
}

type approveRequest struct {
	FromStoreCents    int64   `json:"from_store_cents"`
	FromDriverCents   int64   `json:"from_driver_cents"`
	FromPlatformCents int64   `json:"from_platform_cents"`
	Rationale         string  `json:"rationale"`
	AdminNote         *string `json:"admin_note" validate:"omitempty,max=2000"`
}

type rejectRequest struct {
	Reason    string  `json:"reason" validate:"required,max=1000"`
	AdminNote *string `json:"admin_note" validate:"omitempty,max=2000"`
}

// Create opens a refund request for the caller's order.
func Create(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req createRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reason, err := enums.ParseRefundReason(strings.TrimSpace(req.Reason))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid refund reason"))
			return
		}

		ctx := logg.WithOrderID(r.Context(), orderID.String())
		view, err := svc.Create(ctx, actor, orderID, internalrefunds.CreateInput{
			RequestedAmountCents: req.RequestedAmountCents,
			Reason:               reason,
			Description:          validators.SanitizePtr(req.Description, maxNoteLength),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteCreated(w, view)
	}
}

// AdminList pages through refund requests, newest first.
func AdminList(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filters internalrefunds.ListFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseRefundRequestStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		var err error
		if filters.OrderID, err = validators.ParseQueryUUID(r, "order_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.CustomerID, err = validators.ParseQueryUUID(r, "customer_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.StoreID, err = validators.ParseQueryUUID(r, "store_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminDetail returns a refund with the caps an approval must respect.
func AdminDetail(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		refundID, err := validators.ParseURLUUID(r, "refundID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Get(r.Context(), actor, refundID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func StartReview(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		refundID, err := validators.ParseURLUUID(r, "refundID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.StartReview(r.Context(), actor, refundID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Approve records an admin approval. Cap and amount checks happen in the service.
func Approve(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		refundID, err := validators.ParseURLUUID(r, "refundID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req approveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithField(r.Context(), "refund_id", refundID.String())
		view, err := svc.Approve(ctx, actor, refundID, internalrefunds.ApproveInput{
			Distribution: types.CostDistribution{
				FromStoreCents:    req.FromStoreCents,
				FromDriverCents:   req.FromDriverCents,
				FromPlatformCents: req.FromPlatformCents,
			},
			Rationale: strings.TrimSpace(req.Rationale),
			AdminNote: validators.SanitizePtr(req.AdminNote, maxNoteLength),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func Reject(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		refundID, err := validators.ParseURLUUID(r, "refundID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req rejectRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithField(r.Context(), "refund_id", refundID.String())
		view, err := svc.Reject(ctx, actor, refundID, internalrefunds.RejectInput{
			Reason:    validators.SanitizeString(req.Reason, maxRejectReasonLength),
			AdminNote: validators.SanitizePtr(req.AdminNote, maxNoteLength),
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

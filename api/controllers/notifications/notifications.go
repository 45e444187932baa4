package notifications

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/courierline-backend/api/middleware"
	"github.com/angelmondragon/courierline-backend/api/responses"
	"github.com/angelmondragon/courierline-backend/api/validators"
	"github.com/angelmondragon/courierline-backend/internal/lifecycle"
	internalnotifications "github.com/angelmondragon/courierline-backend/internal/notifications"
	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
	"github.com/angelmondragon/courierline-backend/pkg/logger"
)

// List returns the caller's inbox, newest first.
func List(svc internalnotifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unread := false
		if raw := strings.TrimSpace(r.URL.Query().Get("unread_only")); raw != "" {
			unread, err = strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unread_only must be a boolean"))
				return
			}
		}

		result, err := svc.List(r.Context(), actor, internalnotifications.ListParams{
			Limit:      page.Limit,
			Cursor:     page.Cursor,
			UnreadOnly: unread,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func MarkRead(svc internalnotifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseURLUUID(r, "notificationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MarkRead(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "read": true})
	}
}

func MarkAllRead(svc internalnotifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		count, err := svc.MarkAllRead(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"updated": count})
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

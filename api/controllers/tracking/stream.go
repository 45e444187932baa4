package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/api/middleware"
	"github.com/angelmondragon/courierline-backend/api/responses"
	"github.com/angelmondragon/courierline-backend/api/validators"
	"github.com/angelmondragon/courierline-backend/internal/lifecycle"
	internalorders "github.com/angelmondragon/courierline-backend/internal/orders"
	internaltracking "github.com/angelmondragon/courierline-backend/internal/tracking"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
	"github.com/angelmondragon/courierline-backend/pkg/logger"
)

const defaultPingInterval = 25 * time.Second

// EventSubscriber yields live tracking events for pub/sub channels.
type EventSubscriber interface {
	Subscribe(ctx context.Context, channels ...string) (<-chan internaltracking.Event, error)
}

// LatestReader returns the cached last status event of an order.
type LatestReader interface {
	Latest(ctx context.Context, orderID uuid.UUID) (*internaltracking.Event, error)
}

// OrderReader is used to check the caller may watch an order.
type OrderReader interface {
	Get(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID) (*internalorders.OrderView, error)
}

// StreamParams wires the SSE endpoint.
type StreamParams struct {
	Subscriber   EventSubscriber
	Latest       LatestReader
	Orders       OrderReader
	PingInterval time.Duration
	Logger       *logger.Logger
}

// Stream serves tracking events as server-sent events. With order_id the
// caller follows one order; without it the caller follows its own feed
// (store, customer, rider or the admin channel).
func Stream(params StreamParams) http.HandlerFunc {
	logg := params.Logger
	ping := params.PingInterval
	if ping <= 0 {
		ping = defaultPingInterval
	}
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor missing"))
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		orderID, err := validators.ParseQueryUUID(r, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var channels []string
		if orderID != nil {
			if _, err := params.Orders.Get(r.Context(), actor, *orderID); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			channels = []string{internaltracking.OrderChannel(*orderID)}
		} else {
			channel, err := feedChannel(actor)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			channels = []string{channel}
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		events, err := params.Subscriber.Subscribe(ctx, channels...)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe to tracking"))
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		if orderID != nil && params.Latest != nil {
			latest, err := params.Latest.Latest(ctx, *orderID)
			if err != nil {
				logg.Warn(ctx, "tracking latest lookup failed: "+err.Error())
			} else if latest != nil {
				if err := writeEvent(w, *latest); err != nil {
					return
				}
			}
		}
		flusher.Flush()

		ticker := time.NewTicker(ping)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := writeEvent(w, ev); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func feedChannel(actor lifecycle.Actor) (string, error) {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return internaltracking.ChannelAdmin, nil
	case enums.ActorRoleStoreManager:
		if actor.StoreID == nil {
			return "", pkgerrors.New(pkgerrors.CodeForbidden, "store scope missing")
		}
		return internaltracking.StoreChannel(*actor.StoreID), nil
	case enums.ActorRoleCustomer:
		return internaltracking.CustomerChannel(actor.UserID), nil
	case enums.ActorRoleRider:
		return internaltracking.RiderChannel(actor.UserID), nil
	}
	return "", pkgerrors.New(pkgerrors.CodeForbidden, "role cannot stream tracking")
}

func writeEvent(w http.ResponseWriter, ev internaltracking.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, payload)
	return err
}

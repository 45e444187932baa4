package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/courierline-backend/api/controllers"
	notificationcontrollers "github.com/angelmondragon/courierline-backend/api/controllers/notifications"
	ordercontrollers "github.com/angelmondragon/courierline-backend/api/controllers/orders"
	refundcontrollers "github.com/angelmondragon/courierline-backend/api/controllers/refunds"
	ridercontrollers "github.com/angelmondragon/courierline-backend/api/controllers/riders"
	trackingcontrollers "github.com/angelmondragon/courierline-backend/api/controllers/tracking"
	"github.com/angelmondragon/courierline-backend/api/middleware"
	"github.com/angelmondragon/courierline-backend/internal/notifications"
	"github.com/angelmondragon/courierline-backend/internal/orders"
	"github.com/angelmondragon/courierline-backend/internal/refunds"
	"github.com/angelmondragon/courierline-backend/internal/riders"
	"github.com/angelmondragon/courierline-backend/pkg/config"
	"github.com/angelmondragon/courierline-backend/pkg/db"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	"github.com/angelmondragon/courierline-backend/pkg/logger"
)

type redisStore interface {
	middleware.IdempotencyStore
	Ping(context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient redisStore,
	ordersSvc orders.Service,
	refundsSvc refunds.Service,
	ridersSvc riders.Service,
	notificationsSvc notifications.Service,
	subscriber trackingcontrollers.EventSubscriber,
	latest trackingcontrollers.LatestReader,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisClient,
		}))
	})
	r.Handle("/metrics", promhttp.Handler())

	staff := []enums.ActorRole{enums.ActorRoleAdmin, enums.ActorRoleStoreManager}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, cfg.Eventing.IdempotencyTTL, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(ordersSvc, logg))
			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(ordersSvc, logg))
				r.With(middleware.RequireRoles(logg, enums.ActorRoleAdmin, enums.ActorRoleStoreManager, enums.ActorRoleRider)).
					Post("/status", ordercontrollers.UpdateStatus(ordersSvc, logg))
				r.With(middleware.RequireRoles(logg, enums.ActorRoleAdmin)).
					Post("/assign", ordercontrollers.AssignRider(ordersSvc, logg))
				r.With(middleware.RequireRoles(logg, enums.ActorRoleAdmin, enums.ActorRoleStoreManager, enums.ActorRoleCustomer)).
					Post("/cancel", ordercontrollers.Cancel(ordersSvc, logg))
				r.With(middleware.RequireRoles(logg, staff...)).
					Post("/reject", ordercontrollers.Reject(ordersSvc, logg))
				r.With(middleware.RequireRoles(logg, staff...)).
					Patch("/notes", ordercontrollers.UpdateNotes(ordersSvc, logg))
				r.With(middleware.RequireRoles(logg, enums.ActorRoleCustomer, enums.ActorRoleAdmin)).
					Post("/refunds", refundcontrollers.Create(refundsSvc, logg))
			})
		})

		r.Route("/admin/refunds", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, enums.ActorRoleAdmin))
			r.Get("/", refundcontrollers.AdminList(refundsSvc, logg))
			r.Get("/{refundID}", refundcontrollers.AdminDetail(refundsSvc, logg))
			r.Post("/{refundID}/review", refundcontrollers.StartReview(refundsSvc, logg))
			r.Post("/{refundID}/approve", refundcontrollers.Approve(refundsSvc, logg))
			r.Post("/{refundID}/reject", refundcontrollers.Reject(refundsSvc, logg))
		})

		r.With(middleware.RequireRoles(logg, enums.ActorRoleRider)).
			Post("/rider/location", ridercontrollers.UpdateLocation(ridersSvc, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationcontrollers.List(notificationsSvc, logg))
			r.Post("/read-all", notificationcontrollers.MarkAllRead(notificationsSvc, logg))
			r.Post("/{notificationID}/read", notificationcontrollers.MarkRead(notificationsSvc, logg))
		})

		r.Get("/tracking/stream", trackingcontrollers.Stream(trackingcontrollers.StreamParams{
			Subscriber:   subscriber,
			Latest:       latest,
			Orders:       ordersSvc,
			PingInterval: cfg.Tracking.StreamPing,
			Logger:       logg,
		}))
	})

	return r
}

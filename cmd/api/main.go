package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/angelmondragon/courierline-backend/api/routes"
	"github.com/angelmondragon/courierline-backend/internal/ledger"
	"github.com/angelmondragon/courierline-backend/internal/notifications"
	"github.com/angelmondragon/courierline-backend/internal/orders"
	"github.com/angelmondragon/courierline-backend/internal/refunds"
	"github.com/angelmondragon/courierline-backend/internal/riders"
	"github.com/angelmondragon/courierline-backend/internal/tracking"
	"github.com/angelmondragon/courierline-backend/pkg/config"
	"github.com/angelmondragon/courierline-backend/pkg/db"
	"github.com/angelmondragon/courierline-backend/pkg/instance"
	"github.com/angelmondragon/courierline-backend/pkg/logger"
	"github.com/angelmondragon/courierline-backend/pkg/metrics"
	"github.com/angelmondragon/courierline-backend/pkg/migrate"
	"github.com/angelmondragon/courierline-backend/pkg/outbox"
	"github.com/angelmondragon/courierline-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.ConsoleLogs(),
		Environment: cfg.App.Env,
		Instance:    instance.GetID(),
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	lifecycleMetrics := metrics.NewLifecycleMetrics(prometheus.DefaultRegisterer)
	broadcaster, err := tracking.NewFromConfig(cfg, redisClient, lifecycleMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create tracking broadcaster", err)
		os.Exit(1)
	}
	defer func() {
		broadcaster.Wait()
		if err := broadcaster.Close(); err != nil {
			logg.Error(context.Background(), "error closing tracking sinks", err)
		}
	}()
	stream, err := tracking.NewStream(redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create tracking stream", err)
		os.Exit(1)
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ordersRepo := orders.NewRepository(dbClient.DB())
	ridersRepo := riders.NewRepository(dbClient.DB())

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	applier, err := orders.NewRefundApplier(orders.ApplierParams{
		Repository:  ordersRepo,
		Outbox:      outboxSvc,
		Broadcaster: broadcaster,
		Metrics:     lifecycleMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order refund applier", err)
		os.Exit(1)
	}
	refundSvc, err := refunds.NewService(refunds.ServiceParams{
		Repository: refunds.NewRepository(dbClient.DB()),
		Tx:         dbClient,
		Ledger:     ledgerSvc,
		Orders:     applier,
		Outbox:     outboxSvc,
		Metrics:    lifecycleMetrics,
		Logger:     logg,

		SettlementLease: cfg.Settlement.Lease,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create refund service", err)
		os.Exit(1)
	}
	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repository: ordersRepo,
		Tx:         dbClient,
		Outbox:     outboxSvc,
		Riders: func(tx *gorm.DB) orders.RiderStore {
			return ridersRepo.WithTx(tx)
		},
		Refunder:    refundSvc,
		Broadcaster: broadcaster,
		Metrics:     lifecycleMetrics,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}
	ridersSvc, err := riders.NewService(ridersRepo, broadcaster)
	if err != nil {
		logg.Error(context.Background(), "failed to create rider service", err)
		os.Exit(1)
	}

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithField(context.Background(), "addr", addr)
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			ordersSvc,
			refundSvc,
			ridersSvc,
			notificationsSvc,
			stream,
			broadcaster,
		),
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

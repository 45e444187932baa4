package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/courierline-backend/internal/cron"
	"github.com/angelmondragon/courierline-backend/internal/ledger"
	"github.com/angelmondragon/courierline-backend/internal/notifications"
	"github.com/angelmondragon/courierline-backend/internal/orders"
	"github.com/angelmondragon/courierline-backend/internal/refunds"
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

func main() {
	once := flag.String("once", "", "run a single job by name and exit (e.g. refund_settlement)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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
		if err := broadcaster.Close(); err != nil {
			logg.Error(context.Background(), "error closing tracking sinks", err)
		}
	}()

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outboxRepo, logg)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	applier, err := orders.NewRefundApplier(orders.ApplierParams{
		Repository:  orders.NewRepository(dbClient.DB()),
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

	settlementJob, err := cron.NewRefundSettlementJob(cron.RefundSettlementJobParams{
		Logger:    logg,
		Settler:   refundSvc,
		BatchSize: cfg.Settlement.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create refund settlement job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:       logg,
		Repository:   outboxRepo,
		DeadLetters:  outbox.NewDLQRepository(dbClient.DB()),
		Retention:    cfg.Outbox.Retention,
		DLQRetention: cfg.Outbox.DLQRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:        logg,
		Repository:    notifications.NewRepository(dbClient.DB()),
		ReadRetention: cfg.Cron.NotificationReadRetention,
		MaxAge:        cfg.Cron.NotificationMaxAge,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.CronLockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   cron.NewRegistry(settlementJob, retentionJob, cleanupJob),
		Lock:       lock,
		Metrics:    metrics.NewCronMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.LockTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"serviceKind": cfg.Service.Kind,
	})
	if *once != "" {
		ctx = logg.WithField(ctx, "job", *once)
		logg.Info(ctx, "running single cron job")
		if err := service.RunOnce(ctx, *once); err != nil {
			logg.Error(ctx, "cron job run failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

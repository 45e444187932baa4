package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/courierline-backend/pkg/logger"
)

const (
	defaultNotificationReadRetention = 30 * 24 * time.Hour
	defaultNotificationMaxAge        = 180 * 24 * time.Hour
)

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	Repository notificationCleanupRepo
	// ReadRetention applies to read rows, MaxAge to every row.
	ReadRetention time.Duration
	MaxAge        time.Duration
}

type notificationCleanupRepo interface {
	DeleteExpired(ctx context.Context, readBefore, createdBefore time.Time) (int64, error)
}

func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Repository == nil {
		return nil, errors.New("notifications repository required")
	}
	job := &notificationCleanupJob{
		logg:          params.Logger,
		repo:          params.Repository,
		readRetention: params.ReadRetention,
		maxAge:        params.MaxAge,
		now:           time.Now,
	}
	if job.readRetention <= 0 {
		job.readRetention = defaultNotificationReadRetention
	}
	if job.maxAge <= 0 {
		job.maxAge = defaultNotificationMaxAge
	}
	if job.maxAge < job.readRetention {
		return nil, fmt.Errorf("notification max age %s is shorter than read retention %s", job.maxAge, job.readRetention)
	}
	return job, nil
}

type notificationCleanupJob struct {
	logg          *logger.Logger
	repo          notificationCleanupRepo
	readRetention time.Duration
	maxAge        time.Duration
	now           func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification_cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	readBefore := now.Add(-j.readRetention)
	createdBefore := now.Add(-j.maxAge)
	deleted, err := j.repo.DeleteExpired(ctx, readBefore, createdBefore)
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"read_before":    readBefore,
		"created_before": createdBefore,
		"rows_deleted":   deleted,
	}), "notification cleanup complete")
	return nil
}

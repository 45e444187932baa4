package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/courierline-backend/pkg/logger"
	"github.com/angelmondragon/courierline-backend/pkg/metrics"
)

const defaultInterval = time.Minute

// ErrLockHeld is returned by RunOnce when another instance holds the cron lock.
var ErrLockHeld = errors.New("cron lock held by another instance")

// ServiceParams configure the cron service. JobTimeout bounds a single job run
// and should not exceed the lock TTL; zero means no bound.
type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    *metrics.CronMetrics
	Interval   time.Duration
	JobTimeout time.Duration
}

// Service drives the registered jobs on a ticker while holding the cron lock.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	case params.JobTimeout < 0:
		return nil, errors.New("job timeout must not be negative")
	}
	svc := &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
	}
	if svc.registry == nil {
		svc.registry = NewRegistry()
	}
	if svc.interval <= 0 {
		svc.interval = defaultInterval
	}
	return svc, nil
}

// Run executes a cycle immediately and then once per interval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle finished with errors", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs a single named job under the cron lock, e.g. to re-drive
// refund settlement after an incident.
func (s *Service) RunOnce(ctx context.Context, name string) error {
	job, ok := s.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown cron job %q (known: %v)", name, s.registry.Names())
	}
	var jobErr error
	held, err := s.withLock(ctx, func() {
		jobErr = s.runJob(ctx, job)
	})
	switch {
	case err != nil:
		return err
	case !held:
		return ErrLockHeld
	}
	return jobErr
}

// runCycle runs every job once. A failing job does not stop the cycle; the
// failures come back combined.
func (s *Service) runCycle(ctx context.Context) error {
	var errs error
	held, err := s.withLock(ctx, func() {
		for _, job := range s.registry.Jobs() {
			if ctx.Err() != nil {
				errs = multierr.Append(errs, ctx.Err())
				return
			}
			errs = multierr.Append(errs, s.runJob(ctx, job))
		}
	})
	if err != nil {
		return err
	}
	if !held {
		s.metrics.IncSkippedCycle()
		s.logg.Debug(ctx, "cron lock held elsewhere, cycle skipped")
	}
	return errs
}

func (s *Service) withLock(ctx context.Context, fn func()) (bool, error) {
	ok, err := s.lock.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire cron lock: %w", err)
	}
	if !ok {
		return false, nil
	}
	defer func() {
		// release even when the run context is already done
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "failed to release cron lock", err)
		}
	}()
	fn()
	return true, nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, s.jobTimeout)
		defer cancel()
	}

	start := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(start)
	s.metrics.ObserveRun(name, elapsed, time.Now(), err)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "cron job failed", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	s.logg.Info(jobCtx, "cron job completed")
	return nil
}

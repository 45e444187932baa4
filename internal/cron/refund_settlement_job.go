package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/logger"
)

const defaultSettlementBatch = 25

// RefundSettlementJobParams configure the approved-refund settlement job.
type RefundSettlementJobParams struct {
	Logger    *logger.Logger
	Settler   refundSettler
	BatchSize int
}

type refundSettler interface {
	ListSettleable(ctx context.Context, limit int) ([]models.RefundRequest, error)
	Settle(ctx context.Context, refundID uuid.UUID) (*models.RefundRequest, error)
}

// NewRefundSettlementJob builds the job that drives approved refunds to completed or failed.
func NewRefundSettlementJob(params RefundSettlementJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Settler == nil {
		return nil, fmt.Errorf("refund settler required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSettlementBatch
	}
	return &refundSettlementJob{
		logg:    params.Logger,
		settler: params.Settler,
		batch:   batch,
	}, nil
}

type refundSettlementJob struct {
	logg    *logger.Logger
	settler refundSettler
	batch   int
}

func (j *refundSettlementJob) Name() string { return "refund_settlement" }

// Run settles one batch per cycle. A refund that fails settlement is marked
// failed by the settler and is not picked up again.
func (j *refundSettlementJob) Run(ctx context.Context) error {
	pending, err := j.settler.ListSettleable(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("list settleable refunds: %w", err)
	}

	var errs error
	completed, failed := 0, 0
	for _, refund := range pending {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		settled, err := j.settler.Settle(ctx, refund.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("settle refund %s: %w", refund.ID, err))
			continue
		}
		if settled != nil && settled.FailureReason != nil {
			failed++
			continue
		}
		completed++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(pending),
		"completed":  completed,
		"failed":     failed,
	})
	j.logg.Info(logCtx, "refund settlement batch complete")
	return errs
}

package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/dishdash-backend/internal/commissions"
	"github.com/angelmondragon/dishdash-backend/pkg/logger"
)

const overdueSweepJobName = "commission-overdue-sweep"

type overdueSweeper interface {
	Now() time.Time
	SweepOverduePayments(ctx context.Context, now time.Time) (*commissions.SweepSummary, error)
}

// OverdueSweepJobParams configure the overdue sweep job.
type OverdueSweepJobParams struct {
	Logger      *logger.Logger
	Commissions overdueSweeper
}

type overdueSweepJob struct {
	logg    *logger.Logger
	sweeper overdueSweeper
}

// NewOverdueSweepJob builds the job that freezes restaurants with unpaid commission past due.
func NewOverdueSweepJob(params OverdueSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Commissions == nil {
		return nil, fmt.Errorf("commission service required")
	}
	return &overdueSweepJob{logg: params.Logger, sweeper: params.Commissions}, nil
}

func (j *overdueSweepJob) Name() string { return overdueSweepJobName }

// Run fails only when the sweep could not run at all. Per-record errors are retried next tick.
func (j *overdueSweepJob) Run(ctx context.Context) error {
	summary, err := j.sweeper.SweepOverduePayments(ctx, j.sweeper.Now())
	if err != nil {
		return fmt.Errorf("overdue sweep: %w", err)
	}
	if summary.Errors > 0 {
		j.logg.Warn(j.logg.WithField(ctx, "errors", summary.Errors), "overdue sweep left records for the next run")
	}
	return nil
}

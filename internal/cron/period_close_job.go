package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/dishdash-backend/internal/commissions"
	"github.com/angelmondragon/dishdash-backend/pkg/logger"
)

const (
	periodCloseJobName     = "commission-period-close"
	defaultCloseTimeout    = 10 * time.Second
	defaultLookbackPeriods = 1
)

type periodCloser interface {
	Location() *time.Location
	Now() time.Time
	ClosePeriod(ctx context.Context, restaurantID uuid.UUID, periodStart time.Time) (*commissions.CloseResult, error)
}

type billableRestaurantLister interface {
	ListRestaurantsWithOrders(ctx context.Context, from, to time.Time) ([]uuid.UUID, error)
}

// PeriodCloseJobParams configure the weekly close fan-out.
type PeriodCloseJobParams struct {
	Logger        *logger.Logger
	Commissions   periodCloser
	Restaurants   billableRestaurantLister
	RecordTimeout time.Duration
	Lookback      int
}

type periodCloseJob struct {
	logg          *logger.Logger
	commissions   periodCloser
	restaurants   billableRestaurantLister
	recordTimeout time.Duration
	lookback      int
}

// NewPeriodCloseJob builds the job that bills every restaurant with sales in the last closed
// week. A lookback above one re-visits earlier weeks, which only creates records a previous
// run missed.
func NewPeriodCloseJob(params PeriodCloseJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Commissions == nil {
		return nil, fmt.Errorf("commission service required")
	}
	if params.Restaurants == nil {
		return nil, fmt.Errorf("restaurant lister required")
	}
	timeout := params.RecordTimeout
	if timeout <= 0 {
		timeout = defaultCloseTimeout
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = defaultLookbackPeriods
	}
	return &periodCloseJob{
		logg:          params.Logger,
		commissions:   params.Commissions,
		restaurants:   params.Restaurants,
		recordTimeout: timeout,
		lookback:      lookback,
	}, nil
}

func (j *periodCloseJob) Name() string { return periodCloseJobName }

func (j *periodCloseJob) Run(ctx context.Context) error {
	loc := j.commissions.Location()
	latest := commissions.PreviousPeriodStart(j.commissions.Now(), loc)

	var errs []error
	for week := j.lookback - 1; week >= 0; week-- {
		start := latest.AddDate(0, 0, -7*week)
		if err := j.closeWeek(ctx, start); err != nil {
			errs = append(errs, err)
		}
	}
	return multierr.Combine(errs...)
}

func (j *periodCloseJob) closeWeek(ctx context.Context, start time.Time) error {
	end := commissions.PeriodEnd(start)
	weekCtx := j.logg.WithBillingPeriod(ctx, start, end)

	ids, err := j.restaurants.ListRestaurantsWithOrders(weekCtx, start, end)
	if err != nil {
		return fmt.Errorf("list billable restaurants for %s: %w", start.Format("2006-01-02"), err)
	}

	counts := map[commissions.CloseOutcome]int{}
	var errs error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		outcome, err := j.closeOne(weekCtx, id, start)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("restaurant %s: %w", id, err))
			j.logg.Error(j.logg.WithRestaurantID(weekCtx, id.String()), "period close failed", err)
			continue
		}
		counts[outcome]++
	}

	j.logg.Info(j.logg.WithFields(weekCtx, map[string]any{
		"restaurants": len(ids),
		"created":     counts[commissions.CloseCreated],
		"existing":    counts[commissions.CloseExisting],
		"noop":        counts[commissions.CloseNoOp],
		"errors":      len(multierr.Errors(errs)),
	}), "period close finished")
	return errs
}

func (j *periodCloseJob) closeOne(ctx context.Context, restaurantID uuid.UUID, start time.Time) (commissions.CloseOutcome, error) {
	recordCtx, cancel := context.WithTimeout(ctx, j.recordTimeout)
	defer cancel()
	res, err := j.commissions.ClosePeriod(recordCtx, restaurantID, start)
	if err != nil {
		return "", err
	}
	return res.Outcome, nil
}

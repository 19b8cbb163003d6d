package commissions

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/dishdash-backend/pkg/enums"
)

func newYorkEnv(t *testing.T) (*testEnv, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	env := newTestEnv(t)
	env.timezone = loc.String()
	env.now = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	env.svc = env.build(t, env.restaurants, nil)
	return env, loc
}

func TestPeriodEnd_springForwardWeekIsShort(t *testing.T) {
	_, loc := newYorkEnv(t)
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, loc)
	end := PeriodEnd(start)
	assert.True(t, end.Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, loc)))
	assert.Equal(t, 167*time.Hour, end.Sub(start))
}

func TestClosePeriod_fixedOffsetStartAcrossDSTDoesNotOverlapNextWeek(t *testing.T) {
	env, loc := newYorkEnv(t)
	r := env.restaurant(t, "Bagel Corner")
	env.order(t, r, enums.OrderStatusCompleted, "50.00", "0", time.Date(2024, 3, 5, 12, 0, 0, 0, loc).UTC())
	// 00:30 EDT on the following Monday belongs to the next week only.
	env.order(t, r, enums.OrderStatusCompleted, "100.00", "0", time.Date(2024, 3, 11, 0, 30, 0, 0, loc).UTC())

	start, err := time.Parse(time.RFC3339, "2024-03-04T00:00:00-05:00")
	require.NoError(t, err)
	first, err := env.svc.ClosePeriod(context.Background(), r, start)
	require.NoError(t, err)
	require.Equal(t, CloseCreated, first.Outcome)
	assert.True(t, first.Payment.PeriodEnd.Equal(time.Date(2024, 3, 11, 4, 0, 0, 0, time.UTC)), first.Payment.PeriodEnd.String())
	assert.Equal(t, "50.00", first.Payment.TotalSales.StringFixed(2))

	second, err := env.svc.ClosePeriod(context.Background(), r, time.Date(2024, 3, 11, 0, 0, 0, 0, loc))
	require.NoError(t, err)
	require.Equal(t, CloseCreated, second.Outcome)
	assert.True(t, second.Payment.PeriodStart.Equal(first.Payment.PeriodEnd))
	assert.Equal(t, "100.00", second.Payment.TotalSales.StringFixed(2))
}

func TestClosePeriod_localMidnightInOtherOffsetIsStillRejected(t *testing.T) {
	env, _ := newYorkEnv(t)
	r := env.restaurant(t, "Bagel Corner")

	// Midnight UTC is 19:00 the previous Sunday in New York.
	_, err := env.svc.ClosePeriod(context.Background(), r, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, ErrInvalidRange)
}

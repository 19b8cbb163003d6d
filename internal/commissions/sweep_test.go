package commissions

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/dishdash-backend/internal/restaurants"
	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	"github.com/angelmondragon/dishdash-backend/pkg/metrics"
)

func TestScenario_closeThenSweepFreezes(t *testing.T) {
	env := newTestEnv(t)
	r := env.restaurant(t, "R")
	env.order(t, r, enums.OrderStatusCompleted, "500.00", "0", week1.Add(26*time.Hour))

	payment := env.closeWeek(t, r)
	assert.True(t, payment.TotalSales.Equal(dec("500.00")))
	assert.True(t, payment.CommissionAmount.Equal(dec("20.00")))
	assert.True(t, payment.DueDate.Equal(week1End.Add(72*time.Hour)))
	assert.Equal(t, enums.CommissionPaymentPending, payment.Status)

	env.now = payment.DueDate.Add(time.Hour)
	summary, err := env.svc.SweepOverduePayments(context.Background(), env.now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, 1, summary.Frozen)
	assert.Equal(t, 0, summary.Errors)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, metrics.OutcomeFrozen, summary.Results[0].Status)

	got, err := env.payments.FindByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CommissionPaymentOverdue, got.Status)

	restaurant, err := env.restaurants.FindByID(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, restaurant.IsFrozen)
	require.NotNil(t, restaurant.FrozenReason)
	assert.Contains(t, *restaurant.FrozenReason, "20.00")
	assert.Contains(t, *restaurant.FrozenReason, payment.DueDate.UTC().Format(time.RFC3339))
	require.NotNil(t, restaurant.FrozenAt)
	assert.True(t, restaurant.FrozenAt.Equal(env.now))

	events, err := env.outboxRepo.ListByAggregate(r)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventRestaurantFrozen, events[0].EventType)
}

func TestSweep_notYetDueIsUntouched(t *testing.T) {
	env := newTestEnv(t)
	r := env.restaurant(t, "R")
	env.order(t, r, enums.OrderStatusCompleted, "10.00", "0", week1.Add(time.Hour))
	payment := env.closeWeek(t, r)

	summary, err := env.svc.SweepOverduePayments(context.Background(), payment.DueDate)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Checked)

	got, err := env.payments.FindByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CommissionPaymentPending, got.Status)
}

func TestSweep_isIdempotent(t *testing.T) {
	env := newTestEnv(t)
	r := env.restaurant(t, "R")
	env.order(t, r, enums.OrderStatusCompleted, "10.00", "0", week1.Add(time.Hour))
	env.closeWeek(t, r)

	first := week1Due.Add(time.Hour)
	summary, err := env.svc.SweepOverduePayments(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Frozen)

	before, err := env.restaurants.FindByID(context.Background(), r)
	require.NoError(t, err)

	summary, err = env.svc.SweepOverduePayments(context.Background(), first.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Frozen)
	assert.Equal(t, 0, summary.Checked)
	assert.Equal(t, 0, summary.Inconsistent)

	after, err := env.restaurants.FindByID(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, *before.FrozenReason, *after.FrozenReason)
	assert.True(t, before.FrozenAt.Equal(*after.FrozenAt))
}

func TestSweep_alreadyFrozenStillMarksOverdue(t *testing.T) {
	env := newTestEnv(t)
	r := env.restaurant(t, "R")
	env.now = week1.AddDate(0, 0, 15)
	week2 := week1End
	env.order(t, r, enums.OrderStatusCompleted, "10.00", "0", week1.Add(time.Hour))
	env.order(t, r, enums.OrderStatusCompleted, "30.00", "0", week2.Add(time.Hour))
	first := env.closeWeek(t, r)
	res, err := env.svc.ClosePeriod(context.Background(), r, week2)
	require.NoError(t, err)
	second := res.Payment

	summary, err := env.svc.SweepOverduePayments(context.Background(), second.DueDate.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Checked)
	assert.Equal(t, 1, summary.Frozen)
	assert.Equal(t, 1, summary.AlreadyFrozen)

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		got, err := env.payments.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, enums.CommissionPaymentOverdue, got.Status)
	}

	// The reason names the first overdue payment; the second did not overwrite it.
	restaurant, err := env.restaurants.FindByID(context.Background(), r)
	require.NoError(t, err)
	assert.Contains(t, *restaurant.FrozenReason, "0.40")
}

// failingGate fails the freeze write after the status write has been issued.
type failingGate struct {
	*restaurants.Repository
	failFor uuid.UUID
}

func (g failingGate) FreezeWithTx(tx *gorm.DB, id uuid.UUID, reason string, at time.Time) (bool, error) {
	if id == g.failFor {
		return false, errors.New("connection reset")
	}
	return g.Repository.FreezeWithTx(tx, id, reason, at)
}

func TestSweep_freezeFailureRollsBackStatusAndContinues(t *testing.T) {
	env := newTestEnv(t)
	broken := env.restaurant(t, "Broken")
	healthy := env.restaurant(t, "Healthy")
	env.order(t, broken, enums.OrderStatusCompleted, "10.00", "0", week1.Add(time.Hour))
	env.order(t, healthy, enums.OrderStatusCompleted, "10.00", "0", week1.Add(time.Hour))
	brokenPayment := env.closeWeek(t, broken)
	healthyPayment := env.closeWeek(t, healthy)

	svc := env.build(t, failingGate{Repository: env.restaurants, failFor: broken}, nil)
	summary, err := svc.SweepOverduePayments(context.Background(), week1Due.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Checked)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.Frozen)

	got, err := env.payments.FindByID(context.Background(), brokenPayment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CommissionPaymentPending, got.Status, "status write must roll back with the failed freeze")
	restaurant, err := env.restaurants.FindByID(context.Background(), broken)
	require.NoError(t, err)
	assert.False(t, restaurant.IsFrozen)

	got, err = env.payments.FindByID(context.Background(), healthyPayment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CommissionPaymentOverdue, got.Status)

	// The next tick retries the failed record.
	summary, err = env.svc.SweepOverduePayments(context.Background(), week1Due.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Frozen)
	restaurant, err = env.restaurants.FindByID(context.Background(), broken)
	require.NoError(t, err)
	assert.True(t, restaurant.IsFrozen)
}

// slowGate blocks until the per-record deadline fires.
type slowGate struct {
	*restaurants.Repository
}

func (g slowGate) LockByIDWithTx(tx *gorm.DB, _ uuid.UUID) (*models.Restaurant, error) {
	<-tx.Statement.Context.Done()
	return nil, tx.Statement.Context.Err()
}

func TestSweep_recordTimeoutCountsAsError(t *testing.T) {
	env := newTestEnv(t)
	r := env.restaurant(t, "Slow")
	env.order(t, r, enums.OrderStatusCompleted, "10.00", "0", week1.Add(time.Hour))
	payment := env.closeWeek(t, r)

	svc := env.build(t, slowGate{Repository: env.restaurants}, nil)
	svc.recordTimeout = 20 * time.Millisecond
	summary, err := svc.SweepOverduePayments(context.Background(), week1Due.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)
	require.Len(t, summary.Results, 1)
	assert.True(t, strings.Contains(summary.Results[0].Error, "deadline"), summary.Results[0].Error)

	got, err := env.payments.FindByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CommissionPaymentPending, got.Status)
}

func TestSweep_pagesThroughAllDuePayments(t *testing.T) {
	env := newTestEnv(t)
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		r := env.restaurant(t, "R")
		env.order(t, r, enums.OrderStatusCompleted, "10.00", "0", week1.Add(time.Hour))
		env.closeWeek(t, r)
		ids = append(ids, r)
	}

	// Batch size is 2 in tests, so this walks three pages.
	summary, err := env.svc.SweepOverduePayments(context.Background(), week1Due.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Checked)
	assert.Equal(t, 5, summary.Frozen)
	for _, id := range ids {
		restaurant, err := env.restaurants.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, restaurant.IsFrozen)
	}
}

func TestSweep_reportsFrozenWithoutOverdue(t *testing.T) {
	env := newTestEnv(t)
	r := env.restaurant(t, "Manually Frozen")
	_, err := env.restaurants.FreezeWithTx(env.conn, r, "manual", week1)
	require.NoError(t, err)

	summary, err := env.svc.SweepOverduePayments(context.Background(), afterWeek)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Inconsistent)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, metrics.OutcomeInconsistent, summary.Results[0].Status)
	assert.Nil(t, summary.Results[0].PaymentID)

	restaurant, err := env.restaurants.FindByID(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, restaurant.IsFrozen, "reconciliation never unfreezes")
}

func TestSweep_freezeAndOverdueAlwaysAgree(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 4; i++ {
		r := env.restaurant(t, "R")
		env.order(t, r, enums.OrderStatusCompleted, "25.00", "0", week1.Add(time.Hour))
		env.closeWeek(t, r)
	}
	_, err := env.svc.SweepOverduePayments(context.Background(), week1Due.Add(time.Hour))
	require.NoError(t, err)

	var rows []struct {
		IsFrozen bool
		Status   string
	}
	require.NoError(t, env.conn.Raw(`
SELECT r.is_frozen AS is_frozen, p.status AS status
FROM restaurants r JOIN commission_payments p ON p.restaurant_id = r.id`).Scan(&rows).Error)
	require.Len(t, rows, 4)
	for _, row := range rows {
		assert.Equal(t, row.IsFrozen, row.Status == string(enums.CommissionPaymentOverdue))
	}
}

// lockCountingGate records the restaurant row locks taken by the sweep.
type lockCountingGate struct {
	*restaurants.Repository
	locked []uuid.UUID
}

func (g *lockCountingGate) LockByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Restaurant, error) {
	g.locked = append(g.locked, id)
	return g.Repository.LockByIDWithTx(tx, id)
}

func TestSweep_locksRestaurantRowBeforeFreezing(t *testing.T) {
	env := newTestEnv(t)
	r := env.restaurant(t, "Locked")
	env.order(t, r, enums.OrderStatusCompleted, "10.00", "0", week1.Add(time.Hour))
	env.closeWeek(t, r)

	gate := &lockCountingGate{Repository: env.restaurants}
	svc := env.build(t, gate, nil)
	summary, err := svc.SweepOverduePayments(context.Background(), week1Due.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Frozen)
	assert.Equal(t, []uuid.UUID{r}, gate.locked)
}

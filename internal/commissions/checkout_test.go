package commissions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/square"
)

type fakeCheckout struct {
	calls []square.PaymentLinkParams
	link  *square.PaymentLink
	err   error
}

func (f *fakeCheckout) CreatePaymentLink(_ context.Context, params square.PaymentLinkParams) (*square.PaymentLink, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	return f.link, nil
}

func newCheckoutEnv(t *testing.T) (*testEnv, *fakeCheckout, *Service) {
	t.Helper()
	env := newTestEnv(t)
	provider := &fakeCheckout{link: &square.PaymentLink{ID: "plink_1", URL: "https://checkout.example/plink_1", OrderID: "order_1"}}
	return env, provider, env.build(t, env.restaurants, provider)
}

func TestCreateCheckoutSession_storesReferences(t *testing.T) {
	env, provider, svc := newCheckoutEnv(t)
	r := env.restaurant(t, "Taqueria")
	env.order(t, r, enums.OrderStatusCompleted, "500.00", "0", week1.Add(time.Hour))
	payment := env.closeWeek(t, r)

	session, err := svc.CreateCheckoutSession(context.Background(), &r, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, session.PaymentID)
	assert.Equal(t, "https://checkout.example/plink_1", session.CheckoutURL)
	assert.Equal(t, "plink_1", session.SessionID)

	require.Len(t, provider.calls, 1)
	call := provider.calls[0]
	assert.EqualValues(t, 2000, call.AmountCents)
	assert.Equal(t, Currency, call.Currency)
	assert.Equal(t, payment.ID.String(), call.ReferenceID)
	assert.Equal(t, "Commission for week of 2024-03-04", call.Name)
	assert.NotEmpty(t, call.IdempotencyKey)

	got, err := env.payments.FindByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CommissionPaymentPending, got.Status)
	require.NotNil(t, got.CheckoutSessionRef)
	assert.Equal(t, "plink_1", *got.CheckoutSessionRef)
	require.NotNil(t, got.CheckoutOrderRef)
	assert.Equal(t, "order_1", *got.CheckoutOrderRef)
}

func TestCreateCheckoutSession_allowsOverdue(t *testing.T) {
	env, _, svc := newCheckoutEnv(t)
	r := env.restaurant(t, "Taqueria")
	env.order(t, r, enums.OrderStatusCompleted, "50.00", "0", week1.Add(time.Hour))
	payment := env.closeWeek(t, r)
	_, err := env.svc.SweepOverduePayments(context.Background(), week1Due.Add(time.Hour))
	require.NoError(t, err)

	session, err := svc.CreateCheckoutSession(context.Background(), nil, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, session.PaymentID)
}

func TestCreateCheckoutSession_rejectsPaid(t *testing.T) {
	env, provider, svc := newCheckoutEnv(t)
	r := env.restaurant(t, "Taqueria")
	env.order(t, r, enums.OrderStatusCompleted, "50.00", "0", week1.Add(time.Hour))
	payment := env.closeWeek(t, r)
	_, err := env.svc.ConfirmPayment(context.Background(), payment.ID, "card", afterWeek)
	require.NoError(t, err)

	_, err = svc.CreateCheckoutSession(context.Background(), &r, payment.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPaymentAlreadyPaid)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
	assert.Empty(t, provider.calls)
}

func TestCreateCheckoutSession_rejectsCancelled(t *testing.T) {
	env, provider, svc := newCheckoutEnv(t)
	r := env.restaurant(t, "Taqueria")
	env.order(t, r, enums.OrderStatusCompleted, "50.00", "0", week1.Add(time.Hour))
	payment := env.closeWeek(t, r)
	_, err := env.svc.CancelPayment(context.Background(), payment.ID)
	require.NoError(t, err)

	_, err = svc.CreateCheckoutSession(context.Background(), &r, payment.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
	assert.Empty(t, provider.calls)
}

func TestCreateCheckoutSession_scopesToRestaurant(t *testing.T) {
	env, provider, svc := newCheckoutEnv(t)
	owner := env.restaurant(t, "Owner")
	other := env.restaurant(t, "Other")
	env.order(t, owner, enums.OrderStatusCompleted, "50.00", "0", week1.Add(time.Hour))
	payment := env.closeWeek(t, owner)

	_, err := svc.CreateCheckoutSession(context.Background(), &other, payment.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = svc.CreateCheckoutSession(context.Background(), &owner, uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
	assert.Empty(t, provider.calls)
}

func TestCreateCheckoutSession_providerFailure(t *testing.T) {
	env, provider, svc := newCheckoutEnv(t)
	provider.err = pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("502 bad gateway"), "square create payment link failed")
	r := env.restaurant(t, "Taqueria")
	env.order(t, r, enums.OrderStatusCompleted, "50.00", "0", week1.Add(time.Hour))
	payment := env.closeWeek(t, r)

	_, err := svc.CreateCheckoutSession(context.Background(), &r, payment.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))

	got, err := env.payments.FindByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CheckoutSessionRef)
	assert.Equal(t, enums.CommissionPaymentPending, got.Status)
}

func TestCreateCheckoutSession_requiresProvider(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.CreateCheckoutSession(context.Background(), nil, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
}

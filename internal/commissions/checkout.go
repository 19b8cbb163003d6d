package commissions

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/metrics"
	"github.com/angelmondragon/dishdash-backend/pkg/square"
)

// CreateCheckoutSession opens a hosted checkout for a payable commission payment and records the
// session reference. The payment stays in its current status until the processor confirms it.
func (s *Service) CreateCheckoutSession(ctx context.Context, restaurantID *uuid.UUID, paymentID uuid.UUID) (*CheckoutSession, error) {
	if s.checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "checkout provider not configured")
	}
	payment, err := s.GetPayment(ctx, restaurantID, paymentID)
	if err != nil {
		return nil, err
	}
	if err := checkPayable(payment.Status); err != nil {
		s.metrics.CheckoutSession(metrics.OutcomeRejected)
		return nil, toAPIError(err, "")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"restaurant_id":         payment.RestaurantID.String(),
		"commission_payment_id": payment.ID.String(),
	})
	now := s.now().UTC()

	link, err := s.checkout.CreatePaymentLink(ctx, square.PaymentLinkParams{
		Name:           fmt.Sprintf("Commission for week of %s", payment.PeriodStart.In(s.loc).Format("2006-01-02")),
		AmountCents:    AmountCents(payment.CommissionAmount),
		Currency:       Currency,
		ReferenceID:    payment.ID.String(),
		Note:           fmt.Sprintf("Commission payment %s", payment.ID),
		IdempotencyKey: fmt.Sprintf("commission-%s-%d", payment.ID, now.Unix()),
	})
	if err != nil {
		s.metrics.CheckoutSession(metrics.OutcomeError)
		s.logg.Error(ctx, "create checkout session failed", err)
		return nil, toAPIError(err, "create checkout session")
	}

	stored, err := s.payments.SetCheckoutRefs(ctx, payment.ID, link.ID, link.OrderID, now)
	if err != nil {
		s.metrics.CheckoutSession(metrics.OutcomeError)
		return nil, toAPIError(err, "store checkout session reference")
	}
	if !stored {
		current, err := s.payments.FindByID(ctx, payment.ID)
		if err != nil {
			return nil, toAPIError(err, "reload commission payment")
		}
		s.metrics.CheckoutSession(metrics.OutcomeRejected)
		if err := checkPayable(current.Status); err != nil {
			return nil, toAPIError(err, "")
		}
		return nil, toAPIError(ErrInvalidStateTransition, "")
	}

	s.metrics.CheckoutSession(metrics.OutcomeSuccess)
	s.logg.Info(s.logg.WithField(ctx, "checkout_session_ref", link.ID), "checkout session created")
	return &CheckoutSession{
		PaymentID:   payment.ID,
		CheckoutURL: link.URL,
		SessionID:   link.ID,
	}, nil
}

func checkPayable(status enums.CommissionPaymentStatus) error {
	switch status {
	case enums.CommissionPaymentPaid:
		return ErrPaymentAlreadyPaid
	case enums.CommissionPaymentPending, enums.CommissionPaymentOverdue:
		return nil
	default:
		return fmt.Errorf("%w: %s payments cannot be paid", ErrInvalidStateTransition, status)
	}
}

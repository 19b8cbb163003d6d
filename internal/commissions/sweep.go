package commissions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/metrics"
	"github.com/angelmondragon/dishdash-backend/pkg/outbox"
	"github.com/angelmondragon/dishdash-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/dishdash-backend/pkg/pagination"
)

// FrozenReason is the human-readable reason shown on a frozen restaurant.
func FrozenReason(amount decimal.Decimal, due time.Time) string {
	return fmt.Sprintf("Unpaid commission of %s due %s", amount.StringFixed(2), due.UTC().Format(time.RFC3339))
}

// SweepOverduePayments marks every pending payment due before now as overdue and freezes its
// restaurant in the same transaction. Record failures are counted and left for the next run.
// The returned error is non-nil only when the due payments could not be listed.
func (s *Service) SweepOverduePayments(ctx context.Context, now time.Time) (*SweepSummary, error) {
	now = now.UTC()
	summary := &SweepSummary{Results: []SweepResult{}}

	var cursor *pagination.Cursor
	for {
		if err := ctx.Err(); err != nil {
			return summary, toAPIError(err, "overdue sweep interrupted")
		}
		batch, err := s.payments.ListDuePending(ctx, now, cursor, s.batchSize)
		if err != nil {
			return summary, toAPIError(err, "list overdue commission payments")
		}
		for _, payment := range batch {
			summary.record(s.sweepRecord(ctx, payment, now))
		}
		if len(batch) < s.batchSize {
			break
		}
		last := batch[len(batch)-1]
		cursor = &pagination.Cursor{At: last.DueDate, ID: last.ID}
	}

	s.reconcileFrozen(ctx, summary)

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"checked":        summary.Checked,
		"frozen":         summary.Frozen,
		"already_frozen": summary.AlreadyFrozen,
		"skipped":        summary.Skipped,
		"errors":         summary.Errors,
		"inconsistent":   summary.Inconsistent,
	}), "overdue sweep finished")
	return summary, nil
}

func (s *Service) sweepRecord(ctx context.Context, payment models.CommissionPayment, now time.Time) SweepResult {
	paymentID := payment.ID
	due := payment.DueDate
	amount := payment.CommissionAmount
	result := SweepResult{
		RestaurantID:     payment.RestaurantID,
		PaymentID:        &paymentID,
		CommissionAmount: &amount,
		DueDate:          &due,
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"restaurant_id":         payment.RestaurantID.String(),
		"commission_payment_id": payment.ID.String(),
	})

	recordCtx, cancel := context.WithTimeout(ctx, s.recordTimeout)
	defer cancel()

	outcome := metrics.OutcomeSkipped
	err := s.db.WithTx(recordCtx, func(tx *gorm.DB) error {
		// The row lock orders this write against ReleaseFreeze on the same restaurant.
		if _, err := s.restaurants.LockByIDWithTx(tx, payment.RestaurantID); err != nil {
			return fmt.Errorf("lock restaurant: %w", err)
		}

		moved, err := s.payments.TransitionWithTx(tx, payment.ID,
			enums.CommissionPaymentPending, enums.CommissionPaymentOverdue, nil, now)
		if err != nil {
			return fmt.Errorf("mark payment overdue: %w", err)
		}
		if !moved {
			outcome = metrics.OutcomeSkipped
			return nil
		}

		reason := FrozenReason(payment.CommissionAmount, payment.DueDate)
		frozen, err := s.restaurants.FreezeWithTx(tx, payment.RestaurantID, reason, now)
		if err != nil {
			return fmt.Errorf("freeze restaurant: %w", err)
		}

		overdue := payment
		overdue.Status = enums.CommissionPaymentOverdue
		if err := s.emitPaymentEvent(recordCtx, tx, enums.EventCommissionPaymentOverdue, overdue, enums.CommissionPaymentPending, now); err != nil {
			return fmt.Errorf("emit overdue event: %w", err)
		}
		if !frozen {
			outcome = metrics.OutcomeAlreadyFrozen
			return nil
		}
		if err := s.emitFrozenEvent(recordCtx, tx, payment.RestaurantID, payment.ID, reason, now); err != nil {
			return fmt.Errorf("emit frozen event: %w", err)
		}
		outcome = metrics.OutcomeFrozen
		return nil
	})
	if err != nil {
		outcome = metrics.OutcomeError
		result.Error = err.Error()
		s.logg.Error(s.logg.WithFields(logCtx, pkgerrors.Dump(err).Fields()), "overdue sweep record failed", err)
	} else if outcome == metrics.OutcomeFrozen {
		s.logg.Info(logCtx, "restaurant frozen for overdue commission")
	}

	result.Status = outcome
	s.metrics.SweepRecord(outcome)
	return result
}

func (s *Service) emitFrozenEvent(ctx context.Context, tx *gorm.DB, restaurantID, paymentID uuid.UUID, reason string, at time.Time) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRestaurantFrozen,
		AggregateType: enums.AggregateRestaurant,
		AggregateID:   restaurantID,
		OccurredAt:    at,
		Data: payloads.RestaurantFreezeEvent{
			RestaurantID: restaurantID,
			Frozen:       true,
			Reason:       &reason,
			PaymentID:    &paymentID,
			At:           at,
		},
	})
}

// reconcileFrozen reports frozen restaurants with no overdue payment. It never unfreezes.
func (s *Service) reconcileFrozen(ctx context.Context, summary *SweepSummary) {
	frozen, err := s.restaurants.ListFrozen(ctx)
	if err != nil {
		s.logg.Error(ctx, "list frozen restaurants for reconciliation", err)
		return
	}
	if len(frozen) == 0 {
		return
	}
	withOverdue, err := s.payments.ListRestaurantIDsWithStatus(ctx, enums.CommissionPaymentOverdue)
	if err != nil {
		s.logg.Error(ctx, "list restaurants with overdue payments", err)
		return
	}
	covered := make(map[uuid.UUID]struct{}, len(withOverdue))
	for _, id := range withOverdue {
		covered[id] = struct{}{}
	}
	for _, restaurant := range frozen {
		if _, ok := covered[restaurant.ID]; ok {
			continue
		}
		summary.Inconsistent++
		summary.Results = append(summary.Results, SweepResult{
			RestaurantID: restaurant.ID,
			Status:       metrics.OutcomeInconsistent,
		})
		s.logg.Warn(s.logg.WithRestaurantID(ctx, restaurant.ID.String()), "frozen restaurant has no overdue commission payment")
	}
	s.metrics.SweepRecords(metrics.OutcomeInconsistent, summary.Inconsistent)
}

func (summary *SweepSummary) record(result SweepResult) {
	summary.Checked++
	switch result.Status {
	case metrics.OutcomeFrozen:
		summary.Frozen++
	case metrics.OutcomeAlreadyFrozen:
		summary.AlreadyFrozen++
	case metrics.OutcomeError:
		summary.Errors++
	default:
		summary.Skipped++
	}
	summary.Results = append(summary.Results, result)
}

package commissions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/dishdash-backend/internal/orders"
	"github.com/angelmondragon/dishdash-backend/pkg/config"
	"github.com/angelmondragon/dishdash-backend/pkg/db"
	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	"github.com/angelmondragon/dishdash-backend/pkg/logger"
	"github.com/angelmondragon/dishdash-backend/pkg/metrics"
	"github.com/angelmondragon/dishdash-backend/pkg/outbox"
	"github.com/angelmondragon/dishdash-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/dishdash-backend/pkg/pagination"
	"github.com/angelmondragon/dishdash-backend/pkg/square"
)

const defaultRecordTimeout = 10 * time.Second

type paymentStore interface {
	CreateWithTx(tx *gorm.DB, payment *models.CommissionPayment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CommissionPayment, error)
	FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.CommissionPayment, error)
	FindByRestaurantPeriod(ctx context.Context, restaurantID uuid.UUID, periodStart time.Time) (*models.CommissionPayment, error)
	FindByCheckoutOrderRefWithTx(tx *gorm.DB, orderRef string) (*models.CommissionPayment, error)
	ListDuePending(ctx context.Context, now time.Time, after *pagination.Cursor, limit int) ([]models.CommissionPayment, error)
	TransitionWithTx(tx *gorm.DB, id uuid.UUID, from, to enums.CommissionPaymentStatus, fields map[string]any, at time.Time) (bool, error)
	SetCheckoutRefs(ctx context.Context, id uuid.UUID, sessionRef, orderRef string, at time.Time) (bool, error)
	ListRestaurantIDsWithStatus(ctx context.Context, status enums.CommissionPaymentStatus) ([]uuid.UUID, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, filters PaymentFilters, after *pagination.Cursor, limit int) ([]models.CommissionPayment, error)
}

type restaurantGate interface {
	LockByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Restaurant, error)
	FreezeWithTx(tx *gorm.DB, id uuid.UUID, reason string, at time.Time) (bool, error)
	ListFrozen(ctx context.Context) ([]models.Restaurant, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type checkoutProvider interface {
	CreatePaymentLink(ctx context.Context, params square.PaymentLinkParams) (*square.PaymentLink, error)
}

// ServiceParams wires the commission engine.
type ServiceParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Ledger      orders.Ledger
	Payments    paymentStore
	Restaurants restaurantGate
	Outbox      outboxEmitter
	Checkout    checkoutProvider
	Metrics     *metrics.BillingMetrics
	Billing     config.BillingConfig
}

// Service implements commission calculation, period close, the payment state machine,
// the overdue sweep and the checkout bridge.
type Service struct {
	logg          *logger.Logger
	db            txRunner
	ledger        orders.Ledger
	payments      paymentStore
	restaurants   restaurantGate
	outbox        outboxEmitter
	checkout      checkoutProvider
	metrics       *metrics.BillingMetrics
	loc           *time.Location
	recordTimeout time.Duration
	batchSize     int
	now           func() time.Time
}

// NewService validates dependencies and builds the service. Checkout and Metrics are optional.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("order ledger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("commission payment repository required")
	}
	if params.Restaurants == nil {
		return nil, fmt.Errorf("restaurant repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	loc, err := params.Billing.Location()
	if err != nil {
		return nil, err
	}
	timeout := params.Billing.RecordTimeout
	if timeout <= 0 {
		timeout = defaultRecordTimeout
	}
	batch := params.Billing.SweepBatchSize
	if batch <= 0 {
		batch = 500
	}
	return &Service{
		logg:          params.Logger,
		db:            params.DB,
		ledger:        params.Ledger,
		payments:      params.Payments,
		restaurants:   params.Restaurants,
		outbox:        params.Outbox,
		checkout:      params.Checkout,
		metrics:       params.Metrics,
		loc:           loc,
		recordTimeout: timeout,
		batchSize:     batch,
		now:           time.Now,
	}, nil
}

// Location is the timezone week boundaries are computed in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Now exposes the service clock to jobs that share it.
func (s *Service) Now() time.Time {
	return s.now()
}

// ComputeWeeklyCommission sums eligible subtotals in [weekStart, weekEnd) and derives the commission.
func (s *Service) ComputeWeeklyCommission(ctx context.Context, restaurantID uuid.UUID, weekStart, weekEnd time.Time) (Commission, error) {
	commission, err := s.computeCommission(ctx, restaurantID, weekStart, weekEnd)
	if err != nil {
		return Commission{}, toAPIError(err, "compute commission")
	}
	return commission, nil
}

func (s *Service) computeCommission(ctx context.Context, restaurantID uuid.UUID, weekStart, weekEnd time.Time) (Commission, error) {
	if !weekEnd.After(weekStart) {
		return Commission{}, ErrInvalidRange
	}
	subtotals, err := s.ledger.ListEligibleSubtotals(ctx, restaurantID, weekStart, weekEnd)
	if err != nil {
		return Commission{}, fmt.Errorf("list eligible subtotals: %w", err)
	}
	return Calculate(subtotals, Rate), nil
}

// CurrentWeekEstimate is the commission accrued so far in the running week.
func (s *Service) CurrentWeekEstimate(ctx context.Context, restaurantID uuid.UUID) (*Estimate, error) {
	now := s.now()
	start := WeekStart(now, s.loc)
	estimate := &Estimate{
		RestaurantID:     restaurantID,
		TotalSales:       decimal.Zero,
		CommissionAmount: decimal.Zero,
		CommissionRate:   Rate,
		WeekStart:        start,
		WeekEnd:          now,
	}
	if !now.After(start) {
		return estimate, nil
	}
	commission, err := s.computeCommission(ctx, restaurantID, start, now)
	if err != nil {
		return nil, toAPIError(err, "compute current week estimate")
	}
	estimate.TotalSales = commission.TotalSales
	estimate.CommissionAmount = commission.CommissionAmount
	return estimate, nil
}

// ClosePeriod bills one restaurant for the week starting at periodStart. Re-running it for an
// already billed week returns the existing payment; a week without commission creates nothing.
func (s *Service) ClosePeriod(ctx context.Context, restaurantID uuid.UUID, periodStart time.Time) (*CloseResult, error) {
	result, err := s.closePeriod(ctx, restaurantID, periodStart)
	if err != nil {
		return nil, toAPIError(err, "close billing period")
	}
	return result, nil
}

func (s *Service) closePeriod(ctx context.Context, restaurantID uuid.UUID, periodStart time.Time) (*CloseResult, error) {
	// Week arithmetic must run in the billing zone; a fixed offset drifts an hour across DST.
	periodStart = periodStart.In(s.loc)
	if !IsPeriodStart(periodStart, s.loc) {
		return nil, fmt.Errorf("%w: period start %s is not a week boundary", ErrInvalidRange, periodStart.Format(time.RFC3339))
	}
	periodEnd := PeriodEnd(periodStart)
	now := s.now()
	if periodEnd.After(now) {
		return nil, ErrPeriodNotYetClosed
	}

	ctx = s.logg.WithRestaurantID(ctx, restaurantID.String())
	ctx = s.logg.WithBillingPeriod(ctx, periodStart, periodEnd)

	existing, err := s.payments.FindByRestaurantPeriod(ctx, restaurantID, periodStart)
	switch {
	case err == nil:
		s.metrics.PeriodClosed(metrics.OutcomeExisting)
		return &CloseResult{Outcome: CloseExisting, Payment: existing}, nil
	case !db.IsNotFound(err):
		return nil, fmt.Errorf("find existing payment: %w", err)
	}

	commission, err := s.computeCommission(ctx, restaurantID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	// Sales under 0.125 round to a zero commission. Nothing is payable, so no record is opened.
	if commission.TotalSales.IsZero() || commission.CommissionAmount.IsZero() {
		s.metrics.PeriodClosed(metrics.OutcomeNoOp)
		s.logg.Debug(ctx, "no commission due for period")
		return &CloseResult{Outcome: CloseNoOp}, nil
	}

	payment := &models.CommissionPayment{
		ID:               uuid.New(),
		RestaurantID:     restaurantID,
		PeriodStart:      periodStart.UTC(),
		PeriodEnd:        periodEnd.UTC(),
		TotalSales:       commission.TotalSales,
		CommissionRate:   commission.Rate,
		CommissionAmount: commission.CommissionAmount,
		DueDate:          DueDate(periodEnd).UTC(),
		Status:           enums.CommissionPaymentPending,
		CreatedAt:        now.UTC(),
		UpdatedAt:        now.UTC(),
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.payments.CreateWithTx(tx, payment); err != nil {
			return err
		}
		return s.emitPaymentEvent(ctx, tx, enums.EventCommissionPaymentCreated, *payment, "", now)
	})
	if err != nil {
		if db.IsUniqueViolation(err, UniqueConstraint) {
			existing, findErr := s.payments.FindByRestaurantPeriod(ctx, restaurantID, periodStart)
			if findErr != nil {
				return nil, fmt.Errorf("reload concurrently created payment: %w", findErr)
			}
			s.metrics.PeriodClosed(metrics.OutcomeExisting)
			return &CloseResult{Outcome: CloseExisting, Payment: existing}, nil
		}
		s.metrics.PeriodClosed(metrics.OutcomeError)
		return nil, fmt.Errorf("create commission payment: %w", err)
	}

	s.metrics.PeriodClosed(metrics.OutcomeCreated)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"commission_payment_id": payment.ID.String(),
		"commission_amount":     payment.CommissionAmount.StringFixed(2),
		"due_date":              payment.DueDate.Format(time.RFC3339),
	}), "commission payment created")
	return &CloseResult{Outcome: CloseCreated, Payment: payment}, nil
}

// GetPayment loads a payment, optionally scoped to a restaurant.
func (s *Service) GetPayment(ctx context.Context, restaurantID *uuid.UUID, paymentID uuid.UUID) (*models.CommissionPayment, error) {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, toAPIError(ErrPaymentNotFound, "")
		}
		return nil, toAPIError(err, "load commission payment")
	}
	if restaurantID != nil && payment.RestaurantID != *restaurantID {
		return nil, toAPIError(ErrPaymentNotFound, "")
	}
	return payment, nil
}

// ListPayments pages through a restaurant's payment history.
func (s *Service) ListPayments(ctx context.Context, restaurantID uuid.UUID, filters PaymentFilters, params pagination.Params) (*PaymentList, error) {
	if filters.From != nil && filters.To != nil && !filters.To.After(*filters.From) {
		return nil, toAPIError(ErrInvalidRange, "")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, toAPIError(fmt.Errorf("%w: %v", ErrInvalidRange, err), "")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.payments.ListByRestaurant(ctx, restaurantID, filters, cursor, limit+1)
	if err != nil {
		return nil, toAPIError(err, "list commission payments")
	}

	list := &PaymentList{Payments: make([]PaymentDTO, 0, len(rows))}
	if len(rows) > limit {
		last := rows[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{At: last.PeriodStart, ID: last.ID})
		rows = rows[:limit]
	}
	for _, row := range rows {
		list.Payments = append(list.Payments, ToDTO(row))
	}
	return list, nil
}

// ConfirmPayment applies a checkout confirmation: pending or overdue becomes paid.
// It never unfreezes the restaurant.
func (s *Service) ConfirmPayment(ctx context.Context, paymentID uuid.UUID, method string, paidAt time.Time) (*models.CommissionPayment, error) {
	var result *models.CommissionPayment
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		payment, err := s.payments.FindByIDWithTx(tx, paymentID)
		if err != nil {
			if db.IsNotFound(err) {
				return ErrPaymentNotFound
			}
			return err
		}
		result, err = s.markPaidWithTx(ctx, tx, payment, method, paidAt)
		return err
	})
	if err != nil {
		return nil, toAPIError(err, "confirm commission payment")
	}
	return result, nil
}

// ConfirmPaymentByCheckoutOrder resolves the payment from the processor order reference.
func (s *Service) ConfirmPaymentByCheckoutOrder(ctx context.Context, orderRef, method string, paidAt time.Time) (*models.CommissionPayment, error) {
	var result *models.CommissionPayment
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		payment, err := s.payments.FindByCheckoutOrderRefWithTx(tx, orderRef)
		if err != nil {
			if db.IsNotFound(err) {
				return ErrPaymentNotFound
			}
			return err
		}
		result, err = s.markPaidWithTx(ctx, tx, payment, method, paidAt)
		return err
	})
	if err != nil {
		return nil, toAPIError(err, "confirm commission payment")
	}
	return result, nil
}

// CancelPayment is the administrative pending|overdue to cancelled transition.
func (s *Service) CancelPayment(ctx context.Context, paymentID uuid.UUID) (*models.CommissionPayment, error) {
	now := s.now().UTC()
	var result *models.CommissionPayment
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		payment, err := s.payments.FindByIDWithTx(tx, paymentID)
		if err != nil {
			if db.IsNotFound(err) {
				return ErrPaymentNotFound
			}
			return err
		}
		result, err = s.transitionWithTx(ctx, tx, payment, enums.CommissionPaymentCancelled,
			map[string]any{"cancelled_at": now}, now)
		return err
	})
	if err != nil {
		return nil, toAPIError(err, "cancel commission payment")
	}
	return result, nil
}

func (s *Service) markPaidWithTx(ctx context.Context, tx *gorm.DB, payment *models.CommissionPayment, method string, paidAt time.Time) (*models.CommissionPayment, error) {
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	paidAt = paidAt.UTC()
	if payment.Status == enums.CommissionPaymentPaid {
		return nil, fmt.Errorf("%w: payment %s is already paid", ErrInvalidStateTransition, payment.ID)
	}
	fields := map[string]any{
		"paid_at":        paidAt,
		"payment_method": method,
	}
	return s.transitionWithTx(ctx, tx, payment, enums.CommissionPaymentPaid, fields, s.now().UTC())
}

// transitionWithTx is the single write path for status changes outside the sweep.
func (s *Service) transitionWithTx(ctx context.Context, tx *gorm.DB, payment *models.CommissionPayment, to enums.CommissionPaymentStatus, fields map[string]any, at time.Time) (*models.CommissionPayment, error) {
	from := payment.Status
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
	}
	ok, err := s.payments.TransitionWithTx(tx, payment.ID, from, to, fields, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: payment %s changed concurrently", ErrInvalidStateTransition, payment.ID)
	}
	updated, err := s.payments.FindByIDWithTx(tx, payment.ID)
	if err != nil {
		return nil, err
	}
	if err := s.emitPaymentEvent(ctx, tx, eventForStatus(to), *updated, from, at); err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"commission_payment_id": payment.ID.String(),
		"restaurant_id":         payment.RestaurantID.String(),
		"from":                  from,
		"to":                    to,
	})
	s.logg.Info(logCtx, "commission payment transitioned")
	return updated, nil
}

func (s *Service) emitPaymentEvent(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, p models.CommissionPayment, previous enums.CommissionPaymentStatus, at time.Time) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateCommissionPayment,
		AggregateID:   p.ID,
		OccurredAt:    at.UTC(),
		Data: payloads.CommissionPaymentEvent{
			PaymentID:        p.ID,
			RestaurantID:     p.RestaurantID,
			PeriodStart:      p.PeriodStart,
			PeriodEnd:        p.PeriodEnd,
			TotalSales:       p.TotalSales,
			CommissionAmount: p.CommissionAmount,
			DueDate:          p.DueDate,
			Status:           p.Status,
			PreviousStatus:   previous,
			PaymentMethod:    p.PaymentMethod,
			PaidAt:           p.PaidAt,
		},
	})
}

func eventForStatus(status enums.CommissionPaymentStatus) enums.OutboxEventType {
	switch status {
	case enums.CommissionPaymentPaid:
		return enums.EventCommissionPaymentPaid
	case enums.CommissionPaymentOverdue:
		return enums.EventCommissionPaymentOverdue
	case enums.CommissionPaymentCancelled:
		return enums.EventCommissionPaymentCancelled
	default:
		return enums.EventCommissionPaymentCreated
	}
}

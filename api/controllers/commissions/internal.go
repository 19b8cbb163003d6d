package commissions

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dishdash-backend/api/responses"
	"github.com/angelmondragon/dishdash-backend/api/validators"
	"github.com/angelmondragon/dishdash-backend/internal/commissions"
	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/logger"
)

// InternalService is the scheduler and back-office slice of the commission engine.
type InternalService interface {
	Now() time.Time
	Location() *time.Location
	SweepOverduePayments(ctx context.Context, now time.Time) (*commissions.SweepSummary, error)
	ClosePeriod(ctx context.Context, restaurantID uuid.UUID, periodStart time.Time) (*commissions.CloseResult, error)
	ConfirmPayment(ctx context.Context, paymentID uuid.UUID, method string, paidAt time.Time) (*models.CommissionPayment, error)
	CancelPayment(ctx context.Context, paymentID uuid.UUID) (*models.CommissionPayment, error)
}

type closePeriodRequest struct {
	RestaurantID string `json:"restaurant_id" validate:"required,uuid"`
	PeriodStart  string `json:"period_start" validate:"required"`
}

type closePeriodResponse struct {
	Outcome commissions.CloseOutcome `json:"outcome"`
	Payment *commissions.PaymentDTO  `json:"payment,omitempty"`
}

type confirmPaymentRequest struct {
	Method string     `json:"method" validate:"required,max=64"`
	PaidAt *time.Time `json:"paid_at"`
}

// InternalSweep runs one overdue sweep. Per-record errors are reported in the body, not the status.
func InternalSweep(svc InternalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !available(w, r, svc, logg) {
			return
		}
		summary, err := svc.SweepOverduePayments(r.Context(), svc.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// InternalClosePeriod bills one restaurant for one week.
func InternalClosePeriod(svc InternalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !available(w, r, svc, logg) {
			return
		}
		var req closePeriodRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		restaurantID, err := uuid.Parse(req.RestaurantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid restaurant_id"))
			return
		}
		periodStart, err := parsePeriodStart(req.PeriodStart, svc.Location())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ClosePeriod(r.Context(), restaurantID, periodStart)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp := closePeriodResponse{Outcome: result.Outcome}
		status := http.StatusOK
		if result.Payment != nil {
			dto := commissions.ToDTO(*result.Payment)
			resp.Payment = &dto
		}
		if result.Outcome == commissions.CloseCreated {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, resp)
	}
}

// InternalConfirmPayment records an out-of-band settlement.
func InternalConfirmPayment(svc InternalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !available(w, r, svc, logg) {
			return
		}
		paymentID, err := validators.ParseURLUUID(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var paidAt time.Time
		if req.PaidAt != nil {
			paidAt = *req.PaidAt
		}
		payment, err := svc.ConfirmPayment(r.Context(), paymentID, strings.ToLower(strings.TrimSpace(req.Method)), paidAt)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, commissions.ToDTO(*payment))
	}
}

// InternalCancelPayment voids a pending or overdue payment.
func InternalCancelPayment(svc InternalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !available(w, r, svc, logg) {
			return
		}
		paymentID, err := validators.ParseURLUUID(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := svc.CancelPayment(r.Context(), paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, commissions.ToDTO(*payment))
	}
}

func available(w http.ResponseWriter, r *http.Request, svc InternalService, logg *logger.Logger) bool {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
		return false
	}
	return true
}

// parsePeriodStart accepts an RFC3339 instant or a bare date, read as midnight in the billing timezone.
func parsePeriodStart(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if ts, err := time.ParseInLocation(time.DateOnly, raw, loc); err == nil {
		return ts, nil
	}
	return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{"period_start": "must be an RFC3339 timestamp or date"})
}

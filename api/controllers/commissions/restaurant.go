package commissions

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/dishdash-backend/api/middleware"
	"github.com/angelmondragon/dishdash-backend/api/responses"
	"github.com/angelmondragon/dishdash-backend/api/validators"
	"github.com/angelmondragon/dishdash-backend/internal/commissions"
	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/logger"
	"github.com/angelmondragon/dishdash-backend/pkg/pagination"
)

// RestaurantService is the restaurant-facing slice of the commission engine.
type RestaurantService interface {
	CurrentWeekEstimate(ctx context.Context, restaurantID uuid.UUID) (*commissions.Estimate, error)
	ListPayments(ctx context.Context, restaurantID uuid.UUID, filters commissions.PaymentFilters, params pagination.Params) (*commissions.PaymentList, error)
	GetPayment(ctx context.Context, restaurantID *uuid.UUID, paymentID uuid.UUID) (*models.CommissionPayment, error)
	CreateCheckoutSession(ctx context.Context, restaurantID *uuid.UUID, paymentID uuid.UUID) (*commissions.CheckoutSession, error)
}

// RestaurantEstimate returns the running commission for the current week.
func RestaurantEstimate(svc RestaurantService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID, ok := restaurantScope(w, r, svc, logg)
		if !ok {
			return
		}
		estimate, err := svc.CurrentWeekEstimate(r.Context(), restaurantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, estimate)
	}
}

// RestaurantListPayments pages through the caller's commission payments.
func RestaurantListPayments(svc RestaurantService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID, ok := restaurantScope(w, r, svc, logg)
		if !ok {
			return
		}
		filters, params, err := parseListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListPayments(r.Context(), restaurantID, filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// RestaurantGetPayment returns one of the caller's payments.
func RestaurantGetPayment(svc RestaurantService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID, ok := restaurantScope(w, r, svc, logg)
		if !ok {
			return
		}
		paymentID, err := validators.ParseURLUUID(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := svc.GetPayment(r.Context(), &restaurantID, paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, commissions.ToDTO(*payment))
	}
}

// RestaurantCheckout opens a hosted checkout for a pending or overdue payment.
func RestaurantCheckout(svc RestaurantService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID, ok := restaurantScope(w, r, svc, logg)
		if !ok {
			return
		}
		paymentID, err := validators.ParseURLUUID(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.CreateCheckoutSession(r.Context(), &restaurantID, paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

func restaurantScope(w http.ResponseWriter, r *http.Request, svc RestaurantService, logg *logger.Logger) (uuid.UUID, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
		return uuid.Nil, false
	}
	restaurantID, ok := middleware.RestaurantIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "restaurant context missing"))
		return uuid.Nil, false
	}
	return restaurantID, true
}

func parseListQuery(r *http.Request) (commissions.PaymentFilters, pagination.Params, error) {
	var filters commissions.PaymentFilters
	rawStatus, err := validators.ParseQueryEnum(r, "status",
		string(enums.CommissionPaymentPending),
		string(enums.CommissionPaymentOverdue),
		string(enums.CommissionPaymentPaid),
		string(enums.CommissionPaymentCancelled),
	)
	if err != nil {
		return filters, pagination.Params{}, err
	}
	if rawStatus != "" {
		status := enums.CommissionPaymentStatus(rawStatus)
		filters.Status = &status
	}
	if filters.From, err = validators.ParseQueryTime(r, "from"); err != nil {
		return filters, pagination.Params{}, err
	}
	if filters.To, err = validators.ParseQueryTime(r, "to"); err != nil {
		return filters, pagination.Params{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return filters, pagination.Params{}, err
	}
	return filters, pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}, nil
}

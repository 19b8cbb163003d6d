package commissions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
)

// CloseOutcome describes what closing a period did.
type CloseOutcome string

const (
	CloseCreated  CloseOutcome = "created"
	CloseExisting CloseOutcome = "existing"
	CloseNoOp     CloseOutcome = "noop"
)

// CloseResult carries the payment for created or existing outcomes. Payment is nil for CloseNoOp.
type CloseResult struct {
	Outcome CloseOutcome
	Payment *models.CommissionPayment
}

// Estimate is the running commission for the current week.
type Estimate struct {
	RestaurantID     uuid.UUID       `json:"restaurant_id"`
	TotalSales       decimal.Decimal `json:"total_sales"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	WeekStart        time.Time       `json:"week_start"`
	WeekEnd          time.Time       `json:"week_end"`
}

// PaymentFilters narrows a restaurant's payment history. From/To bound period_start.
type PaymentFilters struct {
	Status *enums.CommissionPaymentStatus
	From   *time.Time
	To     *time.Time
}

// PaymentDTO is the API shape of a commission payment.
type PaymentDTO struct {
	ID               uuid.UUID                     `json:"id"`
	RestaurantID     uuid.UUID                     `json:"restaurant_id"`
	PeriodStart      time.Time                     `json:"period_start"`
	PeriodEnd        time.Time                     `json:"period_end"`
	TotalSales       decimal.Decimal               `json:"total_sales"`
	CommissionRate   decimal.Decimal               `json:"commission_rate"`
	CommissionAmount decimal.Decimal               `json:"commission_amount"`
	DueDate          time.Time                     `json:"due_date"`
	Status           enums.CommissionPaymentStatus `json:"status"`
	PaymentMethod    *string                       `json:"payment_method,omitempty"`
	PaidAt           *time.Time                    `json:"paid_at,omitempty"`
	CheckoutInFlight bool                          `json:"checkout_in_flight"`
	CreatedAt        time.Time                     `json:"created_at"`
}

// PaymentList is one page of payments.
type PaymentList struct {
	Payments   []PaymentDTO `json:"payments"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// CheckoutSession is returned to the billing screen.
type CheckoutSession struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	CheckoutURL string    `json:"checkout_url"`
	SessionID   string    `json:"session_id"`
}

// SweepResult records what the sweep did with one payment.
type SweepResult struct {
	RestaurantID     uuid.UUID        `json:"restaurant_id"`
	PaymentID        *uuid.UUID       `json:"payment_id,omitempty"`
	Status           string           `json:"status"`
	CommissionAmount *decimal.Decimal `json:"commission_amount,omitempty"`
	DueDate          *time.Time       `json:"due_date,omitempty"`
	Error            string           `json:"error,omitempty"`
}

// SweepSummary is the response of one overdue sweep run.
type SweepSummary struct {
	Checked       int           `json:"checked"`
	Frozen        int           `json:"frozen"`
	AlreadyFrozen int           `json:"already_frozen"`
	Skipped       int           `json:"skipped"`
	Errors        int           `json:"errors"`
	Inconsistent  int           `json:"inconsistent"`
	Results       []SweepResult `json:"results"`
}

// ToDTO maps the persisted record to its API shape.
func ToDTO(p models.CommissionPayment) PaymentDTO {
	return PaymentDTO{
		ID:               p.ID,
		RestaurantID:     p.RestaurantID,
		PeriodStart:      p.PeriodStart,
		PeriodEnd:        p.PeriodEnd,
		TotalSales:       p.TotalSales,
		CommissionRate:   p.CommissionRate,
		CommissionAmount: p.CommissionAmount,
		DueDate:          p.DueDate,
		Status:           p.Status,
		PaymentMethod:    p.PaymentMethod,
		PaidAt:           p.PaidAt,
		CheckoutInFlight: p.CheckoutSessionRef != nil && !p.Status.IsTerminal(),
		CreatedAt:        p.CreatedAt,
	}
}

package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/dishdash-backend/pkg/enums"
)

// CommissionPaymentEvent describes a commission payment at the moment of a state change.
type CommissionPaymentEvent struct {
	PaymentID        uuid.UUID                     `json:"payment_id"`
	RestaurantID     uuid.UUID                     `json:"restaurant_id"`
	PeriodStart      time.Time                     `json:"period_start"`
	PeriodEnd        time.Time                     `json:"period_end"`
	TotalSales       decimal.Decimal               `json:"total_sales"`
	CommissionAmount decimal.Decimal               `json:"commission_amount"`
	DueDate          time.Time                     `json:"due_date"`
	Status           enums.CommissionPaymentStatus `json:"status"`
	PreviousStatus   enums.CommissionPaymentStatus `json:"previous_status,omitempty"`
	PaymentMethod    *string                       `json:"payment_method,omitempty"`
	PaidAt           *time.Time                    `json:"paid_at,omitempty"`
}

// RestaurantFreezeEvent is emitted when the trading gate closes or reopens.
type RestaurantFreezeEvent struct {
	RestaurantID uuid.UUID  `json:"restaurant_id"`
	Frozen       bool       `json:"frozen"`
	Reason       *string    `json:"reason,omitempty"`
	PaymentID    *uuid.UUID `json:"payment_id,omitempty"`
	At           time.Time  `json:"at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/dishdash-backend/pkg/enums"
)

// CommissionPayment is the obligation for one restaurant and one billing week.
// Amounts, period bounds and due date are written once at creation.
type CommissionPayment struct {
	ID                 uuid.UUID                     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RestaurantID       uuid.UUID                     `gorm:"column:restaurant_id;type:uuid;not null;uniqueIndex:uq_commission_payments_restaurant_period"`
	PeriodStart        time.Time                     `gorm:"column:period_start;not null;uniqueIndex:uq_commission_payments_restaurant_period"`
	PeriodEnd          time.Time                     `gorm:"column:period_end;not null"`
	TotalSales         decimal.Decimal               `gorm:"column:total_sales;type:numeric(14,3);not null"`
	CommissionRate     decimal.Decimal               `gorm:"column:commission_rate;type:numeric(6,4);not null"`
	CommissionAmount   decimal.Decimal               `gorm:"column:commission_amount;type:numeric(12,2);not null"`
	DueDate            time.Time                     `gorm:"column:due_date;not null"`
	Status             enums.CommissionPaymentStatus `gorm:"column:status;type:commission_payment_status;not null;default:'pending'"`
	PaymentMethod      *string                       `gorm:"column:payment_method"`
	PaidAt             *time.Time                    `gorm:"column:paid_at"`
	CheckoutSessionRef *string                       `gorm:"column:checkout_session_ref"`
	CheckoutOrderRef   *string                       `gorm:"column:checkout_order_ref"`
	CancelledAt        *time.Time                    `gorm:"column:cancelled_at"`
	CreatedAt          time.Time                     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                     `gorm:"column:updated_at;autoUpdateTime"`
}

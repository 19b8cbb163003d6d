package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/dishdash-backend/pkg/enums"
)

// Order is a ledger entry written by the ordering flow. Fees are stored apart from the subtotal.
type Order struct {
	ID           uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RestaurantID uuid.UUID         `gorm:"column:restaurant_id;type:uuid;not null;index"`
	Status       enums.OrderStatus `gorm:"column:status;type:order_status;not null"`
	Subtotal     decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,3);not null"`
	DeliveryFee  decimal.Decimal   `gorm:"column:delivery_fee;type:numeric(12,2);not null;default:0"`
	ServiceFee   decimal.Decimal   `gorm:"column:service_fee;type:numeric(12,2);not null;default:0"`
	CreatedAt    time.Time         `gorm:"column:created_at;not null"`
}

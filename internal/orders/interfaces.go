package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ledger is the read-only view of the order ledger used for commission billing.
// Ranges are half-open: [from, to).
type Ledger interface {
	WithTx(tx *gorm.DB) Ledger
	ListEligibleSubtotals(ctx context.Context, restaurantID uuid.UUID, from, to time.Time) ([]decimal.Decimal, error)
	ListRestaurantsWithOrders(ctx context.Context, from, to time.Time) ([]uuid.UUID, error)
}

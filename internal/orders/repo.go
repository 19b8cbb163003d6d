package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order ledger reader bound to the provided DB.
func NewRepository(db *gorm.DB) Ledger {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Ledger {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ListEligibleSubtotals returns the merchandise subtotal of every billable order in range.
// Fees live in separate columns and are never selected here.
func (r *repository) ListEligibleSubtotals(ctx context.Context, restaurantID uuid.UUID, from, to time.Time) ([]decimal.Decimal, error) {
	var subtotals []decimal.Decimal
	err := r.eligible(ctx, from, to).
		Where("restaurant_id = ?", restaurantID).
		Order("created_at ASC").
		Pluck("subtotal", &subtotals).Error
	if err != nil {
		return nil, err
	}
	return subtotals, nil
}

// ListRestaurantsWithOrders returns the distinct restaurants that have billable orders in range.
func (r *repository) ListRestaurantsWithOrders(ctx context.Context, from, to time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.eligible(ctx, from, to).
		Distinct("restaurant_id").
		Order("restaurant_id ASC").
		Pluck("restaurant_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) eligible(ctx context.Context, from, to time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status NOT IN ?", enums.CommissionExcludedOrderStatuses).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC())
}

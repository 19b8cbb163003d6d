package commissions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	"github.com/angelmondragon/dishdash-backend/pkg/pagination"
)

// UniqueConstraint is the (restaurant_id, period_start) key that prevents double billing.
const UniqueConstraint = "uq_commission_payments_restaurant_period"

// Repository persists commission payments. Status changes are compare-and-set on the current status.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to commission payment operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateWithTx inserts a new payment.
func (r *Repository) CreateWithTx(tx *gorm.DB, payment *models.CommissionPayment) error {
	return tx.Create(payment).Error
}

// FindByID loads a payment by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CommissionPayment, error) {
	return r.FindByIDWithTx(r.db.WithContext(ctx), id)
}

// FindByIDWithTx loads a payment using the provided transaction.
func (r *Repository) FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.CommissionPayment, error) {
	var payment models.CommissionPayment
	if err := tx.Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByRestaurantPeriod loads the payment billed for one restaurant and week.
func (r *Repository) FindByRestaurantPeriod(ctx context.Context, restaurantID uuid.UUID, periodStart time.Time) (*models.CommissionPayment, error) {
	var payment models.CommissionPayment
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND period_start = ?", restaurantID, periodStart.UTC()).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByCheckoutOrderRefWithTx resolves the payment a processor order belongs to.
func (r *Repository) FindByCheckoutOrderRefWithTx(tx *gorm.DB, orderRef string) (*models.CommissionPayment, error) {
	var payment models.CommissionPayment
	if err := tx.Where("checkout_order_ref = ?", orderRef).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListDuePending returns pending payments whose due date is before now, ordered by
// (due_date, id) and starting strictly after the given cursor.
func (r *Repository) ListDuePending(ctx context.Context, now time.Time, after *pagination.Cursor, limit int) ([]models.CommissionPayment, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", enums.CommissionPaymentPending, now.UTC())
	if after != nil {
		at := after.At.UTC()
		q = q.Where("(due_date > ?) OR (due_date = ? AND id > ?)", at, at, after.ID)
	}
	var rows []models.CommissionPayment
	err := q.Order("due_date ASC").Order("id ASC").Limit(limit).Find(&rows).Error
	return rows, err
}

// TransitionWithTx moves a payment from one status to another. It reports false when the
// row is no longer in the expected status, leaving it untouched.
func (r *Repository) TransitionWithTx(tx *gorm.DB, id uuid.UUID, from, to enums.CommissionPaymentStatus, fields map[string]any, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	for k, v := range fields {
		updates[k] = v
	}
	res := tx.Model(&models.CommissionPayment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetCheckoutRefs records the in-flight checkout while the payment is still payable.
func (r *Repository) SetCheckoutRefs(ctx context.Context, id uuid.UUID, sessionRef, orderRef string, at time.Time) (bool, error) {
	updates := map[string]any{
		"checkout_session_ref": sessionRef,
		"updated_at":           at,
	}
	if orderRef != "" {
		updates["checkout_order_ref"] = orderRef
	}
	res := r.db.WithContext(ctx).
		Model(&models.CommissionPayment{}).
		Where("id = ? AND status IN ?", id, payableStatuses).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CountOverdueWithTx counts a restaurant's overdue payments.
func (r *Repository) CountOverdueWithTx(tx *gorm.DB, restaurantID uuid.UUID) (int64, error) {
	var count int64
	err := tx.Model(&models.CommissionPayment{}).
		Where("restaurant_id = ? AND status = ?", restaurantID, enums.CommissionPaymentOverdue).
		Count(&count).Error
	return count, err
}

// ListRestaurantIDsWithStatus returns the distinct restaurants holding a payment in status.
func (r *Repository) ListRestaurantIDsWithStatus(ctx context.Context, status enums.CommissionPaymentStatus) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.CommissionPayment{}).
		Where("status = ?", status).
		Distinct("restaurant_id").
		Pluck("restaurant_id", &ids).Error
	return ids, err
}

// ListByRestaurant pages through a restaurant's payments, newest period first.
func (r *Repository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, filters PaymentFilters, after *pagination.Cursor, limit int) ([]models.CommissionPayment, error) {
	q := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID)
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	if filters.From != nil {
		q = q.Where("period_start >= ?", filters.From.UTC())
	}
	if filters.To != nil {
		q = q.Where("period_start < ?", filters.To.UTC())
	}
	if after != nil {
		at := after.At.UTC()
		q = q.Where("(period_start < ?) OR (period_start = ? AND id < ?)", at, at, after.ID)
	}
	var rows []models.CommissionPayment
	err := q.Order("period_start DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

var payableStatuses = []enums.CommissionPaymentStatus{
	enums.CommissionPaymentPending,
	enums.CommissionPaymentOverdue,
}

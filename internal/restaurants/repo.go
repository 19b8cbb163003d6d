package restaurants

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
)

// Repository owns every write to the restaurant trading gate.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to restaurant operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a restaurant by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Restaurant, error) {
	return r.FindByIDWithTx(r.db.WithContext(ctx), id)
}

// FindByIDWithTx loads a restaurant using the provided transaction.
func (r *Repository) FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := tx.Where("id = ?", id).First(&restaurant).Error; err != nil {
		return nil, err
	}
	return &restaurant, nil
}

// LockByIDWithTx loads a restaurant and holds its row lock until tx ends.
// Every read-then-write on the trading gate goes through here so the sweep's
// freeze and an administrative unfreeze never interleave. SQLite has no row
// locks and serializes writers instead.
func (r *Repository) LockByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := lockedByID(tx, id).First(&restaurant).Error; err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func lockedByID(tx *gorm.DB, id uuid.UUID) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id)
}

// FreezeWithTx closes the trading gate if it is open. It reports false when the
// restaurant was already frozen, leaving the existing reason and timestamp untouched.
func (r *Repository) FreezeWithTx(tx *gorm.DB, id uuid.UUID, reason string, at time.Time) (bool, error) {
	res := tx.Model(&models.Restaurant{}).
		Where("id = ? AND is_frozen = ?", id, false).
		Updates(map[string]any{
			"is_frozen":     true,
			"frozen_reason": reason,
			"frozen_at":     at,
			"updated_at":    at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UnfreezeWithTx reopens the trading gate and clears the freeze metadata.
func (r *Repository) UnfreezeWithTx(tx *gorm.DB, id uuid.UUID, at time.Time) (bool, error) {
	res := tx.Model(&models.Restaurant{}).
		Where("id = ? AND is_frozen = ?", id, true).
		Updates(map[string]any{
			"is_frozen":     false,
			"frozen_reason": nil,
			"frozen_at":     nil,
			"updated_at":    at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListFrozen returns every restaurant whose trading gate is closed.
func (r *Repository) ListFrozen(ctx context.Context) ([]models.Restaurant, error) {
	var rows []models.Restaurant
	err := r.db.WithContext(ctx).
		Where("is_frozen = ?", true).
		Order("frozen_at ASC").
		Find(&rows).Error
	return rows, err
}

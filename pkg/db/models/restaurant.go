package models

import (
	"time"

	"github.com/google/uuid"
)

// Restaurant is the subset of the restaurant profile the billing engine reads and freezes.
type Restaurant struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string     `gorm:"column:name;not null"`
	IsFrozen     bool       `gorm:"column:is_frozen;not null;default:false"`
	FrozenReason *string    `gorm:"column:frozen_reason"`
	FrozenAt     *time.Time `gorm:"column:frozen_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

package migrate

import (
	"fmt"

	"gorm.io/gorm"
)

// sqliteSchema mirrors the goose migrations for the embedded SQLite mode and repository tests.
// Money columns are TEXT so decimals round-trip without float conversion.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS restaurants (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  is_frozen INTEGER NOT NULL DEFAULT 0,
  frozen_reason TEXT,
  frozen_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  restaurant_id TEXT NOT NULL,
  status TEXT NOT NULL,
  subtotal TEXT NOT NULL,
  delivery_fee TEXT NOT NULL DEFAULT '0',
  service_fee TEXT NOT NULL DEFAULT '0',
  created_at DATETIME NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS idx_orders_restaurant_created ON orders (restaurant_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS commission_payments (
  id TEXT PRIMARY KEY,
  restaurant_id TEXT NOT NULL,
  period_start DATETIME NOT NULL,
  period_end DATETIME NOT NULL,
  total_sales TEXT NOT NULL,
  commission_rate TEXT NOT NULL,
  commission_amount TEXT NOT NULL,
  due_date DATETIME NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_method TEXT,
  paid_at DATETIME,
  checkout_session_ref TEXT,
  checkout_order_ref TEXT,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT uq_commission_payments_restaurant_period UNIQUE (restaurant_id, period_start)
);`,
	`CREATE INDEX IF NOT EXISTS idx_commission_payments_status_due ON commission_payments (status, due_date);`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
}

// ApplySQLiteSchema creates the billing tables on a SQLite connection.
func ApplySQLiteSchema(conn *gorm.DB) error {
	for _, stmt := range sqliteSchema {
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("applying sqlite schema: %w", err)
		}
	}
	return nil
}

package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/dishdash-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestCommissionPaymentsMigrationEnforcesOnePerPeriod(t *testing.T) {
	content := readMigration(t, "*_create_commission_payments.sql")

	checks := []string{
		"CREATE TYPE commission_payment_status AS ENUM ('pending', 'paid', 'overdue', 'cancelled')",
		"CREATE TABLE IF NOT EXISTS commission_payments",
		"CONSTRAINT uq_commission_payments_restaurant_period UNIQUE (restaurant_id, period_start)",
		"CREATE INDEX IF NOT EXISTS idx_commission_payments_status_due ON commission_payments (status, due_date)",
		"commission_amount numeric(12,2) NOT NULL",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrdersMigrationKeepsFeesSeparate(t *testing.T) {
	content := readMigration(t, "*_create_restaurants_and_orders.sql")
	for _, sub := range []string{
		"subtotal numeric(12,3) NOT NULL",
		"delivery_fee numeric(12,2)",
		"service_fee numeric(12,2)",
		"is_frozen boolean NOT NULL DEFAULT false",
		"frozen_reason text",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected exactly one migration for %s, got %d", pattern, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestStockBatchMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_stock_batches.sql")
	checks := []string{
		"CREATE TABLE IF NOT EXISTS stock_batches",
		"batch_code TEXT NOT NULL UNIQUE",
		"CHECK (remaining_quantity >= 0 AND remaining_quantity <= quantity)",
		"DROP TABLE IF EXISTS stock_batches",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")
	checks := []string{
		"carrier_order_code TEXT UNIQUE",
		"version INTEGER NOT NULL DEFAULT 1",
		"CHECK (payment_method IN ('cod', 'online'))",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestGooseDialect(t *testing.T) {
	if got := migrate.GooseDialect("SQLite"); got != "sqlite3" {
		t.Fatalf("expected sqlite3, got %q", got)
	}
	if got := migrate.GooseDialect("postgres"); got != "postgres" {
		t.Fatalf("expected postgres, got %q", got)
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

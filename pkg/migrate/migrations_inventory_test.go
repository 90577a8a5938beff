package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %q", pattern)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestInventoryUnitsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_inventory_units.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS inventory_units",
		"CHECK (serial_number IS NULL OR quantity = 1)",
		"CHECK (serial_number IS NOT NULL OR batch_code IS NOT NULL)",
		"ON inventory_units (serial_number) WHERE serial_number IS NOT NULL",
		"ON inventory_units (batch_code) WHERE batch_code IS NOT NULL",
		"CREATE SEQUENCE IF NOT EXISTS batch_code_seq",
		"DROP TABLE IF EXISTS inventory_units",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPurchasesMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_purchases.sql")

	checks := []string{
		"CREATE SEQUENCE IF NOT EXISTS purchase_number_seq",
		"CHECK (quantity > 0)",
		"FOREIGN KEY (purchase_id) REFERENCES purchases(id) ON DELETE CASCADE",
		"FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE RESTRICT",
		"DROP TABLE IF EXISTS purchase_lines",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

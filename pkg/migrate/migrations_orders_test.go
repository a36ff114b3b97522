package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harvestlink/market-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := fs.Glob(migrate.Migrations(), "*_"+suffix+".sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := fs.ReadFile(migrate.Migrations(), matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_orders")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT",
		"CHECK (quantity BETWEEN 1 AND 100)",
		"CHECK (total_amount_cents = price_cents * quantity)",
		"ck_orders_single_terminal_timestamp",
		"idx_orders_buyer_created ON orders (buyer_id, created_at DESC, id DESC)",
		"DROP TABLE IF EXISTS orders",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOutboxRetryScheduleMigration(t *testing.T) {
	content := readMigration(t, "add_outbox_next_attempt")

	for _, sub := range []string{
		"ADD COLUMN IF NOT EXISTS next_attempt_at timestamptz",
		"ON outbox_events (created_at, id, next_attempt_at)",
		"DROP COLUMN IF EXISTS next_attempt_at",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestLedgerTablesRejectNegativeCounters(t *testing.T) {
	products := readMigration(t, "create_products")
	for _, sub := range []string{"CHECK (stock >= 0)", "CHECK (sales_count >= 0)"} {
		if !strings.Contains(products, sub) {
			t.Errorf("products migration missing %q", sub)
		}
	}

	accounts := readMigration(t, "create_accounts")
	if !strings.Contains(accounts, "CHECK (balance_cents >= 0)") {
		t.Error("accounts migration missing non-negative balance check")
	}

	journal := readMigration(t, "create_ledger_events")
	if !strings.Contains(journal, "UNIQUE (order_id, type)") {
		t.Error("ledger events migration missing per-order uniqueness")
	}
}

func TestEnumMigrationMatchesWireTokens(t *testing.T) {
	content := readMigration(t, "create_enums")
	for _, token := range []string{"'shipped', 'completed', 'cancelled', 'refunded'", "'only_refund', 'return_and_refund'"} {
		if !strings.Contains(content, token) {
			t.Errorf("enum migration missing %s", token)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
	if err := migrate.ValidateFS(migrate.Migrations()); err != nil {
		t.Fatalf("ValidateFS embedded: %v", err)
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	embedded, err := fs.Glob(migrate.Migrations(), "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	if len(onDisk) != len(embedded) || len(embedded) == 0 {
		t.Fatalf("embedded %d migrations, disk has %d", len(embedded), len(onDisk))
	}
}

func TestValidateDirRejectsDuplicateVersion(t *testing.T) {
	dir := t.TempDir()
	body := []byte("-- +goose Up\n-- +goose Down\n")
	for _, name := range []string{"20260301090000_a.sql", "20260301090000_b.sql"} {
		if err := os.WriteFile(filepath.Join(dir, name), body, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := migrate.ValidateDir(dir); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate version error, got %v", err)
	}
}

func TestParseVersion(t *testing.T) {
	v, err := migrate.ParseVersion("20260301090400")
	if err != nil || v != 20260301090400 {
		t.Fatalf("ParseVersion = %d, %v", v, err)
	}
	for _, bad := range []string{"", "2026", "2026030109040x", "-20260301090400"} {
		if _, err := migrate.ParseVersion(bad); err == nil {
			t.Errorf("ParseVersion(%q) should fail", bad)
		}
	}
}

func TestValidateDirRejectsBadFilename(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Order Notes")
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_order_notes.sql") {
		t.Fatalf("unexpected path %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "  --- "); err == nil {
		t.Fatal("expected error for a name without usable characters")
	}
}

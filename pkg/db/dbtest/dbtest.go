// Package dbtest opens throwaway sqlite databases carrying the marketplace schema so
// repository and service tests can exercise real SQL, including the conditional updates
// that guard stock and balances.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harvestlink/market-backend/pkg/db"
	"github.com/harvestlink/market-backend/pkg/db/models"
	"github.com/harvestlink/market-backend/pkg/enums"
)

var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		phone TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE user_roles (
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at DATETIME,
		PRIMARY KEY (user_id, role)
	)`,
	`CREATE TABLE accounts (
		user_id TEXT PRIMARY KEY,
		balance_cents INTEGER NOT NULL DEFAULT 0 CHECK (balance_cents >= 0),
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		farmer_id TEXT NOT NULL,
		title TEXT NOT NULL,
		specification TEXT NOT NULL DEFAULT '',
		price_cents INTEGER NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		sales_count INTEGER NOT NULL DEFAULT 0 CHECK (sales_count >= 0),
		status TEXT NOT NULL DEFAULT 'pending',
		images TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		buyer_id TEXT NOT NULL,
		farmer_id TEXT NOT NULL,
		product_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		specification TEXT NOT NULL DEFAULT '',
		price_cents INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		total_amount_cents INTEGER NOT NULL,
		buyer_name TEXT NOT NULL,
		buyer_address TEXT NOT NULL,
		buyer_phone TEXT NOT NULL,
		remark TEXT,
		status TEXT NOT NULL DEFAULT 'shipped',
		refund_reason TEXT,
		refund_type TEXT,
		created_at DATETIME,
		shipped_at DATETIME,
		completed_at DATETIME,
		cancelled_at DATETIME,
		refunded_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE ledger_events (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		type TEXT NOT NULL,
		amount_cents INTEGER NOT NULL,
		balance_after_cents INTEGER NOT NULL,
		metadata BLOB,
		created_at DATETIME,
		UNIQUE (order_id, type)
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		next_attempt_at DATETIME
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json BLOB NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// Open returns a client bound to a fresh in-memory database private to the test.
func Open(t testing.TB) *db.Client {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db.FromGorm(conn)
}

// SeedUser inserts an active user holding the given roles.
func SeedUser(t testing.TB, conn *gorm.DB, phone string, roles ...enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{Phone: phone, DisplayName: "user " + phone, IsActive: true}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	for _, role := range roles {
		if err := conn.Create(&models.UserRole{UserID: user.ID, Role: role}).Error; err != nil {
			t.Fatalf("seed role: %v", err)
		}
	}
	return user
}

// SeedAccount opens a balance for userID.
func SeedAccount(t testing.TB, conn *gorm.DB, userID uuid.UUID, balanceCents int64) *models.Account {
	t.Helper()
	account := &models.Account{UserID: userID, BalanceCents: balanceCents}
	if err := conn.Create(account).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

// SeedProduct lists an on-shelf product for farmerID.
func SeedProduct(t testing.TB, conn *gorm.DB, farmerID uuid.UUID, priceCents int64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		FarmerID:      farmerID,
		Title:         "Fuji apples",
		Specification: "5kg crate",
		PriceCents:    priceCents,
		Stock:         stock,
		Status:        enums.ProductStatusOnShelf,
		Images:        pq.StringArray{"https://cdn.example.com/apples.jpg"},
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// LoadAccount reads a balance straight from storage.
func LoadAccount(t testing.TB, conn *gorm.DB, userID uuid.UUID) models.Account {
	t.Helper()
	var account models.Account
	if err := conn.First(&account, "user_id = ?", userID).Error; err != nil {
		t.Fatalf("load account: %v", err)
	}
	return account
}

// LoadProduct reads a product straight from storage.
func LoadProduct(t testing.TB, conn *gorm.DB, id int64) models.Product {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product
}

// Package accounts persists buyer and farmer balances. Balances only move through
// ApplyDelta, which refuses to take an account below zero.
package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/market-backend/pkg/db"
	"github.com/harvestlink/market-backend/pkg/db/models"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient balance")
)

// Repository reads balances and applies signed deltas.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, userID uuid.UUID) (*models.Account, error)
	GetForUpdate(ctx context.Context, userID uuid.UUID) (*models.Account, error)
	ApplyDelta(ctx context.Context, userID uuid.UUID, deltaCents int64) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds an accounts repository to conn.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Get(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	return r.find(r.db.WithContext(ctx), userID)
}

// GetForUpdate locks the row until the surrounding transaction ends.
func (r *repository) GetForUpdate(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	return r.find(db.ForUpdate(r.db.WithContext(ctx)), userID)
}

func (r *repository) find(q *gorm.DB, userID uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := q.Where("user_id = ?", userID).Take(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ApplyDelta adds deltaCents (negative for debits) and returns the resulting balance.
// A debit that would overdraw the account changes nothing and returns ErrInsufficientFunds.
func (r *repository) ApplyDelta(ctx context.Context, userID uuid.UUID, deltaCents int64) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Account{}).Where("user_id = ?", userID)
	if deltaCents < 0 {
		q = q.Where("balance_cents >= ?", -deltaCents)
	}
	res := q.Updates(map[string]any{
		"balance_cents": gorm.Expr("balance_cents + ?", deltaCents),
		"updated_at":    time.Now().UTC(),
	})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.Get(ctx, userID); err != nil {
			return 0, err
		}
		return 0, ErrInsufficientFunds
	}

	account, err := r.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return account.BalanceCents, nil
}

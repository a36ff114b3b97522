package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/market-backend/pkg/db/models"
)

// Repository appends to and reads the ledger_events journal. Rows are never updated.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.LedgerEvent) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error)
	// ListByOrderIDs groups the journals of several orders; orders without events are absent.
	ListByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]models.LedgerEvent, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.LedgerEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// chronological orders journal rows the way they were appended.
func chronological(q *gorm.DB) *gorm.DB {
	return q.Order("created_at ASC").Order("id ASC")
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error) {
	var events []models.LedgerEvent
	err := r.db.WithContext(ctx).
		Scopes(chronological).
		Where("order_id = ?", orderID).
		Find(&events).Error
	return events, err
}

func (r *repository) ListByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]models.LedgerEvent, error) {
	grouped := make(map[uuid.UUID][]models.LedgerEvent, len(orderIDs))
	if len(orderIDs) == 0 {
		return grouped, nil
	}
	var events []models.LedgerEvent
	if err := r.db.WithContext(ctx).
		Scopes(chronological).
		Where("order_id IN ?", orderIDs).
		Find(&events).Error; err != nil {
		return nil, err
	}
	for _, event := range events {
		grouped[event.OrderID] = append(grouped[event.OrderID], event)
	}
	return grouped, nil
}

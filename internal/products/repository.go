package products

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/harvestlink/market-backend/pkg/db"
	"github.com/harvestlink/market-backend/pkg/db/models"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrSalesCountUnderrun = errors.New("sales count would go negative")
)

// InventoryRepository tracks product stock and sales counters.
type InventoryRepository interface {
	WithTx(tx *gorm.DB) InventoryRepository
	FindByID(ctx context.Context, id int64) (*models.Product, error)
	FindForUpdate(ctx context.Context, id int64) (*models.Product, error)
	AdjustStock(ctx context.Context, id int64, delta int) error
	AdjustSales(ctx context.Context, id int64, delta int) error
	ImagesByID(ctx context.Context, ids []int64) (map[int64][]string, error)
}

// Repository is the gorm-backed InventoryRepository.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) InventoryRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads the product without locking.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindForUpdate loads and row-locks the product. Lifecycle mutations take this lock
// before touching any account or order row.
func (r *Repository) FindForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	return r.find(db.ForUpdate(r.db.WithContext(ctx)), id)
}

func (r *Repository) find(q *gorm.DB, id int64) (*models.Product, error) {
	var product models.Product
	if err := q.Where("id = ?", id).Take(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// AdjustStock applies a signed delta to stock. Decrements only succeed while enough
// stock remains.
func (r *Repository) AdjustStock(ctx context.Context, id int64, delta int) error {
	return r.adjust(ctx, id, "stock", delta, ErrInsufficientStock)
}

// AdjustSales applies a signed delta to sales_count, never taking it below zero.
func (r *Repository) AdjustSales(ctx context.Context, id int64, delta int) error {
	return r.adjust(ctx, id, "sales_count", delta, ErrSalesCountUnderrun)
}

func (r *Repository) adjust(ctx context.Context, id int64, column string, delta int, underrun error) error {
	if delta == 0 {
		return nil
	}
	q := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id)
	if delta < 0 {
		q = q.Where(column+" >= ?", -delta)
	}
	res := q.Updates(map[string]any{
		column:       gorm.Expr(column+" + ?", delta),
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return underrun
	}
	return nil
}

// ImagesByID returns product images keyed by product id. Missing products are absent
// from the map.
func (r *Repository) ImagesByID(ctx context.Context, ids []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Select("id", "images").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = append([]string(nil), row.Images...)
	}
	return out, nil
}

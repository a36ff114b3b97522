package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/market-backend/pkg/db/models"
	"github.com/harvestlink/market-backend/pkg/enums"
	"github.com/harvestlink/market-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) ScanAfter(ctx context.Context, after uuid.UUID, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}
	q := r.db.WithContext(ctx).Order("id ASC").Limit(limit)
	if after != uuid.Nil {
		q = q.Where("id > ?", after)
	}
	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// List returns one page of orders newest first and the cursor of the following page.
func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.BuyerID != uuid.Nil {
		q = q.Where("buyer_id = ?", filter.BuyerID)
	}
	if filter.FarmerID != uuid.Nil {
		q = q.Where("farmer_id = ?", filter.FarmerID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.Title != "" {
		q = q.Where(`LOWER(title) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(filter.Title))+"%")
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, "", err
		}
		clause, args := cursor.Predicate()
		q = q.Where(clause, args...)
	}

	var rows []models.Order
	err := q.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}
	page, next := pagination.Trim(rows, limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return page, next, nil
}

// UpdateFields overwrites delivery details while the order is still shipped.
func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	values := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["updated_at"] = time.Now().UTC()
	return r.guarded(ctx, id, values)
}

// Transition moves a shipped order to a terminal status and stamps the matching timestamp.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, to enums.OrderStatus, at time.Time, extra map[string]any) error {
	column, ok := transitionColumns[to]
	if !ok {
		return errors.New("unsupported order transition to " + string(to))
	}
	values := map[string]any{
		"status":     to,
		column:       at,
		"updated_at": at,
	}
	for k, v := range extra {
		values[k] = v
	}
	return r.guarded(ctx, id, values)
}

func (r *repository) guarded(ctx context.Context, id uuid.UUID, values map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusShipped).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return ErrStatusChanged
	}
	return nil
}

var transitionColumns = map[enums.OrderStatus]string{
	enums.OrderStatusCompleted: "completed_at",
	enums.OrderStatusRefunded:  "refunded_at",
	enums.OrderStatusCancelled: "cancelled_at",
}

// likeEscaper makes LIKE wildcards in a title filter match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/market-backend/pkg/db/models"
	"github.com/harvestlink/market-backend/pkg/enums"
	"github.com/harvestlink/market-backend/pkg/pagination"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrStatusChanged means a guarded write found the order no longer shipped.
	ErrStatusChanged = errors.New("order status changed concurrently")
)

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, string, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Transition(ctx context.Context, id uuid.UUID, to enums.OrderStatus, at time.Time, extra map[string]any) error
	// ScanAfter walks every order in id order; pass uuid.Nil to start.
	ScanAfter(ctx context.Context, after uuid.UUID, limit int) ([]models.Order, error)
}

// IdentityResolver maps a phone number onto a marketplace user.
type IdentityResolver interface {
	Resolve(ctx context.Context, phone string) (uuid.UUID, bool, error)
	HasRole(ctx context.Context, userID uuid.UUID, role enums.UserRole) (bool, error)
}

// LifecycleObserver records the outcome and latency of each service operation.
type LifecycleObserver interface {
	ObserveOrderOperation(operation string, err error, elapsed time.Duration)
}

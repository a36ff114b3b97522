package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/harvestlink/market-backend/pkg/enums"
)

// Product is a farmer listing together with its inventory counters.
type Product struct {
	ID            int64               `gorm:"column:id;primaryKey;autoIncrement"`
	FarmerID      uuid.UUID           `gorm:"column:farmer_id;type:uuid;not null"`
	Title         string              `gorm:"column:title;not null"`
	Specification string              `gorm:"column:specification;not null;default:''"`
	PriceCents    int64               `gorm:"column:price_cents;not null"`
	Stock         int                 `gorm:"column:stock;not null;default:0"`
	SalesCount    int                 `gorm:"column:sales_count;not null;default:0"`
	Status        enums.ProductStatus `gorm:"column:status;type:product_status;not null;default:'pending'"`
	Images        pq.StringArray      `gorm:"column:images;type:text[];not null;default:'{}'"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/market-backend/pkg/enums"
)

// Order is a single buyer-to-farmer purchase. Title, specification and price are snapshots
// taken at creation; TotalAmountCents never changes afterwards.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID          uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index"`
	FarmerID         uuid.UUID         `gorm:"column:farmer_id;type:uuid;not null;index"`
	ProductID        int64             `gorm:"column:product_id;not null"`
	Title            string            `gorm:"column:title;not null"`
	Specification    string            `gorm:"column:specification;not null;default:''"`
	PriceCents       int64             `gorm:"column:price_cents;not null"`
	Quantity         int               `gorm:"column:quantity;not null"`
	TotalAmountCents int64             `gorm:"column:total_amount_cents;not null"`
	BuyerName        string            `gorm:"column:buyer_name;not null"`
	BuyerAddress     string            `gorm:"column:buyer_address;not null"`
	BuyerPhone       string            `gorm:"column:buyer_phone;not null"`
	Remark           *string           `gorm:"column:remark"`
	Status           enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'shipped'"`
	RefundReason     *string           `gorm:"column:refund_reason"`
	RefundType       *enums.RefundType `gorm:"column:refund_type;type:refund_type"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	ShippedAt        *time.Time        `gorm:"column:shipped_at"`
	CompletedAt      *time.Time        `gorm:"column:completed_at"`
	CancelledAt      *time.Time        `gorm:"column:cancelled_at"`
	RefundedAt       *time.Time        `gorm:"column:refunded_at"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

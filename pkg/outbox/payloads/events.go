package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/harvestlink/market-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once the buyer has been debited and stock reserved.
type OrderCreatedEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	BuyerID          uuid.UUID `json:"buyer_id"`
	FarmerID         uuid.UUID `json:"farmer_id"`
	ProductID        int64     `json:"product_id"`
	Quantity         int       `json:"quantity"`
	TotalAmountCents int64     `json:"total_amount_cents"`
	CreatedAt        time.Time `json:"created_at"`
}

// OrderUpdatedEvent lists the delivery fields a buyer changed.
type OrderUpdatedEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	BuyerID uuid.UUID `json:"buyer_id"`
	Fields  []string  `json:"fields"`
}

// OrderCompletedEvent is emitted when the buyer confirms receipt and the farmer is paid.
type OrderCompletedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	FarmerID    uuid.UUID `json:"farmer_id"`
	AmountCents int64     `json:"amount_cents"`
	CompletedAt time.Time `json:"completed_at"`
}

// OrderRefundedEvent is emitted when a refund returns the buyer's money and the stock.
type OrderRefundedEvent struct {
	OrderID     uuid.UUID        `json:"order_id"`
	BuyerID     uuid.UUID        `json:"buyer_id"`
	AmountCents int64            `json:"amount_cents"`
	RefundType  enums.RefundType `json:"refund_type"`
	Reason      string           `json:"reason"`
	RefundedAt  time.Time        `json:"refunded_at"`
}

// OrderCancelledEvent is emitted when a buyer cancels an order in transit.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	AmountCents int64     `json:"amount_cents"`
	CancelledAt time.Time `json:"cancelled_at"`
}

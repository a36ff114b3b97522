package orders

import (
	"github.com/google/uuid"

	"github.com/harvestlink/market-backend/pkg/enums"
)

// CreateOrderInput carries a buyer's purchase request. Phone identifies the buyer; BuyerPhone
// is the delivery contact and may differ.
type CreateOrderInput struct {
	Phone        string  `json:"-" validate:"required,phone"`
	ProductID    int64   `json:"product_id" validate:"required,gt=0"`
	Quantity     int     `json:"quantity" validate:"required,min=1,max=100"`
	BuyerName    string  `json:"buyer_name" validate:"required,min=1,max=50"`
	BuyerAddress string  `json:"buyer_address" validate:"required,min=5,max=200"`
	BuyerPhone   string  `json:"buyer_phone" validate:"required,phone"`
	Remark       *string `json:"remark,omitempty" validate:"omitempty,max=500"`
}

// UpdateOrderInput changes delivery details of an order still in transit. Nil fields are
// left untouched.
type UpdateOrderInput struct {
	OrderID      uuid.UUID `json:"-"`
	Phone        string    `json:"-" validate:"required,phone"`
	BuyerName    *string   `json:"buyer_name,omitempty" validate:"omitempty,min=1,max=50"`
	BuyerAddress *string   `json:"buyer_address,omitempty" validate:"omitempty,min=5,max=200"`
	Remark       *string   `json:"remark,omitempty" validate:"omitempty,max=500"`
}

// OrderActionInput identifies an order and the phone of the actor operating on it.
type OrderActionInput struct {
	OrderID uuid.UUID `json:"-"`
	Phone   string    `json:"-" validate:"required,phone"`
}

// ApplyRefundInput requests a refund of an order in transit.
type ApplyRefundInput struct {
	OrderID uuid.UUID        `json:"-"`
	Phone   string           `json:"-" validate:"required,phone"`
	Reason  string           `json:"reason" validate:"required,max=200"`
	Type    enums.RefundType `json:"type" validate:"required,oneof=only_refund return_and_refund"`
}

// ListOrdersInput filters a buyer's or farmer's order history.
type ListOrdersInput struct {
	Phone  string             `validate:"required,phone"`
	Status *enums.OrderStatus `validate:"omitempty,oneof=shipped completed cancelled refunded"`
	Title  string             `validate:"max=100"`
	Limit  int                `validate:"min=0"`
	Cursor string
}

// ListFilter is the repository-level form of ListOrdersInput.
type ListFilter struct {
	BuyerID  uuid.UUID
	FarmerID uuid.UUID
	Status   *enums.OrderStatus
	Title    string
}

// Link is a hypermedia reference attached to an order view.
type Link struct {
	Href   string `json:"href"`
	Method string `json:"method"`
}

// OrderView is the wire representation of an order. Money fields are two-decimal strings.
type OrderView struct {
	OrderID       string            `json:"order_id"`
	ProductID     int64             `json:"product_id"`
	Title         string            `json:"title"`
	Specification string            `json:"specification"`
	Price         string            `json:"price"`
	Quantity      int               `json:"quantity"`
	TotalAmount   string            `json:"total_amount"`
	BuyerName     string            `json:"buyer_name"`
	BuyerAddress  string            `json:"buyer_address"`
	BuyerPhone    string            `json:"buyer_phone"`
	Status        enums.OrderStatus `json:"status"`
	Remark        *string           `json:"remark"`
	RefundReason  *string           `json:"refund_reason,omitempty"`
	RefundType    *enums.RefundType `json:"refund_type,omitempty"`
	CreatedAt     string            `json:"created_at"`
	ShippedAt     *string           `json:"shipped_at"`
	CompletedAt   *string           `json:"completed_at"`
	CancelledAt   *string           `json:"cancelled_at"`
	RefundedAt    *string           `json:"refunded_at"`
	Images        []string          `json:"images"`
	Payments      []PaymentView     `json:"payments,omitempty"`
	Links         map[string]Link   `json:"_links,omitempty"`
}

// PaymentView is one money journal entry of an order, signed from the holder's side.
type PaymentView struct {
	Type       enums.LedgerEventType `json:"type"`
	Amount     string                `json:"amount"`
	RecordedAt string                `json:"recorded_at"`
}

// OrderList wraps one page of orders plus the cursor of the next page.
type OrderList struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

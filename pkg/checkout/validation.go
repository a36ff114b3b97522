// Package checkout holds the purchase-time preconditions a product and a buyer balance must
// satisfy before an order may be placed.
package checkout

import (
	"github.com/harvestlink/market-backend/pkg/db/models"
	"github.com/harvestlink/market-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/market-backend/pkg/errors"
	"github.com/harvestlink/market-backend/pkg/money"
)

const (
	MsgOffShelf          = "product already off-shelf"
	MsgSoldOut           = "product sold out"
	MsgInsufficientStock = "insufficient stock"
	MsgInsufficientFunds = "insufficient balance"
)

// StockViolationDetail reports the stock a request wanted against what was on hand.
type StockViolationDetail struct {
	ProductID    int64 `json:"product_id"`
	Available    int   `json:"available"`
	RequestedQty int   `json:"requested_qty"`
}

// BalanceViolationDetail reports the order total against the buyer's balance.
type BalanceViolationDetail struct {
	OrderTotal string `json:"order_total"`
	Balance    string `json:"balance"`
}

// ValidateProduct checks that product is listed and holds qty units.
func ValidateProduct(product *models.Product, qty int) error {
	if product.Status != enums.ProductStatusOnShelf {
		return pkgerrors.New(pkgerrors.CodeConflict, MsgOffShelf).WithDetails(map[string]any{
			"product_id": product.ID,
			"status":     product.Status,
		})
	}
	detail := StockViolationDetail{ProductID: product.ID, Available: product.Stock, RequestedQty: qty}
	if product.Stock <= 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, MsgSoldOut).WithDetails(detail)
	}
	if product.Stock < qty {
		return pkgerrors.New(pkgerrors.CodeConflict, MsgInsufficientStock).WithDetails(detail)
	}
	return nil
}

// ValidateBalance checks that balanceCents covers totalCents.
func ValidateBalance(totalCents, balanceCents int64) error {
	if balanceCents >= totalCents {
		return nil
	}
	return InsufficientBalance(totalCents, balanceCents)
}

// InsufficientBalance builds the PaymentRequired failure for a short balance.
func InsufficientBalance(totalCents, balanceCents int64) error {
	return pkgerrors.New(pkgerrors.CodePaymentRequired, MsgInsufficientFunds).WithDetails(BalanceViolationDetail{
		OrderTotal: money.Format(totalCents),
		Balance:    money.Format(balanceCents),
	})
}

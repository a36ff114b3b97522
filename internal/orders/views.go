package orders

import (
	"time"

	"github.com/harvestlink/market-backend/pkg/db/models"
	"github.com/harvestlink/market-backend/pkg/enums"
	"github.com/harvestlink/market-backend/pkg/money"
)

const ordersBasePath = "/api/v1/orders"

func toView(order *models.Order, images []string, links map[string]Link) OrderView {
	if images == nil {
		images = []string{}
	}
	return OrderView{
		OrderID:       order.ID.String(),
		ProductID:     order.ProductID,
		Title:         order.Title,
		Specification: order.Specification,
		Price:         money.Format(order.PriceCents),
		Quantity:      order.Quantity,
		TotalAmount:   money.Format(order.TotalAmountCents),
		BuyerName:     order.BuyerName,
		BuyerAddress:  order.BuyerAddress,
		BuyerPhone:    order.BuyerPhone,
		Status:        order.Status,
		Remark:        order.Remark,
		RefundReason:  order.RefundReason,
		RefundType:    order.RefundType,
		CreatedAt:     formatTime(order.CreatedAt),
		ShippedAt:     formatTimePtr(order.ShippedAt),
		CompletedAt:   formatTimePtr(order.CompletedAt),
		CancelledAt:   formatTimePtr(order.CancelledAt),
		RefundedAt:    formatTimePtr(order.RefundedAt),
		Images:        images,
		Links:         links,
	}
}

func toPayments(events []models.LedgerEvent) []PaymentView {
	out := make([]PaymentView, 0, len(events))
	for _, event := range events {
		out = append(out, PaymentView{
			Type:       event.Type,
			Amount:     money.Format(event.AmountCents),
			RecordedAt: formatTime(event.CreatedAt),
		})
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := formatTime(*t)
	return &v
}

// buyerLinks lists the actions a buyer may still take on order.
func buyerLinks(order *models.Order) map[string]Link {
	self := ordersBasePath + "/" + order.ID.String()
	links := map[string]Link{
		"self": {Href: self, Method: "GET"},
	}
	if order.Status == enums.OrderStatusShipped {
		links["cancel"] = Link{Href: self + "/cancel", Method: "POST"}
		links["confirm_receipt"] = Link{Href: self + "/confirm-receipt", Method: "POST"}
		links["refund"] = Link{Href: self + "/refund", Method: "POST"}
	}
	return links
}

func createdLinks(order *models.Order) map[string]Link {
	self := ordersBasePath + "/" + order.ID.String()
	return map[string]Link{
		"self":   {Href: self, Method: "GET"},
		"cancel": {Href: self + "/cancel", Method: "POST"},
	}
}

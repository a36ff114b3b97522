package ledger

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/harvestlink/market-backend/pkg/db/models"
	"github.com/harvestlink/market-backend/pkg/enums"
)

// Drift describes one way an order's journal disagrees with its lifecycle.
type Drift struct {
	OrderID uuid.UUID
	Status  enums.OrderStatus
	Reason  string
}

func (d Drift) String() string {
	return fmt.Sprintf("order %s (%s): %s", d.OrderID, d.Status, d.Reason)
}

// Reconcile checks the journal of a single order against the money movements its status
// implies. Every order carries a buyer debit equal to its total; completed orders carry a
// matching farmer credit; refunded and cancelled orders carry a matching buyer refund and
// never a farmer credit.
func Reconcile(order models.Order, events []models.LedgerEvent) []Drift {
	byType := make(map[enums.LedgerEventType][]models.LedgerEvent, len(events))
	for _, event := range events {
		byType[event.Type] = append(byType[event.Type], event)
	}

	var drifts []Drift
	report := func(format string, args ...any) {
		drifts = append(drifts, Drift{OrderID: order.ID, Status: order.Status, Reason: fmt.Sprintf(format, args...)})
	}
	expect := func(eventType enums.LedgerEventType, amount int64, account uuid.UUID) {
		got := byType[eventType]
		switch {
		case len(got) == 0:
			report("missing %s", eventType)
		case len(got) > 1:
			report("%d %s events", len(got), eventType)
		case got[0].AmountCents != amount:
			report("%s amount %d, want %d", eventType, got[0].AmountCents, amount)
		case got[0].AccountID != account:
			report("%s posted to account %s, want %s", eventType, got[0].AccountID, account)
		}
	}
	forbid := func(eventType enums.LedgerEventType) {
		if n := len(byType[eventType]); n > 0 {
			report("unexpected %s", eventType)
		}
	}

	expect(enums.LedgerEventTypeBuyerDebit, -order.TotalAmountCents, order.BuyerID)
	switch order.Status {
	case enums.OrderStatusShipped:
		forbid(enums.LedgerEventTypeFarmerCredit)
		forbid(enums.LedgerEventTypeBuyerRefund)
	case enums.OrderStatusCompleted:
		expect(enums.LedgerEventTypeFarmerCredit, order.TotalAmountCents, order.FarmerID)
		forbid(enums.LedgerEventTypeBuyerRefund)
	case enums.OrderStatusRefunded, enums.OrderStatusCancelled:
		expect(enums.LedgerEventTypeBuyerRefund, order.TotalAmountCents, order.BuyerID)
		forbid(enums.LedgerEventTypeFarmerCredit)
	default:
		report("unknown status")
	}
	return drifts
}

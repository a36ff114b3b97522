package orders

import (
	"github.com/harvestlink/market-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/market-backend/pkg/errors"
)

// Every lifecycle action leaves shipped. Each guard below maps the current status onto the
// conflict reported to callers.

func modifyAllowed(status enums.OrderStatus) error {
	if status == enums.OrderStatusShipped {
		return nil
	}
	return statusConflict("order status not allowed to modify", status)
}

func confirmAllowed(status enums.OrderStatus) error {
	switch status {
	case enums.OrderStatusShipped:
		return nil
	case enums.OrderStatusCompleted:
		return statusConflict("order already completed", status)
	default:
		return statusConflict("order status not allowed to confirm receipt", status)
	}
}

func refundAllowed(status enums.OrderStatus, refundType enums.RefundType) error {
	switch status {
	case enums.OrderStatusCompleted:
		return statusConflict("cannot refund a completed order", status)
	case enums.OrderStatusRefunded:
		return statusConflict("cannot refund twice", status)
	case enums.OrderStatusShipped:
		if refundType == enums.RefundTypeOnlyRefund {
			return pkgerrors.New(pkgerrors.CodeConflict, "only_refund is not supported for shipped orders").WithDetails(map[string]any{
				"field":    "type",
				"current":  refundType,
				"required": enums.RefundTypeReturnAndRefund,
			})
		}
		return nil
	default:
		return statusConflict("order status not allowed to refund", status)
	}
}

func cancelAllowed(status enums.OrderStatus) error {
	if status == enums.OrderStatusShipped {
		return nil
	}
	return statusConflict("order status not allowed to cancel", status)
}

func statusConflict(message string, current enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeConflict, message).WithDetails(map[string]any{
		"field":    "status",
		"current":  current,
		"required": enums.OrderStatusShipped,
	})
}

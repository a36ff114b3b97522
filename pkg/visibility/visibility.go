// Package visibility decides whether an actor may see or act on an order.
package visibility

import (
	"github.com/google/uuid"

	"github.com/harvestlink/market-backend/pkg/db/models"
	"github.com/harvestlink/market-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/market-backend/pkg/errors"
)

// OrderVisibilityInput pairs an order with the resolved actor and the side they act for.
type OrderVisibilityInput struct {
	Order   *models.Order
	ActorID uuid.UUID
	Role    enums.UserRole
}

// EnsureOrderVisible allows buyers to reach their own orders and farmers the orders placed
// against their products. Anything else is Forbidden.
func EnsureOrderVisible(input OrderVisibilityInput) error {
	if input.Order == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if input.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "actor identity missing")
	}

	var owner uuid.UUID
	switch input.Role {
	case enums.UserRoleBuyer:
		owner = input.Order.BuyerID
	case enums.UserRoleFarmer:
		owner = input.Order.FarmerID
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "unsupported role")
	}
	if owner != input.ActorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to "+string(input.Role))
	}
	return nil
}

// Package orders exposes the order lifecycle over HTTP for buyers and farmers.
package orders

import (
	"context"
	"net/http"

	"github.com/harvestlink/market-backend/api/middleware"
	"github.com/harvestlink/market-backend/api/responses"
	"github.com/harvestlink/market-backend/api/validators"
	internalorders "github.com/harvestlink/market-backend/internal/orders"
	"github.com/harvestlink/market-backend/pkg/logger"
	"github.com/harvestlink/market-backend/pkg/pagination"
)

// Create places an order for the calling buyer and answers 201 with the order view.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input internalorders.CreateOrderInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Phone = middleware.ActorPhoneFromContext(r.Context())

		view, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// Update edits delivery details of an order still in transit.
func Update(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input internalorders.UpdateOrderInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.OrderID = orderID
		input.Phone = middleware.ActorPhoneFromContext(r.Context())

		view, err := svc.UpdateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return action(logg, svc.GetOrderDetail)
}

func FarmerDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return action(logg, svc.GetFarmerOrderDetail)
}

func ConfirmReceipt(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return action(logg, svc.ConfirmReceipt)
}

func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return action(logg, svc.CancelOrder)
}

// Refund applies a refund request; the body carries reason and type.
func Refund(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input internalorders.ApplyRefundInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.OrderID = orderID
		input.Phone = middleware.ActorPhoneFromContext(r.Context())

		view, err := svc.ApplyRefund(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return list(logg, svc.ListOrders)
}

func FarmerList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return list(logg, svc.ListFarmerOrders)
}

func action(logg *logger.Logger, run func(context.Context, internalorders.OrderActionInput) (*internalorders.OrderView, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := run(r.Context(), internalorders.OrderActionInput{
			OrderID: orderID,
			Phone:   middleware.ActorPhoneFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func list(logg *logger.Logger, run func(context.Context, internalorders.ListOrdersInput) (*internalorders.OrderList, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, err := validators.ParseListQuery(r, pagination.DefaultLimit, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := run(r.Context(), internalorders.ListOrdersInput{
			Phone:  middleware.ActorPhoneFromContext(r.Context()),
			Status: query.Status,
			Title:  query.Title,
			Limit:  query.Limit,
			Cursor: query.Cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/market-backend/internal/accounts"
	"github.com/harvestlink/market-backend/internal/ledger"
	product "github.com/harvestlink/market-backend/internal/products"
	"github.com/harvestlink/market-backend/pkg/checkout"
	"github.com/harvestlink/market-backend/pkg/db/models"
	"github.com/harvestlink/market-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/market-backend/pkg/errors"
	"github.com/harvestlink/market-backend/pkg/logger"
	"github.com/harvestlink/market-backend/pkg/money"
	"github.com/harvestlink/market-backend/pkg/outbox"
	"github.com/harvestlink/market-backend/pkg/outbox/payloads"
	"github.com/harvestlink/market-backend/pkg/pagination"
	"github.com/harvestlink/market-backend/pkg/visibility"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Operation names reported to the LifecycleObserver.
const (
	OpCreate         = "create"
	OpUpdate         = "update"
	OpDetail         = "detail"
	OpFarmerDetail   = "farmer_detail"
	OpList           = "list"
	OpFarmerList     = "farmer_list"
	OpConfirmReceipt = "confirm_receipt"
	OpRefund         = "refund"
	OpCancel         = "cancel"
)

// Service drives an order from purchase to one of its terminal states while keeping stock,
// sales counts and balances in step.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderView, error)
	UpdateOrder(ctx context.Context, input UpdateOrderInput) (*OrderView, error)
	GetOrderDetail(ctx context.Context, input OrderActionInput) (*OrderView, error)
	GetFarmerOrderDetail(ctx context.Context, input OrderActionInput) (*OrderView, error)
	ListOrders(ctx context.Context, input ListOrdersInput) (*OrderList, error)
	ListFarmerOrders(ctx context.Context, input ListOrdersInput) (*OrderList, error)
	ConfirmReceipt(ctx context.Context, input OrderActionInput) (*OrderView, error)
	ApplyRefund(ctx context.Context, input ApplyRefundInput) (*OrderView, error)
	CancelOrder(ctx context.Context, input OrderActionInput) (*OrderView, error)
}

// ServiceParams groups the collaborators of the order service. Metrics is optional.
type ServiceParams struct {
	Repo      Repository
	TxRunner  txRunner
	Accounts  accounts.Repository
	Inventory product.InventoryRepository
	Ledger    ledger.Service
	Outbox    outboxPublisher
	Identity  IdentityResolver
	Logger    *logger.Logger
	Metrics   LifecycleObserver
}

type service struct {
	repo      Repository
	tx        txRunner
	accounts  accounts.Repository
	inventory product.InventoryRepository
	ledger    ledger.Service
	outbox    outboxPublisher
	identity  IdentityResolver
	logg      *logger.Logger
	metrics   LifecycleObserver
	validate  *validator.Validate
	now       func() time.Time
}

// NewService builds the order lifecycle service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.TxRunner == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Accounts == nil:
		return nil, fmt.Errorf("accounts repository required")
	case params.Inventory == nil:
		return nil, fmt.Errorf("inventory repository required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("ledger service required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Identity == nil:
		return nil, fmt.Errorf("identity resolver required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      params.Repo,
		tx:        params.TxRunner,
		accounts:  params.Accounts,
		inventory: params.Inventory,
		ledger:    params.Ledger,
		outbox:    params.Outbox,
		identity:  params.Identity,
		logg:      params.Logger,
		metrics:   params.Metrics,
		validate:  NewValidator(),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (view *OrderView, err error) {
	defer s.observe(OpCreate, time.Now(), &err)

	input.BuyerName = strings.TrimSpace(input.BuyerName)
	input.BuyerAddress = strings.TrimSpace(input.BuyerAddress)
	if err := s.check(input); err != nil {
		return nil, err
	}
	buyerID, err := s.resolveActor(ctx, input.Phone, enums.UserRoleBuyer)
	if err != nil {
		return nil, err
	}

	var (
		order  *models.Order
		images []string
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		inventory := s.inventory.WithTx(tx)
		accts := s.accounts.WithTx(tx)

		item, err := inventory.FindForUpdate(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrProductNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
		if err := checkout.ValidateProduct(item, input.Quantity); err != nil {
			return err
		}

		total, err := money.Multiply(item.PriceCents, input.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order total out of range")
		}

		var balance int64
		buyerAccount, err := accts.GetForUpdate(ctx, buyerID)
		switch {
		case err == nil:
			balance = buyerAccount.BalanceCents
		case errors.Is(err, accounts.ErrAccountNotFound):
		default:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load buyer account")
		}
		if err := checkout.ValidateBalance(total, balance); err != nil {
			return err
		}
		if _, err := accts.Get(ctx, item.FarmerID); err != nil {
			if errors.Is(err, accounts.ErrAccountNotFound) {
				return pkgerrors.New(pkgerrors.CodeInternal, "farmer account missing")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load farmer account")
		}

		if err := inventory.AdjustStock(ctx, item.ID, -input.Quantity); err != nil {
			if errors.Is(err, product.ErrInsufficientStock) {
				return pkgerrors.New(pkgerrors.CodeConflict, checkout.MsgInsufficientStock)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve stock")
		}
		if err := inventory.AdjustSales(ctx, item.ID, input.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "increment sales count")
		}
		balanceAfter, err := accts.ApplyDelta(ctx, buyerID, -total)
		if err != nil {
			if errors.Is(err, accounts.ErrInsufficientFunds) {
				return checkout.InsufficientBalance(total, balance)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "debit buyer")
		}

		now := s.now()
		order = &models.Order{
			BuyerID:          buyerID,
			FarmerID:         item.FarmerID,
			ProductID:        item.ID,
			Title:            item.Title,
			Specification:    item.Specification,
			PriceCents:       item.PriceCents,
			Quantity:         input.Quantity,
			TotalAmountCents: total,
			BuyerName:        input.BuyerName,
			BuyerAddress:     input.BuyerAddress,
			BuyerPhone:       input.BuyerPhone,
			Remark:           input.Remark,
			Status:           enums.OrderStatusShipped,
			CreatedAt:        now,
			ShippedAt:        &now,
			UpdatedAt:        now,
		}
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
		}

		if err := s.journal(ctx, tx, order.ID, buyerID, enums.LedgerEventTypeBuyerDebit, -total, balanceAfter, map[string]any{
			"product_id": item.ID,
			"quantity":   input.Quantity,
		}); err != nil {
			return err
		}

		images = item.Images
		return s.emit(ctx, tx, enums.EventOrderCreated, order.ID, buyerID, enums.UserRoleBuyer, payloads.OrderCreatedEvent{
			OrderID:          order.ID,
			BuyerID:          buyerID,
			FarmerID:         order.FarmerID,
			ProductID:        order.ProductID,
			Quantity:         order.Quantity,
			TotalAmountCents: total,
			CreatedAt:        now,
		})
	})
	if err != nil {
		return nil, asServiceError(err, "create order")
	}

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order created")
	out := toView(order, images, createdLinks(order))
	return &out, nil
}

func (s *service) UpdateOrder(ctx context.Context, input UpdateOrderInput) (view *OrderView, err error) {
	defer s.observe(OpUpdate, time.Now(), &err)

	if err := requireOrderID(input.OrderID); err != nil {
		return nil, err
	}
	input.BuyerName = trimmed(input.BuyerName)
	input.BuyerAddress = trimmed(input.BuyerAddress)
	if err := s.check(input); err != nil {
		return nil, err
	}
	updates := map[string]any{}
	var fields []string
	if input.BuyerName != nil {
		updates["buyer_name"] = *input.BuyerName
		fields = append(fields, "buyer_name")
	}
	if input.BuyerAddress != nil {
		updates["buyer_address"] = *input.BuyerAddress
		fields = append(fields, "buyer_address")
	}
	if input.Remark != nil {
		updates["remark"] = *input.Remark
		fields = append(fields, "remark")
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one field must be provided").WithDetails(map[string]any{
			"fields": []string{"buyer_name", "buyer_address", "remark"},
		})
	}

	buyerID, err := s.resolveActor(ctx, input.Phone, enums.UserRoleBuyer)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := loadOwned(ctx, repo, input.OrderID, buyerID, enums.UserRoleBuyer)
		if err != nil {
			return err
		}
		if err := modifyAllowed(current.Status); err != nil {
			return err
		}
		if err := repo.UpdateFields(ctx, current.ID, updates); err != nil {
			return s.lostRace(ctx, repo, current.ID, err, modifyAllowed)
		}
		order, err = repo.FindByID(ctx, current.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
		}
		return s.emit(ctx, tx, enums.EventOrderUpdated, order.ID, buyerID, enums.UserRoleBuyer, payloads.OrderUpdatedEvent{
			OrderID: order.ID,
			BuyerID: buyerID,
			Fields:  fields,
		})
	})
	if err != nil {
		return nil, asServiceError(err, "update order")
	}
	return s.render(ctx, order, buyerLinks(order))
}

func (s *service) GetOrderDetail(ctx context.Context, input OrderActionInput) (view *OrderView, err error) {
	defer s.observe(OpDetail, time.Now(), &err)
	order, err := s.detail(ctx, input, enums.UserRoleBuyer)
	if err != nil {
		return nil, err
	}
	view, err = s.render(ctx, order, buyerLinks(order))
	if err != nil {
		return nil, err
	}
	journal, err := s.ledger.ListByOrderID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order payments")
	}
	view.Payments = toPayments(journal)
	return view, nil
}

func (s *service) GetFarmerOrderDetail(ctx context.Context, input OrderActionInput) (view *OrderView, err error) {
	defer s.observe(OpFarmerDetail, time.Now(), &err)
	order, err := s.detail(ctx, input, enums.UserRoleFarmer)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, order, nil)
}

func (s *service) detail(ctx context.Context, input OrderActionInput, role enums.UserRole) (*models.Order, error) {
	if err := s.check(input); err != nil {
		return nil, err
	}
	if err := requireOrderID(input.OrderID); err != nil {
		return nil, err
	}
	actorID, err := s.resolveActor(ctx, input.Phone, role)
	if err != nil {
		return nil, err
	}
	return loadOwned(ctx, s.repo, input.OrderID, actorID, role)
}

func (s *service) ListOrders(ctx context.Context, input ListOrdersInput) (list *OrderList, err error) {
	defer s.observe(OpList, time.Now(), &err)
	return s.list(ctx, input, enums.UserRoleBuyer)
}

func (s *service) ListFarmerOrders(ctx context.Context, input ListOrdersInput) (list *OrderList, err error) {
	defer s.observe(OpFarmerList, time.Now(), &err)
	return s.list(ctx, input, enums.UserRoleFarmer)
}

func (s *service) list(ctx context.Context, input ListOrdersInput, role enums.UserRole) (*OrderList, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := s.check(input); err != nil {
		return nil, err
	}
	if _, err := pagination.ParseCursor(input.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").WithDetails(map[string]string{
			"cursor": "is invalid",
		})
	}
	actorID, err := s.resolveActor(ctx, input.Phone, role)
	if err != nil {
		return nil, err
	}

	filter := ListFilter{Status: input.Status, Title: input.Title}
	if role == enums.UserRoleFarmer {
		filter.FarmerID = actorID
	} else {
		filter.BuyerID = actorID
	}
	rows, next, err := s.repo.List(ctx, filter, pagination.Params{Limit: input.Limit, Cursor: input.Cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}
	images, err := s.inventory.ImagesByID(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product images")
	}

	out := &OrderList{Orders: make([]OrderView, 0, len(rows)), NextCursor: next}
	for i := range rows {
		var links map[string]Link
		if role == enums.UserRoleBuyer {
			links = buyerLinks(&rows[i])
		}
		out.Orders = append(out.Orders, toView(&rows[i], images[rows[i].ProductID], links))
	}
	return out, nil
}

func (s *service) ConfirmReceipt(ctx context.Context, input OrderActionInput) (view *OrderView, err error) {
	defer s.observe(OpConfirmReceipt, time.Now(), &err)

	if err := requireOrderID(input.OrderID); err != nil {
		return nil, err
	}
	if err := s.check(input); err != nil {
		return nil, err
	}
	buyerID, err := s.resolveActor(ctx, input.Phone, enums.UserRoleBuyer)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := loadOwned(ctx, repo, input.OrderID, buyerID, enums.UserRoleBuyer)
		if err != nil {
			return err
		}
		if err := confirmAllowed(current.Status); err != nil {
			return err
		}

		balanceAfter, err := s.accounts.WithTx(tx).ApplyDelta(ctx, current.FarmerID, current.TotalAmountCents)
		if err != nil {
			if errors.Is(err, accounts.ErrAccountNotFound) {
				return pkgerrors.New(pkgerrors.CodeInternal, "farmer account missing")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credit farmer")
		}

		now := s.now()
		if err := repo.Transition(ctx, current.ID, enums.OrderStatusCompleted, now, nil); err != nil {
			return s.lostRace(ctx, repo, current.ID, err, confirmAllowed)
		}
		if err := s.journal(ctx, tx, current.ID, current.FarmerID, enums.LedgerEventTypeFarmerCredit, current.TotalAmountCents, balanceAfter, nil); err != nil {
			return err
		}
		if order, err = repo.FindByID(ctx, current.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
		}
		return s.emit(ctx, tx, enums.EventOrderCompleted, current.ID, buyerID, enums.UserRoleBuyer, payloads.OrderCompletedEvent{
			OrderID:     current.ID,
			FarmerID:    current.FarmerID,
			AmountCents: current.TotalAmountCents,
			CompletedAt: now,
		})
	})
	if err != nil {
		return nil, asServiceError(err, "confirm receipt")
	}

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order completed")
	return s.render(ctx, order, buyerLinks(order))
}

func (s *service) ApplyRefund(ctx context.Context, input ApplyRefundInput) (view *OrderView, err error) {
	defer s.observe(OpRefund, time.Now(), &err)

	if err := requireOrderID(input.OrderID); err != nil {
		return nil, err
	}
	input.Reason = strings.TrimSpace(input.Reason)
	if err := s.check(input); err != nil {
		return nil, err
	}
	buyerID, err := s.resolveActor(ctx, input.Phone, enums.UserRoleBuyer)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := loadOwned(ctx, repo, input.OrderID, buyerID, enums.UserRoleBuyer)
		if err != nil {
			return err
		}
		allowed := func(status enums.OrderStatus) error { return refundAllowed(status, input.Type) }
		if err := allowed(current.Status); err != nil {
			return err
		}

		now := s.now()
		reason := input.Reason
		refundType := input.Type
		balanceAfter, err := s.restore(ctx, tx, current, func() error {
			err := repo.Transition(ctx, current.ID, enums.OrderStatusRefunded, now, map[string]any{
				"refund_reason": reason,
				"refund_type":   refundType,
			})
			if err != nil {
				return s.lostRace(ctx, repo, current.ID, err, allowed)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if err := s.journal(ctx, tx, current.ID, current.BuyerID, enums.LedgerEventTypeBuyerRefund, current.TotalAmountCents, balanceAfter, map[string]any{
			"reason":      "refund",
			"refund_type": refundType,
		}); err != nil {
			return err
		}
		if order, err = repo.FindByID(ctx, current.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
		}
		return s.emit(ctx, tx, enums.EventOrderRefunded, current.ID, buyerID, enums.UserRoleBuyer, payloads.OrderRefundedEvent{
			OrderID:     current.ID,
			BuyerID:     buyerID,
			AmountCents: current.TotalAmountCents,
			RefundType:  refundType,
			Reason:      reason,
			RefundedAt:  now,
		})
	})
	if err != nil {
		return nil, asServiceError(err, "apply refund")
	}

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order refunded")
	return s.render(ctx, order, buyerLinks(order))
}

func (s *service) CancelOrder(ctx context.Context, input OrderActionInput) (view *OrderView, err error) {
	defer s.observe(OpCancel, time.Now(), &err)

	if err := requireOrderID(input.OrderID); err != nil {
		return nil, err
	}
	if err := s.check(input); err != nil {
		return nil, err
	}
	buyerID, err := s.resolveActor(ctx, input.Phone, enums.UserRoleBuyer)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := loadOwned(ctx, repo, input.OrderID, buyerID, enums.UserRoleBuyer)
		if err != nil {
			return err
		}
		if err := cancelAllowed(current.Status); err != nil {
			return err
		}

		now := s.now()
		balanceAfter, err := s.restore(ctx, tx, current, func() error {
			if err := repo.Transition(ctx, current.ID, enums.OrderStatusCancelled, now, nil); err != nil {
				return s.lostRace(ctx, repo, current.ID, err, cancelAllowed)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if err := s.journal(ctx, tx, current.ID, current.BuyerID, enums.LedgerEventTypeBuyerRefund, current.TotalAmountCents, balanceAfter, map[string]any{
			"reason": "cancelled",
		}); err != nil {
			return err
		}
		if order, err = repo.FindByID(ctx, current.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
		}
		return s.emit(ctx, tx, enums.EventOrderCancelled, current.ID, buyerID, enums.UserRoleBuyer, payloads.OrderCancelledEvent{
			OrderID:     current.ID,
			BuyerID:     buyerID,
			AmountCents: current.TotalAmountCents,
			CancelledAt: now,
		})
	})
	if err != nil {
		return nil, asServiceError(err, "cancel order")
	}

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order cancelled")
	return s.render(ctx, order, buyerLinks(order))
}

// restore returns stock, sales and money for an order leaving shipped without completion.
// Rows are touched product first, then account, then transition runs against the order.
func (s *service) restore(ctx context.Context, tx *gorm.DB, order *models.Order, transition func() error) (int64, error) {
	inventory := s.inventory.WithTx(tx)
	if _, err := inventory.FindForUpdate(ctx, order.ProductID); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock product")
	}
	if err := inventory.AdjustStock(ctx, order.ProductID, order.Quantity); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restore stock")
	}
	if err := inventory.AdjustSales(ctx, order.ProductID, -order.Quantity); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restore sales count").WithDetails(map[string]any{
			"product_id": order.ProductID,
			"quantity":   order.Quantity,
		})
	}
	balanceAfter, err := s.accounts.WithTx(tx).ApplyDelta(ctx, order.BuyerID, order.TotalAmountCents)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeInternal, "buyer account missing")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credit buyer")
	}
	if err := transition(); err != nil {
		return 0, err
	}
	return balanceAfter, nil
}

// lostRace turns a failed guarded write into the conflict the order's current status implies.
func (s *service) lostRace(ctx context.Context, repo Repository, id uuid.UUID, err error, allowed func(enums.OrderStatus) error) error {
	if !errors.Is(err, ErrStatusChanged) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	current, findErr := repo.FindByID(ctx, id)
	if findErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, findErr, "reload order")
	}
	if conflict := allowed(current.Status); conflict != nil {
		return conflict
	}
	return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order status changed")
}

func (s *service) journal(ctx context.Context, tx *gorm.DB, orderID, accountID uuid.UUID, eventType enums.LedgerEventType, amount, balanceAfter int64, metadata map[string]any) error {
	var raw json.RawMessage
	if metadata != nil {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode ledger metadata")
		}
		raw = encoded
	}
	_, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
		OrderID:           orderID,
		AccountID:         accountID,
		Type:              eventType,
		AmountCents:       amount,
		BalanceAfterCents: balanceAfter,
		Metadata:          raw,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record ledger event")
	}
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, orderID, actorID uuid.UUID, role enums.UserRole, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         &outbox.ActorRef{UserID: actorID, Role: string(role)},
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit "+string(eventType))
	}
	return nil
}

func (s *service) render(ctx context.Context, order *models.Order, links map[string]Link) (*OrderView, error) {
	images, err := s.inventory.ImagesByID(ctx, []int64{order.ProductID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product images")
	}
	view := toView(order, images[order.ProductID], links)
	return &view, nil
}

func (s *service) resolveActor(ctx context.Context, phone string, role enums.UserRole) (uuid.UUID, error) {
	notFound := pkgerrors.New(pkgerrors.CodeNotFound, string(role)+" account not found")
	userID, ok, err := s.identity.Resolve(ctx, phone)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve actor")
	}
	if !ok {
		return uuid.Nil, notFound
	}
	hasRole, err := s.identity.HasRole(ctx, userID, role)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve actor role")
	}
	if !hasRole {
		return uuid.Nil, notFound
	}
	return userID, nil
}

func (s *service) check(input any) error {
	if err := s.validate.Struct(input); err != nil {
		return ValidationError(err)
	}
	return nil
}

func (s *service) observe(operation string, start time.Time, err *error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveOrderOperation(operation, *err, time.Since(start))
}

func loadOwned(ctx context.Context, repo Repository, orderID, actorID uuid.UUID, role enums.UserRole) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if err := visibility.EnsureOrderVisible(visibility.OrderVisibilityInput{Order: order, ActorID: actorID, Role: role}); err != nil {
		return nil, err
	}
	return order, nil
}

func requireOrderID(id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required").WithDetails(map[string]string{
			"order_id": "is required",
		})
	}
	return nil
}

func asServiceError(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, message)
}

// trimmed returns a trimmed copy of an optional field, leaving the caller's value alone.
func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	return &out
}

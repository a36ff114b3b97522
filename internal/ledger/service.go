package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/market-backend/pkg/db"
	"github.com/harvestlink/market-backend/pkg/db/models"
	"github.com/harvestlink/market-backend/pkg/enums"
)

// ErrDuplicateEvent is returned when an order already carries an event of the same type.
var ErrDuplicateEvent = errors.New("ledger event already recorded for order")

// Service defines operations that record ledger events.
type Service interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error)
}

type service struct {
	repo Repository
}

// RecordLedgerEventInput captures the immutable data a ledger event requires. AmountCents
// is signed from the account's perspective.
type RecordLedgerEventInput struct {
	OrderID           uuid.UUID             `json:"order_id"`
	AccountID         uuid.UUID             `json:"account_id"`
	Type              enums.LedgerEventType `json:"type"`
	AmountCents       int64                 `json:"amount_cents"`
	BalanceAfterCents int64                 `json:"balance_after_cents"`
	Metadata          json.RawMessage       `json:"metadata"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error) {
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if input.AccountID == uuid.Nil {
		return nil, fmt.Errorf("account id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid ledger event type %q", input.Type)
	}
	if err := checkSign(input.Type, input.AmountCents); err != nil {
		return nil, err
	}
	if input.BalanceAfterCents < 0 {
		return nil, fmt.Errorf("balance after event cannot be negative")
	}

	event := &models.LedgerEvent{
		OrderID:           input.OrderID,
		AccountID:         input.AccountID,
		Type:              input.Type,
		AmountCents:       input.AmountCents,
		BalanceAfterCents: input.BalanceAfterCents,
		Metadata:          input.Metadata,
	}

	if err := s.repo.WithTx(tx).Create(ctx, event); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, ErrDuplicateEvent
		}
		return nil, err
	}
	return event, nil
}

func (s *service) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	return s.repo.ListByOrderID(ctx, orderID)
}

func checkSign(eventType enums.LedgerEventType, amount int64) error {
	switch eventType {
	case enums.LedgerEventTypeBuyerDebit:
		if amount >= 0 {
			return fmt.Errorf("%s amount must be negative", eventType)
		}
	default:
		if amount <= 0 {
			return fmt.Errorf("%s amount must be positive", eventType)
		}
	}
	return nil
}

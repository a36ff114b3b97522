package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/market-backend/pkg/db/dbtest"
	"github.com/harvestlink/market-backend/pkg/db/models"
	"github.com/harvestlink/market-backend/pkg/enums"
)

type fakeRepository struct {
	createFn func(ctx context.Context, event *models.LedgerEvent) error
	events   []models.LedgerEvent
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, event *models.LedgerEvent) error {
	if f.createFn != nil {
		return f.createFn(ctx, event)
	}
	return nil
}

func (f *fakeRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error) {
	return f.events, nil
}

func (f *fakeRepository) ListByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]models.LedgerEvent, error) {
	return nil, nil
}

func TestService_RecordEvent(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	metadata := json.RawMessage(`{"reason":"cancelled"}`)
	input := RecordLedgerEventInput{
		OrderID:           uuid.New(),
		AccountID:         uuid.New(),
		Type:              enums.LedgerEventTypeBuyerRefund,
		AmountCents:       2000,
		BalanceAfterCents: 10000,
		Metadata:          metadata,
	}

	var created *models.LedgerEvent
	repo.createFn = func(ctx context.Context, event *models.LedgerEvent) error {
		created = event
		return nil
	}

	got, err := svc.RecordEvent(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("RecordEvent error: %v", err)
	}
	if created == nil {
		t.Fatal("expected ledger event to be created")
	}
	if created.OrderID != input.OrderID || created.Type != input.Type || created.AmountCents != input.AmountCents {
		t.Fatalf("unexpected ledger event data: %v", created)
	}
	if created.AccountID != input.AccountID || created.BalanceAfterCents != input.BalanceAfterCents {
		t.Fatalf("missing account data: %+v", created)
	}
	if string(created.Metadata) != string(metadata) {
		t.Fatalf("metadata mismatch: %s", created.Metadata)
	}
	if got != created {
		t.Fatalf("service should return created event")
	}
}

func TestService_RecordEventValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	valid := func() RecordLedgerEventInput {
		return RecordLedgerEventInput{
			OrderID:     uuid.New(),
			AccountID:   uuid.New(),
			Type:        enums.LedgerEventTypeBuyerDebit,
			AmountCents: -500,
		}
	}

	tests := []struct {
		name   string
		mutate func(*RecordLedgerEventInput)
	}{
		{name: "missing order id", mutate: func(in *RecordLedgerEventInput) { in.OrderID = uuid.Nil }},
		{name: "missing account", mutate: func(in *RecordLedgerEventInput) { in.AccountID = uuid.Nil }},
		{name: "invalid type", mutate: func(in *RecordLedgerEventInput) { in.Type = "not_real" }},
		{name: "positive debit", mutate: func(in *RecordLedgerEventInput) { in.AmountCents = 500 }},
		{name: "negative credit", mutate: func(in *RecordLedgerEventInput) {
			in.Type = enums.LedgerEventTypeFarmerCredit
			in.AmountCents = -500
		}},
		{name: "zero refund", mutate: func(in *RecordLedgerEventInput) {
			in.Type = enums.LedgerEventTypeBuyerRefund
			in.AmountCents = 0
		}},
		{name: "negative balance", mutate: func(in *RecordLedgerEventInput) { in.BalanceAfterCents = -1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := valid()
			tc.mutate(&input)
			if _, err := svc.RecordEvent(context.Background(), nil, input); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestService_RecordEventRepoError(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	expectedErr := errors.New("boom")
	repo.createFn = func(ctx context.Context, event *models.LedgerEvent) error {
		return expectedErr
	}

	if _, err := svc.RecordEvent(context.Background(), nil, RecordLedgerEventInput{
		OrderID:     uuid.New(),
		AccountID:   uuid.New(),
		Type:        enums.LedgerEventTypeFarmerCredit,
		AmountCents: 100,
	}); !errors.Is(err, expectedErr) {
		t.Fatalf("expected repo error to bubble up, got %v", err)
	}
}

func TestService_ListByOrderIDRequiresOrder(t *testing.T) {
	svc, _ := NewService(&fakeRepository{})
	if _, err := svc.ListByOrderID(context.Background(), uuid.Nil); err == nil {
		t.Fatal("expected error for nil order id")
	}
}

func TestRepository_ListByOrderIDsGroupsJournals(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	first, second, empty := uuid.New(), uuid.New(), uuid.New()
	account := uuid.New()

	for _, event := range []models.LedgerEvent{
		{OrderID: first, AccountID: account, Type: enums.LedgerEventTypeBuyerDebit, AmountCents: -300},
		{OrderID: first, AccountID: account, Type: enums.LedgerEventTypeBuyerRefund, AmountCents: 300},
		{OrderID: second, AccountID: account, Type: enums.LedgerEventTypeBuyerDebit, AmountCents: -100},
	} {
		event := event
		if err := repo.Create(ctx, &event); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	grouped, err := repo.ListByOrderIDs(ctx, []uuid.UUID{first, second, empty})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(grouped[first]) != 2 || grouped[first][0].Type != enums.LedgerEventTypeBuyerDebit {
		t.Fatalf("unexpected journal for first order: %+v", grouped[first])
	}
	if len(grouped[second]) != 1 {
		t.Fatalf("unexpected journal for second order: %+v", grouped[second])
	}
	if _, ok := grouped[empty]; ok {
		t.Fatal("orders without events should be absent")
	}

	none, err := repo.ListByOrderIDs(ctx, nil)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty result, got %v err=%v", none, err)
	}
}

func TestService_RecordEventRejectsDuplicateType(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()))
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	input := RecordLedgerEventInput{
		OrderID:     uuid.New(),
		AccountID:   uuid.New(),
		Type:        enums.LedgerEventTypeFarmerCredit,
		AmountCents: 2000,
	}

	if _, err := svc.RecordEvent(context.Background(), client.DB(), input); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if _, err := svc.RecordEvent(context.Background(), client.DB(), input); !errors.Is(err, ErrDuplicateEvent) {
		t.Fatalf("expected ErrDuplicateEvent, got %v", err)
	}

	events, err := svc.ListByOrderID(context.Background(), input.OrderID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
}

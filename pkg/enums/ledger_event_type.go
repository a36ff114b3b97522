package enums

// LedgerEventType names a money movement in the ledger_event_type column.
type LedgerEventType string

const (
	LedgerEventTypeBuyerDebit   LedgerEventType = "buyer_debit"
	LedgerEventTypeFarmerCredit LedgerEventType = "farmer_credit"
	LedgerEventTypeBuyerRefund  LedgerEventType = "buyer_refund"
)

var ledgerEventTypes = []LedgerEventType{
	LedgerEventTypeBuyerDebit,
	LedgerEventTypeFarmerCredit,
	LedgerEventTypeBuyerRefund,
}

func (t LedgerEventType) IsValid() bool { return known(t, ledgerEventTypes) }

package enums

// RefundType distinguishes a plain refund from one that requires the goods back.
type RefundType string

const (
	RefundTypeOnlyRefund      RefundType = "only_refund"
	RefundTypeReturnAndRefund RefundType = "return_and_refund"
)

var refundTypes = []RefundType{RefundTypeOnlyRefund, RefundTypeReturnAndRefund}

func (r RefundType) String() string { return string(r) }

func (r RefundType) IsValid() bool { return known(r, refundTypes) }

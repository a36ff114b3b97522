// Package money converts between stored integer cents and the two-decimal strings exposed
// over the API.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Format renders cents as a fixed two-decimal amount, e.g. 1050 -> "10.50".
func Format(cents int64) string {
	return decimal.NewFromInt(cents).Shift(-2).StringFixed(2)
}

// Multiply returns unit * qty, refusing results that overflow int64.
func Multiply(unitCents int64, qty int) (int64, error) {
	total := decimal.NewFromInt(unitCents).Mul(decimal.NewFromInt(int64(qty)))
	if !total.IsInteger() || total.GreaterThan(decimal.NewFromInt(maxInt64)) || total.LessThan(decimal.NewFromInt(minInt64)) {
		return 0, fmt.Errorf("amount overflow: %d x %d", unitCents, qty)
	}
	return total.IntPart(), nil
}

const (
	maxInt64 = int64(^uint64(0) >> 1)
	minInt64 = -maxInt64 - 1
)

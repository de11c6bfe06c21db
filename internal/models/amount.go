package models

import "math"

// AddChecked sums two nano amounts, failing with ErrAmountOverflow instead of
// wrapping. Batch totals must use this.
func AddChecked(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, ErrAmountOverflow
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}

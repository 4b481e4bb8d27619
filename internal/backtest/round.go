package backtest

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round rounds half away from zero on the shortest decimal form of x, so
// 1.005 becomes 1.01 rather than the 1.00 binary rounding would give.
// NaN and ±Inf are returned unchanged.
func Round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}

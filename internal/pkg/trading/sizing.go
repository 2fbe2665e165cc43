// Package trading provides order sizing math on decimals so that exposure
// caps and quantity comparisons stay exact.
package trading

import (
	"math"

	"github.com/shopspring/decimal"
)

var decimalEps = decimal.NewFromFloat(1e-8)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

// QuantityForExposure converts an equity fraction into a quantity at price.
// Zero or invalid inputs yield 0.
func QuantityForExposure(equity, exposurePct, price float64) float64 {
	if equity <= 0 || exposurePct <= 0 || price <= 0 {
		return 0
	}
	notional := decFromFloat(equity).Mul(decFromFloat(exposurePct))
	return decToFloat(notional.Div(decFromFloat(price)))
}

// CapQuantity limits qty so that qty*price stays within maxPct of equity.
func CapQuantity(qty, price, equity, maxPct float64) float64 {
	if qty <= 0 || price <= 0 {
		return 0
	}
	if equity <= 0 || maxPct <= 0 {
		return qty
	}
	limit := decFromFloat(equity).Mul(decFromFloat(maxPct)).Div(decFromFloat(price))
	q := decFromFloat(qty)
	if q.Cmp(limit) > 0 {
		return decToFloat(limit)
	}
	return qty
}

// CapCloseQuantity limits a reduce/close quantity to what the position holds.
func CapCloseQuantity(qty, held float64) float64 {
	if qty <= 0 || held <= 0 {
		return 0
	}
	q := decFromFloat(qty)
	h := decFromFloat(held)
	if q.Cmp(h) > 0 {
		return held
	}
	return qty
}

// Compare reports -1/0/+1 for a against b under decimal arithmetic.
func Compare(a, b float64) int {
	return decFromFloat(a).Cmp(decFromFloat(b))
}

func LTE(a, b float64) bool { return Compare(a, b) <= 0 }
func GTE(a, b float64) bool { return Compare(a, b) >= 0 }

// ApproxEqual reports whether a and b differ by less than the shared epsilon.
func ApproxEqual(a, b float64) bool {
	diff := decFromFloat(a).Sub(decFromFloat(b)).Abs()
	return diff.Cmp(decimalEps) < 0
}

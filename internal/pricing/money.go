package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// Rounding selects how fractional minor units produced by percentage discounts are resolved.
type Rounding string

const (
	// RoundFloor truncates toward zero so a discount never exceeds its exact value.
	RoundFloor Rounding = "floor"
	// RoundHalfEven rounds to the nearest unit, ties to even.
	RoundHalfEven Rounding = "half_even"
	// RoundHalfUp rounds to the nearest unit, ties away from zero.
	RoundHalfUp Rounding = "half_up"
)

var hundred = decimal.NewFromInt(100)

// ParseRounding maps a configuration value to a Rounding mode, defaulting to RoundFloor.
func ParseRounding(value string) Rounding {
	switch Rounding(strings.ToLower(strings.TrimSpace(value))) {
	case RoundHalfEven:
		return RoundHalfEven
	case RoundHalfUp:
		return RoundHalfUp
	default:
		return RoundFloor
	}
}

// percentOf returns amount × percent / 100 resolved to whole minor units.
func percentOf(amount Money, percent decimal.Decimal, mode Rounding) Money {
	if amount <= 0 || !percent.IsPositive() {
		return 0
	}
	exact := decimal.NewFromInt(amount).Mul(percent).Div(hundred)
	var rounded decimal.Decimal
	switch mode {
	case RoundHalfEven:
		rounded = exact.RoundBank(0)
	case RoundHalfUp:
		rounded = exact.Round(0)
	default:
		rounded = exact.Floor()
	}
	return rounded.IntPart()
}

func minMoney(a, b Money) Money {
	if a < b {
		return a
	}
	return b
}

package util

import (
	"math"

	"github.com/shopspring/decimal"
)

// RoundToPrecision rounds d to a number of decimal places
func RoundToPrecision(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// PricePrecision picks a display precision from the magnitude of price
func PricePrecision(price float64) int32 {
	switch {
	case price >= 1000:
		return 2
	case price >= 1:
		return 4
	default:
		return 6
	}
}

// FromFloat converts f to a decimal rounded for its magnitude
func FromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(PricePrecision(math.Abs(f)))
}

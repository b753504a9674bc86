package model

import (
	"github.com/shopspring/decimal"
)

// PositionSide is long or short
type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

// Position is an open leveraged exposure reported by the engine
type Position struct {
	Exchange         string          `json:"exchange"`
	Symbol           string          `json:"symbol"`
	Side             PositionSide    `json:"side"`
	Amount           decimal.Decimal `json:"amount"`
	EntryPrice       decimal.Decimal `json:"entryPrice"`
	MarkPrice        decimal.Decimal `json:"markPrice"`
	LiquidationPrice decimal.Decimal `json:"liquidationPrice"`
	Margin           decimal.Decimal `json:"margin"`
	Leverage         decimal.Decimal `json:"leverage"`
	UnrealizedPnl    decimal.Decimal `json:"unrealizedPnl"`
	Timestamp        int64           `json:"timestamp"`
}

// Notional returns amount times mark price
func (p Position) Notional() decimal.Decimal {
	return p.Amount.Mul(p.MarkPrice)
}

// RiskParams are the per-exchange risk limits pushed to the engine
type RiskParams struct {
	MaxPositionSize      decimal.Decimal `json:"maxPositionSize"`
	MaxLeverage          decimal.Decimal `json:"maxLeverage"`
	StopLossPercentage   decimal.Decimal `json:"stopLossPercentage"`
	TakeProfitPercentage decimal.Decimal `json:"takeProfitPercentage"`
	MaxDrawdown          decimal.Decimal `json:"maxDrawdown"`
	MaxDailyLoss         decimal.Decimal `json:"maxDailyLoss"`
}

// Validate checks percentage fields lie within 0..100 and the rest are positive
func (p RiskParams) Validate() FieldErrors {
	errs := FieldErrors{}
	hundred := decimal.NewFromInt(100)

	percent := func(field string, v decimal.Decimal) {
		if !DecimalInRange(v) {
			errs.Add(field, "Please enter a valid number")
			return
		}
		if v.IsNegative() || v.GreaterThan(hundred) {
			errs.Add(field, "Must be between 0 and 100")
		}
	}
	positive := func(field string, v decimal.Decimal) {
		if !DecimalInRange(v) {
			errs.Add(field, "Please enter a valid number")
			return
		}
		if !v.IsPositive() {
			errs.Add(field, "Must be greater than 0")
		}
	}

	positive("maxPositionSize", p.MaxPositionSize)
	positive("maxLeverage", p.MaxLeverage)
	percent("stopLossPercentage", p.StopLossPercentage)
	percent("takeProfitPercentage", p.TakeProfitPercentage)
	percent("maxDrawdown", p.MaxDrawdown)
	positive("maxDailyLoss", p.MaxDailyLoss)
	return errs
}

package model

import (
	"github.com/shopspring/decimal"
)

// TradeFee is the fee charged on a fill
type TradeFee struct {
	Currency string          `json:"currency"`
	Cost     decimal.Decimal `json:"cost"`
}

// Trade is a fill reported by the engine
type Trade struct {
	Exchange  string          `json:"exchange"`
	Symbol    string          `json:"symbol"`
	ID        string          `json:"id"`
	OrderID   string          `json:"orderId"`
	Side      OrderSide       `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	Cost      decimal.Decimal `json:"cost"`
	Fee       TradeFee        `json:"fee"`
	Timestamp int64           `json:"timestamp"`
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticker is a 24h market summary for one symbol
type Ticker struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Volume    decimal.Decimal `json:"volume"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Change    decimal.Decimal `json:"change"`
	Timestamp time.Time       `json:"timestamp"`
}

// PriceLevel is one side entry of a market order book
type PriceLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// MarketOrderBook is the market-data order book served by the backend
type MarketOrderBook struct {
	Symbol    string       `json:"symbol"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp time.Time    `json:"timestamp"`
}

// MarketTrade is a public trade print
type MarketTrade struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Side      OrderSide       `json:"side"`
	Timestamp time.Time       `json:"timestamp"`
}

package model

import (
	"github.com/shopspring/decimal"
)

// ExchangeBalance is one asset balance on an exchange
type ExchangeBalance struct {
	Exchange string          `json:"exchange"`
	Asset    string          `json:"asset"`
	Free     decimal.Decimal `json:"free"`
	Locked   decimal.Decimal `json:"locked"`
	Total    decimal.Decimal `json:"total"`
}

// AssetName returns the balance asset
func (b ExchangeBalance) AssetName() string { return b.Asset }

// Amounts returns free, locked and total
func (b ExchangeBalance) Amounts() (decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	return b.Free, b.Locked, b.Total
}

// ExchangeOrderStatus mirrors the engine's order states
type ExchangeOrderStatus string

const (
	ExchangeOrderOpen     ExchangeOrderStatus = "open"
	ExchangeOrderClosed   ExchangeOrderStatus = "closed"
	ExchangeOrderCanceled ExchangeOrderStatus = "canceled"
	ExchangeOrderExpired  ExchangeOrderStatus = "expired"
)

// ExchangeOrder is an order as reported by the trading engine
type ExchangeOrder struct {
	Exchange  string              `json:"exchange"`
	OrderID   string              `json:"orderId"`
	Symbol    string              `json:"symbol"`
	Side      OrderSide           `json:"side"`
	Type      OrderType           `json:"type"`
	Price     decimal.Decimal     `json:"price"`
	Amount    decimal.Decimal     `json:"amount"`
	Filled    decimal.Decimal     `json:"filled"`
	Status    ExchangeOrderStatus `json:"status"`
	Timestamp int64               `json:"timestamp"`
}

// Remaining returns the unfilled amount
func (o ExchangeOrder) Remaining() decimal.Decimal {
	return o.Amount.Sub(o.Filled)
}

// ExchangeOrderParams is the body of an engine order placement
type ExchangeOrderParams struct {
	Exchange string           `json:"exchange"`
	Symbol   string           `json:"symbol"`
	Side     OrderSide        `json:"side"`
	Type     OrderType        `json:"type"`
	Amount   decimal.Decimal  `json:"amount"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

// CancelOrderParams identifies an engine order to cancel
type CancelOrderParams struct {
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
	OrderID  string `json:"orderId"`
}

// ExchangeFees is the maker/taker fee schedule
type ExchangeFees struct {
	Maker decimal.Decimal `json:"maker"`
	Taker decimal.Decimal `json:"taker"`
}

// ExchangeInfo describes an exchange supported by the engine
type ExchangeInfo struct {
	Name      string       `json:"name"`
	ID        string       `json:"id"`
	Pairs     []string     `json:"pairs"`
	Supported bool         `json:"supported"`
	Testnet   bool         `json:"testnet"`
	RateLimit int          `json:"rateLimit"`
	Fees      ExchangeFees `json:"fees"`
}

// BookLevel is a [price, amount] pair
type BookLevel [2]decimal.Decimal

// Price of the level
func (l BookLevel) Price() decimal.Decimal { return l[0] }

// Amount at the level
func (l BookLevel) Amount() decimal.Decimal { return l[1] }

// OrderBook is an exchange order book snapshot from the engine
type OrderBook struct {
	Exchange  string      `json:"exchange"`
	Symbol    string      `json:"symbol"`
	Timestamp int64       `json:"timestamp"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
}

// Spread returns best ask minus best bid, or zero when a side is empty
func (b *OrderBook) Spread() decimal.Decimal {
	if b == nil || len(b.Bids) == 0 || len(b.Asks) == 0 {
		return decimal.Zero
	}
	return b.Asks[0].Price().Sub(b.Bids[0].Price())
}

// ExchangeAPIKey is the engine-side credential record
type ExchangeAPIKey struct {
	Exchange  string `json:"exchange"`
	APIKey    string `json:"apiKey"`
	SecretKey string `json:"secretKey"`
	Label     string `json:"label,omitempty"`
	IsActive  bool   `json:"isActive"`
}

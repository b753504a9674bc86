package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is buy or sell
type OrderSide string

// OrderType is limit or market
type OrderType string

// OrderStatus is the lifecycle state of a paper order
type OrderStatus string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"

	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"

	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// DefaultOrderExchange is used when an order names no exchange
const DefaultOrderExchange = "paper"

// Order is a user order kept in the redis hash orders:{userId}
type Order struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Exchange  string           `json:"exchange"`
	Symbol    string           `json:"symbol"`
	Side      OrderSide        `json:"side"`
	Type      OrderType        `json:"type"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Status    OrderStatus      `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Cancellable reports whether the order may still move to cancelled
func (o *Order) Cancellable() bool {
	return o.Status != OrderStatusFilled && o.Status != OrderStatusCancelled
}

// CreateOrderRequest is the payload for POST /api/orders and the ws "order" frame
type CreateOrderRequest struct {
	Exchange string        `json:"exchange"`
	Symbol   string        `json:"symbol"`
	Side     string        `json:"side"`
	Type     string        `json:"type"`
	Quantity NumericString `json:"quantity"`
	Price    NumericString `json:"price,omitempty"`
}

// OrderFilter narrows an order listing
type OrderFilter struct {
	Status string `form:"status"`
	Symbol string `form:"symbol"`
}

// Matches reports whether o passes the filter
func (f OrderFilter) Matches(o *Order) bool {
	if f.Status != "" && string(o.Status) != f.Status {
		return false
	}
	if f.Symbol != "" && o.Symbol != f.Symbol {
		return false
	}
	return true
}

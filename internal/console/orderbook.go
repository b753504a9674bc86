package console

import (
	"context"
	"sync"
	"time"

	"hbinterface/backend/internal/model"
)

// DefaultOrderBookInterval is the order book refresh period
const DefaultOrderBookInterval = 5 * time.Second

// OrderBookSource fetches one exchange order book
type OrderBookSource interface {
	GetExchangeOrderBook(ctx context.Context, exchange, symbol string) (*model.OrderBook, error)
}

// OrderBookWatcher polls one market's order book
type OrderBookWatcher struct {
	api      OrderBookSource
	exchange string
	symbol   string

	mu      sync.RWMutex
	book    *model.OrderBook
	lastErr error
}

// NewOrderBookWatcher creates a watcher for exchange/symbol
func NewOrderBookWatcher(api OrderBookSource, exchange, symbol string) *OrderBookWatcher {
	return &OrderBookWatcher{api: api, exchange: exchange, symbol: symbol}
}

// Refresh fetches the book once
func (w *OrderBookWatcher) Refresh(ctx context.Context) error {
	book, err := w.api.GetExchangeOrderBook(ctx, w.exchange, w.symbol)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastErr = err
	if err == nil {
		w.book = book
	}
	return err
}

// Book returns the latest book, or nil before the first success
func (w *OrderBookWatcher) Book() *model.OrderBook {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.book
}

// Err returns the error of the latest refresh
func (w *OrderBookWatcher) Err() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastErr
}

// Start polls until ctx ends. A zero interval uses DefaultOrderBookInterval.
func (w *OrderBookWatcher) Start(ctx context.Context, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultOrderBookInterval
	}
	p := NewPoller(interval, w.Refresh, nil)
	p.Start(ctx)
	return p
}

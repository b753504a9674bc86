package console

import (
	"context"
	"sync"
	"time"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/pkg/logger"
)

// OrderGateway is the engine order API
type OrderGateway interface {
	GetOrders(ctx context.Context, exchange, symbol string) ([]model.ExchangeOrder, error)
	GetTrades(ctx context.Context, exchange, symbol string) ([]model.Trade, error)
	CreateOrder(ctx context.Context, params model.ExchangeOrderParams) (*model.ExchangeOrder, error)
	CancelExchangeOrder(ctx context.Context, params model.CancelOrderParams) error
}

// OrderState is a snapshot of OrderContext
type OrderState struct {
	Orders  []model.ExchangeOrder `json:"orders"`
	Trades  []model.Trade         `json:"trades"`
	Loading bool                  `json:"loading"`
	Error   string                `json:"error,omitempty"`
}

// OrderContext keeps the open orders and trades of one exchange fresh
type OrderContext struct {
	api OrderGateway
	log *logger.Logger

	mu       sync.RWMutex
	state    OrderState
	inflight int
}

// NewOrderContext creates an order context
func NewOrderContext(api OrderGateway, log *logger.Logger) *OrderContext {
	if log == nil {
		log = logger.Nop()
	}
	return &OrderContext{api: api, log: log.WithComponent("order_context")}
}

// State returns a copy of the current state
func (c *OrderContext) State() OrderState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := c.state
	out.Orders = append([]model.ExchangeOrder(nil), c.state.Orders...)
	out.Trades = append([]model.Trade(nil), c.state.Trades...)
	return out
}

// RefreshOrders reloads the order list; symbol may be empty
func (c *OrderContext) RefreshOrders(ctx context.Context, exchange, symbol string) error {
	c.beginLoading()
	defer c.endLoading()

	orders, err := c.api.GetOrders(ctx, exchange, symbol)
	if err != nil {
		return c.fail(err, "Failed to fetch orders")
	}

	c.mu.Lock()
	c.state.Orders = orders
	c.state.Error = ""
	c.mu.Unlock()
	return nil
}

// RefreshTrades reloads recent fills; symbol may be empty
func (c *OrderContext) RefreshTrades(ctx context.Context, exchange, symbol string) error {
	c.beginLoading()
	defer c.endLoading()

	trades, err := c.api.GetTrades(ctx, exchange, symbol)
	if err != nil {
		return c.fail(err, "Failed to fetch trades")
	}

	c.mu.Lock()
	c.state.Trades = trades
	c.state.Error = ""
	c.mu.Unlock()
	return nil
}

// CreateOrder places an order and reloads the order list for its market
func (c *OrderContext) CreateOrder(ctx context.Context, params model.ExchangeOrderParams) (*model.ExchangeOrder, error) {
	c.beginLoading()
	defer c.endLoading()

	order, err := c.api.CreateOrder(ctx, params)
	if err != nil {
		return nil, c.fail(err, "Failed to create order")
	}
	if err := c.RefreshOrders(ctx, params.Exchange, params.Symbol); err != nil {
		return nil, err
	}
	return order, nil
}

// CancelOrder cancels an order and reloads the order list for its market
func (c *OrderContext) CancelOrder(ctx context.Context, params model.CancelOrderParams) error {
	c.beginLoading()
	defer c.endLoading()

	if err := c.api.CancelExchangeOrder(ctx, params); err != nil {
		return c.fail(err, "Failed to cancel order")
	}
	return c.RefreshOrders(ctx, params.Exchange, params.Symbol)
}

// Start polls orders and trades of exchange until ctx ends
func (c *OrderContext) Start(ctx context.Context, exchange string, interval time.Duration) *Poller {
	p := NewPoller(interval, func(ctx context.Context) error {
		if err := c.RefreshOrders(ctx, exchange, ""); err != nil {
			return err
		}
		return c.RefreshTrades(ctx, exchange, "")
	}, func(err error) {
		c.log.Warnf("Order refresh for %s failed: %v", exchange, err)
	})
	p.Start(ctx)
	return p
}

// beginLoading and endLoading count calls in flight, so a nested refresh
// does not clear Loading while its caller is still running
func (c *OrderContext) beginLoading() {
	c.mu.Lock()
	c.inflight++
	c.state.Loading = true
	c.mu.Unlock()
}

func (c *OrderContext) endLoading() {
	c.mu.Lock()
	c.inflight--
	c.state.Loading = c.inflight > 0
	c.mu.Unlock()
}

func (c *OrderContext) fail(err error, fallback string) error {
	c.mu.Lock()
	c.state.Error = errorText(err, fallback)
	c.mu.Unlock()
	return err
}

func errorText(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}

package console

import (
	"context"
	"sync"
	"time"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/pkg/logger"
)

// ExchangeGateway is the engine account API
type ExchangeGateway interface {
	ListAPIKeys(ctx context.Context) ([]model.ExchangeAPIKey, error)
	AddAPIKey(ctx context.Context, key model.ExchangeAPIKey) error
	DeleteAPIKey(ctx context.Context, exchange, label string) error
	GetBalances(ctx context.Context) ([]model.ExchangeBalance, error)
	GetExchanges(ctx context.Context) ([]model.ExchangeInfo, error)
}

// ExchangeState is a snapshot of ExchangeContext
type ExchangeState struct {
	APIKeys   []model.ExchangeAPIKey  `json:"apiKeys"`
	Balances  []model.ExchangeBalance `json:"balances"`
	Exchanges []model.ExchangeInfo    `json:"exchanges"`
	Loading   bool                    `json:"loading"`
	Error     string                  `json:"error,omitempty"`
}

// ExchangeContext tracks credentials, balances and supported exchanges
type ExchangeContext struct {
	api ExchangeGateway
	log *logger.Logger

	mu       sync.RWMutex
	state    ExchangeState
	inflight int
}

// NewExchangeContext creates an exchange context
func NewExchangeContext(api ExchangeGateway, log *logger.Logger) *ExchangeContext {
	if log == nil {
		log = logger.Nop()
	}
	return &ExchangeContext{api: api, log: log.WithComponent("exchange_context")}
}

// State returns a copy of the current state
func (c *ExchangeContext) State() ExchangeState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := c.state
	out.APIKeys = append([]model.ExchangeAPIKey(nil), c.state.APIKeys...)
	out.Balances = append([]model.ExchangeBalance(nil), c.state.Balances...)
	out.Exchanges = append([]model.ExchangeInfo(nil), c.state.Exchanges...)
	return out
}

// ActiveKey returns the first active credential
func (c *ExchangeContext) ActiveKey() (model.ExchangeAPIKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, k := range c.state.APIKeys {
		if k.IsActive {
			return k, true
		}
	}
	return model.ExchangeAPIKey{}, false
}

// LoadAPIKeys reloads the credential list
func (c *ExchangeContext) LoadAPIKeys(ctx context.Context) error {
	c.beginLoading()
	defer c.endLoading()

	keys, err := c.api.ListAPIKeys(ctx)
	if err != nil {
		return c.fail(err, "Failed to load API keys")
	}
	c.mu.Lock()
	c.state.APIKeys = keys
	c.state.Error = ""
	c.mu.Unlock()
	return nil
}

// AddAPIKey stores a credential on the engine and reloads the list
func (c *ExchangeContext) AddAPIKey(ctx context.Context, key model.ExchangeAPIKey) error {
	c.beginLoading()
	defer c.endLoading()

	if err := c.api.AddAPIKey(ctx, key); err != nil {
		return c.fail(err, "Failed to add API key")
	}
	return c.LoadAPIKeys(ctx)
}

// DeleteAPIKey removes a credential and reloads the list
func (c *ExchangeContext) DeleteAPIKey(ctx context.Context, exchange, label string) error {
	c.beginLoading()
	defer c.endLoading()

	if err := c.api.DeleteAPIKey(ctx, exchange, label); err != nil {
		return c.fail(err, "Failed to delete API key")
	}
	return c.LoadAPIKeys(ctx)
}

// RefreshBalances reloads balances across exchanges
func (c *ExchangeContext) RefreshBalances(ctx context.Context) error {
	c.beginLoading()
	defer c.endLoading()

	balances, err := c.api.GetBalances(ctx)
	if err != nil {
		return c.fail(err, "Failed to refresh balances")
	}
	c.mu.Lock()
	c.state.Balances = balances
	c.state.Error = ""
	c.mu.Unlock()
	return nil
}

// LoadExchanges reloads the supported exchange list
func (c *ExchangeContext) LoadExchanges(ctx context.Context) error {
	c.beginLoading()
	defer c.endLoading()

	exchanges, err := c.api.GetExchanges(ctx)
	if err != nil {
		return c.fail(err, "Failed to load exchanges")
	}
	c.mu.Lock()
	c.state.Exchanges = exchanges
	c.state.Error = ""
	c.mu.Unlock()
	return nil
}

// Start loads keys and exchanges once, then polls balances until ctx ends
func (c *ExchangeContext) Start(ctx context.Context, interval time.Duration) *Poller {
	if err := c.LoadAPIKeys(ctx); err != nil {
		c.log.Warnf("Loading API keys failed: %v", err)
	}
	if err := c.LoadExchanges(ctx); err != nil {
		c.log.Warnf("Loading exchanges failed: %v", err)
	}

	p := NewPoller(interval, c.RefreshBalances, func(err error) {
		c.log.Warnf("Balance refresh failed: %v", err)
	})
	p.Start(ctx)
	return p
}

// beginLoading and endLoading count calls in flight, so a nested refresh
// does not clear Loading while its caller is still running
func (c *ExchangeContext) beginLoading() {
	c.mu.Lock()
	c.inflight++
	c.state.Loading = true
	c.mu.Unlock()
}

func (c *ExchangeContext) endLoading() {
	c.mu.Lock()
	c.inflight--
	c.state.Loading = c.inflight > 0
	c.mu.Unlock()
}

func (c *ExchangeContext) fail(err error, fallback string) error {
	c.mu.Lock()
	c.state.Error = errorText(err, fallback)
	c.mu.Unlock()
	return err
}

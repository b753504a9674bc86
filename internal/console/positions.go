package console

import (
	"context"
	"sync"
	"time"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/util"
	"hbinterface/backend/pkg/logger"
)

// DefaultPositionInterval is the position refresh period
const DefaultPositionInterval = 10 * time.Second

// PositionGateway is the engine margin API
type PositionGateway interface {
	GetPositions(ctx context.Context, exchange string) ([]model.Position, error)
	ClosePosition(ctx context.Context, exchange, symbol string) error
	SetRiskParams(ctx context.Context, exchange string, params model.RiskParams) error
}

// PositionState is a snapshot of PositionContext
type PositionState struct {
	Positions []model.Position `json:"positions"`
	Loading   bool             `json:"loading"`
	Error     string           `json:"error,omitempty"`
}

// PositionContext keeps the open positions of an exchange fresh
type PositionContext struct {
	api PositionGateway
	log *logger.Logger

	mu       sync.RWMutex
	state    PositionState
	inflight int
}

// NewPositionContext creates a position context
func NewPositionContext(api PositionGateway, log *logger.Logger) *PositionContext {
	if log == nil {
		log = logger.Nop()
	}
	return &PositionContext{api: api, log: log.WithComponent("position_context")}
}

// State returns a copy of the current state
func (c *PositionContext) State() PositionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := c.state
	out.Positions = append([]model.Position(nil), c.state.Positions...)
	return out
}

// RefreshPositions reloads positions on exchange
func (c *PositionContext) RefreshPositions(ctx context.Context, exchange string) error {
	c.beginLoading()
	defer c.endLoading()

	positions, err := c.api.GetPositions(ctx, exchange)
	if err != nil {
		return c.fail(err, "Failed to fetch positions")
	}
	c.mu.Lock()
	c.state.Positions = positions
	c.state.Error = ""
	c.mu.Unlock()
	return nil
}

// ClosePosition closes symbol on exchange and reloads positions
func (c *PositionContext) ClosePosition(ctx context.Context, exchange, symbol string) error {
	c.beginLoading()
	defer c.endLoading()

	if err := c.api.ClosePosition(ctx, exchange, symbol); err != nil {
		return c.fail(err, "Failed to close position")
	}
	return c.RefreshPositions(ctx, exchange)
}

// SetRiskParams validates params and pushes them to the engine
func (c *PositionContext) SetRiskParams(ctx context.Context, exchange string, params model.RiskParams) error {
	if errs := params.Validate(); !errs.Empty() {
		return c.fail(util.ErrValidationFields(errs), "Invalid risk parameters")
	}
	if err := c.api.SetRiskParams(ctx, exchange, params); err != nil {
		return c.fail(err, "Failed to set risk parameters")
	}
	return nil
}

// Start polls positions of exchange until ctx ends. A zero interval uses
// DefaultPositionInterval.
func (c *PositionContext) Start(ctx context.Context, exchange string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPositionInterval
	}
	p := NewPoller(interval, func(ctx context.Context) error {
		return c.RefreshPositions(ctx, exchange)
	}, func(err error) {
		c.log.Warnf("Position refresh for %s failed: %v", exchange, err)
	})
	p.Start(ctx)
	return p
}

// beginLoading and endLoading count calls in flight, so a nested refresh
// does not clear Loading while its caller is still running
func (c *PositionContext) beginLoading() {
	c.mu.Lock()
	c.inflight++
	c.state.Loading = true
	c.mu.Unlock()
}

func (c *PositionContext) endLoading() {
	c.mu.Lock()
	c.inflight--
	c.state.Loading = c.inflight > 0
	c.mu.Unlock()
}

func (c *PositionContext) fail(err error, fallback string) error {
	c.mu.Lock()
	c.state.Error = errorText(err, fallback)
	c.mu.Unlock()
	return err
}

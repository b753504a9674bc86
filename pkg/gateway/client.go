// Package gateway talks to the trading engine over REST and one long-lived
// WebSocket connection.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/pkg/logger"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Config holds the engine endpoints and credentials
type Config struct {
	APIURL            string
	WSURL             string
	APIKey            string
	Timeout           time.Duration
	ReconnectDelay    time.Duration
	AckTimeout        time.Duration
	RequestsPerSecond int
}

// Client wraps the engine REST API
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewClient creates a REST client for the engine
func NewClient(cfg Config, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		httpClient.SetAuthToken(cfg.APIKey)
	}

	c := &Client{
		http: httpClient,
		log:  log.WithComponent("gateway"),
	}

	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond)
		httpClient.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			return c.limiter.Wait(r.Context())
		})
	}

	return c
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// errorText picks message, then error, then fallback. error may be a string
// or an object with a message field.
func (e *envelope) errorText(fallback string) string {
	if e.Message != "" {
		return e.Message
	}
	if !isEmptyJSON(e.Error) {
		var s string
		if err := json.Unmarshal(e.Error, &s); err == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(e.Error, &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return fallback
}

type call struct {
	method     string
	path       string
	pathParams map[string]string
	body       interface{}
	fallback   string
}

func (c *Client) do(ctx context.Context, cl call, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if len(cl.pathParams) > 0 {
		req.SetPathParams(cl.pathParams)
	}
	if cl.body != nil {
		req.SetBody(cl.body)
	}

	resp, err := req.Execute(cl.method, cl.path)
	if err != nil {
		return fmt.Errorf("%s: %w", cl.fallback, err)
	}

	var env envelope
	if body := resp.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &env); err != nil && resp.IsSuccess() {
			return fmt.Errorf("%s: decode response: %w", cl.fallback, err)
		}
	}

	if resp.IsError() || (env.Success != nil && !*env.Success) {
		apiErr := &APIError{StatusCode: resp.StatusCode(), Message: env.errorText(cl.fallback)}
		c.log.Debugf("%s %s failed: %v", cl.method, cl.path, apiErr)
		return apiErr
	}

	if out == nil || isEmptyJSON(env.Data) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: decode data: %w", cl.fallback, err)
	}
	return nil
}

// Bots

// CreateBotRequest is the engine-side bot definition
type CreateBotRequest struct {
	Name       string          `json:"name"`
	Strategy   model.Strategy  `json:"strategy"`
	Exchange   string          `json:"exchange"`
	BaseAsset  string          `json:"baseAsset"`
	QuoteAsset string          `json:"quoteAsset"`
	Config     json.RawMessage `json:"config,omitempty"`
}

func (c *Client) CreateBot(ctx context.Context, req CreateBotRequest) (*model.Bot, error) {
	var bot model.Bot
	err := c.do(ctx, call{method: http.MethodPost, path: "/create_bot", body: req, fallback: "Failed to create bot"}, &bot)
	if err != nil {
		return nil, err
	}
	if bot.ID == "" {
		return nil, fmt.Errorf("Failed to create bot: %w", ErrEmptyResult)
	}
	return &bot, nil
}

func (c *Client) ListBots(ctx context.Context) ([]*model.Bot, error) {
	bots := []*model.Bot{}
	err := c.do(ctx, call{method: http.MethodGet, path: "/bots", fallback: "Failed to fetch bots"}, &bots)
	return bots, err
}

// BotStatus is the engine's view of a running bot
type BotStatus struct {
	ID      string          `json:"id"`
	Status  model.BotStatus `json:"status"`
	Message string          `json:"message,omitempty"`
	Uptime  string          `json:"uptime,omitempty"`
}

func (c *Client) GetBotStatus(ctx context.Context, id string) (*BotStatus, error) {
	var status BotStatus
	err := c.do(ctx, call{
		method:     http.MethodGet,
		path:       "/bot_status/{id}",
		pathParams: map[string]string{"id": id},
		fallback:   "Failed to fetch bot status",
	}, &status)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// BotMetrics is the engine's performance report for a bot
type BotMetrics struct {
	Performance *model.Performance `json:"performance,omitempty"`
	RiskMetrics *model.RiskMetrics `json:"riskMetrics,omitempty"`
	Uptime      string             `json:"uptime,omitempty"`
	LastUpdated string             `json:"lastUpdated,omitempty"`
}

func (c *Client) GetBotMetrics(ctx context.Context, id string) (*BotMetrics, error) {
	var metrics BotMetrics
	err := c.do(ctx, call{
		method:     http.MethodGet,
		path:       "/bot_metrics/{id}",
		pathParams: map[string]string{"id": id},
		fallback:   "Failed to fetch bot metrics",
	}, &metrics)
	if err != nil {
		return nil, err
	}
	return &metrics, nil
}

// Simple orders

// PlaceOrderRequest is a symbol-level order without an exchange
type PlaceOrderRequest struct {
	Symbol   string          `json:"symbol"`
	Side     model.OrderSide `json:"side"`
	Type     model.OrderType `json:"type"`
	Quantity string          `json:"quantity"`
	Price    string          `json:"price,omitempty"`
}

func (c *Client) PlaceOrder(ctx context.Context, req PlaceOrderRequest) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/order", body: req, fallback: "Failed to place order"}, nil)
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	return c.do(ctx, call{
		method:     http.MethodDelete,
		path:       "/order/{id}",
		pathParams: map[string]string{"id": orderID},
		fallback:   "Failed to cancel order",
	}, nil)
}

// SimpleOrderBook is the string-typed book served by /order_book
type SimpleOrderBook struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

func (c *Client) GetOrderBook(ctx context.Context, symbol string) (*SimpleOrderBook, error) {
	var book SimpleOrderBook
	err := c.do(ctx, call{
		method:     http.MethodGet,
		path:       "/order_book/{symbol}",
		pathParams: map[string]string{"symbol": symbol},
		fallback:   "Failed to fetch order book",
	}, &book)
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Exchange orders and trades

func (c *Client) CreateOrder(ctx context.Context, params model.ExchangeOrderParams) (*model.ExchangeOrder, error) {
	var order model.ExchangeOrder
	err := c.do(ctx, call{method: http.MethodPost, path: "/orders", body: params, fallback: "Failed to create order"}, &order)
	if err != nil {
		return nil, err
	}
	if order.OrderID == "" {
		return nil, fmt.Errorf("Failed to create order: %w", ErrEmptyResult)
	}
	return &order, nil
}

func (c *Client) CancelExchangeOrder(ctx context.Context, params model.CancelOrderParams) error {
	return c.do(ctx, call{
		method:     http.MethodDelete,
		path:       "/orders/{exchange}/{symbol}/{id}",
		pathParams: map[string]string{"exchange": params.Exchange, "symbol": params.Symbol, "id": params.OrderID},
		fallback:   "Failed to cancel order",
	}, nil)
}

// GetOrders lists orders on exchange, optionally narrowed to symbol
func (c *Client) GetOrders(ctx context.Context, exchange, symbol string) ([]model.ExchangeOrder, error) {
	cl := call{
		method:     http.MethodGet,
		path:       "/orders/{exchange}",
		pathParams: map[string]string{"exchange": exchange},
		fallback:   "Failed to fetch orders",
	}
	if symbol != "" {
		cl.path = "/orders/{exchange}/{symbol}"
		cl.pathParams["symbol"] = symbol
	}
	orders := []model.ExchangeOrder{}
	err := c.do(ctx, cl, &orders)
	return orders, err
}

func (c *Client) GetOrderByID(ctx context.Context, exchange, orderID string) (*model.ExchangeOrder, error) {
	var order model.ExchangeOrder
	err := c.do(ctx, call{
		method:     http.MethodGet,
		path:       "/orders/{exchange}/{id}",
		pathParams: map[string]string{"exchange": exchange, "id": orderID},
		fallback:   "Failed to fetch order",
	}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetTrades lists fills on exchange, optionally narrowed to symbol
func (c *Client) GetTrades(ctx context.Context, exchange, symbol string) ([]model.Trade, error) {
	cl := call{
		method:     http.MethodGet,
		path:       "/trades/{exchange}",
		pathParams: map[string]string{"exchange": exchange},
		fallback:   "Failed to fetch trades",
	}
	if symbol != "" {
		cl.path = "/trades/{exchange}/{symbol}"
		cl.pathParams["symbol"] = symbol
	}
	trades := []model.Trade{}
	err := c.do(ctx, cl, &trades)
	return trades, err
}

func (c *Client) GetExchangeOrderBook(ctx context.Context, exchange, symbol string) (*model.OrderBook, error) {
	var book model.OrderBook
	err := c.do(ctx, call{
		method:     http.MethodGet,
		path:       "/orderbook/{exchange}/{symbol}",
		pathParams: map[string]string{"exchange": exchange, "symbol": symbol},
		fallback:   "Failed to fetch order book",
	}, &book)
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// API keys

func (c *Client) ListAPIKeys(ctx context.Context) ([]model.ExchangeAPIKey, error) {
	keys := []model.ExchangeAPIKey{}
	err := c.do(ctx, call{method: http.MethodGet, path: "/api_keys", fallback: "Failed to fetch API keys"}, &keys)
	return keys, err
}

func (c *Client) AddAPIKey(ctx context.Context, key model.ExchangeAPIKey) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/api_keys", body: key, fallback: "Failed to add API key"}, nil)
}

// DeleteAPIKey removes a key; the label is path-escaped
func (c *Client) DeleteAPIKey(ctx context.Context, exchange, label string) error {
	return c.do(ctx, call{
		method:     http.MethodDelete,
		path:       "/api_keys/{exchange}/{label}",
		pathParams: map[string]string{"exchange": exchange, "label": label},
		fallback:   "Failed to delete API key",
	}, nil)
}

func (c *Client) ValidateAPIKey(ctx context.Context, key model.ExchangeAPIKey) (bool, error) {
	var result struct {
		Valid bool `json:"valid"`
	}
	err := c.do(ctx, call{method: http.MethodPost, path: "/api_keys/validate", body: key, fallback: "Failed to validate API key"}, &result)
	if err != nil {
		return false, err
	}
	return result.Valid, nil
}

// Exchanges, balances, positions and risk

func (c *Client) GetBalances(ctx context.Context) ([]model.ExchangeBalance, error) {
	balances := []model.ExchangeBalance{}
	err := c.do(ctx, call{method: http.MethodGet, path: "/balances", fallback: "Failed to fetch balances"}, &balances)
	return balances, err
}

func (c *Client) GetExchanges(ctx context.Context) ([]model.ExchangeInfo, error) {
	exchanges := []model.ExchangeInfo{}
	err := c.do(ctx, call{method: http.MethodGet, path: "/exchanges", fallback: "Failed to fetch exchanges"}, &exchanges)
	return exchanges, err
}

func (c *Client) GetPositions(ctx context.Context, exchange string) ([]model.Position, error) {
	positions := []model.Position{}
	err := c.do(ctx, call{
		method:     http.MethodGet,
		path:       "/positions/{exchange}",
		pathParams: map[string]string{"exchange": exchange},
		fallback:   "Failed to fetch positions",
	}, &positions)
	return positions, err
}

func (c *Client) ClosePosition(ctx context.Context, exchange, symbol string) error {
	return c.do(ctx, call{
		method:     http.MethodPost,
		path:       "/positions/{exchange}/{symbol}/close",
		pathParams: map[string]string{"exchange": exchange, "symbol": symbol},
		fallback:   "Failed to close position",
	}, nil)
}

func (c *Client) SetRiskParams(ctx context.Context, exchange string, params model.RiskParams) error {
	return c.do(ctx, call{
		method:     http.MethodPost,
		path:       "/risk/{exchange}",
		pathParams: map[string]string{"exchange": exchange},
		body:       params,
		fallback:   "Failed to update risk parameters",
	}, nil)
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hbinterface/backend/internal/config"
	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/repository"
	"hbinterface/backend/internal/service"
	"hbinterface/backend/internal/testutil"
	"hbinterface/backend/pkg/jwt"
	"hbinterface/backend/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	mr     *miniredis.Miniredis
	deps   Deps
}

func testConfig() *config.Config {
	return &config.Config{
		CORS:      config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		RateLimit: config.RateLimitConfig{RequestsPerMinute: 1000, AuthRequestsPerMinute: 100},
		Market: config.MarketConfig{
			TickerTTL:    5 * time.Second,
			OrderBookTTL: 2 * time.Second,
			TradesTTL:    5 * time.Second,
			PushInterval: 5 * time.Second,
		},
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	log := logger.Nop()
	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)

	notifications := service.NewNotificationService(rdb, log)
	userRepo := repository.NewUserRepository(db, rdb)
	auth := service.NewAuthService(userRepo, jwt.NewJWTManager("test-secret", time.Hour), log)
	bots := service.NewBotService(repository.NewBotRepository(db), notifications, log)
	orders := service.NewOrderService(repository.NewOrderRepository(rdb), notifications, log)
	market := service.NewMarketService(rdb, cfg.Market, log)
	apiKeys := service.NewAPIKeyService(repository.NewAPIKeyRepository(db), nil, "0123456789abcdef0123456789abcdef", log)
	hub := service.NewWSHub(rdb, auth, bots, orders, market, service.WSHubConfig{PushInterval: cfg.Market.PushInterval}, log)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	require.NoError(t, hub.StartPubSubListener(ctx))

	deps := Deps{
		Config:  cfg,
		Log:     log,
		DB:      db,
		Redis:   rdb,
		Auth:    auth,
		Bots:    bots,
		Orders:  orders,
		Market:  market,
		APIKeys: apiKeys,
		Users:   service.NewUserService(userRepo, log),
		Hub:     hub,
	}
	return &testServer{router: NewRouter(deps), mr: mr, deps: deps}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": email, "password": "password1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func marketMakingBody() map[string]interface{} {
	return map[string]interface{}{
		"name":             "Test Bot",
		"strategy":         "pure_market_making",
		"exchange":         "binance",
		"baseAsset":        "BTC",
		"quoteAsset":       "USDT",
		"bidSpread":        "0.5",
		"askSpread":        "0.5",
		"orderSize":        "0.01",
		"orderInterval":    "10",
		"minProfitability": "1",
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "trader@example.com")

	w, env := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "trader@example.com", "password": "password1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists", env.Message)

	w, env = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "trader@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", env.Message)

	w, env = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Details, "email")
	assert.Contains(t, env.Error.Details, "password")

	w, env = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Email string `json:"email"`
	}
	decodeData(t, env, &me)
	assert.Equal(t, "trader@example.com", me.Email)

	w, _ = s.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBotRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, http.MethodGet, "/api/bots", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBotCRUD(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "bots@example.com")

	w, env := s.do(t, http.MethodPost, "/api/bots", token, marketMakingBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var bot struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	decodeData(t, env, &bot)
	assert.Equal(t, "stopped", bot.Status)

	w, env = s.do(t, http.MethodPut, "/api/bots/"+bot.ID, token, map[string]interface{}{"name": "Renamed Bot"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decodeData(t, env, &bot)
	assert.Equal(t, "Renamed Bot", bot.Name)

	w, env = s.do(t, http.MethodGet, "/api/bots", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]interface{}
	decodeData(t, env, &list)
	assert.Len(t, list, 1)

	other := s.register(t, "other@example.com")
	w, env = s.do(t, http.MethodGet, "/api/bots/"+bot.ID, other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Bot not found", env.Message)

	w, _ = s.do(t, http.MethodDelete, "/api/bots/"+bot.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/bots/"+bot.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGridRejectsInvertedPrices(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "grid@example.com")

	w, env := s.do(t, http.MethodPost, "/api/bots", token, map[string]interface{}{
		"name":        "Grid Bot",
		"strategy":    "grid_trading",
		"exchange":    "binance",
		"baseAsset":   "BTC",
		"quoteAsset":  "USDT",
		"upperPrice":  100,
		"lowerPrice":  150,
		"gridLevels":  10,
		"gridSpacing": 1,
		"orderSize":   "0.1",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "Lower price must be less than upper price", env.Error.Details["lowerPrice"])
}

func TestBotRejectsUnknownFields(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "strict@example.com")

	body := marketMakingBody()
	body["leverage"] = 10
	w, env := s.do(t, http.MethodPost, "/api/bots", token, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	w, env = s.do(t, http.MethodPost, "/api/orders", token, map[string]interface{}{
		"symbol": "BTC/USDT", "side": "buy", "type": "market", "quantity": "1", "stopPrice": "10",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	w, env = s.do(t, http.MethodPost, "/api/orders", token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestOrderRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "orders@example.com")

	w, env := s.do(t, http.MethodPost, "/api/orders", token, map[string]interface{}{
		"symbol": "BTC/USDT", "side": "buy", "type": "limit", "quantity": "1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Price is required for limit orders", env.Message)

	w, env = s.do(t, http.MethodPost, "/api/orders", token, map[string]interface{}{
		"symbol": "BTC/USDT", "side": "buy", "type": "limit", "quantity": "1", "price": "50000",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeData(t, env, &order)
	assert.Equal(t, "pending", order.Status)

	w, env = s.do(t, http.MethodGet, "/api/orders?status=pending&symbol=BTC-USDT", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]interface{}
	decodeData(t, env, &list)
	assert.Len(t, list, 1)

	w, env = s.do(t, http.MethodDelete, "/api/orders/"+order.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, env, &order)
	assert.Equal(t, "cancelled", order.Status)

	w, env = s.do(t, http.MethodDelete, "/api/orders/"+order.ID, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Order cannot be cancelled", env.Message)

	w, env = s.do(t, http.MethodGet, "/api/orders/"+order.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, env, &order)
	assert.Equal(t, "cancelled", order.Status)

	w, env = s.do(t, http.MethodGet, "/api/orders/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Order not found", env.Message)
}

func TestFilledOrderCannotBeCancelled(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "filled@example.com")

	w, env := s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		ID string `json:"id"`
	}
	decodeData(t, env, &me)
	require.NotEmpty(t, me.ID)

	orders := repository.NewOrderRepository(s.deps.Redis)
	filled := &model.Order{
		ID:        "filled-1",
		UserID:    me.ID,
		Exchange:  model.DefaultOrderExchange,
		Symbol:    "BTC/USDT",
		Side:      model.OrderSideBuy,
		Type:      model.OrderTypeMarket,
		Quantity:  decimal.NewFromInt(1),
		Status:    model.OrderStatusFilled,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, orders.Save(context.Background(), filled))

	w, env = s.do(t, http.MethodDelete, "/api/orders/filled-1", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Order cannot be cancelled", env.Message)

	stored, err := orders.Get(context.Background(), me.ID, "filled-1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFilled, stored.Status)
}

func TestOrderRejectsHugeExponent(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "exponent@example.com")

	w, env := s.do(t, http.MethodPost, "/api/orders", token, map[string]interface{}{
		"symbol": "BTC/USDT", "side": "buy", "type": "market", "quantity": "1e2000000",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Quantity must be a valid number", env.Message)

	body := marketMakingBody()
	body["orderSize"] = "1e2000000"
	w, env = s.do(t, http.MethodPost, "/api/bots", token, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Please enter a valid number", env.Error.Details["orderSize"])
}

func TestTickerCachedWithinTTL(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ticker@example.com")

	first, _ := s.do(t, http.MethodGet, "/api/market/ticker/BTC-USDT", token, nil)
	require.Equal(t, http.StatusOK, first.Code)
	second, _ := s.do(t, http.MethodGet, "/api/market/ticker/BTC-USDT", token, nil)
	assert.Equal(t, first.Body.String(), second.Body.String())

	s.mr.FastForward(6 * time.Second)
	third, _ := s.do(t, http.MethodGet, "/api/market/ticker/BTC-USDT", token, nil)
	assert.NotEqual(t, first.Body.String(), third.Body.String())
}

func TestMarketRoutes(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{
		"/api/market/symbols",
		"/api/market/ticker/BTC-USDT",
		"/api/market/orderbook/ETH-USDT",
		"/api/market/trades/SOL-USDT",
	} {
		w, _ := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	token := s.register(t, "market@example.com")

	w, env := s.do(t, http.MethodGet, "/api/market/symbols", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var symbols []string
	decodeData(t, env, &symbols)
	assert.Contains(t, symbols, "BTC/USDT")

	w, env = s.do(t, http.MethodGet, "/api/market/orderbook/ETH-USDT", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var book struct {
		Bids []interface{} `json:"bids"`
		Asks []interface{} `json:"asks"`
	}
	decodeData(t, env, &book)
	assert.Len(t, book.Bids, 10)
	assert.Len(t, book.Asks, 10)

	w, env = s.do(t, http.MethodGet, "/api/market/trades/SOL-USDT", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var trades []interface{}
	decodeData(t, env, &trades)
	assert.Len(t, trades, 50)
}

func TestAPIKeyRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "keys@example.com")

	w, _ := s.do(t, http.MethodPost, "/api/api-keys", token, map[string]string{
		"exchange": "binance", "apiKey": "pub", "secretKey": "secret-value-9876", "label": "main",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env := s.do(t, http.MethodGet, "/api/api-keys", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var keys []struct {
		SecretKey string `json:"secretKey"`
	}
	decodeData(t, env, &keys)
	require.Len(t, keys, 1)
	assert.NotContains(t, keys[0].SecretKey, "secret-value")

	w, env = s.do(t, http.MethodPost, "/api/api-keys/validate", token, map[string]string{
		"exchange": "binance", "apiKey": "abcdefghijklmnop", "secretKey": "abcdefghijklmnop",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var valid struct {
		Valid bool `json:"valid"`
	}
	decodeData(t, env, &valid)
	assert.True(t, valid.Valid)

	w, _ = s.do(t, http.MethodDelete, "/api/api-keys/binance/main", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAnalyticsRisk(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "risk@example.com")

	day := func(d int) int64 { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC).UnixMilli() }
	w, env := s.do(t, http.MethodPost, "/api/analytics/risk", token, map[string]interface{}{
		"trades": []map[string]interface{}{
			{"side": "buy", "price": "100", "amount": "1", "timestamp": day(1)},
			{"side": "sell", "price": "110", "amount": "1", "timestamp": day(2)},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		PnL struct {
			Realized string `json:"realized"`
		} `json:"pnl"`
		Risk struct {
			MaxDrawdown float64 `json:"maxDrawdown"`
		} `json:"risk"`
	}
	decodeData(t, env, &resp)
	assert.Equal(t, "10", resp.PnL.Realized)
	assert.Zero(t, resp.Risk.MaxDrawdown)

	w, env = s.do(t, http.MethodPost, "/api/analytics/risk", token, map[string]interface{}{
		"trades": []map[string]interface{}{
			{"side": "buy", "price": "1e2000000", "amount": "1", "timestamp": day(1)},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please enter a valid number", env.Message)

	w, _ = s.do(t, http.MethodPost, "/api/bots", token, marketMakingBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env = s.do(t, http.MethodGet, "/api/analytics/bots", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary struct {
		Total   int `json:"total"`
		Stopped int `json:"stopped"`
	}
	decodeData(t, env, &summary)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Stopped)
}

func TestAdminUserRoutes(t *testing.T) {
	s := newTestServer(t)
	memberToken := s.register(t, "member@example.com")

	w, env := s.do(t, http.MethodGet, "/api/admin/users", memberToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Admin access required", env.Message)

	admin, err := s.deps.Auth.EnsureAdmin(context.Background(), "root@example.com", "admin-pass")
	require.NoError(t, err)
	w, env = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "root@example.com", "password": "admin-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	decodeData(t, env, &login)

	w, env = s.do(t, http.MethodGet, "/api/admin/users", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users []struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	decodeData(t, env, &users)
	require.Len(t, users, 2)

	var memberID string
	for _, u := range users {
		if u.Email == "member@example.com" {
			memberID = u.ID
		}
	}
	require.NotEmpty(t, memberID)

	w, _ = s.do(t, http.MethodPut, "/api/admin/users/"+memberID+"/role", login.Token, map[string]string{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodPut, "/api/admin/users/"+admin.ID+"/role", login.Token, map[string]string{"role": "user"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cannot remove your own admin role", env.Message)

	w, _ = s.do(t, http.MethodPost, "/api/admin/users/"+memberID+"/reset-password", login.Token, map[string]string{"newPassword": "reset-pass-1"})
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "member@example.com", "password": "reset-pass-1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/admin/users/"+memberID, login.Token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/admin/users/"+memberID, login.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

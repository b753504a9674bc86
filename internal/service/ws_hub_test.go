package service

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/repository"
	"hbinterface/backend/pkg/logger"
	"hbinterface/backend/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hubFixture struct {
	*fixture
	hub   *WSHub
	url   string
	token string
}

func newHubFixture(t *testing.T, cfg WSHubConfig) *hubFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := newFixture(t)
	notifications := NewNotificationService(f.redis, logger.Nop())
	f.bots = NewBotService(repository.NewBotRepository(f.db), notifications, logger.Nop())

	hub := NewWSHub(f.redis, f.auth, f.bots, f.orders, f.market, cfg, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	require.NoError(t, hub.StartPubSubListener(ctx))

	router := gin.New()
	router.GET("/ws", hub.ServeWS)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	resp, err := f.auth.Register(context.Background(), &model.RegisterRequest{Email: "ws@example.com", Password: "password1"})
	require.NoError(t, err)

	return &hubFixture{
		fixture: f,
		hub:     hub,
		url:     "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		token:   resp.Token,
	}
}

func (h *hubFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.url+"?token="+h.token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return h.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readUntil(t *testing.T, conn *websocket.Conn, msgType string) map[string]interface{} {
	t.Helper()
	for i := 0; i < 10; i++ {
		msg := readMessage(t, conn)
		if msg["type"] == msgType {
			return msg
		}
	}
	t.Fatalf("no %s message received", msgType)
	return nil
}

func TestServeWSRejectsMissingAndInvalidToken(t *testing.T) {
	h := newHubFixture(t, WSHubConfig{})

	for token, reason := range map[string]string{"": "Authentication required", "bogus": "Invalid token"} {
		conn, _, err := websocket.DefaultDialer.Dial(h.url+"?token="+token, nil)
		require.NoError(t, err)

		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err = conn.ReadMessage()
		var closeErr *websocket.CloseError
		require.ErrorAs(t, err, &closeErr)
		assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
		assert.Equal(t, reason, closeErr.Text)
		_ = conn.Close()
	}
	assert.Equal(t, 0, h.hub.ClientCount())
}

func TestDispatchBasics(t *testing.T) {
	h := newHubFixture(t, WSHubConfig{})
	conn := h.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping", "id": "p1"}))
	msg := readMessage(t, conn)
	assert.Equal(t, "pong", msg["type"])
	assert.Equal(t, "p1", msg["id"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "authenticate", "data": map[string]string{"apiKey": "x"}}))
	assert.Equal(t, "authenticated", readMessage(t, conn)["type"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "teleport"}))
	msg = readMessage(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Equal(t, "Unknown message type", msg["message"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg = readMessage(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Equal(t, "Invalid message format", msg["message"])
}

func TestSubscribeAcksAndPushesTicker(t *testing.T) {
	h := newHubFixture(t, WSHubConfig{PushInterval: 50 * time.Millisecond})
	conn := h.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "subscribe", "id": "s1", "channel": "market_data", "data": map[string]string{"symbol": "btc-usdt"},
	}))

	ack := readMessage(t, conn)
	assert.Equal(t, "ack", ack["type"])
	assert.Equal(t, true, ack["payload"].(map[string]interface{})["ok"])

	ticker := readUntil(t, conn, "ticker")
	assert.Equal(t, "BTC/USDT", ticker["payload"].(map[string]interface{})["symbol"])

	// periodic push keeps coming
	ticker = readUntil(t, conn, "ticker")
	assert.Equal(t, "market_data", ticker["channel"])
}

func TestOrderFrame(t *testing.T) {
	h := newHubFixture(t, WSHubConfig{})
	conn := h.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "order", "id": "o1", "data": map[string]string{"symbol": "BTC/USDT", "side": "buy", "type": "limit", "quantity": "1"},
	}))
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Equal(t, "Price is required for limit orders", msg["message"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "order", "id": "o2", "data": map[string]interface{}{"symbol": "BTC/USDT", "side": "buy", "type": "market", "quantity": 1},
	}))
	msg = readUntil(t, conn, "order_update")
	assert.Equal(t, "pending", msg["payload"].(map[string]interface{})["status"])
}

func TestStartBotFrameAcksAndPushes(t *testing.T) {
	h := newHubFixture(t, WSHubConfig{})
	conn := h.dial(t)

	claims, err := h.auth.ValidateToken(context.Background(), h.token)
	require.NoError(t, err)
	bot, err := h.bots.Create(context.Background(), claims.UserID, marketMakingRequest())
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "start_bot", "id": "c1", "data": map[string]string{"botId": bot.ID},
	}))

	seen := map[string]map[string]interface{}{}
	for len(seen) < 2 {
		msg := readMessage(t, conn)
		seen[msg["type"].(string)] = msg
	}

	ack := seen["ack"]
	require.NotNil(t, ack)
	assert.Equal(t, "c1", ack["id"])
	payload := ack["payload"].(map[string]interface{})
	assert.Equal(t, true, payload["ok"])
	assert.Equal(t, "running", payload["bot"].(map[string]interface{})["status"])

	update := seen["bot_update"]
	require.NotNil(t, update)
	assert.Equal(t, bot.ID, update["payload"].(map[string]interface{})["bot"].(map[string]interface{})["id"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "stop_bot", "id": "c2", "data": map[string]string{"botId": "missing"}}))
	ack = readUntil(t, conn, "ack")
	assert.Equal(t, false, ack["payload"].(map[string]interface{})["ok"])
	assert.Equal(t, "Bot not found", ack["payload"].(map[string]interface{})["error"])
}

func TestMissedHeartbeatTerminates(t *testing.T) {
	h := newHubFixture(t, WSHubConfig{HeartbeatInterval: 50 * time.Millisecond})

	conn, _, err := websocket.DefaultDialer.Dial(h.url+"?token="+h.token, nil)
	require.NoError(t, err)
	defer conn.Close()
	// swallow pings without answering
	conn.SetPingHandler(func(string) error { return nil })

	require.Eventually(t, func() bool { return h.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	require.Eventually(t, func() bool { return h.hub.ClientCount() == 0 }, 2*time.Second, 20*time.Millisecond)
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	h := newHubFixture(t, WSHubConfig{})
	conn := h.dial(t)

	data, err := json.Marshal(model.WSMessage{Type: model.MessageTypeTicker, Payload: map[string]string{"symbol": "X/Y"}})
	require.NoError(t, err)
	require.NoError(t, h.redis.Publish(context.Background(), redis.ChannelWSBroadcast, data))

	msg := readUntil(t, conn, "ticker")
	assert.Equal(t, "X/Y", msg["payload"].(map[string]interface{})["symbol"])
}

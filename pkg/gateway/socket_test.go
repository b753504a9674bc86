package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine is a minimal engine socket: it records frames and lets the test
// decide how to answer each one.
type fakeEngine struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader
	connects atomic.Int32

	mu     sync.Mutex
	frames []map[string]interface{}
	conns  []*websocket.Conn

	reply func(conn *websocket.Conn, frame map[string]interface{})
}

func newFakeEngine(t *testing.T, reply func(conn *websocket.Conn, frame map[string]interface{})) *fakeEngine {
	t.Helper()
	e := &fakeEngine{reply: reply}
	e.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := e.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		e.connects.Add(1)
		e.mu.Lock()
		e.conns = append(e.conns, conn)
		e.mu.Unlock()

		for {
			var frame map[string]interface{}
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			e.mu.Lock()
			e.frames = append(e.frames, frame)
			e.mu.Unlock()
			if e.reply != nil {
				e.reply(conn, frame)
			}
		}
	}))
	t.Cleanup(e.srv.Close)
	return e
}

func (e *fakeEngine) wsURL() string {
	return "ws" + strings.TrimPrefix(e.srv.URL, "http")
}

func (e *fakeEngine) received() []map[string]interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]map[string]interface{}(nil), e.frames...)
}

func (e *fakeEngine) dropAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.conns {
		_ = c.Close()
	}
	e.conns = nil
}

func connectSocket(t *testing.T, e *fakeEngine, onMessage func(Message)) *Socket {
	t.Helper()
	sock := NewSocket(Config{WSURL: e.wsURL(), APIKey: "k1", ReconnectDelay: 50 * time.Millisecond}, nil)
	require.NoError(t, sock.Connect(context.Background(), onMessage))
	t.Cleanup(func() { _ = sock.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sock.WaitConnected(ctx))
	return sock
}

func TestSocketAuthenticatesOnOpen(t *testing.T) {
	engine := newFakeEngine(t, nil)
	connectSocket(t, engine, nil)

	require.Eventually(t, func() bool { return len(engine.received()) >= 1 }, 2*time.Second, 10*time.Millisecond)
	first := engine.received()[0]
	assert.Equal(t, "authenticate", first["type"])
	assert.Equal(t, map[string]interface{}{"apiKey": "k1"}, first["data"])
}

func TestStartBotWaitsForAck(t *testing.T) {
	engine := newFakeEngine(t, func(conn *websocket.Conn, frame map[string]interface{}) {
		if frame["type"] != "start_bot" {
			return
		}
		data := frame["data"].(map[string]interface{})
		_ = conn.WriteJSON(map[string]interface{}{
			"type": "ack",
			"id":   frame["id"],
			"payload": map[string]interface{}{
				"ok":  true,
				"bot": map[string]interface{}{"id": data["botId"], "status": "running"},
			},
		})
	})
	sock := connectSocket(t, engine, nil)

	bot, err := sock.StartBot(context.Background(), "bot-7")
	require.NoError(t, err)
	require.NotNil(t, bot)
	assert.Equal(t, "bot-7", bot.ID)
	assert.Equal(t, "running", string(bot.Status))
}

func TestStopBotRejected(t *testing.T) {
	engine := newFakeEngine(t, func(conn *websocket.Conn, frame map[string]interface{}) {
		if frame["type"] == "stop_bot" {
			_ = conn.WriteJSON(map[string]interface{}{
				"type":    "ack",
				"id":      frame["id"],
				"payload": map[string]interface{}{"ok": false, "error": "bot not running"},
			})
		}
	})
	sock := connectSocket(t, engine, nil)

	_, err := sock.StopBot(context.Background(), "bot-7")
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "bot not running", cmdErr.Reason)
}

func TestCommandAckTimeout(t *testing.T) {
	engine := newFakeEngine(t, nil)
	sock := connectSocket(t, engine, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := sock.StartBot(ctx, "bot-1")
	assert.ErrorIs(t, err, ErrAckTimeout)
}

func TestSendWhileDisconnected(t *testing.T) {
	sock := NewSocket(Config{WSURL: "ws://127.0.0.1:1"}, nil)

	assert.False(t, sock.IsConnected())
	assert.ErrorIs(t, sock.SubscribeMarketData("BTC/USDT"), ErrNotConnected)

	_, err := sock.StartBot(context.Background(), "bot-1")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSocketReconnects(t *testing.T) {
	engine := newFakeEngine(t, nil)
	connectSocket(t, engine, nil)
	require.Equal(t, int32(1), engine.connects.Load())

	engine.dropAll()

	require.Eventually(t, func() bool { return engine.connects.Load() >= 2 }, 3*time.Second, 20*time.Millisecond)

	// every connection authenticates again
	require.Eventually(t, func() bool {
		n := 0
		for _, f := range engine.received() {
			if f["type"] == "authenticate" {
				n++
			}
		}
		return n >= 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestMalformedFramesAreDropped(t *testing.T) {
	engine := newFakeEngine(t, func(conn *websocket.Conn, frame map[string]interface{}) {
		if frame["type"] != "subscribe" {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
		_ = conn.WriteJSON(map[string]interface{}{"type": "bot_update", "bot": map[string]interface{}{"id": "b1", "status": "paused"}})
	})

	var mu sync.Mutex
	var got []Message
	sock := connectSocket(t, engine, func(m Message) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	})
	require.NoError(t, sock.SubscribeMarketData("BTC/USDT"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	msg := got[0]
	mu.Unlock()
	bot, ok := msg.BotRecord()
	require.True(t, ok)
	assert.Equal(t, "b1", bot.ID)
}

func TestBotRecordLocations(t *testing.T) {
	for _, raw := range []string{
		`{"type":"bot_update","bot":{"id":"x","status":"running"}}`,
		`{"type":"bot_update","payload":{"bot":{"id":"x","status":"running"}}}`,
		`{"type":"bot_update","data":{"bot":{"id":"x","status":"running"}}}`,
	} {
		var msg Message
		require.NoError(t, json.Unmarshal([]byte(raw), &msg))
		bot, ok := msg.BotRecord()
		require.True(t, ok, raw)
		assert.Equal(t, "x", bot.ID)
	}

	var empty Message
	require.NoError(t, json.Unmarshal([]byte(`{"type":"bot_update","payload":{}}`), &empty))
	_, ok := empty.BotRecord()
	assert.False(t, ok)
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/util"
	"hbinterface/backend/pkg/jwt"
	"hbinterface/backend/pkg/logger"
	"hbinterface/backend/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait         = 10 * time.Second
	wsMaxMessageSize    = 4096
	wsSendBuffer        = 256
	wsCommandTimeout    = 15 * time.Second
	defaultHeartbeat    = 30 * time.Second
	defaultPushInterval = 5 * time.Second
)

// TokenValidator resolves a bearer token to its claims
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

// BotController starts and stops bots on behalf of a user
type BotController interface {
	Start(ctx context.Context, userID, id string) (*model.Bot, error)
	Stop(ctx context.Context, userID, id string) (*model.Bot, error)
}

// OrderPlacer creates orders on behalf of a user
type OrderPlacer interface {
	Create(ctx context.Context, userID string, req *model.CreateOrderRequest) (*model.Order, error)
}

// TickerSource provides the current ticker of a symbol
type TickerSource interface {
	Ticker(ctx context.Context, symbol string) (*model.Ticker, error)
}

// WSHubConfig tunes heartbeat and market fan-out
type WSHubConfig struct {
	HeartbeatInterval time.Duration
	PushInterval      time.Duration
}

// Client represents a connected user over WebSocket
type Client struct {
	Hub    *WSHub
	Conn   *websocket.Conn
	UserID string
	Send   chan []byte

	alive atomic.Bool
	subs  map[string]struct{} // guarded by Hub.mu
}

// WSHub handles WebSocket connections and broadcasting
type WSHub struct {
	clients    map[*Client]bool
	userConns  map[string][]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	redis  *redis.Client
	tokens TokenValidator
	bots   BotController
	orders OrderPlacer
	market TickerSource

	heartbeat    time.Duration
	pushInterval time.Duration
	upgrader     websocket.Upgrader
	log          *logger.Logger
}

// NewWSHub creates a hub. Run must be started before clients connect.
func NewWSHub(redisClient *redis.Client, tokens TokenValidator, bots BotController, orders OrderPlacer, market TickerSource, cfg WSHubConfig, log *logger.Logger) *WSHub {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeat
	}
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = defaultPushInterval
	}

	return &WSHub{
		clients:      make(map[*Client]bool),
		userConns:    make(map[string][]*Client),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		done:         make(chan struct{}),
		redis:        redisClient,
		tokens:       tokens,
		bots:         bots,
		orders:       orders,
		market:       market,
		heartbeat:    cfg.HeartbeatInterval,
		pushInterval: cfg.PushInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // the query token authenticates the socket
			},
		},
		log: log.WithComponent("ws_hub"),
	}
}

// Run owns client registration and the market fan-out until ctx ends
func (h *WSHub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.pushInterval)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.userConns[client.UserID] = append(h.userConns[client.UserID], client)
			h.mu.Unlock()
			h.log.Infof("WS Client registered: UserID=%s", client.UserID)

		case client := <-h.unregister:
			h.remove(client)

		case <-ticker.C:
			h.pushTickers(ctx)

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.userConns = make(map[string][]*Client)
			h.mu.Unlock()
			return
		}
	}
}

func (h *WSHub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)

	conns := h.userConns[client.UserID]
	for i, c := range conns {
		if c == client {
			h.userConns[client.UserID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.userConns[client.UserID]) == 0 {
		delete(h.userConns, client.UserID)
	}
	h.log.Infof("WS Client unregistered: UserID=%s", client.UserID)
}

// ClientCount returns the number of registered connections
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends raw message bytes to all connected clients
func (h *WSHub) Broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.enqueue(data)
	}
}

// SendToUser sends raw message bytes to every connection of a user
func (h *WSHub) SendToUser(userID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.userConns[userID] {
		client.enqueue(data)
	}
}

// StartPubSubListener subscribes to the notification channels and bridges
// them to connected clients. It returns once redis has confirmed the
// subscription; delivery continues in the background until ctx ends.
func (h *WSHub) StartPubSubListener(ctx context.Context) error {
	userPattern := redis.WSUserChannel("*")
	pubsub := h.redis.PSubscribe(ctx, userPattern, redis.ChannelWSBroadcast)

	// one confirmation per pattern
	for i := 0; i < 2; i++ {
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return fmt.Errorf("subscribe to notification channels: %w", err)
		}
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				data := []byte(msg.Payload)
				if !json.Valid(data) {
					h.log.Warnf("Dropping invalid notification on %s", msg.Channel)
					continue
				}
				if msg.Channel == redis.ChannelWSBroadcast {
					h.Broadcast(data)
				} else if userID := strings.TrimPrefix(msg.Channel, redis.ChannelWSUserPrefix); userID != msg.Channel && userID != "" {
					h.SendToUser(userID, data)
				}
			}
		}
	}()

	h.log.Info("Listening for notifications")
	return nil
}

// ServeWS upgrades the request and authenticates it with the ?token= query
// parameter. Unauthenticated sockets are closed with policy violation.
func (h *WSHub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorf("Failed to upgrade websocket: %v", err)
		return
	}

	token := c.Query("token")
	if token == "" {
		closePolicy(conn, "Authentication required")
		return
	}
	claims, err := h.tokens.ValidateToken(c.Request.Context(), token)
	if err != nil {
		closePolicy(conn, "Invalid token")
		return
	}

	client := &Client{
		Hub:    h,
		Conn:   conn,
		UserID: claims.UserID,
		Send:   make(chan []byte, wsSendBuffer),
		subs:   make(map[string]struct{}),
	}
	client.alive.Store(true)

	select {
	case h.register <- client:
	case <-h.done:
		closePolicy(conn, "Server shutting down")
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

func closePolicy(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(wsWriteWait))
	_ = conn.Close()
}

// subscribe adds symbol to the client's market registry
func (h *WSHub) subscribe(c *Client, symbol string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.subs[symbol] = struct{}{}
}

func (h *WSHub) unsubscribe(c *Client, symbol string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(c.subs, symbol)
}

// pushTickers sends the cached ticker of every subscribed symbol to its
// subscribers
func (h *WSHub) pushTickers(ctx context.Context) {
	h.mu.RLock()
	bySymbol := make(map[string][]*Client)
	for client := range h.clients {
		for symbol := range client.subs {
			bySymbol[symbol] = append(bySymbol[symbol], client)
		}
	}
	h.mu.RUnlock()

	for symbol, clients := range bySymbol {
		ticker, err := h.market.Ticker(ctx, symbol)
		if err != nil {
			h.log.Warnf("Ticker push for %s failed: %v", symbol, err)
			continue
		}
		data, err := json.Marshal(model.WSMessage{Type: model.MessageTypeTicker, Channel: model.ChannelMarketData, Payload: ticker})
		if err != nil {
			continue
		}
		h.mu.RLock()
		for _, client := range clients {
			if h.clients[client] {
				client.enqueue(data)
			}
		}
		h.mu.RUnlock()
	}
}

// enqueue drops the message when the client's buffer is full. Callers hold
// Hub.mu so Send is not closed underneath them.
func (c *Client) enqueue(data []byte) {
	select {
	case c.Send <- data:
	default:
		c.Hub.log.Warnf("WS send buffer full for user %s, dropping message", c.UserID)
	}
}

func (c *Client) reply(msg model.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.Hub.log.Errorf("Failed to marshal WS reply: %v", err)
		return
	}
	c.Hub.mu.RLock()
	defer c.Hub.mu.RUnlock()
	if c.Hub.clients[c] {
		c.enqueue(data)
	}
}

func (c *Client) replyError(id, message string) {
	c.reply(model.WSMessage{Type: model.MessageTypeError, ID: id, Message: message})
}

// ReadPump reads and dispatches client frames
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(wsMaxMessageSize)
	c.Conn.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Hub.log.Debugf("WS read error: %v", err)
			}
			break
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	var in model.WSInbound
	if err := json.Unmarshal(data, &in); err != nil || in.Type == "" {
		c.replyError("", "Invalid message format")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), wsCommandTimeout)
	defer cancel()

	switch in.Type {
	case model.MessageTypeSubscribe, model.MessageTypeUnsubscribe:
		c.handleSubscription(ctx, &in)

	case model.MessageTypeOrder:
		var req model.CreateOrderRequest
		if err := json.Unmarshal(in.Body(), &req); err != nil {
			c.replyError(in.ID, "Invalid message format")
			return
		}
		order, err := c.Hub.orders.Create(ctx, c.UserID, &req)
		if err != nil {
			c.replyError(in.ID, errorMessage(err))
			return
		}
		c.reply(model.WSMessage{Type: model.MessageTypeOrderUpdate, ID: in.ID, Payload: order})

	case model.MessageTypeStartBot, model.MessageTypeStopBot:
		var cmd model.WSBotCommand
		if err := json.Unmarshal(in.Body(), &cmd); err != nil || cmd.BotID == "" {
			c.reply(model.WSMessage{Type: model.MessageTypeAck, ID: in.ID, Payload: model.AckPayload{Error: "botId is required"}})
			return
		}
		var bot *model.Bot
		var err error
		if in.Type == model.MessageTypeStartBot {
			bot, err = c.Hub.bots.Start(ctx, c.UserID, cmd.BotID)
		} else {
			bot, err = c.Hub.bots.Stop(ctx, c.UserID, cmd.BotID)
		}
		ack := model.AckPayload{OK: err == nil, Bot: bot}
		if err != nil {
			ack.Error = errorMessage(err)
		}
		c.reply(model.WSMessage{Type: model.MessageTypeAck, ID: in.ID, Payload: ack})

	case model.MessageTypeAuthenticate:
		c.reply(model.WSMessage{Type: model.MessageTypeAuthenticated, ID: in.ID})

	case model.MessageTypePing:
		c.reply(model.WSMessage{Type: model.MessageTypePong, ID: in.ID})

	default:
		c.replyError(in.ID, "Unknown message type")
	}
}

func (c *Client) handleSubscription(ctx context.Context, in *model.WSInbound) {
	if in.Channel != "" && in.Channel != model.ChannelMarketData {
		c.reply(model.WSMessage{Type: model.MessageTypeAck, ID: in.ID, Payload: model.AckPayload{Error: "Unknown channel"}})
		return
	}

	var sub model.WSSubscription
	_ = json.Unmarshal(in.Body(), &sub)
	base, quote, ok := util.SplitSymbol(sub.Symbol)
	if !ok {
		c.reply(model.WSMessage{Type: model.MessageTypeAck, ID: in.ID, Payload: model.AckPayload{Error: "Invalid symbol"}})
		return
	}
	symbol := base + "/" + quote

	if in.Type == model.MessageTypeUnsubscribe {
		c.Hub.unsubscribe(c, symbol)
		c.reply(model.WSMessage{Type: model.MessageTypeAck, ID: in.ID, Channel: model.ChannelMarketData, Payload: model.AckPayload{OK: true}})
		return
	}

	c.Hub.subscribe(c, symbol)
	c.reply(model.WSMessage{Type: model.MessageTypeAck, ID: in.ID, Channel: model.ChannelMarketData, Payload: model.AckPayload{OK: true}})

	// first ticker right away instead of waiting for the next push
	if ticker, err := c.Hub.market.Ticker(ctx, symbol); err == nil {
		c.reply(model.WSMessage{Type: model.MessageTypeTicker, Channel: model.ChannelMarketData, Payload: ticker})
	}
}

// WritePump writes queued messages and runs the heartbeat. A client that has
// not answered the previous ping is terminated.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.Hub.heartbeat)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// one JSON document per frame
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			if !c.alive.Swap(false) {
				c.Hub.log.Infof("WS client %s missed heartbeat, terminating", c.UserID)
				return
			}
			c.Conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func errorMessage(err error) string {
	if appErr := util.GetAppError(err); appErr != nil {
		return appErr.Message
	}
	return "Internal server error"
}

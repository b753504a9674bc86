package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultReconnectDelay = 5 * time.Second
	defaultAckTimeout     = 10 * time.Second
	socketWriteWait       = 10 * time.Second
)

type ackResult struct {
	msg Message
	err error
}

// Socket is the engine WebSocket. It authenticates on every open and
// reconnects after a fixed delay until its context ends or Close is called.
type Socket struct {
	url            string
	apiKey         string
	reconnectDelay time.Duration
	ackTimeout     time.Duration
	dialer         *websocket.Dialer
	log            *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected chan struct{}
	running   bool

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan ackResult

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

// NewSocket creates a socket for cfg.WSURL. Nothing is dialled until Connect.
func NewSocket(cfg Config, log *logger.Logger) *Socket {
	if log == nil {
		log = logger.Nop()
	}
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = defaultReconnectDelay
	}
	ackTimeout := cfg.AckTimeout
	if ackTimeout <= 0 {
		ackTimeout = defaultAckTimeout
	}

	return &Socket{
		url:            cfg.WSURL,
		apiKey:         cfg.APIKey,
		reconnectDelay: delay,
		ackTimeout:     ackTimeout,
		dialer:         websocket.DefaultDialer,
		log:            log.WithComponent("gateway_socket"),
		connected:      make(chan struct{}),
		pending:        make(map[string]chan ackResult),
		closed:         make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Connect starts the connection loop in the background. Every inbound frame
// is decoded and passed to onMessage from the reader goroutine.
func (s *Socket) Connect(ctx context.Context, onMessage func(Message)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.closed:
		return ErrSocketClosed
	default:
	}
	if s.running {
		return errors.New("gateway: socket already connecting")
	}
	s.running = true

	go s.run(ctx, onMessage)
	return nil
}

func (s *Socket) run(parent context.Context, onMessage func(Message)) {
	defer close(s.done)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	go func() {
		select {
		case <-s.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
		if err != nil {
			s.log.Warnf("Dial %s failed: %v", s.url, err)
		} else {
			s.log.Infof("Connected to %s", s.url)
			s.setConn(conn)
			if err := s.Send(Frame{Type: TypeAuthenticate, Data: map[string]string{"apiKey": s.apiKey}}); err != nil {
				s.log.Warnf("Authenticate failed: %v", err)
			}

			stop := make(chan struct{})
			go func() {
				select {
				case <-ctx.Done():
					_ = conn.Close()
				case <-stop:
				}
			}()

			s.readLoop(conn, onMessage)
			close(stop)
			s.clearConn(conn)
			s.failPending(ErrConnectionLost)
			s.log.Infof("Disconnected from %s", s.url)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *Socket) readLoop(conn *websocket.Conn, onMessage func(Message)) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debugf("Read error: %v", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warnf("Dropping malformed frame: %v", err)
			continue
		}

		if msg.Type == TypeAck && msg.ID != "" {
			s.resolve(msg.ID, ackResult{msg: msg})
		}
		if onMessage != nil {
			onMessage(msg)
		}
	}
}

func (s *Socket) setConn(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
	close(s.connected)
}

func (s *Socket) clearConn(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == conn {
		s.conn = nil
		s.connected = make(chan struct{})
	}
	_ = conn.Close()
}

// IsConnected reports whether a connection is currently open
func (s *Socket) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// WaitConnected blocks until a connection is open or ctx ends
func (s *Socket) WaitConnected(ctx context.Context) error {
	s.mu.Lock()
	ch := s.connected
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send writes one frame. It fails with ErrNotConnected while disconnected;
// the frame is dropped, not queued.
func (s *Socket) Send(frame Frame) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
	return conn.WriteJSON(frame)
}

// Command sends a correlated frame and waits for its ack
func (s *Socket) Command(ctx context.Context, frameType string, data interface{}) (Message, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ackTimeout)
		defer cancel()
	}

	id := uuid.NewString()
	ch := make(chan ackResult, 1)
	s.pendingMu.Lock()
	s.pending[id] = ch
	s.pendingMu.Unlock()
	defer s.forget(id)

	if err := s.Send(Frame{Type: frameType, ID: id, Data: data}); err != nil {
		return Message{}, err
	}

	select {
	case res := <-ch:
		return res.msg, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Message{}, ErrAckTimeout
		}
		return Message{}, ctx.Err()
	case <-s.closed:
		return Message{}, ErrSocketClosed
	}
}

// StartBot asks the engine to start a bot and returns the confirmed record,
// which may be nil when the engine sends none.
func (s *Socket) StartBot(ctx context.Context, botID string) (*model.Bot, error) {
	return s.botCommand(ctx, TypeStartBot, botID)
}

// StopBot asks the engine to stop a bot
func (s *Socket) StopBot(ctx context.Context, botID string) (*model.Bot, error) {
	return s.botCommand(ctx, TypeStopBot, botID)
}

func (s *Socket) botCommand(ctx context.Context, frameType, botID string) (*model.Bot, error) {
	msg, err := s.Command(ctx, frameType, map[string]string{"botId": botID})
	if err != nil {
		return nil, err
	}

	ack, err := msg.Ack()
	if err != nil {
		return nil, err
	}
	if !ack.OK {
		reason := ack.Error
		if reason == "" {
			reason = "no reason given"
		}
		return nil, &CommandError{Command: frameType, Reason: reason}
	}
	return ack.Bot, nil
}

// SubscribeMarketData subscribes to ticker pushes for symbol
func (s *Socket) SubscribeMarketData(symbol string) error {
	return s.Send(Frame{Type: TypeSubscribe, Channel: ChannelMarketData, Data: map[string]string{"symbol": symbol}})
}

// UnsubscribeMarketData cancels a market data subscription
func (s *Socket) UnsubscribeMarketData(symbol string) error {
	return s.Send(Frame{Type: TypeUnsubscribe, Channel: ChannelMarketData, Data: map[string]string{"symbol": symbol}})
}

// Close stops reconnecting and closes the open connection
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
	})

	s.mu.Lock()
	running := s.running
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		s.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		_ = conn.Close()
	}
	if running {
		<-s.done
	}
	return nil
}

func (s *Socket) resolve(id string, res ackResult) {
	s.pendingMu.Lock()
	ch, ok := s.pending[id]
	delete(s.pending, id)
	s.pendingMu.Unlock()
	if ok {
		ch <- res
	}
}

func (s *Socket) forget(id string) {
	s.pendingMu.Lock()
	delete(s.pending, id)
	s.pendingMu.Unlock()
}

func (s *Socket) failPending(err error) {
	s.pendingMu.Lock()
	pending := s.pending
	s.pending = make(map[string]chan ackResult)
	s.pendingMu.Unlock()

	for _, ch := range pending {
		ch <- ackResult{err: err}
	}
}

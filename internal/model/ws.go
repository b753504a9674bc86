package model

import "encoding/json"

// WSMessageType represents the type of WebSocket message
type WSMessageType string

const (
	// client -> server
	MessageTypeSubscribe    WSMessageType = "subscribe"
	MessageTypeUnsubscribe  WSMessageType = "unsubscribe"
	MessageTypeOrder        WSMessageType = "order"
	MessageTypeStartBot     WSMessageType = "start_bot"
	MessageTypeStopBot      WSMessageType = "stop_bot"
	MessageTypeAuthenticate WSMessageType = "authenticate"
	MessageTypePing         WSMessageType = "ping"

	// server -> client
	MessageTypeAck           WSMessageType = "ack"
	MessageTypeAuthenticated WSMessageType = "authenticated"
	MessageTypeBotUpdate     WSMessageType = "bot_update"
	MessageTypeOrderUpdate   WSMessageType = "order_update"
	MessageTypeTicker        WSMessageType = "ticker"
	MessageTypeError         WSMessageType = "error"
	MessageTypePong          WSMessageType = "pong"
)

// ChannelMarketData is the only subscribable channel
const ChannelMarketData = "market_data"

// WSMessage is the envelope for server-to-client WebSocket messages
type WSMessage struct {
	Type    WSMessageType `json:"type"`
	ID      string        `json:"id,omitempty"`
	Channel string        `json:"channel,omitempty"`
	Payload interface{}   `json:"payload,omitempty"`
	Message string        `json:"message,omitempty"`
}

// WSInbound is a client-to-server frame
type WSInbound struct {
	Type    WSMessageType   `json:"type"`
	ID      string          `json:"id,omitempty"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Body returns data, falling back to payload
func (m *WSInbound) Body() json.RawMessage {
	if len(m.Data) > 0 {
		return m.Data
	}
	return m.Payload
}

// WSSubscription is the body of subscribe/unsubscribe frames
type WSSubscription struct {
	Symbol string `json:"symbol"`
}

// WSBotCommand is the body of start_bot/stop_bot frames
type WSBotCommand struct {
	BotID string `json:"botId"`
}

// WSAuthenticate is the body of an authenticate frame
type WSAuthenticate struct {
	APIKey string `json:"apiKey,omitempty"`
	Token  string `json:"token,omitempty"`
}

// AckPayload answers a correlated command
type AckPayload struct {
	OK    bool   `json:"ok"`
	Bot   *Bot   `json:"bot,omitempty"`
	Error string `json:"error,omitempty"`
}

// BotUpdatePayload is pushed whenever a bot record changes
type BotUpdatePayload struct {
	Bot *Bot `json:"bot"`
}

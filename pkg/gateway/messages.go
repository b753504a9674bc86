package gateway

import (
	"bytes"
	"encoding/json"

	"hbinterface/backend/internal/model"
)

// Frame types exchanged with the engine socket
const (
	TypeAuthenticate  = "authenticate"
	TypeAuthenticated = "authenticated"
	TypeStartBot      = "start_bot"
	TypeStopBot       = "stop_bot"
	TypeAck           = "ack"
	TypeBotUpdate     = "bot_update"
	TypeSubscribe     = "subscribe"
	TypeUnsubscribe   = "unsubscribe"
	TypeError         = "error"

	ChannelMarketData = "market_data"
)

// Frame is an outbound socket message
type Frame struct {
	Type    string      `json:"type"`
	ID      string      `json:"id,omitempty"`
	Channel string      `json:"channel,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Message is an inbound socket message. Servers differ in where they put the
// body, so both data and payload are kept raw.
type Message struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Bot     json.RawMessage `json:"bot,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Body returns payload, falling back to data
func (m Message) Body() json.RawMessage {
	if !isEmptyJSON(m.Payload) {
		return m.Payload
	}
	return m.Data
}

// Ack decodes the body of an ack frame
func (m Message) Ack() (model.AckPayload, error) {
	var ack model.AckPayload
	body := m.Body()
	if isEmptyJSON(body) {
		return ack, nil
	}
	err := json.Unmarshal(body, &ack)
	return ack, err
}

// BotRecord extracts the bot carried by a bot_update or ack frame. The bot may
// sit at the top level, or under payload.bot or data.bot.
func (m Message) BotRecord() (*model.Bot, bool) {
	if bot, ok := decodeBot(m.Bot); ok {
		return bot, true
	}
	for _, body := range []json.RawMessage{m.Payload, m.Data} {
		if isEmptyJSON(body) {
			continue
		}
		var wrapper struct {
			Bot json.RawMessage `json:"bot"`
		}
		if err := json.Unmarshal(body, &wrapper); err == nil {
			if bot, ok := decodeBot(wrapper.Bot); ok {
				return bot, true
			}
		}
	}
	return nil, false
}

func decodeBot(raw json.RawMessage) (*model.Bot, bool) {
	if isEmptyJSON(raw) {
		return nil, false
	}
	var bot model.Bot
	if err := json.Unmarshal(raw, &bot); err != nil || bot.ID == "" {
		return nil, false
	}
	return &bot, true
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

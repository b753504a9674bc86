// Package console holds the client-side read models of the trading console:
// the bot state store and the polling exchange, order and position views.
package console

import (
	"context"
	"errors"
	"sync"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/pkg/gateway"
	"hbinterface/backend/pkg/logger"
)

// ErrStoreClosed is returned by Dispatch after Close
var ErrStoreClosed = errors.New("console: bot store closed")

// ActionType names a BotStore mutation
type ActionType string

// Bot store actions
const (
	ActionSetBots      ActionType = "SET_BOTS"
	ActionAddBot       ActionType = "ADD_BOT"
	ActionUpdateBot    ActionType = "UPDATE_BOT"
	ActionRemoveBot    ActionType = "REMOVE_BOT"
	ActionSetActiveBot ActionType = "SET_ACTIVE_BOT"
	ActionSetLoading   ActionType = "SET_LOADING"
	ActionSetError     ActionType = "SET_ERROR"
)

// Action is one mutation of BotState. Only the fields its Type reads are used.
type Action struct {
	Type    ActionType
	Bots    []*model.Bot
	Bot     *model.Bot
	BotID   string
	Loading bool
	Error   string
}

// SetBots replaces the whole list
func SetBots(bots []*model.Bot) Action { return Action{Type: ActionSetBots, Bots: bots} }

// AddBot appends one bot
func AddBot(bot *model.Bot) Action { return Action{Type: ActionAddBot, Bot: bot} }

// UpdateBot replaces the bot with the same id. Unknown ids are ignored.
func UpdateBot(bot *model.Bot) Action { return Action{Type: ActionUpdateBot, Bot: bot} }

// RemoveBot drops the bot with id
func RemoveBot(id string) Action { return Action{Type: ActionRemoveBot, BotID: id} }

// SetActiveBot selects a bot; "" clears the selection
func SetActiveBot(id string) Action { return Action{Type: ActionSetActiveBot, BotID: id} }

// SetLoading toggles the loading flag
func SetLoading(loading bool) Action { return Action{Type: ActionSetLoading, Loading: loading} }

// SetError records message; "" clears it
func SetError(message string) Action { return Action{Type: ActionSetError, Error: message} }

// BotState is the console's view of the user's bots
type BotState struct {
	Bots        []*model.Bot `json:"bots"`
	ActiveBotID string       `json:"activeBotId,omitempty"`
	Loading     bool         `json:"loading"`
	Error       string       `json:"error,omitempty"`
}

// Bot returns the bot with id, or nil
func (s BotState) Bot(id string) *model.Bot {
	for _, b := range s.Bots {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (s BotState) clone() BotState {
	out := s
	out.Bots = make([]*model.Bot, len(s.Bots))
	for i, b := range s.Bots {
		out.Bots[i] = b.Clone()
	}
	return out
}

// Reduce applies a to s and returns the new state. s is not modified.
func Reduce(s BotState, a Action) BotState {
	switch a.Type {
	case ActionSetBots:
		s.Bots = make([]*model.Bot, 0, len(a.Bots))
		for _, b := range a.Bots {
			if b != nil {
				s.Bots = append(s.Bots, b.Clone())
			}
		}
	case ActionAddBot:
		if a.Bot == nil {
			return s
		}
		bots := make([]*model.Bot, len(s.Bots), len(s.Bots)+1)
		copy(bots, s.Bots)
		s.Bots = append(bots, a.Bot.Clone())
	case ActionUpdateBot:
		if a.Bot == nil {
			return s
		}
		bots := make([]*model.Bot, len(s.Bots))
		for i, b := range s.Bots {
			if b.ID == a.Bot.ID {
				bots[i] = a.Bot.Clone()
			} else {
				bots[i] = b
			}
		}
		s.Bots = bots
	case ActionRemoveBot:
		bots := make([]*model.Bot, 0, len(s.Bots))
		for _, b := range s.Bots {
			if b.ID != a.BotID {
				bots = append(bots, b)
			}
		}
		s.Bots = bots
	case ActionSetActiveBot:
		s.ActiveBotID = a.BotID
	case ActionSetLoading:
		s.Loading = a.Loading
	case ActionSetError:
		s.Error = a.Error
	}
	return s
}

// BotGateway is the REST side the store loads and creates bots through
type BotGateway interface {
	ListBots(ctx context.Context) ([]*model.Bot, error)
	CreateBot(ctx context.Context, req gateway.CreateBotRequest) (*model.Bot, error)
}

// BotCommander starts and stops bots and reports the confirmed record
type BotCommander interface {
	StartBot(ctx context.Context, botID string) (*model.Bot, error)
	StopBot(ctx context.Context, botID string) (*model.Bot, error)
}

type storeRequest struct {
	action *Action
	reply  chan BotState
}

// BotStore owns BotState on a single goroutine. Every mutation goes through
// Dispatch; readers get deep copies.
type BotStore struct {
	api BotGateway
	cmd BotCommander
	log *logger.Logger

	requests    chan storeRequest
	subscribe   chan chan BotState
	unsubscribe chan chan BotState
	done        chan struct{}
	closeOnce   sync.Once
}

// NewBotStore starts the store goroutine. Close stops it.
func NewBotStore(api BotGateway, cmd BotCommander, log *logger.Logger) *BotStore {
	if log == nil {
		log = logger.Nop()
	}
	s := &BotStore{
		api:         api,
		cmd:         cmd,
		log:         log.WithComponent("bot_store"),
		requests:    make(chan storeRequest),
		subscribe:   make(chan chan BotState),
		unsubscribe: make(chan chan BotState),
		done:        make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *BotStore) loop() {
	var state BotState
	subs := make(map[chan BotState]struct{})

	for {
		select {
		case req := <-s.requests:
			if req.action != nil {
				state = Reduce(state, *req.action)
				for ch := range subs {
					select {
					case ch <- state.clone():
					default:
						// slow subscriber misses this snapshot
					}
				}
			}
			req.reply <- state.clone()

		case ch := <-s.subscribe:
			subs[ch] = struct{}{}
			ch <- state.clone()

		case ch := <-s.unsubscribe:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case <-s.done:
			for ch := range subs {
				close(ch)
			}
			return
		}
	}
}

// Dispatch applies action and returns once it is visible to State
func (s *BotStore) Dispatch(action Action) error {
	_, err := s.send(&action)
	return err
}

// State returns a snapshot of the current state
func (s *BotStore) State() BotState {
	state, err := s.send(nil)
	if err != nil {
		return BotState{}
	}
	return state
}

func (s *BotStore) send(action *Action) (BotState, error) {
	reply := make(chan BotState, 1)
	select {
	case s.requests <- storeRequest{action: action, reply: reply}:
	case <-s.done:
		return BotState{}, ErrStoreClosed
	}
	return <-reply, nil
}

// Subscribe returns a channel receiving the current state and then a
// snapshot after every applied action. The cancel func releases it.
func (s *BotStore) Subscribe() (<-chan BotState, func()) {
	ch := make(chan BotState, 16)
	select {
	case s.subscribe <- ch:
	case <-s.done:
		close(ch)
		return ch, func() {}
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			select {
			case s.unsubscribe <- ch:
			case <-s.done:
			}
		})
	}
}

// Close stops the store goroutine and closes all subscriptions
func (s *BotStore) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// LoadBots replaces the bot list from the gateway
func (s *BotStore) LoadBots(ctx context.Context) error {
	s.begin()
	defer s.Dispatch(SetLoading(false))

	bots, err := s.api.ListBots(ctx)
	if err != nil {
		s.fail(err, "Failed to load bots")
		return err
	}
	return s.Dispatch(SetBots(bots))
}

// CreateBot creates a bot through the gateway and adds it to the list
func (s *BotStore) CreateBot(ctx context.Context, req gateway.CreateBotRequest) (*model.Bot, error) {
	s.begin()
	defer s.Dispatch(SetLoading(false))

	bot, err := s.api.CreateBot(ctx, req)
	if err != nil {
		s.fail(err, "Failed to create bot")
		return nil, err
	}
	if err := s.Dispatch(AddBot(bot)); err != nil {
		return nil, err
	}
	return bot, nil
}

// StartBot asks the engine to start id. The requested status is never
// applied locally; only a bot record confirmed by the ack is.
func (s *BotStore) StartBot(ctx context.Context, id string) error {
	return s.command(ctx, id, s.cmd.StartBot, "Failed to start bot")
}

// StopBot asks the engine to stop id
func (s *BotStore) StopBot(ctx context.Context, id string) error {
	return s.command(ctx, id, s.cmd.StopBot, "Failed to stop bot")
}

func (s *BotStore) command(ctx context.Context, id string, fn func(context.Context, string) (*model.Bot, error), fallback string) error {
	s.begin()
	defer s.Dispatch(SetLoading(false))

	bot, err := fn(ctx, id)
	if err != nil {
		s.fail(err, fallback)
		return err
	}
	if bot != nil && bot.ID == id {
		return s.Dispatch(UpdateBot(bot))
	}
	return nil
}

// HandleMessage applies bot_update pushes from the socket. It is shaped to
// be passed to gateway.Socket.Connect.
func (s *BotStore) HandleMessage(msg gateway.Message) {
	if msg.Type != gateway.TypeBotUpdate {
		return
	}
	bot, ok := msg.BotRecord()
	if !ok {
		s.log.Warn("bot_update without bot record")
		return
	}
	if err := s.Dispatch(UpdateBot(bot)); err != nil {
		s.log.Debugf("Dropping bot_update for %s: %v", bot.ID, err)
	}
}

func (s *BotStore) begin() {
	_ = s.Dispatch(SetLoading(true))
	_ = s.Dispatch(SetError(""))
}

func (s *BotStore) fail(err error, fallback string) {
	msg := err.Error()
	if msg == "" {
		msg = fallback
	}
	_ = s.Dispatch(SetError(msg))
}

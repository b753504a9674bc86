package service

import (
	"context"
	"time"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/pkg/gateway"
	"hbinterface/backend/pkg/logger"
)

const engineUpdateTimeout = 5 * time.Second

// BotUpdateSink receives bot pushes from the engine
type BotUpdateSink interface {
	ApplyEngineUpdate(ctx context.Context, update *model.BotUpdate) (*model.Bot, error)
}

// EngineBridge connects the server to the trading engine socket. It forwards
// start/stop commands and feeds engine bot_update pushes back into the store.
type EngineBridge struct {
	socket *gateway.Socket
	sink   BotUpdateSink
	log    *logger.Logger
}

// NewEngineBridge wraps socket; pushes go to sink
func NewEngineBridge(socket *gateway.Socket, sink BotUpdateSink, log *logger.Logger) *EngineBridge {
	if log == nil {
		log = logger.GetLogger()
	}
	return &EngineBridge{
		socket: socket,
		sink:   sink,
		log:    log.WithComponent("engine_bridge"),
	}
}

// Start connects the socket. It returns immediately; the socket keeps
// reconnecting in the background until ctx ends or Close is called.
func (b *EngineBridge) Start(ctx context.Context) error {
	return b.socket.Connect(ctx, b.handle)
}

// StartBot implements BotEngine
func (b *EngineBridge) StartBot(ctx context.Context, botID string) (*model.Bot, error) {
	return b.socket.StartBot(ctx, botID)
}

// StopBot implements BotEngine
func (b *EngineBridge) StopBot(ctx context.Context, botID string) (*model.Bot, error) {
	return b.socket.StopBot(ctx, botID)
}

// Close shuts the socket down
func (b *EngineBridge) Close() error {
	return b.socket.Close()
}

func (b *EngineBridge) handle(msg gateway.Message) {
	switch msg.Type {
	case gateway.TypeBotUpdate:
		bot, ok := msg.BotRecord()
		if !ok {
			b.log.Warn("bot_update without bot record")
			return
		}
		update := &model.BotUpdate{
			ID:          bot.ID,
			Status:      bot.Status,
			Performance: bot.Performance,
			RiskMetrics: bot.RiskMetrics,
		}
		if !bot.UpdatedAt.IsZero() {
			ts := bot.UpdatedAt
			update.UpdatedAt = &ts
		}

		ctx, cancel := context.WithTimeout(context.Background(), engineUpdateTimeout)
		defer cancel()
		if _, err := b.sink.ApplyEngineUpdate(ctx, update); err != nil {
			b.log.Errorf("Failed to apply engine update for bot %s: %v", bot.ID, err)
		}
	case gateway.TypeError:
		b.log.Warnf("Engine error: %s", msg.Message)
	case gateway.TypeAuthenticated:
		b.log.Info("Authenticated with trading engine")
	}
}

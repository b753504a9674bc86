package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/util"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBotCreateStartsStopped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bot, err := f.bots.Create(ctx, "u1", marketMakingRequest())
	require.NoError(t, err)
	assert.Equal(t, model.BotStatusStopped, bot.Status)
	assert.Equal(t, model.StrategyMarketMaking, bot.Strategy)

	params, err := bot.Params()
	require.NoError(t, err)
	mm := params.(model.MarketMakingParams)
	assert.True(t, mm.BidSpread.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, 10, mm.OrderInterval)

	bots, err := f.bots.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, bots, 1)

	others, err := f.bots.List(ctx, "u2")
	require.NoError(t, err)
	assert.NotNil(t, others)
	assert.Empty(t, others)
}

func TestBotCreateRejectsGridBounds(t *testing.T) {
	f := newFixture(t)

	req := &model.BotRequest{
		Name:        "Grid",
		Strategy:    string(model.StrategyGridTrading),
		Exchange:    "binance",
		BaseAsset:   "ETH",
		QuoteAsset:  "USDT",
		UpperPrice:  "100",
		LowerPrice:  "150",
		GridLevels:  "10",
		GridSpacing: "1",
		OrderSize:   "0.1",
	}
	_, err := f.bots.Create(context.Background(), "u1", req)
	require.Error(t, err)

	appErr := util.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	assert.Equal(t, util.ErrCodeValidation, appErr.Code)
	details := appErr.Details.(map[string]string)
	assert.Equal(t, "Lower price must be less than upper price", details["lowerPrice"])
}

func TestBotNotFoundForOtherUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bot, err := f.bots.Create(ctx, "u1", marketMakingRequest())
	require.NoError(t, err)

	_, err = f.bots.Get(ctx, "u2", bot.ID)
	appErr := util.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode)
	assert.Equal(t, util.ErrCodeBotNotFound, appErr.Code)
	assert.Equal(t, "Bot not found", appErr.Message)

	assert.True(t, util.HasCode(f.bots.Delete(ctx, "u2", bot.ID), util.ErrCodeBotNotFound))
	_, err = f.bots.Start(ctx, "u2", bot.ID)
	assert.True(t, util.HasCode(err, util.ErrCodeBotNotFound))
}

func TestBotStartStopWithoutEngine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bot, err := f.bots.Create(ctx, "u1", marketMakingRequest())
	require.NoError(t, err)

	started, err := f.bots.Start(ctx, "u1", bot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BotStatusRunning, started.Status)

	stopped, err := f.bots.Stop(ctx, "u1", bot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BotStatusStopped, stopped.Status)

	updates := f.notifier.botUpdates()
	require.Len(t, updates, 2)
	assert.Equal(t, model.BotStatusRunning, updates[0].Status)
	assert.Equal(t, model.BotStatusStopped, updates[1].Status)
}

func TestBotStartEngineFailureKeepsStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bot, err := f.bots.Create(ctx, "u1", marketMakingRequest())
	require.NoError(t, err)

	engine := &mockEngine{}
	engine.On("StartBot", mock.Anything, bot.ID).Return(nil, errors.New("exchange unreachable"))
	f.bots.SetEngine(engine)

	_, err = f.bots.Start(ctx, "u1", bot.ID)
	appErr := util.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusBadGateway, appErr.StatusCode)
	assert.Equal(t, util.ErrCodeEngine, appErr.Code)

	got, err := f.bots.Get(ctx, "u1", bot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BotStatusStopped, got.Status)
	assert.Empty(t, f.notifier.botUpdates())
	engine.AssertExpectations(t)
}

func TestBotStartThroughEngine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bot, err := f.bots.Create(ctx, "u1", marketMakingRequest())
	require.NoError(t, err)

	engine := &mockEngine{}
	engine.On("StartBot", mock.Anything, bot.ID).Return(&model.Bot{ID: bot.ID, Status: model.BotStatusRunning}, nil)
	f.bots.SetEngine(engine)

	started, err := f.bots.Start(ctx, "u1", bot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BotStatusRunning, started.Status)
	engine.AssertNumberOfCalls(t, "StartBot", 1)
}

func TestBotUpdateMergesAndRevalidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bot, err := f.bots.Create(ctx, "u1", marketMakingRequest())
	require.NoError(t, err)

	updated, err := f.bots.Update(ctx, "u1", bot.ID, &model.BotRequest{Name: "Renamed", BidSpread: "1.5"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	params, err := updated.Params()
	require.NoError(t, err)
	mm := params.(model.MarketMakingParams)
	assert.True(t, mm.BidSpread.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, mm.AskSpread.Equal(decimal.RequireFromString("0.5")))

	_, err = f.bots.Update(ctx, "u1", bot.ID, &model.BotRequest{AskSpread: "7"})
	appErr := util.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "Spread should not exceed 5%", appErr.Details.(map[string]string)["askSpread"])

	got, err := f.bots.Get(ctx, "u1", bot.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
}

func TestApplyEngineUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bot, err := f.bots.Create(ctx, "u1", marketMakingRequest())
	require.NoError(t, err)

	got, err := f.bots.ApplyEngineUpdate(ctx, &model.BotUpdate{
		ID:          bot.ID,
		Status:      model.BotStatusRunning,
		Performance: &model.Performance{TotalTrades: 7},
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.BotStatusRunning, got.Status)
	require.Len(t, f.notifier.botUpdates(), 1)

	old := time.Now().Add(-time.Hour)
	got, err = f.bots.ApplyEngineUpdate(ctx, &model.BotUpdate{ID: bot.ID, Status: model.BotStatusStopped, UpdatedAt: &old})
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = f.bots.ApplyEngineUpdate(ctx, &model.BotUpdate{ID: "unknown", Status: model.BotStatusStopped})
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = f.bots.ApplyEngineUpdate(ctx, &model.BotUpdate{ID: bot.ID, Status: "exploded"})
	assert.True(t, util.HasCode(err, util.ErrCodeValidation))

	assert.Len(t, f.notifier.botUpdates(), 1)

	summary, err := f.bots.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Running)
	assert.Equal(t, 7, summary.TotalTrades)
}

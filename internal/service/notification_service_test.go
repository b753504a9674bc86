package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/pkg/logger"
	"hbinterface/backend/pkg/redis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyBotUpdatePublishesToUserChannel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	pubsub := f.redis.Subscribe(ctx, redis.WSUserChannel("u1"))
	defer pubsub.Close()
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	svc := NewNotificationService(f.redis, logger.Nop())
	svc.NotifyBotUpdate(ctx, "u1", &model.Bot{ID: "b1", Name: "Test Bot", Status: model.BotStatusRunning})

	msg, err := pubsub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var got struct {
		Type    string `json:"type"`
		Payload struct {
			Bot model.Bot `json:"bot"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, string(model.MessageTypeBotUpdate), got.Type)
	assert.Equal(t, "b1", got.Payload.Bot.ID)
	assert.Equal(t, model.BotStatusRunning, got.Payload.Bot.Status)
}

func TestBroadcastPublishesToBroadcastChannel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	pubsub := f.redis.Subscribe(ctx, redis.ChannelWSBroadcast)
	defer pubsub.Close()
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	svc := NewNotificationService(f.redis, logger.Nop())
	svc.Broadcast(ctx, model.MessageTypeTicker, map[string]string{"symbol": "BTC/USDT"})

	msg, err := pubsub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ticker","payload":{"symbol":"BTC/USDT"}}`, msg.Payload)
}

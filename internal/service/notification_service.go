package service

import (
	"context"
	"encoding/json"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/pkg/logger"
	"hbinterface/backend/pkg/redis"
)

// Notifier delivers domain events to a user's WebSocket connections
type Notifier interface {
	NotifyBotUpdate(ctx context.Context, userID string, bot *model.Bot)
	NotifyOrderUpdate(ctx context.Context, userID string, order *model.Order)
}

// NotificationService handles publishing events to Redis for WebSocket broadcasting
type NotificationService struct {
	redis *redis.Client
	log   *logger.Logger
}

// NewNotificationService creates a notification service publishing on redis
func NewNotificationService(redis *redis.Client, log *logger.Logger) *NotificationService {
	if log == nil {
		log = logger.GetLogger()
	}
	return &NotificationService{
		redis: redis,
		log:   log.WithComponent("notification"),
	}
}

// NotifyUser sends a message to a specific user via WebSocket
func (s *NotificationService) NotifyUser(ctx context.Context, userID string, msgType model.WSMessageType, payload interface{}) {
	s.publish(ctx, redis.WSUserChannel(userID), model.WSMessage{Type: msgType, Payload: payload})
}

// Broadcast sends a message to all connected users
func (s *NotificationService) Broadcast(ctx context.Context, msgType model.WSMessageType, payload interface{}) {
	s.publish(ctx, redis.ChannelWSBroadcast, model.WSMessage{Type: msgType, Payload: payload})
}

// NotifyBotUpdate pushes the full bot record to its owner
func (s *NotificationService) NotifyBotUpdate(ctx context.Context, userID string, bot *model.Bot) {
	s.NotifyUser(ctx, userID, model.MessageTypeBotUpdate, model.BotUpdatePayload{Bot: bot})
}

// NotifyOrderUpdate sends an order update notification to a user
func (s *NotificationService) NotifyOrderUpdate(ctx context.Context, userID string, order *model.Order) {
	s.NotifyUser(ctx, userID, model.MessageTypeOrderUpdate, order)
}

func (s *NotificationService) publish(ctx context.Context, channel string, msg model.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Errorf("Failed to marshal %s notification: %v", msg.Type, err)
		return
	}

	if err := s.redis.Publish(ctx, channel, data); err != nil {
		s.log.Errorf("Failed to publish notification to channel %s: %v", channel, err)
	}
}

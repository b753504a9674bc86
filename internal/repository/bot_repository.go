// Package repository provides data access for the application on top of the
// relational store and Redis.
package repository

import (
	"context"
	"errors"
	"time"

	"hbinterface/backend/internal/model"

	"gorm.io/gorm"
)

// BotRepository handles bot persistence
type BotRepository struct {
	db *gorm.DB
}

// NewBotRepository creates a new bot repository
func NewBotRepository(db *gorm.DB) *BotRepository {
	return &BotRepository{db: db}
}

// Create inserts a new bot
func (r *BotRepository) Create(ctx context.Context, bot *model.Bot) error {
	return r.db.WithContext(ctx).Create(bot).Error
}

// GetByID loads a bot owned by userID
func (r *BotRepository) GetByID(ctx context.Context, userID, id string) (*model.Bot, error) {
	var bot model.Bot
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&bot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBotNotFound
		}
		return nil, err
	}
	return &bot, nil
}

// ListByUser returns the user's bots, oldest first
func (r *BotRepository) ListByUser(ctx context.Context, userID string) ([]*model.Bot, error) {
	var bots []*model.Bot
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&bots).Error
	if err != nil {
		return nil, err
	}
	return bots, nil
}

// Update saves every column of bot
func (r *BotRepository) Update(ctx context.Context, bot *model.Bot) error {
	res := r.db.WithContext(ctx).
		Model(&model.Bot{}).
		Where("id = ? AND user_id = ?", bot.ID, bot.UserID).
		Select("name", "strategy", "exchange", "base_asset", "quote_asset", "config", "updated_at").
		Updates(bot)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBotNotFound
	}
	return nil
}

// UpdateStatus sets the status of a bot owned by userID
func (r *BotRepository) UpdateStatus(ctx context.Context, userID, id string, status model.BotStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.Bot{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBotNotFound
	}
	return nil
}

// ApplyEngineUpdate records an engine-reported status and snapshots. Updates
// stamped before the stored record fail with ErrStaleUpdate.
func (r *BotRepository) ApplyEngineUpdate(ctx context.Context, update *model.BotUpdate) (*model.Bot, error) {
	var bot model.Bot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&bot, "id = ?", update.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBotNotFound
			}
			return err
		}
		if update.UpdatedAt != nil && update.UpdatedAt.Before(bot.UpdatedAt) {
			return ErrStaleUpdate
		}

		if update.Status != "" {
			bot.Status = update.Status
		}
		if update.Performance != nil {
			bot.Performance = update.Performance
		}
		if update.RiskMetrics != nil {
			bot.RiskMetrics = update.RiskMetrics
		}
		bot.UpdatedAt = time.Now().UTC()

		return tx.Model(&bot).
			Select("status", "performance", "risk_metrics", "updated_at").
			Updates(&bot).Error
	})
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

// Delete removes a bot owned by userID
func (r *BotRepository) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Bot{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBotNotFound
	}
	return nil
}

// CountByStatus returns how many of the user's bots are in each status
func (r *BotRepository) CountByStatus(ctx context.Context, userID string) (map[model.BotStatus]int64, error) {
	var rows []struct {
		Status model.BotStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Bot{}).
		Select("status, count(*) as count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[model.BotStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

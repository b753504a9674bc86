package repository

import (
	"context"
	"errors"

	"hbinterface/backend/internal/model"

	"gorm.io/gorm"
)

// APIKeyRepository handles exchange credential persistence
type APIKeyRepository struct {
	db *gorm.DB
}

// NewAPIKeyRepository creates a new API key repository
func NewAPIKeyRepository(db *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Create stores a key. (userId, exchange, label) must be unique.
func (r *APIKeyRepository) Create(ctx context.Context, key *model.APIKey) error {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.APIKey{}).
		Where("user_id = ? AND exchange = ? AND label = ?", key.UserID, key.Exchange, key.Label).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrAPIKeyExists
	}

	if err := r.db.WithContext(ctx).Create(key).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAPIKeyExists
		}
		return err
	}
	return nil
}

// ListByUser returns the user's keys ordered by exchange and label
func (r *APIKeyRepository) ListByUser(ctx context.Context, userID string) ([]*model.APIKey, error) {
	var keys []*model.APIKey
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("exchange ASC, label ASC").
		Find(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Delete removes the key identified by exchange and label
func (r *APIKeyRepository) Delete(ctx context.Context, userID, exchange, label string) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND exchange = ? AND label = ?", userID, exchange, label).
		Delete(&model.APIKey{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

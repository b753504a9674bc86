package repository

import (
	"context"
	"errors"
	"time"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/pkg/redis"

	"gorm.io/gorm"
)

// UserRepository handles user data operations. Users live in the relational
// store, revoked tokens in Redis.
type UserRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB, redisClient *redis.Client) *UserRepository {
	return &UserRepository{
		db:    db,
		redis: redisClient,
	}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailExists
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// Save inserts or updates a user
func (r *UserRepository) Save(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// GetByID gets a user by ID
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail gets a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// List returns all users, oldest first
func (r *UserRepository) List(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Delete removes a user
func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	res := r.db.WithContext(ctx).Delete(&model.User{}, "id = ?", userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// BlacklistToken adds a token id to the blacklist until it would have expired
func (r *UserRepository) BlacklistToken(ctx context.Context, tokenID string, expiration time.Duration) error {
	if expiration <= 0 {
		return nil
	}
	return r.redis.Set(ctx, redis.TokenBlacklistKey(tokenID), "blacklisted", expiration)
}

// IsTokenBlacklisted checks if a token id is blacklisted
func (r *UserRepository) IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	return r.redis.Exists(ctx, redis.TokenBlacklistKey(tokenID))
}

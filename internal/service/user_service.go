package service

import (
	"context"
	"errors"
	"time"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/repository"
	"hbinterface/backend/internal/util"
	"hbinterface/backend/pkg/crypto"
	"hbinterface/backend/pkg/logger"
)

// UserService handles account management outside login and registration
type UserService struct {
	userRepo *repository.UserRepository
	log      *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo *repository.UserRepository, log *logger.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		log:      log.WithComponent("user_service"),
	}
}

// ChangePassword changes the current user's password
func (s *UserService) ChangePassword(ctx context.Context, userID string, req *model.ChangePasswordRequest) error {
	user, err := s.get(ctx, userID)
	if err != nil {
		return err
	}

	if !crypto.CheckPassword(req.OldPassword, user.PasswordHash) {
		return util.ErrBadRequest("Invalid old password")
	}
	return s.setPassword(ctx, user, req.NewPassword)
}

// ListUsers lists all users (admin only)
func (s *UserService) ListUsers(ctx context.Context) ([]*model.SafeUser, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		s.log.Error("Failed to list users", err)
		return nil, util.ErrInternalServer("Failed to list users")
	}

	safeUsers := make([]*model.SafeUser, len(users))
	for i, user := range users {
		safeUsers[i] = user.ToSafeUser()
	}
	return safeUsers, nil
}

// GetUser gets a user by ID (admin only)
func (s *UserService) GetUser(ctx context.Context, userID string) (*model.SafeUser, error) {
	user, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.ToSafeUser(), nil
}

// UpdateRole changes a user's role (admin only). An admin cannot demote
// themselves.
func (s *UserService) UpdateRole(ctx context.Context, actorID, userID, role string) (*model.SafeUser, error) {
	if actorID == userID && role != model.RoleAdmin {
		return nil, util.ErrBadRequest("Cannot remove your own admin role")
	}

	user, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Role = role
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Save(ctx, user); err != nil {
		s.log.Error("Failed to update user", err)
		return nil, util.ErrInternalServer("Failed to update user")
	}
	return user.ToSafeUser(), nil
}

// DeleteUser deletes a user (admin only)
func (s *UserService) DeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return util.ErrBadRequest("Cannot delete your own account")
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return util.ErrNotFound("User not found")
		}
		s.log.Error("Failed to delete user", err)
		return util.ErrInternalServer("Failed to delete user")
	}
	return nil
}

// ResetPassword resets a user's password (admin only)
func (s *UserService) ResetPassword(ctx context.Context, userID, newPassword string) error {
	user, err := s.get(ctx, userID)
	if err != nil {
		return err
	}
	return s.setPassword(ctx, user, newPassword)
}

func (s *UserService) get(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, util.ErrNotFound("User not found")
		}
		return nil, util.ErrInternalServer("Failed to load user")
	}
	return user, nil
}

func (s *UserService) setPassword(ctx context.Context, user *model.User, password string) error {
	if !crypto.ValidatePasswordStrength(password) {
		return util.ErrValidation("Password must be 8-72 characters")
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return util.ErrInternalServer("Failed to hash password")
	}

	user.PasswordHash = hash
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Save(ctx, user); err != nil {
		s.log.Error("Failed to update password", err)
		return util.ErrInternalServer("Failed to update password")
	}
	return nil
}

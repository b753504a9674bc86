package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/repository"
	"hbinterface/backend/internal/util"
	"hbinterface/backend/pkg/crypto"
	"hbinterface/backend/pkg/jwt"
	"hbinterface/backend/pkg/logger"

	"github.com/google/uuid"
)

// AuthService handles authentication logic
type AuthService struct {
	userRepo   *repository.UserRepository
	jwtManager *jwt.JWTManager
	log        *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, jwtManager *jwt.JWTManager, log *logger.Logger) *AuthService {
	if log == nil {
		log = logger.GetLogger()
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		log:        log.WithComponent("auth"),
	}
}

// Register creates a user and returns a token for it
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	if !crypto.ValidatePasswordStrength(req.Password) {
		return nil, util.ErrValidation("Password must be 8-72 characters")
	}

	passwordHash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return nil, util.ErrInternalServer("Failed to hash password")
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(req.Email),
		PasswordHash: passwordHash,
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, util.ErrBadRequest("User already exists")
		}
		return nil, util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to create user", err)
	}

	s.log.Infof("User registered: %s", user.ID)
	return s.issue(user)
}

// Login authenticates a user and returns a token
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			s.log.Error("User lookup failed", err)
		}
		return nil, invalidCredentials()
	}

	if !crypto.CheckPassword(req.Password, user.PasswordHash) {
		return nil, invalidCredentials()
	}

	return s.issue(user)
}

// Logout revokes the token described by claims until it would have expired
func (s *AuthService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}

	if err := s.userRepo.BlacklistToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		return util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to revoke token", err)
	}
	return nil
}

// ValidateToken checks the signature, expiry and revocation of a token
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, util.NewAppError(http.StatusUnauthorized, util.ErrCodeTokenInvalid, "Invalid token")
	}

	if claims.ID != "" {
		revoked, err := s.userRepo.IsTokenBlacklisted(ctx, claims.ID)
		if err != nil {
			return nil, util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to check token status", err)
		}
		if revoked {
			return nil, util.NewAppError(http.StatusUnauthorized, util.ErrCodeTokenInvalid, "Token has been revoked")
		}
	}

	return claims, nil
}

// Me returns the profile of the authenticated user
func (s *AuthService) Me(ctx context.Context, userID string) (*model.SafeUser, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, util.ErrNotFound("User not found")
		}
		return nil, err
	}
	return user.ToSafeUser(), nil
}

// EnsureAdmin creates the admin account, or resets its password and role
// when the email is already registered.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (*model.User, error) {
	if !crypto.ValidatePasswordStrength(password) {
		return nil, util.ErrValidation("Password must be 8-72 characters")
	}
	passwordHash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	now := time.Now().UTC()

	user, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		user = &model.User{
			ID:        uuid.New().String(),
			Email:     email,
			CreatedAt: now,
		}
	case err != nil:
		return nil, err
	}

	user.PasswordHash = passwordHash
	user.Role = model.RoleAdmin
	user.UpdatedAt = now

	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*model.AuthResponse, error) {
	token, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to generate token", err)
	}
	return &model.AuthResponse{Token: token}, nil
}

func invalidCredentials() error {
	return util.NewAppError(http.StatusUnauthorized, util.ErrCodeInvalidCredentials, "Invalid credentials")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

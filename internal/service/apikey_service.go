package service

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/repository"
	"hbinterface/backend/internal/util"
	"hbinterface/backend/pkg/crypto"
	"hbinterface/backend/pkg/logger"

	"github.com/google/uuid"
)

const defaultKeyLabel = "default"

var credentialPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]{16,256}$`)

// KeyValidator asks the trading engine whether a credential pair is accepted
type KeyValidator interface {
	ValidateAPIKey(ctx context.Context, key model.ExchangeAPIKey) (bool, error)
}

// APIKeyService handles exchange API key operations
type APIKeyService struct {
	apiKeyRepo    *repository.APIKeyRepository
	validator     KeyValidator
	encryptionKey string
	log           *logger.Logger
}

// NewAPIKeyService creates a new API key service. validator may be nil, in
// which case only the credential format is checked.
func NewAPIKeyService(apiKeyRepo *repository.APIKeyRepository, validator KeyValidator, encryptionKey string, log *logger.Logger) *APIKeyService {
	if log == nil {
		log = logger.GetLogger()
	}
	return &APIKeyService{
		apiKeyRepo:    apiKeyRepo,
		validator:     validator,
		encryptionKey: encryptionKey,
		log:           log.WithComponent("apikey"),
	}
}

// Create encrypts and stores a new credential
func (s *APIKeyService) Create(ctx context.Context, userID string, req *model.APIKeyRequest) (*model.APIKeyResponse, error) {
	// copy-paste often carries whitespace
	key := strings.TrimSpace(req.APIKey)
	secret := strings.TrimSpace(req.SecretKey)
	exchange := strings.ToLower(strings.TrimSpace(req.Exchange))
	label := strings.TrimSpace(req.Label)
	if label == "" {
		label = defaultKeyLabel
	}

	if key == "" {
		return nil, util.ErrValidation("API key cannot be empty")
	}
	if secret == "" {
		return nil, util.ErrValidation("API secret cannot be empty")
	}

	encryptedSecret, err := crypto.Encrypt(secret, s.encryptionKey)
	if err != nil {
		return nil, util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to encrypt API secret", err)
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	apiKey := &model.APIKey{
		ID:              uuid.New().String(),
		UserID:          userID,
		Exchange:        exchange,
		Label:           label,
		APIKey:          key,
		EncryptedSecret: encryptedSecret,
		IsActive:        active,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.apiKeyRepo.Create(ctx, apiKey); err != nil {
		if errors.Is(err, repository.ErrAPIKeyExists) {
			return nil, util.ErrConflict("API key with this label already exists for " + exchange)
		}
		return nil, util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to save API key", err)
	}

	s.log.Infof("API key %s/%s stored for user %s", exchange, label, userID)
	return s.toResponse(apiKey), nil
}

// List returns the user's keys with masked secrets
func (s *APIKeyService) List(ctx context.Context, userID string) ([]*model.APIKeyResponse, error) {
	keys, err := s.apiKeyRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to list API keys", err)
	}

	out := make([]*model.APIKeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.toResponse(k))
	}
	return out, nil
}

// Delete removes the key identified by exchange and label
func (s *APIKeyService) Delete(ctx context.Context, userID, exchange, label string) error {
	err := s.apiKeyRepo.Delete(ctx, userID, strings.ToLower(exchange), label)
	if err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			return util.ErrNotFound("API key not found")
		}
		return util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to delete API key", err)
	}
	return nil
}

// Validate checks a credential pair with the engine, or by format when no
// engine is configured
func (s *APIKeyService) Validate(ctx context.Context, req *model.APIKeyValidateRequest) (bool, error) {
	key := strings.TrimSpace(req.APIKey)
	secret := strings.TrimSpace(req.SecretKey)

	if s.validator == nil {
		return credentialPattern.MatchString(key) && credentialPattern.MatchString(secret), nil
	}

	valid, err := s.validator.ValidateAPIKey(ctx, model.ExchangeAPIKey{
		Exchange:  strings.ToLower(strings.TrimSpace(req.Exchange)),
		APIKey:    key,
		SecretKey: secret,
	})
	if err != nil {
		s.log.Warnf("API key validation failed for %s: %v", req.Exchange, err)
		return false, util.ErrBadGateway("Failed to validate API key", err)
	}
	return valid, nil
}

func (s *APIKeyService) toResponse(k *model.APIKey) *model.APIKeyResponse {
	masked := "********"
	if secret, err := crypto.Decrypt(k.EncryptedSecret, s.encryptionKey); err == nil {
		masked = crypto.MaskSecret(secret)
	} else {
		s.log.Warnf("Failed to decrypt secret of API key %s: %v", k.ID, err)
	}

	return &model.APIKeyResponse{
		ID:        k.ID,
		Exchange:  k.Exchange,
		Label:     k.Label,
		APIKey:    k.APIKey,
		SecretKey: masked,
		IsActive:  k.IsActive,
		CreatedAt: k.CreatedAt,
	}
}

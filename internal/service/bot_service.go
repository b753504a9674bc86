package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/repository"
	"hbinterface/backend/internal/util"
	"hbinterface/backend/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BotEngine forwards lifecycle commands to the trading engine. The returned
// bot is the engine-confirmed record and may be nil.
type BotEngine interface {
	StartBot(ctx context.Context, botID string) (*model.Bot, error)
	StopBot(ctx context.Context, botID string) (*model.Bot, error)
}

// BotService manages bot configurations and their lifecycle
type BotService struct {
	repo     *repository.BotRepository
	notifier Notifier
	log      *logger.Logger

	mu     sync.RWMutex
	engine BotEngine
}

// NewBotService creates a bot service. Without an engine, start and stop only
// change the stored status.
func NewBotService(repo *repository.BotRepository, notifier Notifier, log *logger.Logger) *BotService {
	if log == nil {
		log = logger.GetLogger()
	}
	return &BotService{
		repo:     repo,
		notifier: notifier,
		log:      log.WithComponent("bot_service"),
	}
}

// SetEngine attaches the engine bridge (set after construction since the
// bridge reports updates back into this service)
func (s *BotService) SetEngine(engine BotEngine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = engine
}

func (s *BotService) currentEngine() BotEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Create validates the request and stores a new stopped bot
func (s *BotService) Create(ctx context.Context, userID string, req *model.BotRequest) (*model.Bot, error) {
	req.Normalize()
	params, fieldErrs := req.Validate()
	if !fieldErrs.Empty() {
		return nil, util.ErrValidationFields(fieldErrs)
	}

	config, err := json.Marshal(params)
	if err != nil {
		return nil, util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to encode bot config", err)
	}

	now := time.Now().UTC()
	bot := &model.Bot{
		ID:         uuid.New().String(),
		UserID:     userID,
		Name:       req.Name,
		Strategy:   params.Strategy(),
		Exchange:   req.Exchange,
		BaseAsset:  req.BaseAsset,
		QuoteAsset: req.QuoteAsset,
		Config:     datatypes.JSON(config),
		Status:     model.BotStatusStopped,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, bot); err != nil {
		return nil, util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to create bot", err)
	}

	s.log.Infof("Bot %s created for user %s (%s)", bot.ID, userID, bot.Strategy)
	return bot, nil
}

// List returns the user's bots
func (s *BotService) List(ctx context.Context, userID string) ([]*model.Bot, error) {
	bots, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to list bots", err)
	}
	if bots == nil {
		bots = []*model.Bot{}
	}
	return bots, nil
}

// Get returns one of the user's bots
func (s *BotService) Get(ctx context.Context, userID, id string) (*model.Bot, error) {
	bot, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, botError(err, "Failed to get bot")
	}
	return bot, nil
}

// Update merges patch over the stored configuration and re-validates the
// result as a whole. Status is not changed here.
func (s *BotService) Update(ctx context.Context, userID, id string, patch *model.BotRequest) (*model.Bot, error) {
	bot, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	merged, err := model.RequestFromBot(bot)
	if err != nil {
		return nil, util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Stored bot config is unreadable", err)
	}
	patch.Normalize()
	merged.Merge(patch)

	params, fieldErrs := merged.Validate()
	if !fieldErrs.Empty() {
		return nil, util.ErrValidationFields(fieldErrs)
	}

	config, err := json.Marshal(params)
	if err != nil {
		return nil, util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to encode bot config", err)
	}

	bot.Name = merged.Name
	bot.Strategy = params.Strategy()
	bot.Exchange = merged.Exchange
	bot.BaseAsset = merged.BaseAsset
	bot.QuoteAsset = merged.QuoteAsset
	bot.Config = datatypes.JSON(config)
	bot.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, bot); err != nil {
		return nil, botError(err, "Failed to update bot")
	}
	return bot, nil
}

// Delete removes one of the user's bots
func (s *BotService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return botError(err, "Failed to delete bot")
	}
	s.log.Infof("Bot %s deleted", id)
	return nil
}

// Start marks a bot running, after the engine confirms when one is attached
func (s *BotService) Start(ctx context.Context, userID, id string) (*model.Bot, error) {
	return s.transition(ctx, userID, id, model.BotStatusRunning)
}

// Stop marks a bot stopped, after the engine confirms when one is attached
func (s *BotService) Stop(ctx context.Context, userID, id string) (*model.Bot, error) {
	return s.transition(ctx, userID, id, model.BotStatusStopped)
}

func (s *BotService) transition(ctx context.Context, userID, id string, status model.BotStatus) (*model.Bot, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}

	if engine := s.currentEngine(); engine != nil {
		var err error
		if status == model.BotStatusRunning {
			_, err = engine.StartBot(ctx, id)
		} else {
			_, err = engine.StopBot(ctx, id)
		}
		if err != nil {
			s.log.Warnf("Engine refused %s for bot %s: %v", status, id, err)
			appErr := util.ErrBadGateway("Trading engine error", err)
			appErr.Details = map[string]string{"reason": err.Error()}
			return nil, appErr
		}
	}

	if err := s.repo.UpdateStatus(ctx, userID, id, status); err != nil {
		return nil, botError(err, "Failed to update bot status")
	}

	bot, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyBotUpdate(ctx, userID, bot)
	s.log.Infof("Bot %s is now %s", id, status)
	return bot, nil
}

// ApplyEngineUpdate persists an engine push and forwards the result to the
// bot's owner. Pushes for unknown bots and stale pushes are dropped.
func (s *BotService) ApplyEngineUpdate(ctx context.Context, update *model.BotUpdate) (*model.Bot, error) {
	if update.Status != "" && !update.Status.Valid() {
		return nil, util.ErrValidation("Invalid bot status")
	}

	bot, err := s.repo.ApplyEngineUpdate(ctx, update)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBotNotFound):
			s.log.Debugf("Ignoring engine update for unknown bot %s", update.ID)
			return nil, nil
		case errors.Is(err, repository.ErrStaleUpdate):
			s.log.Debugf("Ignoring stale engine update for bot %s", update.ID)
			return nil, nil
		}
		return nil, err
	}

	s.notifier.NotifyBotUpdate(ctx, bot.UserID, bot)
	return bot, nil
}

// Summary aggregates the user's bots per status
func (s *BotService) Summary(ctx context.Context, userID string) (model.BotSummary, error) {
	counts, err := s.repo.CountByStatus(ctx, userID)
	if err != nil {
		return model.BotSummary{}, util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to summarize bots", err)
	}
	bots, err := s.List(ctx, userID)
	if err != nil {
		return model.BotSummary{}, err
	}
	return model.Summarize(counts, bots), nil
}

func botError(err error, message string) error {
	if errors.Is(err, repository.ErrBotNotFound) {
		return util.NewAppError(http.StatusNotFound, util.ErrCodeBotNotFound, "Bot not found")
	}
	return util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, message, err)
}

package handler

import (
	"hbinterface/backend/internal/middleware"
	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/service"
	"hbinterface/backend/internal/util"

	"github.com/gin-gonic/gin"
)

// BotHandler serves bot CRUD and lifecycle routes
type BotHandler struct {
	botService *service.BotService
}

// NewBotHandler creates a bot handler
func NewBotHandler(botService *service.BotService) *BotHandler {
	return &BotHandler{botService: botService}
}

// CreateBot handles POST /api/bots
func (h *BotHandler) CreateBot(c *gin.Context) {
	var req model.BotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SendBindError(c, err)
		return
	}

	bot, err := h.botService.Create(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendCreated(c, bot, "Bot created successfully")
}

// ListBots handles GET /api/bots
func (h *BotHandler) ListBots(c *gin.Context) {
	bots, err := h.botService.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccess(c, bots)
}

// GetBot handles GET /api/bots/:id
func (h *BotHandler) GetBot(c *gin.Context) {
	bot, err := h.botService.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccess(c, bot)
}

// UpdateBot handles PUT /api/bots/:id. Omitted fields keep their stored value.
func (h *BotHandler) UpdateBot(c *gin.Context) {
	var req model.BotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SendBindError(c, err)
		return
	}

	bot, err := h.botService.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), &req)
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccess(c, bot)
}

// DeleteBot handles DELETE /api/bots/:id
func (h *BotHandler) DeleteBot(c *gin.Context) {
	if err := h.botService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		util.SendError(c, err)
		return
	}

	util.SendNoContent(c)
}

// StartBot handles POST /api/bots/:id/start
func (h *BotHandler) StartBot(c *gin.Context) {
	bot, err := h.botService.Start(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccessWithMessage(c, bot, "Bot started")
}

// StopBot handles POST /api/bots/:id/stop
func (h *BotHandler) StopBot(c *gin.Context) {
	bot, err := h.botService.Stop(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccessWithMessage(c, bot, "Bot stopped")
}

package handler

import (
	"hbinterface/backend/internal/middleware"
	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/service"
	"hbinterface/backend/internal/util"

	"github.com/gin-gonic/gin"
)

// APIKeyHandler handles API key endpoints
type APIKeyHandler struct {
	apiKeyService *service.APIKeyService
}

// NewAPIKeyHandler creates a new API key handler
func NewAPIKeyHandler(apiKeyService *service.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{
		apiKeyService: apiKeyService,
	}
}

// Create stores an exchange key with its secret encrypted
// POST /api/api-keys
func (h *APIKeyHandler) Create(c *gin.Context) {
	var req model.APIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SendBindError(c, err)
		return
	}

	apiKey, err := h.apiKeyService.Create(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendCreated(c, apiKey, "API key saved successfully")
}

// List returns the user's keys with masked secrets
// GET /api/api-keys
func (h *APIKeyHandler) List(c *gin.Context) {
	keys, err := h.apiKeyService.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccess(c, keys)
}

// Delete removes one key
// DELETE /api/api-keys/:exchange/:label
func (h *APIKeyHandler) Delete(c *gin.Context) {
	err := h.apiKeyService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("exchange"), c.Param("label"))
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendNoContent(c)
}

// Validate checks a key pair without storing it
// POST /api/api-keys/validate
func (h *APIKeyHandler) Validate(c *gin.Context) {
	var req model.APIKeyValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SendBindError(c, err)
		return
	}

	valid, err := h.apiKeyService.Validate(c.Request.Context(), &req)
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccess(c, gin.H{"valid": valid})
}

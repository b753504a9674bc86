package handler

import (
	"hbinterface/backend/internal/middleware"
	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/service"
	"hbinterface/backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register handles user registration
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SendBindError(c, err)
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendCreated(c, resp, "User registered successfully")
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SendBindError(c, err)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccess(c, resp)
}

// Logout revokes the presented token
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		util.SendError(c, util.ErrUnauthorized("User not authenticated"))
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccessWithMessage(c, nil, "Logged out successfully")
}

// GetMe returns the current user
// GET /api/auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	user, err := h.authService.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccess(c, user)
}

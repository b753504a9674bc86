package handler

import (
	"hbinterface/backend/internal/middleware"
	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/service"
	"hbinterface/backend/internal/util"

	"github.com/gin-gonic/gin"
)

// UserHandler handles user management endpoints
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// ChangePassword changes current user's password
// POST /api/users/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req model.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SendBindError(c, err)
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), middleware.UserID(c), &req); err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccessWithMessage(c, nil, "Password changed successfully")
}

// ListUsers lists all users
// GET /api/admin/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccess(c, users)
}

// GetUser gets a user by ID
// GET /api/admin/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccess(c, user)
}

// UpdateRole changes a user's role
// PUT /api/admin/users/:id/role
func (h *UserHandler) UpdateRole(c *gin.Context) {
	var req model.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SendBindError(c, err)
		return
	}

	user, err := h.userService.UpdateRole(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Role)
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccessWithMessage(c, user, "User updated successfully")
}

// DeleteUser deletes a user
// DELETE /api/admin/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.DeleteUser(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		util.SendError(c, err)
		return
	}

	util.SendNoContent(c)
}

// ResetPassword resets a user's password
// POST /api/admin/users/:id/reset-password
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req model.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SendBindError(c, err)
		return
	}

	if err := h.userService.ResetPassword(c.Request.Context(), c.Param("id"), req.NewPassword); err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccessWithMessage(c, nil, "Password reset successfully")
}

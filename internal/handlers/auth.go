package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/pixelforge/nexus/internal/middleware"
	"github.com/pixelforge/nexus/internal/services"
	"github.com/pixelforge/nexus/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// Me returns the current logged-in user
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	user, err := h.authService.Me(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

// ChangePassword updates the caller's own password
// POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	id, _ := middleware.GetIdentity(c)
	if err := h.authService.ChangePassword(c.Request.Context(), id, &req); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "Password updated successfully")
}

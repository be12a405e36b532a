package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/pixelforge/nexus/internal/models"
	"github.com/pixelforge/nexus/internal/services"
	"github.com/pixelforge/nexus/pkg/response"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type createUserResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

// List returns all users, newest first
// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, users)
}

// Create creates a new user
// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var req services.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, createUserResponse{Message: "User created successfully", User: user})
}

// Available returns developers that can be assigned to projects
// GET /api/users/available
func (h *UserHandler) Available(c *gin.Context) {
	users, err := h.userService.ListAvailable(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, users)
}

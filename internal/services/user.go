package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/pixelforge/nexus/internal/models"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/internal/utils"
	"github.com/pixelforge/nexus/pkg/response"
)

var errUserExists = response.NewConflict("Username or email already exists")

type UserService struct {
	users store.UserRepository
}

func NewUserService(users store.UserRepository) *UserService {
	return &UserService{users: users}
}

type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Role     string `json:"role" binding:"required"`
}

// List returns every user, newest first.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.users.ListUsers(ctx)
}

// ListAvailable returns developers that can be assigned to projects.
func (s *UserService) ListAvailable(ctx context.Context) ([]models.UserRef, error) {
	users, err := s.users.ListUsersByRole(ctx, models.RoleDeveloper)
	if err != nil {
		return nil, err
	}
	refs := make([]models.UserRef, 0, len(users))
	for i := range users {
		refs = append(refs, users[i].Ref())
	}
	return refs, nil
}

func (s *UserService) Create(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, response.NewBadRequest("Invalid role")
	}

	username := strings.TrimSpace(req.Username)
	if len(username) < 3 || len(username) > 50 {
		return nil, response.NewBadRequest("Username must be between 3 and 50 characters")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, response.NewBadRequest("Invalid email address")
	}
	if err := checkPasswordLength(req.Password); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// checkPasswordLength bounds a new password in bytes. bcrypt rejects
// anything past utils.MaxPasswordLength.
func checkPasswordLength(password string) error {
	if len(password) < utils.MinPasswordLength {
		return response.NewBadRequest(fmt.Sprintf("Password must be at least %d characters", utils.MinPasswordLength))
	}
	if len(password) > utils.MaxPasswordLength {
		return response.NewBadRequest(fmt.Sprintf("Password must be at most %d characters", utils.MaxPasswordLength))
	}
	return nil
}

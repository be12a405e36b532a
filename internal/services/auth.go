package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/pixelforge/nexus/internal/config"
	"github.com/pixelforge/nexus/internal/models"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/internal/utils"
	"github.com/pixelforge/nexus/pkg/logger"
	"github.com/pixelforge/nexus/pkg/response"
)

var (
	errInvalidCredentials = response.NewUnauthorized("Invalid credentials")
	errUserNotFound       = response.NewNotFound("User not found")
	errWrongPassword      = response.NewBadRequest("Current password is incorrect")
)

type AuthService struct {
	users     store.UserRepository
	jwt       *utils.JWTManager
	dummyHash string
}

func NewAuthService(users store.UserRepository, jwt *utils.JWTManager) *AuthService {
	return &AuthService{
		users:     users,
		jwt:       jwt,
		dummyHash: newDummyHash(),
	}
}

// newDummyHash produces a hash no password can match; unknown usernames are
// compared against it so both login failure paths do the same bcrypt work.
func newDummyHash() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	hash, err := utils.HashPassword(hex.EncodeToString(buf))
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to prepare dummy password hash")
	}
	return hash
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string         `json:"token"`
	User  models.UserRef `json:"user"`
}

// Login exchanges credentials for a signed token.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, store.ErrNotFound) {
		utils.CheckPassword(req.Password, s.dummyHash)
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		return nil, errInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(models.Identity{ID: user.ID, Username: user.Username, Role: user.Role})
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &LoginResponse{Token: token, User: user.Ref()}, nil
}

// Me returns the account behind the identity.
func (s *AuthService) Me(ctx context.Context, id models.Identity) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errUserNotFound
	}
	return user, err
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6,max=72"`
}

func (s *AuthService) ChangePassword(ctx context.Context, id models.Identity, req *ChangePasswordRequest) error {
	if err := checkPasswordLength(req.NewPassword); err != nil {
		return err
	}

	user, err := s.users.GetUserByID(ctx, id.ID)
	if errors.Is(err, store.ErrNotFound) {
		return errUserNotFound
	}
	if err != nil {
		return err
	}

	if !utils.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		return errWrongPassword
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, user.ID, hash)
}

// EnsureAdmin creates the configured bootstrap admin when no admin exists.
// It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, cfg config.BootstrapConfig) (bool, error) {
	if !cfg.Enabled() {
		return false, nil
	}

	count, err := s.users.CountUsersByRole(ctx, models.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	hash, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		return false, err
	}

	email := cfg.AdminEmail
	if email == "" {
		email = cfg.AdminUsername + "@localhost"
	}

	admin := &models.User{
		Username:     cfg.AdminUsername,
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	if err := s.users.CreateUser(ctx, admin); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pixelforge/nexus/internal/config"
	"github.com/pixelforge/nexus/internal/database"
	"github.com/pixelforge/nexus/internal/handlers"
	"github.com/pixelforge/nexus/internal/middleware"
	"github.com/pixelforge/nexus/internal/services"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/internal/utils"
	"github.com/pixelforge/nexus/pkg/logger"
)

const storeCloseTimeout = 5 * time.Second

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg          *config.Config
	store        store.Store
	jwt          *utils.JWTManager
	hub          *services.EventHub
	sweeper      *services.UploadSweeper
	loginLimiter *middleware.RateLimiter

	authHandler       *handlers.AuthHandler
	userHandler       *handlers.UserHandler
	projectHandler    *handlers.ProjectHandler
	assignmentHandler *handlers.AssignmentHandler
	documentHandler   *handlers.DocumentHandler
	sseHandler        *handlers.SSEHandler
	healthHandler     *handlers.HealthHandler
}

// bootstrap initializes all application dependencies: store, services, schedulers.
func bootstrap(ctx context.Context, cfg *config.Config) (*appServices, error) {
	if err := os.MkdirAll(cfg.Uploads.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}

	db, err := database.Open(ctx, &cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("Store connected")

	jwt := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpireHour)
	hub := services.NewEventHub()

	authService := services.NewAuthService(db, jwt)
	userService := services.NewUserService(db)
	projectService := services.NewProjectService(db, db, hub)
	documentService := services.NewDocumentService(db, db, db, hub, cfg.Uploads.Dir, cfg.Uploads.MaxBytes())

	created, err := authService.EnsureAdmin(ctx, cfg.Bootstrap)
	if err != nil {
		_ = db.Close(context.Background())
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		logger.Info().Str("username", cfg.Bootstrap.AdminUsername).Msg("Bootstrap admin created")
	}

	sweeper := services.NewUploadSweeper(db, cfg.Uploads.Dir, time.Duration(cfg.Uploads.SweepGraceMinutes)*time.Minute)
	if err := sweeper.Start(cfg.Uploads.SweepSchedule); err != nil {
		_ = db.Close(context.Background())
		return nil, err
	}

	return &appServices{
		cfg:          cfg,
		store:        db,
		jwt:          jwt,
		hub:          hub,
		sweeper:      sweeper,
		loginLimiter: middleware.NewRateLimiter(cfg.Auth.LoginRPS, cfg.Auth.LoginBurst),

		authHandler:       handlers.NewAuthHandler(authService),
		userHandler:       handlers.NewUserHandler(userService),
		projectHandler:    handlers.NewProjectHandler(projectService),
		assignmentHandler: handlers.NewAssignmentHandler(projectService),
		documentHandler:   handlers.NewDocumentHandler(documentService),
		sseHandler:        handlers.NewSSEHandler(hub),
		healthHandler:     handlers.NewHealthHandler(db, hub),
	}, nil
}

// shutdown stops schedulers and closes the store.
func (s *appServices) shutdown() {
	s.sweeper.Stop()
	s.loginLimiter.Stop()
	logger.Info().Msg("Schedulers stopped")

	ctx, cancel := context.WithTimeout(context.Background(), storeCloseTimeout)
	defer cancel()
	if err := s.store.Close(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to close store")
	}
}

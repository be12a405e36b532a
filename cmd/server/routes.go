package main

import (
	"github.com/gin-gonic/gin"

	"github.com/pixelforge/nexus/internal/middleware"
	"github.com/pixelforge/nexus/internal/models"
	"github.com/pixelforge/nexus/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.CORS.AllowOrigins))

	auth := middleware.AuthRequired(svc.jwt)
	authQuery := middleware.AuthRequiredQuery(svc.jwt)
	projectAccess := middleware.ProjectAccessRequired(svc.store)
	adminOnly := middleware.RoleRequired(models.RoleAdmin)
	managers := middleware.ManagerRequired()

	// Health check
	r.GET("/health", svc.healthHandler.CheckHealth)

	// Stored files (without /api prefix for compatibility with existing links)
	r.GET("/uploads/:filename", authQuery, svc.documentHandler.Serve)

	// API routes
	api := r.Group("/api")
	api.Use(middleware.AuditLog())
	{
		// Auth routes (public)
		api.POST("/auth/login", svc.loginLimiter.Middleware(), svc.authHandler.Login)

		// Browser-opened streams and downloads accept ?token=
		api.GET("/events", authQuery, svc.sseHandler.StreamEvents)
		api.GET("/documents/:id/download", authQuery, svc.documentHandler.Download)

		// Protected routes
		protected := api.Group("")
		protected.Use(auth)
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.Me)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			// Users
			protected.GET("/users", adminOnly, svc.userHandler.List)
			protected.POST("/users", adminOnly, svc.userHandler.Create)
			protected.GET("/users/available", managers, svc.userHandler.Available)

			// Projects
			protected.GET("/projects", svc.projectHandler.List)
			protected.POST("/projects", adminOnly, svc.projectHandler.Create)
			protected.PUT("/projects/:id/status", adminOnly, svc.projectHandler.UpdateStatus)
			protected.GET("/projects/:id", projectAccess, svc.projectHandler.GetByID)

			// Assignments
			protected.GET("/projects/:id/assignments", projectAccess, svc.assignmentHandler.List)
			protected.POST("/projects/:id/assignments", managers, projectAccess, svc.assignmentHandler.Assign)
			protected.DELETE("/projects/:id/assignments/:userId", managers, projectAccess, svc.assignmentHandler.Remove)

			// Documents
			protected.GET("/projects/:id/documents", projectAccess, svc.documentHandler.List)
			protected.POST("/projects/:id/documents", managers, projectAccess, svc.documentHandler.Upload)
			protected.DELETE("/documents/:id", managers, svc.documentHandler.Delete)
		}
	}
}

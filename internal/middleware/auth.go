package middleware

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pixelforge/nexus/internal/models"
	"github.com/pixelforge/nexus/internal/services"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/internal/utils"
	"github.com/pixelforge/nexus/pkg/logger"
	"github.com/pixelforge/nexus/pkg/response"
)

const (
	ContextIdentity = "identity"
	ContextProject  = "project"
)

const (
	msgTokenRequired     = "Access token required"
	msgInvalidToken      = "Invalid or expired token"
	msgAuthRequired      = "Authentication required"
	msgInsufficientRoles = "Insufficient permissions"
	msgProjectNotFound   = "Project not found"
	msgProjectDenied     = "Access denied to this project"
)

// AuthRequired is a middleware that checks for a valid bearer token.
func AuthRequired(jwt *utils.JWTManager) gin.HandlerFunc {
	return authenticate(jwt, false)
}

// AuthRequiredQuery also accepts the token as a ?token= query parameter,
// for links opened by the browser (downloads, EventSource) that cannot set headers.
func AuthRequiredQuery(jwt *utils.JWTManager) gin.HandlerFunc {
	return authenticate(jwt, true)
}

func authenticate(jwt *utils.JWTManager, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			// Extract token from "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				response.Unauthorized(c, msgInvalidToken)
				return
			}
			tokenString = parts[1]
		} else if allowQuery {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			response.Unauthorized(c, msgTokenRequired)
			return
		}

		claims, err := jwt.ParseToken(tokenString)
		if err != nil {
			response.Unauthorized(c, msgInvalidToken)
			return
		}

		c.Set(ContextIdentity, claims.Identity())
		c.Next()
	}
}

// RoleRequired allows only identities whose role is in roles.
func RoleRequired(roles ...models.Role) gin.HandlerFunc {
	return roleGate(func(r models.Role) bool { return slices.Contains(roles, r) })
}

// ManagerRequired allows the roles that may change a project's members and documents.
func ManagerRequired() gin.HandlerFunc {
	return roleGate(services.CanManageProject)
}

func roleGate(allowed func(models.Role) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			response.Unauthorized(c, msgAuthRequired)
			return
		}
		if !allowed(id.Role) {
			response.Forbidden(c, msgInsufficientRoles)
			return
		}
		c.Next()
	}
}

// ProjectLoader fetches a project by id.
type ProjectLoader interface {
	GetProject(ctx context.Context, id string) (*models.Project, error)
}

// ProjectAccessRequired loads the project named by the :id path parameter
// and admits admins, its creator and its members.
func ProjectAccessRequired(projects ProjectLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			response.Unauthorized(c, msgAuthRequired)
			return
		}

		p, err := projects.GetProject(c.Request.Context(), c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			response.NotFound(c, msgProjectNotFound)
			return
		}
		if err != nil {
			logger.Error().Err(err).Str("project_id", c.Param("id")).Msg("Failed to load project")
			response.ServerError(c)
			return
		}

		if !services.CanAccessProject(id, p) {
			response.Forbidden(c, msgProjectDenied)
			return
		}

		c.Set(ContextProject, p)
		c.Next()
	}
}

// GetIdentity returns the authenticated caller.
func GetIdentity(c *gin.Context) (models.Identity, bool) {
	if v, exists := c.Get(ContextIdentity); exists {
		id, ok := v.(models.Identity)
		return id, ok
	}
	return models.Identity{}, false
}

// GetProject returns the project loaded by ProjectAccessRequired.
func GetProject(c *gin.Context) *models.Project {
	if v, exists := c.Get(ContextProject); exists {
		if p, ok := v.(*models.Project); ok {
			return p
		}
	}
	return nil
}

func GetUserID(c *gin.Context) string {
	id, _ := GetIdentity(c)
	return id.ID
}

func GetUsername(c *gin.Context) string {
	id, _ := GetIdentity(c)
	return id.Username
}

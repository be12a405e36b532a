package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/pixelforge/nexus/internal/middleware"
	"github.com/pixelforge/nexus/internal/services"
	"github.com/pixelforge/nexus/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// List returns the projects visible to the caller
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	projects, err := h.projectService.List(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, projects)
}

// Create creates a new project owned by the caller
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	id, _ := middleware.GetIdentity(c)
	resp, err := h.projectService.Create(c.Request.Context(), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, resp)
}

// GetByID returns a populated project
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	view, err := h.projectService.Detail(c.Request.Context(), middleware.GetProject(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, view)
}

// UpdateStatus sets a project's status
// PUT /api/projects/:id/status
func (h *ProjectHandler) UpdateStatus(c *gin.Context) {
	var req services.UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.projectService.UpdateStatus(c.Request.Context(), c.Param("id"), &req); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "Project status updated successfully")
}

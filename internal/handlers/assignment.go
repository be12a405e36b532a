package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/pixelforge/nexus/internal/middleware"
	"github.com/pixelforge/nexus/internal/services"
	"github.com/pixelforge/nexus/pkg/response"
)

type AssignmentHandler struct {
	projectService *services.ProjectService
}

func NewAssignmentHandler(projectService *services.ProjectService) *AssignmentHandler {
	return &AssignmentHandler{projectService: projectService}
}

// List returns the project's team members
// GET /api/projects/:id/assignments
func (h *AssignmentHandler) List(c *gin.Context) {
	members, err := h.projectService.Members(c.Request.Context(), middleware.GetProject(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, members)
}

// Assign adds a user to the project
// POST /api/projects/:id/assignments
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req services.AssignRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.projectService.Assign(c.Request.Context(), middleware.GetProject(c), &req); err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, response.MessageBody{Message: "User assigned to project successfully"})
}

// Remove takes a user off the project
// DELETE /api/projects/:id/assignments/:userId
func (h *AssignmentHandler) Remove(c *gin.Context) {
	if err := h.projectService.Unassign(c.Request.Context(), middleware.GetProject(c).ID, c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "User removed from project successfully")
}

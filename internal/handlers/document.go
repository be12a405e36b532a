package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pixelforge/nexus/internal/middleware"
	"github.com/pixelforge/nexus/internal/services"
	"github.com/pixelforge/nexus/pkg/response"
)

// multipartOverhead is the allowance for form boundaries and headers on top of the file size limit.
const multipartOverhead = 1 << 20

type DocumentHandler struct {
	documentService *services.DocumentService
}

func NewDocumentHandler(documentService *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// List returns the project's documents
// GET /api/projects/:id/documents
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documentService.List(c.Request.Context(), middleware.GetProject(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, docs)
}

// Upload stores a file attached to the project
// POST /api/projects/:id/documents
func (h *DocumentHandler) Upload(c *gin.Context) {
	maxBytes := h.documentService.MaxBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			response.Error(c, response.NewPayloadTooLarge(fmt.Sprintf("File size must be less than %dMB", maxBytes>>20)))
		case errors.Is(err, http.ErrMissingFile):
			response.BadRequest(c, "No file uploaded")
		default:
			response.BadRequest(c, "Invalid upload")
		}
		return
	}

	id, _ := middleware.GetIdentity(c)
	resp, err := h.documentService.Upload(c.Request.Context(), id, middleware.GetProject(c), file)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, resp)
}

// Delete removes a document and its file
// DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	if err := h.documentService.Delete(c.Request.Context(), id, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "Document deleted successfully")
}

// Download sends the document as an attachment under its original name
// GET /api/documents/:id/download
func (h *DocumentHandler) Download(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	doc, path, err := h.documentService.Open(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.FileAttachment(path, doc.OriginalName)
}

// Serve sends a stored file by its stored name
// GET /uploads/:filename
func (h *DocumentHandler) Serve(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	doc, path, err := h.documentService.OpenByFilename(c.Request.Context(), id, c.Param("filename"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if doc.MimeType != "" {
		c.Header("Content-Type", doc.MimeType)
	}
	c.Header("X-Content-Type-Options", "nosniff")
	c.File(path)
}

package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pixelforge/nexus/pkg/logger"
)

// ServerErrorMessage is the only text clients see for unclassified failures.
const ServerErrorMessage = "Server error"

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// MessageBody is the payload of simple acknowledgements.
type MessageBody struct {
	Message string `json:"message"`
}

// AppError represents a classified failure that maps onto an HTTP status.
type AppError struct {
	HTTPStatus int    // HTTP status code (e.g. 400, 404, 500)
	Message    string // Human-readable error message
}

func (e *AppError) Error() string {
	return e.Message
}

// Pre-defined error constructors

func NewBadRequest(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadRequest, Message: msg}
}

func NewUnauthorized(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusUnauthorized, Message: msg}
}

func NewForbidden(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusForbidden, Message: msg}
}

func NewNotFound(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusNotFound, Message: msg}
}

func NewConflict(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusConflict, Message: msg}
}

func NewPayloadTooLarge(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusRequestEntityTooLarge, Message: msg}
}

// --- Gin response helpers ---

// Success sends a 200 OK response with data as the body.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 Created response with data as the body.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Message sends a 200 OK response with a message body.
func Message(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, MessageBody{Message: msg})
}

// Error sends an error response. If err is an *AppError, its status and
// message are used; otherwise the error is logged and a generic 500 is returned.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		c.AbortWithStatusJSON(appErr.HTTPStatus, ErrorBody{Error: appErr.Message})
		return
	}

	_ = c.Error(err)
	logger.Error().
		Err(err).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg("request failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{Error: ServerErrorMessage})
}

// Convenience error response functions

func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{Error: msg})
}

func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody{Error: msg})
}

func Forbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, ErrorBody{Error: msg})
}

func NotFound(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusNotFound, ErrorBody{Error: msg})
}

func TooManyRequests(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorBody{Error: msg})
}

func ServerError(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{Error: ServerErrorMessage})
}

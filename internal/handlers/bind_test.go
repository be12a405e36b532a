package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/pixelforge/nexus/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHumanize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Username", "Username"},
		{"NewPassword", "New password"},
		{"CurrentPassword", "Current password"},
		{"UserID", "User id"},
	}
	for _, tt := range tests {
		if got := humanize(tt.in); got != tt.want {
			t.Errorf("humanize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type bindProbe struct {
	Username string `json:"username" binding:"required,min=3,max=5"`
	Email    string `json:"email" binding:"omitempty,email"`
}

func bindRouter() *gin.Engine {
	r := gin.New()
	r.POST("/bind", func(c *gin.Context) {
		var req bindProbe
		if !bindJSON(c, &req) {
			return
		}
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestBindJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		code    int
		message string
	}{
		{"valid", `{"username":"abcd"}`, http.StatusNoContent, ""},
		{"missing", `{}`, http.StatusBadRequest, "Username is required"},
		{"too short", `{"username":"ab"}`, http.StatusBadRequest, "Username must be at least 3 characters"},
		{"too long", `{"username":"abcdef"}`, http.StatusBadRequest, "Username must be at most 5 characters"},
		{"bad email", `{"username":"abcd","email":"nope"}`, http.StatusBadRequest, "Invalid email address"},
		{"malformed", `{"username":`, http.StatusBadRequest, "Invalid request body"},
	}

	r := bindRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.code, w.Body.String())
			}
			if tt.message == "" {
				return
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body["error"] != tt.message {
				t.Errorf("error = %q, want %q", body["error"], tt.message)
			}
		})
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestCheckHealth(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		status string
	}{
		{"healthy", nil, http.StatusOK, "healthy"},
		{"store down", errors.New("connection refused"), http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(fakePinger{err: tt.err}, services.NewEventHub())
			r := gin.New()
			r.GET("/health", h.CheckHealth)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d", w.Code, tt.code)
			}
			var body struct {
				Status     string `json:"status"`
				Components struct {
					Database   string `json:"database"`
					SSEClients int    `json:"sse_clients"`
				} `json:"components"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body.Status != tt.status {
				t.Errorf("status field = %q, want %q", body.Status, tt.status)
			}
			if tt.err == nil && body.Components.Database != "ok" {
				t.Errorf("database = %q", body.Components.Database)
			}
		})
	}
}

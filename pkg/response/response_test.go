package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)
	handler(c)
	return w
}

func parseError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return body
}

func TestSuccess(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Success(c, []map[string]string{{"name": "test"}})
	})

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var items []map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("body should be a raw array: %v", err)
	}
	if len(items) != 1 || items[0]["name"] != "test" {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestCreated(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Created(c, gin.H{"message": "created", "projectId": "p1"})
	})

	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
}

func TestMessage(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Message(c, "done")
	})

	var body MessageBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Message != "done" {
		t.Errorf("expected message 'done', got %q", body.Message)
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		call   func(c *gin.Context)
		status int
		msg    string
	}{
		{"bad request", func(c *gin.Context) { BadRequest(c, "invalid input") }, http.StatusBadRequest, "invalid input"},
		{"unauthorized", func(c *gin.Context) { Unauthorized(c, "token expired") }, http.StatusUnauthorized, "token expired"},
		{"forbidden", func(c *gin.Context) { Forbidden(c, "Insufficient permissions") }, http.StatusForbidden, "Insufficient permissions"},
		{"not found", func(c *gin.Context) { NotFound(c, "Project not found") }, http.StatusNotFound, "Project not found"},
		{"too many", func(c *gin.Context) { TooManyRequests(c, "slow down") }, http.StatusTooManyRequests, "slow down"},
		{"server error", func(c *gin.Context) { ServerError(c) }, http.StatusInternalServerError, ServerErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(tt.call)
			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			if body := parseError(t, w); body.Error != tt.msg {
				t.Errorf("expected error %q, got %q", tt.msg, body.Error)
			}
		})
	}
}

func TestError_WithAppError(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, fmt.Errorf("assign: %w", NewConflict("User is already assigned to this project")))
	})

	if w.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, w.Code)
	}

	if body := parseError(t, w); body.Error != "User is already assigned to this project" {
		t.Errorf("unexpected error %q", body.Error)
	}
}

func TestError_WithGenericErrorHidesDetails(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, errors.New("dial tcp 10.0.0.5:27017: connection refused"))
	})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}

	if body := parseError(t, w); body.Error != ServerErrorMessage {
		t.Errorf("expected generic message, got %q", body.Error)
	}
}

func TestAppError_ErrorInterface(t *testing.T) {
	err := NewNotFound("Document not found")
	if err.Error() != "Document not found" {
		t.Errorf("expected 'Document not found', got %q", err.Error())
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", err.HTTPStatus)
	}
}

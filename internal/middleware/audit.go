package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pixelforge/nexus/pkg/logger"
)

const maxAuditBody = 2000

// sensitiveKeys are JSON keys whose values are masked in audit entries, at any depth.
var sensitiveKeys = []string{"password", "current_password", "new_password", "secret", "token"}

// AuditLog records write operations (POST/PUT/DELETE) with the acting user.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut && method != http.MethodDelete {
			c.Next()
			return
		}

		var bodySnippet string
		switch {
		case strings.HasPrefix(c.ContentType(), "multipart/"):
			bodySnippet = "[multipart]"
		case c.Request.Body != nil:
			bodyBytes, _ := io.ReadAll(io.LimitReader(c.Request.Body, maxAuditBody+1))
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(bodyBytes), c.Request.Body))
			if len(bodyBytes) > maxAuditBody {
				bodySnippet = "[truncated]"
			} else {
				bodySnippet = maskSensitiveFields(string(bodyBytes))
			}
		}

		c.Next()

		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)

		event := logger.Info()
		if status >= 400 {
			event = logger.Warn()
		}
		event.
			Bool("audit", true).
			Str("module", module).
			Str("action", action).
			Str("user_id", GetUserID(c)).
			Str("username", GetUsername(c)).
			Str("ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Int("status", status).
			Str("body", bodySnippet).
			Msg(formatAuditMessage(GetUsername(c), method, c.Request.URL.Path, status))
	}
}

// parseRouteInfo extracts module and action from a Gin route pattern.
// e.g. "/api/projects/:id/assignments" + "POST" → module="Projects", action="Create"
func parseRouteInfo(fullPath, method string) (module, action string) {
	path := strings.TrimPrefix(fullPath, "/api/")

	parts := strings.SplitN(path, "/", 2)
	module = parts[0]
	if module == "" {
		module = "unknown"
	}

	words := strings.Fields(strings.ReplaceAll(module, "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	module = strings.Join(words, " ")
	if module == "" {
		module = "unknown"
	}

	switch method {
	case http.MethodPost:
		action = "Create"
	case http.MethodPut:
		action = "Update"
	case http.MethodDelete:
		action = "Delete"
	default:
		action = method
	}

	return module, action
}

// formatAuditMessage creates a human-readable audit message.
func formatAuditMessage(username, method, path string, status int) string {
	if username == "" {
		username = "anonymous"
	}
	var b strings.Builder
	b.WriteString("[Audit] ")
	b.WriteString(username)
	b.WriteString(" ")
	b.WriteString(method)
	b.WriteString(" ")
	b.WriteString(path)
	b.WriteString(" → ")
	if status >= 200 && status < 300 {
		b.WriteString("OK")
	} else {
		b.WriteString("Failed")
	}
	return b.String()
}

// maskSensitiveFields re-encodes a JSON body with every sensitive value
// replaced. Bodies that do not parse are not logged.
func maskSensitiveFields(body string) string {
	if strings.TrimSpace(body) == "" {
		return body
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil || dec.More() {
		return "[unparseable]"
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(maskValue(v)); err != nil {
		return "[unparseable]"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func maskValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, inner := range t {
			if isSensitiveKey(k) {
				t[k] = "***"
				continue
			}
			t[k] = maskValue(inner)
		}
	case []interface{}:
		for i := range t {
			t[i] = maskValue(t[i])
		}
	}
	return v
}

func isSensitiveKey(key string) bool {
	for _, k := range sensitiveKeys {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelforge/nexus/internal/config"
	"github.com/pixelforge/nexus/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t       *testing.T
	router  *gin.Engine
	svc     *appServices
	uploads string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.Mode = gin.TestMode
	cfg.Database.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	cfg.JWT.Secret = "integration-test-secret-key"
	cfg.Uploads.Dir = t.TempDir()
	cfg.Uploads.MaxSizeMB = 1
	cfg.Uploads.SweepSchedule = ""
	cfg.Auth.LoginRPS = 100
	cfg.Auth.LoginBurst = 100
	cfg.Bootstrap = config.BootstrapConfig{AdminUsername: "root", AdminPassword: "rootpass"}
	require.NoError(t, cfg.Validate())

	svc, err := bootstrap(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(svc.shutdown)

	r := gin.New()
	registerRoutes(r, svc)
	return &testServer{t: t, router: r, svc: svc, uploads: cfg.Uploads.Dir}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(path, token, filename string, data []byte) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(s.t, err)
	_, err = part.Write(data)
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		Token string         `json:"token"`
		User  models.UserRef `json:"user"`
	}](s.t, w)
	require.NotEmpty(s.t, resp.Token)
	return resp.Token
}

func (s *testServer) createUser(adminToken, username string, role models.Role) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/users", adminToken, gin.H{
		"username": username,
		"email":    username + "@pixelforge.test",
		"password": "secret123",
		"role":     role,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[struct {
		User models.User `json:"user"`
	}](s.t, w).User.ID
}

func (s *testServer) createProject(adminToken, name string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/projects", adminToken, gin.H{"name": name, "description": "e2e", "deadline": "2026-06-30"})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[map[string]string](s.t, w)
	require.Equal(s.t, "Project created successfully", resp["message"])
	require.NotEmpty(s.t, resp["projectId"])
	return resp["projectId"]
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode[map[string]interface{}](t, w)["status"])
}

func TestLoginFailuresAreIdentical(t *testing.T) {
	s := newTestServer(t)

	wrong := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "root", "password": "not-it"})
	unknown := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "ghost", "password": "not-it"})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, wrong.Body.String())
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())

	missing := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "root"})
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestAssignmentFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("root", "rootpass")

	devID := s.createUser(admin, "dev", models.RoleDeveloper)
	dev := s.login("dev", "secret123")
	s.createUser(admin, "outsider", models.RoleDeveloper)
	outsider := s.login("outsider", "secret123")

	projectID := s.createProject(admin, "Nebula Runner")

	w := s.do(http.MethodPost, "/api/projects/"+projectID+"/assignments", admin, gin.H{"userId": devID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/projects/"+projectID+"/assignments", admin, gin.H{"userId": devID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"User is already assigned to this project"}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/projects/"+projectID, dev, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[models.ProjectView](t, w)
	require.Len(t, view.TeamMembers, 1, "assigned user appears exactly once")
	assert.Equal(t, devID, view.TeamMembers[0].ID)
	assert.Equal(t, 1, view.TeamSize)
	assert.Equal(t, "root", view.CreatedByName)

	w = s.do(http.MethodGet, "/api/projects", dev, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.ProjectView](t, w), 1)

	w = s.do(http.MethodGet, "/api/projects", outsider, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.ProjectView](t, w))

	for _, path := range []string{"", "/assignments", "/documents"} {
		w = s.do(http.MethodGet, "/api/projects/"+projectID+path, outsider, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
		assert.JSONEq(t, `{"error":"Access denied to this project"}`, w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/projects/"+projectID+"/assignments", dev, nil)
	require.Equal(t, http.StatusOK, w.Code)
	members := decode[[]models.UserRef](t, w)
	require.Len(t, members, 1)
	assert.Equal(t, "dev", members[0].Username)

	w = s.do(http.MethodDelete, "/api/projects/"+projectID+"/assignments/"+devID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/api/projects/"+projectID, dev, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "removed member loses access")
}

func TestRoleGates(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("root", "rootpass")
	s.createUser(admin, "dev", models.RoleDeveloper)
	dev := s.login("dev", "secret123")
	projectID := s.createProject(admin, "Orbit")

	tests := []struct {
		method, path string
		body         interface{}
	}{
		{http.MethodGet, "/api/users", nil},
		{http.MethodPost, "/api/users", gin.H{"username": "x", "email": "x@x.io", "password": "secret123", "role": "admin"}},
		{http.MethodGet, "/api/users/available", nil},
		{http.MethodPost, "/api/projects", gin.H{"name": "mine"}},
		{http.MethodPut, "/api/projects/" + projectID + "/status", gin.H{"status": "completed"}},
		{http.MethodPost, "/api/projects/" + projectID + "/assignments", gin.H{"userId": "anyone"}},
		{http.MethodDelete, "/api/documents/anything", nil},
	}
	for _, tt := range tests {
		w := s.do(tt.method, tt.path, dev, tt.body)
		assert.Equal(t, http.StatusForbidden, w.Code, "%s %s", tt.method, tt.path)
		assert.JSONEq(t, `{"error":"Insufficient permissions"}`, w.Body.String())
	}

	w := s.do(http.MethodGet, "/api/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Access token required"}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/projects", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid or expired token"}`, w.Body.String())
}

func TestDocumentFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("root", "rootpass")
	projectID := s.createProject(admin, "Orbit")
	docsPath := "/api/projects/" + projectID + "/documents"

	data := bytes.Repeat([]byte("pixel forge "), 1024/12+1)[:1024]
	w := s.upload(docsPath, admin, "design-notes.txt", data)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, docsPath, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	docs := decode[[]models.DocumentView](t, w)
	require.Len(t, docs, 1)
	assert.Equal(t, "design-notes.txt", docs[0].OriginalName)
	assert.Equal(t, int64(1024), docs[0].FileSize)
	assert.Equal(t, "root", docs[0].UploadedByName)

	w = s.do(http.MethodGet, "/api/documents/"+docs[0].ID+"/download", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, data, w.Body.Bytes())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "design-notes.txt")

	w = s.do(http.MethodGet, "/uploads/"+docs[0].Filename+"?token="+admin, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, data, w.Body.Bytes())

	w = s.do(http.MethodGet, "/uploads/"+docs[0].Filename, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "stored files require a token")

	w = s.do(http.MethodDelete, "/api/documents/"+docs[0].ID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Document deleted successfully"}`, w.Body.String())

	w = s.do(http.MethodGet, docsPath, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.DocumentView](t, w))

	entries, err := os.ReadDir(s.uploads)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDocumentUploadRejections(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("root", "rootpass")
	projectID := s.createProject(admin, "Orbit")
	docsPath := "/api/projects/" + projectID + "/documents"

	w := s.upload(docsPath, admin, "huge.txt", bytes.Repeat([]byte("a"), 1<<20+1))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"File size must be less than 1MB"}`, w.Body.String())

	w = s.upload(docsPath, admin, "tool.exe", []byte("MZ\x90\x00"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid file type. Allowed: Images, PDF, DOC, TXT, ZIP, RAR"}`, w.Body.String())

	w = s.do(http.MethodGet, docsPath, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.DocumentView](t, w), "rejected uploads leave no metadata")

	entries, err := os.ReadDir(s.uploads)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected uploads leave no files")
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("root", "rootpass")

	w := s.do(http.MethodPost, "/api/auth/change-password", admin, gin.H{"current_password": "rootpass", "new_password": "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"New password must be at least 6 characters"}`, w.Body.String())

	w = s.do(http.MethodPost, "/api/auth/change-password", admin, gin.H{"current_password": "rootpass", "new_password": "rootpass2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	s.login("root", "rootpass2")

	w = s.do(http.MethodGet, "/api/auth/me", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[map[string]interface{}](t, w)
	assert.Equal(t, "root", me["username"])
	assert.NotContains(t, me, "password_hash")
}

func TestPasswordLengthLimit(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("root", "rootpass")

	w := s.do(http.MethodPost, "/api/users", admin, gin.H{
		"username": "longpw",
		"email":    "longpw@pixelforge.test",
		"password": strings.Repeat("a", 73),
		"role":     models.RoleDeveloper,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Password must be at most 72 characters"}`, w.Body.String())

	// 40 runes pass binding but encode to 80 bytes.
	w = s.do(http.MethodPost, "/api/auth/change-password", admin, gin.H{"current_password": "rootpass", "new_password": strings.Repeat("é", 40)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Password must be at most 72 characters"}`, w.Body.String())

	s.login("root", "rootpass")
}

func TestProjectMutationsRequireProjectAccess(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("root", "rootpass")

	devID := s.createUser(admin, "dev", models.RoleDeveloper)
	memberLeadID := s.createUser(admin, "member-lead", models.RoleProjectLead)
	memberLead := s.login("member-lead", "secret123")
	s.createUser(admin, "outside-lead", models.RoleProjectLead)
	outsideLead := s.login("outside-lead", "secret123")

	projectID := s.createProject(admin, "Orbit")
	assignPath := "/api/projects/" + projectID + "/assignments"
	for _, id := range []string{devID, memberLeadID} {
		w := s.do(http.MethodPost, assignPath, admin, gin.H{"userId": id})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	denied := []*httptest.ResponseRecorder{
		s.do(http.MethodPost, assignPath, outsideLead, gin.H{"userId": devID}),
		s.do(http.MethodDelete, assignPath+"/"+devID, outsideLead, nil),
		s.upload("/api/projects/"+projectID+"/documents", outsideLead, "notes.txt", []byte("hello")),
	}
	for i, w := range denied {
		assert.Equal(t, http.StatusForbidden, w.Code, "request %d", i)
		assert.JSONEq(t, `{"error":"Access denied to this project"}`, w.Body.String())
	}

	w := s.do(http.MethodGet, assignPath, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.UserRef](t, w), 2, "denied removal left the team unchanged")

	w = s.do(http.MethodDelete, assignPath+"/"+devID, memberLead, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodDelete, "/api/projects/"+uuid.NewString()+"/assignments/"+devID, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLeadProjectListing(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("root", "rootpass")

	leadID := s.createUser(admin, "lead", models.RoleProjectLead)
	lead := s.login("lead", "secret123")
	projectID := s.createProject(admin, "Orbit")

	w := s.do(http.MethodPost, "/api/projects/"+projectID+"/assignments", admin, gin.H{"userId": leadID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/projects", lead, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.ProjectView](t, w), "leads list only projects they created")

	w = s.do(http.MethodGet, "/api/projects/"+projectID, lead, nil)
	assert.Equal(t, http.StatusOK, w.Code, "membership still grants access")
}

func TestAvailableUsersCarryID(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("root", "rootpass")
	devID := s.createUser(admin, "dev", models.RoleDeveloper)

	w := s.do(http.MethodGet, "/api/users/available", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	users := decode[[]map[string]interface{}](t, w)
	require.Len(t, users, 1)
	assert.Equal(t, devID, users[0]["id"])
	assert.NotContains(t, users[0], "_id")
}

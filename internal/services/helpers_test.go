package services

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pixelforge/nexus/internal/models"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/internal/store/sqlstore"
	"github.com/pixelforge/nexus/internal/utils"
	"github.com/pixelforge/nexus/pkg/response"
)

const testPassword = "secret123"

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	s, err := sqlstore.Open("sqlite", dsn, false)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

// seedUser creates a user whose password is testPassword.
func seedUser(t *testing.T, s store.Store, username string, role models.Role) models.Identity {
	t.Helper()
	hash, err := utils.HashPassword(testPassword)
	require.NoError(t, err)
	u := &models.User{
		Username:     username,
		Email:        username + "@pixelforge.test",
		PasswordHash: hash,
		Role:         role,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return models.Identity{ID: u.ID, Username: u.Username, Role: u.Role}
}

func seedProject(t *testing.T, s store.Store, name string, creator models.Identity, members ...models.Identity) *models.Project {
	t.Helper()
	ctx := context.Background()
	p := &models.Project{Name: name, Status: models.ProjectActive, CreatedBy: creator.ID}
	require.NoError(t, s.CreateProject(ctx, p))
	for _, m := range members {
		require.NoError(t, s.AddMember(ctx, p.ID, m.ID))
	}
	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	return got
}

// requireStatus asserts err is an *AppError with the given HTTP status.
func requireStatus(t *testing.T, err error, status int) *response.AppError {
	t.Helper()
	var appErr *response.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, status, appErr.HTTPStatus, appErr.Message)
	return appErr
}

// fileHeader builds a multipart upload named name. An empty contentType
// leaves the part without a Content-Type header.
func fileHeader(t *testing.T, name, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	require.Len(t, form.File["file"], 1)
	return form.File["file"][0]
}

// Package storetest holds the behavioural suite every store backend must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelforge/nexus/internal/models"
	"github.com/pixelforge/nexus/internal/store"
)

// Factory returns a fresh, empty store. Cleanup is registered on t.
type Factory func(t *testing.T) store.Store

// Run executes the full suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("UserDuplicates", func(t *testing.T) { testUserDuplicates(t, newStore(t)) })
	t.Run("Projects", func(t *testing.T) { testProjects(t, newStore(t)) })
	t.Run("ProjectFilters", func(t *testing.T) { testProjectFilters(t, newStore(t)) })
	t.Run("Membership", func(t *testing.T) { testMembership(t, newStore(t)) })
	t.Run("Documents", func(t *testing.T) { testDocuments(t, newStore(t)) })
	t.Run("UnknownIDs", func(t *testing.T) { testUnknownIDs(t, newStore(t)) })
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func mustUser(t *testing.T, s store.Store, username string, role models.Role, at time.Time) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		Email:        username + "@pixelforge.test",
		PasswordHash: "$2a$10$hash-" + username,
		Role:         role,
		CreatedAt:    at,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	require.NotEmpty(t, u.ID)
	return u
}

func mustProject(t *testing.T, s store.Store, name, createdBy string, at time.Time) *models.Project {
	t.Helper()
	p := &models.Project{
		Name:      name,
		Status:    models.ProjectActive,
		CreatedBy: createdBy,
		CreatedAt: at,
	}
	require.NoError(t, s.CreateProject(context.Background(), p))
	require.NotEmpty(t, p.ID)
	return p
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()

	zed := mustUser(t, s, "zed", models.RoleDeveloper, base)
	amy := mustUser(t, s, "amy", models.RoleDeveloper, base.Add(time.Minute))
	lead := mustUser(t, s, "lead", models.RoleProjectLead, base.Add(2*time.Minute))

	got, err := s.GetUserByID(ctx, amy.ID)
	require.NoError(t, err)
	assert.Equal(t, "amy", got.Username)
	assert.Equal(t, models.RoleDeveloper, got.Role)
	assert.Equal(t, amy.PasswordHash, got.PasswordHash)

	got, err = s.GetUserByUsername(ctx, "lead")
	require.NoError(t, err)
	assert.Equal(t, lead.ID, got.ID)

	all, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"lead", "amy", "zed"}, usernames(all), "newest first")

	devs, err := s.ListUsersByRole(ctx, models.RoleDeveloper)
	require.NoError(t, err)
	assert.Equal(t, []string{"amy", "zed"}, usernames(devs), "ordered by username")

	count, err := s.CountUsersByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Zero(t, count)
	count, err = s.CountUsersByRole(ctx, models.RoleDeveloper)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	some, err := s.GetUsersByIDs(ctx, []string{zed.ID, lead.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"zed", "lead"}, usernames(some))

	none, err := s.GetUsersByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, s.UpdatePassword(ctx, zed.ID, "new-hash"))
	got, err = s.GetUserByID(ctx, zed.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
}

func testUserDuplicates(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustUser(t, s, "alice", models.RoleDeveloper, base)

	sameName := &models.User{Username: "alice", Email: "other@pixelforge.test", PasswordHash: "h", Role: models.RoleDeveloper}
	assert.ErrorIs(t, s.CreateUser(ctx, sameName), store.ErrDuplicate)

	sameEmail := &models.User{Username: "alice2", Email: "alice@pixelforge.test", PasswordHash: "h", Role: models.RoleDeveloper}
	assert.ErrorIs(t, s.CreateUser(ctx, sameEmail), store.ErrDuplicate)
}

func testProjects(t *testing.T, s store.Store) {
	ctx := context.Background()
	admin := mustUser(t, s, "admin", models.RoleAdmin, base)

	deadline := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	p := &models.Project{
		Name:        "Nebula Drift",
		Description: "Space racing prototype",
		Deadline:    &deadline,
		CreatedBy:   admin.ID,
	}
	require.NoError(t, s.CreateProject(ctx, p))
	assert.Equal(t, models.ProjectActive, p.Status, "status defaults to active")
	assert.False(t, p.CreatedAt.IsZero())

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nebula Drift", got.Name)
	assert.Equal(t, admin.ID, got.CreatedBy)
	require.NotNil(t, got.Deadline)
	assert.True(t, got.Deadline.Equal(deadline))
	assert.Empty(t, got.Members)

	require.NoError(t, s.UpdateProjectStatus(ctx, p.ID, models.ProjectCompleted))
	got, err = s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectCompleted, got.Status)
	assert.Equal(t, admin.ID, got.CreatedBy, "creator is immutable")
}

func testProjectFilters(t *testing.T, s store.Store) {
	ctx := context.Background()
	admin := mustUser(t, s, "admin", models.RoleAdmin, base)
	lead := mustUser(t, s, "lead", models.RoleProjectLead, base)
	dev := mustUser(t, s, "dev", models.RoleDeveloper, base)

	p1 := mustProject(t, s, "one", admin.ID, base)
	mustProject(t, s, "two", lead.ID, base.Add(time.Hour))
	p3 := mustProject(t, s, "three", admin.ID, base.Add(2*time.Hour))

	require.NoError(t, s.AddMember(ctx, p1.ID, dev.ID))
	require.NoError(t, s.AddMember(ctx, p3.ID, lead.ID))
	require.NoError(t, s.AddMember(ctx, p3.ID, dev.ID))

	all, err := s.ListProjects(ctx, store.ProjectFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "two", "one"}, projectNames(all), "newest first")

	leadScope, err := s.ListProjects(ctx, store.ProjectFilter{CreatedBy: lead.ID, MemberID: lead.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "two"}, projectNames(leadScope))

	devScope, err := s.ListProjects(ctx, store.ProjectFilter{MemberID: dev.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "one"}, projectNames(devScope))

	created, err := s.ListProjects(ctx, store.ProjectFilter{CreatedBy: admin.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "one"}, projectNames(created))

	for _, p := range devScope {
		if p.ID == p3.ID {
			assert.Equal(t, []string{lead.ID, dev.ID}, p.Members, "members populated in insertion order")
		}
	}
}

func testMembership(t *testing.T, s store.Store) {
	ctx := context.Background()
	admin := mustUser(t, s, "admin", models.RoleAdmin, base)
	dev := mustUser(t, s, "dev", models.RoleDeveloper, base)
	p := mustProject(t, s, "members", admin.ID, base)

	require.NoError(t, s.AddMember(ctx, p.ID, dev.ID))
	assert.ErrorIs(t, s.AddMember(ctx, p.ID, dev.ID), store.ErrAlreadyMember)

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{dev.ID}, got.Members, "no duplicates after second assignment")

	require.NoError(t, s.RemoveMember(ctx, p.ID, dev.ID))
	require.NoError(t, s.RemoveMember(ctx, p.ID, dev.ID), "removing a non-member is a no-op")

	got, err = s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Members)

	require.NoError(t, s.AddMember(ctx, p.ID, dev.ID), "re-adding after removal is allowed")
}

func testDocuments(t *testing.T, s store.Store) {
	ctx := context.Background()
	admin := mustUser(t, s, "admin", models.RoleAdmin, base)
	p := mustProject(t, s, "docs", admin.ID, base)
	other := mustProject(t, s, "other", admin.ID, base)

	first := &models.Document{
		Filename:     "a1-spec.pdf",
		OriginalName: "spec.pdf",
		FilePath:     "uploads/a1-spec.pdf",
		FileSize:     2048,
		MimeType:     "application/pdf",
		ProjectID:    p.ID,
		UploadedBy:   admin.ID,
		CreatedAt:    base,
	}
	require.NoError(t, s.CreateDocument(ctx, first))
	require.NotEmpty(t, first.ID)

	second := &models.Document{
		Filename:     "b2-notes.txt",
		OriginalName: "notes.txt",
		FilePath:     "uploads/b2-notes.txt",
		FileSize:     10,
		MimeType:     "text/plain",
		ProjectID:    p.ID,
		UploadedBy:   admin.ID,
		CreatedAt:    base.Add(time.Minute),
	}
	require.NoError(t, s.CreateDocument(ctx, second))

	dup := *first
	dup.ID = ""
	assert.ErrorIs(t, s.CreateDocument(ctx, &dup), store.ErrDuplicate, "stored filename is unique")

	docs, err := s.ListDocuments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "notes.txt", docs[0].OriginalName, "newest first")
	assert.EqualValues(t, 2048, docs[1].FileSize)

	empty, err := s.ListDocuments(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	byName, err := s.GetDocumentByFilename(ctx, "a1-spec.pdf")
	require.NoError(t, err)
	assert.Equal(t, first.ID, byName.ID)

	require.NoError(t, s.DeleteDocument(ctx, first.ID))
	_, err = s.GetDocument(ctx, first.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteDocument(ctx, first.ID), store.ErrNotFound)
}

func testUnknownIDs(t *testing.T, s store.Store) {
	ctx := context.Background()

	for _, id := range []string{"does-not-exist", "000000000000000000000000", ""} {
		_, err := s.GetUserByID(ctx, id)
		assert.ErrorIs(t, err, store.ErrNotFound, "user %q", id)

		_, err = s.GetProject(ctx, id)
		assert.ErrorIs(t, err, store.ErrNotFound, "project %q", id)

		_, err = s.GetDocument(ctx, id)
		assert.ErrorIs(t, err, store.ErrNotFound, "document %q", id)

		assert.ErrorIs(t, s.UpdateProjectStatus(ctx, id, models.ProjectCompleted), store.ErrNotFound)
		assert.ErrorIs(t, s.AddMember(ctx, id, "someone"), store.ErrNotFound)
		assert.ErrorIs(t, s.RemoveMember(ctx, id, "someone"), store.ErrNotFound)
	}

	_, err := s.GetUserByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetDocumentByFilename(ctx, "ghost.txt")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func usernames(users []models.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Username)
	}
	return out
}

func projectNames(projects []models.Project) []string {
	out := make([]string, 0, len(projects))
	for _, p := range projects {
		out = append(out, p.Name)
	}
	return out
}

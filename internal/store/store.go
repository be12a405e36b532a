// Package store defines the persistence contract shared by the relational
// and document-database backends.
package store

import (
	"context"
	"errors"

	"github.com/pixelforge/nexus/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist,
	// including ids that are malformed for the active backend.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a unique key (username, email, filename) is taken.
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrAlreadyMember is returned when a user is already in a project's member set.
	ErrAlreadyMember = errors.New("store: user already a project member")
)

// UserRepository is the credential store.
type UserRepository interface {
	// CreateUser assigns ID and timestamps on success.
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// GetUsersByIDs skips ids that do not resolve.
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	// ListUsers returns every user, newest first.
	ListUsers(ctx context.Context) ([]models.User, error)
	// ListUsersByRole returns users with the role ordered by username.
	ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error)
	CountUsersByRole(ctx context.Context, role models.Role) (int64, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// ProjectFilter narrows ListProjects. The zero value matches every project.
// When both fields are set a project matches if either relation holds.
type ProjectFilter struct {
	CreatedBy string
	MemberID  string
}

func (f ProjectFilter) All() bool {
	return f.CreatedBy == "" && f.MemberID == ""
}

type ProjectRepository interface {
	// CreateProject assigns ID and timestamps; a non-zero CreatedAt is kept.
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	// ListProjects returns matching projects, newest first.
	ListProjects(ctx context.Context, filter ProjectFilter) ([]models.Project, error)
	UpdateProjectStatus(ctx context.Context, id string, status models.ProjectStatus) error
	// AddMember returns ErrNotFound for a missing project and ErrAlreadyMember
	// when the user is already in the set.
	AddMember(ctx context.Context, projectID, userID string) error
	// RemoveMember is a no-op for non-members; it returns ErrNotFound for a missing project.
	RemoveMember(ctx context.Context, projectID, userID string) error
}

type DocumentRepository interface {
	// CreateDocument assigns ID and CreatedAt; a non-zero CreatedAt is kept.
	CreateDocument(ctx context.Context, d *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocumentByFilename(ctx context.Context, filename string) (*models.Document, error)
	// ListDocuments returns a project's documents, newest first.
	ListDocuments(ctx context.Context, projectID string) ([]models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Store is a complete backend. It is opened once at startup and closed on shutdown.
type Store interface {
	UserRepository
	ProjectRepository
	DocumentRepository

	// Ping checks connectivity.
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

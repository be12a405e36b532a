package sqlstore

import (
	"time"

	"github.com/pixelforge/nexus/internal/models"
)

type userRecord struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Username     string    `gorm:"uniqueIndex;size:50;not null"`
	Email        string    `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	Role         string    `gorm:"size:20;index;not null"`
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

func (userRecord) TableName() string { return "users" }

func (r *userRecord) toModel() models.User {
	return models.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         models.Role(r.Role),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type projectRecord struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"size:100;not null"`
	Description string `gorm:"size:1000"`
	Deadline    *time.Time
	Status      string                `gorm:"size:20;default:active;not null"`
	CreatedBy   string                `gorm:"size:36;index;not null"`
	Members     []projectMemberRecord `gorm:"foreignKey:ProjectID"`
	CreatedAt   time.Time             `gorm:"index"`
	UpdatedAt   time.Time
}

func (projectRecord) TableName() string { return "projects" }

func (r *projectRecord) toModel() models.Project {
	members := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		members = append(members, m.UserID)
	}
	return models.Project{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Deadline:    r.Deadline,
		Status:      models.ProjectStatus(r.Status),
		CreatedBy:   r.CreatedBy,
		Members:     members,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// projectMemberRecord is one row of the membership set; the composite
// unique index keeps the set free of duplicates.
type projectMemberRecord struct {
	ID        uint   `gorm:"primaryKey"`
	ProjectID string `gorm:"uniqueIndex:idx_project_user;size:36;not null"`
	UserID    string `gorm:"uniqueIndex:idx_project_user;index;size:36;not null"`
	CreatedAt time.Time
}

func (projectMemberRecord) TableName() string { return "project_members" }

type documentRecord struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Filename     string    `gorm:"uniqueIndex;size:300;not null"`
	OriginalName string    `gorm:"size:255;not null"`
	FilePath     string    `gorm:"size:500;not null"`
	FileSize     int64     `gorm:"not null"`
	MimeType     string    `gorm:"size:100"`
	ProjectID    string    `gorm:"size:36;index;not null"`
	UploadedBy   string    `gorm:"size:36;not null"`
	CreatedAt    time.Time `gorm:"index"`
}

func (documentRecord) TableName() string { return "documents" }

func (r *documentRecord) toModel() models.Document {
	return models.Document{
		ID:           r.ID,
		Filename:     r.Filename,
		OriginalName: r.OriginalName,
		FilePath:     r.FilePath,
		FileSize:     r.FileSize,
		MimeType:     r.MimeType,
		ProjectID:    r.ProjectID,
		UploadedBy:   r.UploadedBy,
		CreatedAt:    r.CreatedAt,
	}
}

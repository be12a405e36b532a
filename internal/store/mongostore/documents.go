package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pixelforge/nexus/internal/models"
)

// Field names follow the collections' existing camelCase layout.

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Username  string             `bson:"username"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	Role      string             `bson:"role"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *userDoc) toModel() models.User {
	return models.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.Password,
		Role:         models.Role(d.Role),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type projectDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Deadline    *time.Time           `bson:"deadline,omitempty"`
	Status      string               `bson:"status"`
	CreatedBy   primitive.ObjectID   `bson:"createdBy"`
	TeamMembers []primitive.ObjectID `bson:"teamMembers"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func (d *projectDoc) toModel() models.Project {
	members := make([]string, 0, len(d.TeamMembers))
	for _, id := range d.TeamMembers {
		members = append(members, id.Hex())
	}
	return models.Project{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Deadline:    d.Deadline,
		Status:      models.ProjectStatus(d.Status),
		CreatedBy:   d.CreatedBy.Hex(),
		Members:     members,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type documentDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Filename     string             `bson:"filename"`
	OriginalName string             `bson:"originalName"`
	FilePath     string             `bson:"filePath"`
	FileSize     int64              `bson:"fileSize"`
	MimeType     string             `bson:"mimeType"`
	Project      primitive.ObjectID `bson:"project"`
	UploadedBy   primitive.ObjectID `bson:"uploadedBy"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (d *documentDoc) toModel() models.Document {
	return models.Document{
		ID:           d.ID.Hex(),
		Filename:     d.Filename,
		OriginalName: d.OriginalName,
		FilePath:     d.FilePath,
		FileSize:     d.FileSize,
		MimeType:     d.MimeType,
		ProjectID:    d.Project.Hex(),
		UploadedBy:   d.UploadedBy.Hex(),
		CreatedAt:    d.CreatedAt,
	}
}

// objectIDs converts hex ids, dropping any that are malformed.
func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}

// now truncates to millisecond precision, which is what BSON dates store.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

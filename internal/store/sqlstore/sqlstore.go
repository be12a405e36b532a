// Package sqlstore implements store.Store on gorm for sqlite, mysql and postgres.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pixelforge/nexus/internal/models"
	"github.com/pixelforge/nexus/internal/store"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to the database and migrates the schema.
func Open(driver, dsn string, debug bool) (*Store, error) {
	var dialector gorm.Dialector

	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if driver == "sqlite" {
		// sqlite allows one writer at a time.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&userRecord{},
		&projectRecord{},
		&projectMemberRecord{},
		&documentRecord{},
	)
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrDuplicate
	}
	return err
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	rec := userRecord{
		ID:           uuid.NewString(),
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return translate(err)
	}
	*u = rec.toModel()
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var rec userRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, translate(err)
	}
	u := rec.toModel()
	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var rec userRecord
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&rec).Error; err != nil {
		return nil, translate(err)
	}
	u := rec.toModel()
	return &u, nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var recs []userRecord
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&recs).Error; err != nil {
		return nil, err
	}
	return usersFromRecords(recs), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var recs []userRecord
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return usersFromRecords(recs), nil
}

func (s *Store) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	var recs []userRecord
	if err := s.db.WithContext(ctx).
		Where("role = ?", string(role)).
		Order("username ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return usersFromRecords(recs), nil
}

func (s *Store) CountUsersByRole(ctx context.Context, role models.Role) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&userRecord{}).Where("role = ?", string(role)).Count(&count).Error
	return count, err
}

func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res := s.db.WithContext(ctx).Model(&userRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"password_hash": passwordHash, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func usersFromRecords(recs []userRecord) []models.User {
	users := make([]models.User, 0, len(recs))
	for i := range recs {
		users = append(users, recs[i].toModel())
	}
	return users
}

// --- projects ---

func membersByInsertion(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	rec := projectRecord{
		ID:          uuid.NewString(),
		Name:        p.Name,
		Description: p.Description,
		Deadline:    p.Deadline,
		Status:      string(p.Status),
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
	}
	if rec.Status == "" {
		rec.Status = string(models.ProjectActive)
	}
	for _, userID := range p.Members {
		rec.Members = append(rec.Members, projectMemberRecord{UserID: userID})
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return translate(err)
	}
	*p = rec.toModel()
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var rec projectRecord
	if err := s.db.WithContext(ctx).
		Preload("Members", membersByInsertion).
		Where("id = ?", id).
		First(&rec).Error; err != nil {
		return nil, translate(err)
	}
	p := rec.toModel()
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context, filter store.ProjectFilter) ([]models.Project, error) {
	query := s.db.WithContext(ctx).Model(&projectRecord{})

	memberOf := s.db.Model(&projectMemberRecord{}).Select("project_id").Where("user_id = ?", filter.MemberID)
	switch {
	case filter.CreatedBy != "" && filter.MemberID != "":
		query = query.Where("created_by = ? OR id IN (?)", filter.CreatedBy, memberOf)
	case filter.CreatedBy != "":
		query = query.Where("created_by = ?", filter.CreatedBy)
	case filter.MemberID != "":
		query = query.Where("id IN (?)", memberOf)
	}

	var recs []projectRecord
	if err := query.
		Preload("Members", membersByInsertion).
		Order("created_at DESC").
		Find(&recs).Error; err != nil {
		return nil, err
	}

	projects := make([]models.Project, 0, len(recs))
	for i := range recs {
		projects = append(projects, recs[i].toModel())
	}
	return projects, nil
}

func (s *Store) projectExists(ctx context.Context, id string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&projectRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) touchProject(tx *gorm.DB, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return tx.Model(&projectRecord{}).Where("id = ?", id).Updates(fields).Error
}

func (s *Store) UpdateProjectStatus(ctx context.Context, id string, status models.ProjectStatus) error {
	if err := s.projectExists(ctx, id); err != nil {
		return err
	}
	return s.touchProject(s.db.WithContext(ctx), id, map[string]interface{}{"status": string(status)})
}

func (s *Store) AddMember(ctx context.Context, projectID, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&projectRecord{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return store.ErrNotFound
		}

		err := tx.Create(&projectMemberRecord{ProjectID: projectID, UserID: userID}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return store.ErrAlreadyMember
		}
		if err != nil {
			return err
		}
		return s.touchProject(tx, projectID, map[string]interface{}{})
	})
}

func (s *Store) RemoveMember(ctx context.Context, projectID, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&projectRecord{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return store.ErrNotFound
		}

		res := tx.Where("project_id = ? AND user_id = ?", projectID, userID).Delete(&projectMemberRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return s.touchProject(tx, projectID, map[string]interface{}{})
	})
}

// --- documents ---

func (s *Store) CreateDocument(ctx context.Context, d *models.Document) error {
	rec := documentRecord{
		ID:           uuid.NewString(),
		Filename:     d.Filename,
		OriginalName: d.OriginalName,
		FilePath:     d.FilePath,
		FileSize:     d.FileSize,
		MimeType:     d.MimeType,
		ProjectID:    d.ProjectID,
		UploadedBy:   d.UploadedBy,
		CreatedAt:    d.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return translate(err)
	}
	*d = rec.toModel()
	return nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var rec documentRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, translate(err)
	}
	d := rec.toModel()
	return &d, nil
}

func (s *Store) GetDocumentByFilename(ctx context.Context, filename string) (*models.Document, error) {
	var rec documentRecord
	if err := s.db.WithContext(ctx).Where("filename = ?", filename).First(&rec).Error; err != nil {
		return nil, translate(err)
	}
	d := rec.toModel()
	return &d, nil
}

func (s *Store) ListDocuments(ctx context.Context, projectID string) ([]models.Document, error) {
	var recs []documentRecord
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	docs := make([]models.Document, 0, len(recs))
	for i := range recs {
		docs = append(docs, recs[i].toModel())
	}
	return docs, nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&documentRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

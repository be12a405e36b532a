package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/pixelforge/nexus/internal/models"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/pkg/logger"
	"github.com/pixelforge/nexus/pkg/response"
)

var (
	errDocumentNotFound = response.NewNotFound("Document not found")
	errFileNotFound     = response.NewNotFound("File not found")
	errProjectDenied    = response.NewForbidden("Access denied to this project")
	errInvalidFileType  = response.NewBadRequest("Invalid file type. Allowed: Images, PDF, DOC, TXT, ZIP, RAR")
	errNoFile           = response.NewBadRequest("No file uploaded")
)

// allowedTypes maps each accepted extension to the MIME types accepted for it.
var allowedTypes = map[string][]string{
	".jpg":  {"image/jpeg", "image/jpg"},
	".jpeg": {"image/jpeg", "image/jpg"},
	".png":  {"image/png"},
	".gif":  {"image/gif"},
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	".txt":  {"text/plain"},
	".zip":  {"application/zip", "application/x-zip-compressed"},
	".rar":  {"application/x-rar-compressed", "application/vnd.rar"},
}

type DocumentService struct {
	documents store.DocumentRepository
	projects  store.ProjectRepository
	users     store.UserRepository
	events    *EventHub
	dir       string
	maxBytes  int64
}

func NewDocumentService(documents store.DocumentRepository, projects store.ProjectRepository, users store.UserRepository, events *EventHub, dir string, maxBytes int64) *DocumentService {
	return &DocumentService{
		documents: documents,
		projects:  projects,
		users:     users,
		events:    events,
		dir:       dir,
		maxBytes:  maxBytes,
	}
}

func (s *DocumentService) MaxBytes() int64 { return s.maxBytes }

type UploadResponse struct {
	Message  string               `json:"message"`
	Document *models.DocumentView `json:"document"`
}

func (s *DocumentService) errTooLarge() error {
	return response.NewBadRequest(fmt.Sprintf("File size must be less than %dMB", s.maxBytes>>20))
}

// List returns the project's documents, newest first, with uploader names.
func (s *DocumentService) List(ctx context.Context, p *models.Project) ([]models.DocumentView, error) {
	docs, err := s.documents.ListDocuments(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	var ids []string
	seen := map[string]struct{}{}
	for i := range docs {
		if _, ok := seen[docs[i].UploadedBy]; !ok {
			seen[docs[i].UploadedBy] = struct{}{}
			ids = append(ids, docs[i].UploadedBy)
		}
	}
	users := map[string]*models.User{}
	if len(ids) > 0 {
		found, err := s.users.GetUsersByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load uploaders: %w", err)
		}
		users = indexUsers(found)
	}

	views := make([]models.DocumentView, 0, len(docs))
	for i := range docs {
		views = append(views, documentView(&docs[i], users[docs[i].UploadedBy]))
	}
	return views, nil
}

// Upload validates fh, stores its bytes and records the metadata row.
// Nothing is written when the size or type check fails.
func (s *DocumentService) Upload(ctx context.Context, id models.Identity, p *models.Project, fh *multipart.FileHeader) (*UploadResponse, error) {
	if fh == nil {
		return nil, errNoFile
	}
	if fh.Size > s.maxBytes {
		return nil, s.errTooLarge()
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	allowed, ok := allowedTypes[ext]
	if !ok {
		return nil, errInvalidFileType
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	mimeType, err := acceptedType(src, fh.Header.Get("Content-Type"), allowed)
	if err != nil {
		return nil, err
	}

	original := cleanFilename(fh.Filename, ext)
	doc := &models.Document{
		Filename:     uuid.NewString() + "-" + original,
		OriginalName: original,
		MimeType:     mimeType,
		ProjectID:    p.ID,
		UploadedBy:   id.ID,
	}
	doc.FilePath = s.path(doc.Filename)

	size, err := s.write(doc.FilePath, src)
	if err != nil {
		return nil, err
	}
	doc.FileSize = size

	if err := s.documents.CreateDocument(ctx, doc); err != nil {
		if rmErr := os.Remove(doc.FilePath); rmErr != nil {
			logger.Warn().Err(rmErr).Str("path", doc.FilePath).Msg("Failed to remove upload after insert error")
		}
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.events.Publish(Event{Type: EventDocumentUploaded, ProjectID: p.ID, DocumentID: doc.ID}, p)

	uploader, err := s.users.GetUserByID(ctx, id.ID)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", id.ID).Msg("Failed to load uploader for document view")
	}
	view := documentView(doc, uploader)
	return &UploadResponse{Message: "Document uploaded successfully", Document: &view}, nil
}

// write copies at most maxBytes from src into a new file at path.
func (s *DocumentService) write(path string, src io.Reader) (int64, error) {
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	n, err := io.Copy(dst, io.LimitReader(src, s.maxBytes+1))
	closeErr := dst.Close()
	switch {
	case err != nil:
		err = fmt.Errorf("write file: %w", err)
	case closeErr != nil:
		err = fmt.Errorf("close file: %w", closeErr)
	case n > s.maxBytes:
		err = s.errTooLarge()
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return n, nil
}

// Delete removes the document's file (best effort) and then its row.
func (s *DocumentService) Delete(ctx context.Context, id models.Identity, documentID string) error {
	doc, err := s.documents.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errDocumentNotFound
		}
		return fmt.Errorf("find document: %w", err)
	}

	p, err := s.authorize(ctx, id, doc)
	if err != nil {
		return err
	}

	path := s.path(doc.Filename)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn().Err(err).Str("path", path).Msg("Failed to remove document file")
	}

	if err := s.documents.DeleteDocument(ctx, doc.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errDocumentNotFound
		}
		return fmt.Errorf("delete document: %w", err)
	}

	if p != nil {
		s.events.Publish(Event{Type: EventDocumentDeleted, ProjectID: p.ID, DocumentID: doc.ID}, p)
	}
	return nil
}

// Open resolves a document id to its metadata and on-disk path for download.
func (s *DocumentService) Open(ctx context.Context, id models.Identity, documentID string) (*models.Document, string, error) {
	doc, err := s.documents.GetDocument(ctx, documentID)
	return s.open(ctx, id, doc, err)
}

// OpenByFilename is Open keyed by the stored file name.
func (s *DocumentService) OpenByFilename(ctx context.Context, id models.Identity, filename string) (*models.Document, string, error) {
	doc, err := s.documents.GetDocumentByFilename(ctx, filepath.Base(filename))
	return s.open(ctx, id, doc, err)
}

func (s *DocumentService) open(ctx context.Context, id models.Identity, doc *models.Document, err error) (*models.Document, string, error) {
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", errFileNotFound
		}
		return nil, "", fmt.Errorf("find document: %w", err)
	}
	if _, err := s.authorize(ctx, id, doc); err != nil {
		return nil, "", err
	}

	path := s.path(doc.Filename)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", errFileNotFound
		}
		return nil, "", fmt.Errorf("stat file: %w", err)
	}
	return doc, path, nil
}

// authorize checks access to the document's project. A document whose
// project no longer exists is reachable by admins only.
func (s *DocumentService) authorize(ctx context.Context, id models.Identity, doc *models.Document) (*models.Project, error) {
	p, err := s.projects.GetProject(ctx, doc.ProjectID)
	if errors.Is(err, store.ErrNotFound) {
		if id.IsAdmin() {
			return nil, nil
		}
		return nil, errProjectDenied
	}
	if err != nil {
		return nil, fmt.Errorf("find project: %w", err)
	}
	if !CanAccessProject(id, p) {
		return nil, errProjectDenied
	}
	return p, nil
}

func (s *DocumentService) path(filename string) string {
	return filepath.Join(s.dir, filepath.Base(filename))
}

// acceptedType returns the MIME type to record for an upload. The declared
// type is used when present; otherwise the content is sniffed.
func acceptedType(src multipart.File, declared string, allowed []string) (string, error) {
	declared, _, _ = mime.ParseMediaType(declared)
	declared = strings.ToLower(declared)

	if declared != "" && declared != "application/octet-stream" {
		for _, a := range allowed {
			if declared == a {
				return declared, nil
			}
		}
		return "", errInvalidFileType
	}

	detected, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("detect type: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	for mt := detected; mt != nil; mt = mt.Parent() {
		for _, a := range allowed {
			if mt.Is(a) {
				return a, nil
			}
		}
	}
	return "", errInvalidFileType
}

// cleanFilename reduces a client-supplied name to a safe base name.
func cleanFilename(name, ext string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(`/\:*?"<>|`, r) {
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || name == ext {
		return "file" + ext
	}
	return name
}

func documentView(d *models.Document, uploader *models.User) models.DocumentView {
	v := models.DocumentView{
		ID:           d.ID,
		Filename:     d.Filename,
		OriginalName: d.OriginalName,
		FileSize:     d.FileSize,
		MimeType:     d.MimeType,
		ProjectID:    d.ProjectID,
		CreatedAt:    d.CreatedAt,
	}
	if uploader != nil {
		ref := uploader.Ref()
		v.UploadedBy = &ref
		v.UploadedByName = uploader.Username
	}
	return v
}

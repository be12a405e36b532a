package models

import "time"

// Document is the metadata of a file uploaded to a project.
// ProjectID and UploadedBy are fixed at upload time.
type Document struct {
	ID           string
	Filename     string
	OriginalName string
	FilePath     string
	FileSize     int64
	MimeType     string
	ProjectID    string
	UploadedBy   string
	CreatedAt    time.Time
}

// DocumentView is the populated representation returned to clients.
type DocumentView struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	OriginalName   string    `json:"original_name"`
	FileSize       int64     `json:"file_size"`
	MimeType       string    `json:"mime_type"`
	ProjectID      string    `json:"project_id"`
	UploadedBy     *UserRef  `json:"uploaded_by"`
	UploadedByName string    `json:"uploaded_by_name"`
	CreatedAt      time.Time `json:"created_at"`
}

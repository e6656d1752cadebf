package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// WorksheetStatus represents the processing state of a worksheet
type WorksheetStatus string

// Possible worksheet status values
const (
	WorksheetStatusPending    WorksheetStatus = "pending"
	WorksheetStatusProcessing WorksheetStatus = "processing"
	WorksheetStatusCompleted  WorksheetStatus = "completed"
	WorksheetStatusFailed     WorksheetStatus = "failed"
)

// FileType is the declared format of an uploaded worksheet file.
type FileType string

// Accepted upload file types
const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
	FileTypeDOC  FileType = "doc"
)

// Common validation errors for Worksheet
var (
	ErrEmptyWorksheetID       = errors.New("worksheet ID cannot be empty")
	ErrEmptyWorksheetFilename = errors.New("worksheet filename cannot be empty")
	ErrInvalidFileType        = errors.New("invalid worksheet file type")
	ErrInvalidWorksheetStatus = errors.New("invalid worksheet status")
)

// Worksheet is an uploaded document together with the text extracted from
// it. Its generated tasks are stored separately and replaced as a whole.
type Worksheet struct {
	ID               uuid.UUID       `json:"id"`
	Filename         string          `json:"filename"`
	OriginalFilename string          `json:"original_filename"`
	FileType         FileType        `json:"file_type"`
	ExtractedText    string          `json:"-"`
	Status           WorksheetStatus `json:"status"`
	UploadedAt       time.Time       `json:"uploaded_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewWorksheet creates a worksheet in the processing state, ready for task
// generation. Returns an error if validation fails.
func NewWorksheet(filename, originalFilename string, fileType FileType, text string) (*Worksheet, error) {
	now := time.Now().UTC()
	ws := &Worksheet{
		ID:               uuid.New(),
		Filename:         filename,
		OriginalFilename: originalFilename,
		FileType:         fileType,
		ExtractedText:    text,
		Status:           WorksheetStatusProcessing,
		UploadedAt:       now,
		UpdatedAt:        now,
	}

	if err := ws.Validate(); err != nil {
		return nil, err
	}
	return ws, nil
}

// Validate checks if the Worksheet has valid data.
func (w *Worksheet) Validate() error {
	if w.ID == uuid.Nil {
		return ErrEmptyWorksheetID
	}
	if w.Filename == "" {
		return ErrEmptyWorksheetFilename
	}
	if !w.FileType.Valid() {
		return ErrInvalidFileType
	}
	if !w.Status.Valid() {
		return ErrInvalidWorksheetStatus
	}
	return nil
}

// UpdateStatus changes the status and bumps UpdatedAt.
func (w *Worksheet) UpdateStatus(status WorksheetStatus) error {
	if !status.Valid() {
		return ErrInvalidWorksheetStatus
	}
	w.Status = status
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// Valid reports whether s is a known status.
func (s WorksheetStatus) Valid() bool {
	switch s {
	case WorksheetStatusPending, WorksheetStatusProcessing,
		WorksheetStatusCompleted, WorksheetStatusFailed:
		return true
	default:
		return false
	}
}

// Valid reports whether f is an accepted upload type.
func (f FileType) Valid() bool {
	switch f {
	case FileTypePDF, FileTypeDOCX, FileTypeDOC:
		return true
	default:
		return false
	}
}

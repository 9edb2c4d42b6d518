package domain

import (
	"fmt"
	"time"
)

// SourceType distinguishes how a document's text is chunked
type SourceType string

const (
	// SourceTypeDocument is plain prose: uploaded files, notes, records.
	SourceTypeDocument SourceType = "document"
	// SourceTypeTranscript is a speaker-attributed meeting transcript.
	SourceTypeTranscript SourceType = "transcript"
)

// DocumentStatus represents the processing status of a document
type DocumentStatus string

const (
	DocumentStatusPending   DocumentStatus = "pending"
	DocumentStatusProcessed DocumentStatus = "processed"
	DocumentStatusFailed    DocumentStatus = "failed"
)

// Document represents an ingested source: a file, note, or meeting transcript.
// The raw text lives in Content; chunks are derived from it on processing and
// replaced as a set whenever the document is reprocessed.
type Document struct {
	ID         string
	TenantID   string
	Name       string
	SourceType SourceType
	Status     DocumentStatus
	Content    string
	StorageKey string // Optional S3 archive key for the raw source
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewDocument creates a new Document instance
func NewDocument(id, tenantID, name string, sourceType SourceType, content string, createdAt time.Time) *Document {
	return &Document{
		ID:         id,
		TenantID:   tenantID,
		Name:       name,
		SourceType: sourceType,
		Status:     DocumentStatusPending,
		Content:    content,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if d.TenantID == "" {
		return fmt.Errorf("document TenantID is required")
	}
	if d.Name == "" {
		return fmt.Errorf("document Name is required")
	}
	if !isValidSourceType(d.SourceType) {
		return fmt.Errorf("document SourceType is invalid: %s", d.SourceType)
	}
	return nil
}

// isValidSourceType checks if a SourceType is valid
func isValidSourceType(s SourceType) bool {
	switch s {
	case SourceTypeDocument, SourceTypeTranscript:
		return true
	}
	return false
}

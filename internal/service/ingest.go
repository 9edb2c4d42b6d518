package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lumenworks/briefbase/internal/domain"
	"github.com/lumenworks/briefbase/internal/pagination"
	"github.com/lumenworks/briefbase/internal/telemetry"
)

// DocumentRepository defines the persistence interface for documents
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByTenantWithCursor(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	Delete(ctx context.Context, id string) error
}

// IngestJobRepository defines the persistence interface for ingest jobs
type IngestJobRepository interface {
	Create(ctx context.Context, job *domain.IngestJob) error
}

// SourceArchiver stores the raw source text of registered documents in
// object storage. Optional; archiving is skipped when not configured.
type SourceArchiver interface {
	UploadObject(ctx context.Context, key string, body []byte, contentType string) error
}

// DocumentPageResult is one page of a cursor-paginated document listing
type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// RegisterDocumentInput carries the fields needed to register a new source
type RegisterDocumentInput struct {
	TenantID   string
	Name       string
	SourceType domain.SourceType
	Content    string
}

// IngestService registers documents and enqueues them for chunking and
// embedding by the background worker
type IngestService struct {
	docRepo DocumentRepository
	jobRepo IngestJobRepository
	archive SourceArchiver
	uuidGen UUIDGenerator
}

// NewIngestService creates a new IngestService instance
func NewIngestService(docRepo DocumentRepository, jobRepo IngestJobRepository, archive SourceArchiver) *IngestService {
	return &IngestService{
		docRepo: docRepo,
		jobRepo: jobRepo,
		archive: archive,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// RegisterDocument validates and stores a new document, archives its raw
// text when object storage is configured, and enqueues a pending ingest job
func (s *IngestService) RegisterDocument(ctx context.Context, input RegisterDocumentInput) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.RegisterDocument", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		Operation: "register",
	})
	defer span.End()

	if strings.TrimSpace(input.Content) == "" {
		return nil, domain.NewValidationError("document content must not be empty")
	}
	if input.SourceType == "" {
		input.SourceType = domain.SourceTypeDocument
	}

	now := time.Now().UTC()
	doc := domain.NewDocument(s.uuidGen.NewString(), input.TenantID, input.Name, input.SourceType, input.Content, now)
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}

	if s.archive != nil {
		key := fmt.Sprintf("sources/%s/%s.txt", doc.TenantID, doc.ID)
		if err := s.archive.UploadObject(ctx, key, []byte(doc.Content), "text/plain; charset=utf-8"); err != nil {
			return nil, fmt.Errorf("failed to archive source: %w", err)
		}
		doc.StorageKey = key
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	job := domain.NewIngestJob(s.uuidGen.NewString(), doc.ID, now)
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	return doc, nil
}

// GetDocument fetches a document scoped to a tenant
func (s *IngestService) GetDocument(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.TenantID != tenantID {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

// ListDocuments returns one cursor-paginated page of a tenant's documents
func (s *IngestService) ListDocuments(ctx context.Context, tenantID, cursor string, limit int) (*DocumentPageResult, error) {
	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewValidationError("invalid cursor")
	}
	return s.docRepo.ListByTenantWithCursor(ctx, tenantID, decoded, limit)
}

// DeleteDocument removes a document and its chunk set
func (s *IngestService) DeleteDocument(ctx context.Context, tenantID, id string) error {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.TenantID != tenantID {
		return domain.ErrDocumentNotFound
	}
	return s.docRepo.Delete(ctx, id)
}

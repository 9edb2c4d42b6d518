package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lumenworks/briefbase/internal/chunker"
	"github.com/lumenworks/briefbase/internal/domain"
	"github.com/lumenworks/briefbase/internal/telemetry"
)

// DefaultBatchSize is the number of chunk texts sent to the embedding
// provider in one call. Batches are processed sequentially per document to
// bound peak provider load.
const DefaultBatchSize = 100

// UUIDGenerator generates unique identifiers
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// EmbeddingClient defines the interface for generating embeddings. Both
// methods return per-text token counts alongside the vectors.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, int, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, []int, error)
}

// EmbeddingDocumentRepository defines the repository interface for document
// lookups during embedding generation
type EmbeddingDocumentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error
}

// EmbeddingChunkRepository defines the repository interface for chunk
// persistence. ReplaceChunks must swap the document's chunk set atomically.
type EmbeddingChunkRepository interface {
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error
}

// EmbeddingService chunks a document's text and generates embeddings for
// every chunk in bounded batches
type EmbeddingService struct {
	client         EmbeddingClient
	docRepo        EmbeddingDocumentRepository
	chunkRepo      EmbeddingChunkRepository
	chunkOpts      chunker.Options
	transcriptOpts chunker.TranscriptOptions
	batchSize      int
	uuidGen        UUIDGenerator
}

// NewEmbeddingService creates a new EmbeddingService with default chunking
// options
func NewEmbeddingService(client EmbeddingClient, docRepo EmbeddingDocumentRepository, chunkRepo EmbeddingChunkRepository) *EmbeddingService {
	return &EmbeddingService{
		client:         client,
		docRepo:        docRepo,
		chunkRepo:      chunkRepo,
		chunkOpts:      chunker.DefaultOptions(),
		transcriptOpts: chunker.DefaultTranscriptOptions(),
		batchSize:      DefaultBatchSize,
		uuidGen:        &DefaultUUIDGenerator{},
	}
}

// NewEmbeddingServiceWithOptions creates an EmbeddingService with explicit
// chunking configuration
func NewEmbeddingServiceWithOptions(
	client EmbeddingClient,
	docRepo EmbeddingDocumentRepository,
	chunkRepo EmbeddingChunkRepository,
	chunkOpts chunker.Options,
	transcriptOpts chunker.TranscriptOptions,
) *EmbeddingService {
	s := NewEmbeddingService(client, docRepo, chunkRepo)
	s.chunkOpts = chunkOpts
	s.transcriptOpts = transcriptOpts
	return s
}

// ProcessDocument chunks the document's text, generates embeddings for each
// chunk, and atomically replaces the document's stored chunk set. It is
// called by the background ingest worker.
func (s *EmbeddingService) ProcessDocument(ctx context.Context, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "EmbeddingService.ProcessDocument", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "process",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	chunks, err := s.chunkDocument(doc)
	if err != nil {
		return err
	}

	entries, err := s.embedChunks(ctx, doc, chunks)
	if err != nil {
		return err
	}

	if err := s.chunkRepo.ReplaceChunks(ctx, doc.ID, entries); err != nil {
		return fmt.Errorf("failed to replace document chunks: %w", err)
	}

	if err := s.docRepo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusProcessed); err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}

	return nil
}

func (s *EmbeddingService) chunkDocument(doc *domain.Document) ([]domain.Chunk, error) {
	if doc.SourceType == domain.SourceTypeTranscript {
		return chunker.ChunkTranscript(doc.Content, s.transcriptOpts)
	}
	return chunker.ChunkText(doc.Content, s.chunkOpts)
}

// embedChunks generates embeddings in sequential batches of at most
// batchSize texts. The embedded text carries a document marker prefix while
// the stored chunk keeps the raw content and offsets.
func (s *EmbeddingService) embedChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.DocumentChunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	prefixed := chunker.WithDocumentContext(chunks, doc.Name, s.chunkOpts.Estimator)
	texts := make([]string, len(prefixed))
	for i, c := range prefixed {
		texts[i] = c.Content
	}

	embeddings := make([][]float32, 0, len(texts))
	tokenCounts := make([]int, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, tokens, err := s.client.GenerateEmbeddings(ctx, texts[start:end])
		if err != nil {
			return nil, domain.NewProviderError("failed to generate chunk embeddings", err)
		}
		embeddings = append(embeddings, vectors...)
		tokenCounts = append(tokenCounts, tokens...)
	}

	createdAt := time.Now().UTC()
	entries := make([]domain.DocumentChunk, 0, len(chunks))
	for i, c := range chunks {
		entries = append(entries, domain.DocumentChunk{
			ID:            s.uuidGen.NewString(),
			DocumentID:    doc.ID,
			TenantID:      doc.TenantID,
			ChunkIndex:    c.ChunkIndex,
			Content:       c.Content,
			StartChar:     c.StartChar,
			EndChar:       c.EndChar,
			WordCount:     c.Metadata.WordCount,
			TokenEstimate: c.Metadata.TokenEstimate,
			Speaker:       c.Metadata.Speaker,
			Timestamp:     c.Metadata.Timestamp,
			Embedding:     embeddings[i],
			TokenCount:    tokenCounts[i],
			CreatedAt:     createdAt,
		})
	}
	return entries, nil
}

// EmbedQuery generates an embedding for a single query string, returning the
// vector and the query's token cost
func (s *EmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, int, error) {
	vector, tokens, err := s.client.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, 0, domain.NewProviderError("failed to embed query", err)
	}
	return vector, tokens, nil
}

//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenworks/briefbase/internal/domain"
	"github.com/lumenworks/briefbase/internal/testutil"
)

const embeddingDims = 1536

// unitVector returns a basis vector, so cosine similarity between two
// different axes is exactly zero and between equal axes exactly one.
func unitVector(axis int) []float32 {
	v := make([]float32, embeddingDims)
	v[axis] = 1
	return v
}

func newTestChunk(documentID, tenantID string, index int, content string, embedding []float32) domain.DocumentChunk {
	return domain.DocumentChunk{
		ID:            uuid.NewString(),
		DocumentID:    documentID,
		TenantID:      tenantID,
		ChunkIndex:    index,
		Content:       content,
		StartChar:     0,
		EndChar:       len(content),
		WordCount:     2,
		TokenEstimate: (len(content) + 3) / 4,
		Embedding:     embedding,
		TokenCount:    3,
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestDocumentChunkRepository_ReplaceChunks(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewDocumentChunkRepository(pool)

	doc := newTestDocument("t1", "doc.txt", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, docRepo.Create(ctx, doc))

	first := []domain.DocumentChunk{
		newTestChunk(doc.ID, "t1", 0, "first pass a", unitVector(0)),
		newTestChunk(doc.ID, "t1", 1, "first pass b", unitVector(1)),
	}
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, first))

	count, err := chunkRepo.CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Reprocessing replaces the whole set, not just overlapping indices.
	second := []domain.DocumentChunk{
		newTestChunk(doc.ID, "t1", 0, "second pass", unitVector(2)),
	}
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, second))

	count, err = chunkRepo.CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDocumentChunkRepository_ReplaceChunks_TranscriptMetadata(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewDocumentChunkRepository(pool)

	doc := newTestDocument("t1", "standup.txt", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, docRepo.Create(ctx, doc))

	chunk := newTestChunk(doc.ID, "t1", 0, "We shipped the parser.", unitVector(0))
	chunk.Speaker = "Alice"
	chunk.Timestamp = "00:01"
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, []domain.DocumentChunk{chunk}))

	var speaker, tsLabel string
	err := pool.QueryRow(ctx,
		`SELECT speaker, ts_label FROM document_chunks WHERE id = $1`,
		chunk.ID,
	).Scan(&speaker, &tsLabel)
	require.NoError(t, err)
	assert.Equal(t, "Alice", speaker)
	assert.Equal(t, "00:01", tsLabel)
}

func TestDocumentChunkRepository_SearchChunksByEmbedding(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewDocumentChunkRepository(pool)

	doc := newTestDocument("t1", "doc.txt", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, docRepo.Create(ctx, doc))

	exact := newTestChunk(doc.ID, "t1", 0, "exact match", unitVector(0))
	orthogonal := newTestChunk(doc.ID, "t1", 1, "unrelated", unitVector(1))
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, []domain.DocumentChunk{exact, orthogonal}))

	candidates, err := chunkRepo.SearchChunksByEmbedding(ctx, unitVector(0), 0.5, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, exact.ID, candidates[0].ChunkID)
	assert.Equal(t, doc.ID, candidates[0].DocumentID)
	assert.Equal(t, "exact match", candidates[0].Content)
	assert.InDelta(t, 1.0, candidates[0].Similarity, 0.001)
}

func TestDocumentChunkRepository_SearchChunksByEmbedding_OrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewDocumentChunkRepository(pool)

	doc := newTestDocument("t1", "doc.txt", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, docRepo.Create(ctx, doc))

	// Cosine similarity to axis 0: 1.0 for the aligned vector, ~0.707 for
	// the diagonal one.
	diagonal := make([]float32, embeddingDims)
	diagonal[0] = 1
	diagonal[1] = 1

	aligned := newTestChunk(doc.ID, "t1", 0, "aligned", unitVector(0))
	partial := newTestChunk(doc.ID, "t1", 1, "partial", diagonal)
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, []domain.DocumentChunk{partial, aligned}))

	candidates, err := chunkRepo.SearchChunksByEmbedding(ctx, unitVector(0), 0.5, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, aligned.ID, candidates[0].ChunkID)
	assert.Equal(t, partial.ID, candidates[1].ChunkID)
	assert.Greater(t, candidates[0].Similarity, candidates[1].Similarity)
}

func TestDocumentChunkRepository_SearchChunksByEmbedding_Empty(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	chunkRepo := NewDocumentChunkRepository(pool)

	candidates, err := chunkRepo.SearchChunksByEmbedding(ctx, unitVector(0), 0.7, 10)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/lumenworks/briefbase/internal/domain"
	"github.com/lumenworks/briefbase/internal/service"
)

// DocumentChunkRepository persists chunk embeddings and serves as the
// vector-similarity oracle for retrieval.
type DocumentChunkRepository struct {
	pool *pgxpool.Pool
}

func NewDocumentChunkRepository(pool *pgxpool.Pool) *DocumentChunkRepository {
	return &DocumentChunkRepository{pool: pool}
}

// ReplaceChunks swaps a document's chunk set in a single transaction so a
// failed reprocessing never leaves the document half-written: either the
// prior set survives or the new set is fully visible.
func (r *DocumentChunkRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		return err
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO document_chunks
				(id, document_id, tenant_id, chunk_index, content, start_char, end_char,
				 word_count, token_estimate, speaker, ts_label, embedding, token_count, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			c.ID,
			c.DocumentID,
			c.TenantID,
			c.ChunkIndex,
			c.Content,
			c.StartChar,
			c.EndChar,
			c.WordCount,
			c.TokenEstimate,
			nullableString(c.Speaker),
			nullableString(c.Timestamp),
			pgvector.NewVector(c.Embedding),
			c.TokenCount,
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// SearchChunksByEmbedding returns candidate chunks above the similarity
// threshold, ordered by cosine similarity descending.
func (r *DocumentChunkRepository) SearchChunksByEmbedding(ctx context.Context, embedding []float32, threshold float32, limit int) ([]*service.ChunkCandidate, error) {
	if limit <= 0 {
		limit = 20
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.pool.Query(ctx,
		`SELECT id, document_id, content, chunk_index, token_estimate,
		        1 - (embedding <=> $1) AS similarity
		 FROM document_chunks
		 WHERE embedding IS NOT NULL
		   AND 1 - (embedding <=> $1) > $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	candidates := make([]*service.ChunkCandidate, 0, limit)
	for rows.Next() {
		var c service.ChunkCandidate
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.Content, &c.ChunkIndex, &c.TokenEstimate, &c.Similarity); err != nil {
			return nil, err
		}
		candidates = append(candidates, &c)
	}
	return candidates, rows.Err()
}

// CountByDocument reports how many chunks a document currently has.
func (r *DocumentChunkRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`,
		documentID,
	).Scan(&count)
	return count, err
}

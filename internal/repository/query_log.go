package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenworks/briefbase/internal/service"
)

// QueryLogRepository stores retrieval logs for evaluation/feedback loops.
type QueryLogRepository struct {
	pool *pgxpool.Pool
}

func NewQueryLogRepository(pool *pgxpool.Pool) *QueryLogRepository {
	return &QueryLogRepository{pool: pool}
}

func (r *QueryLogRepository) CreateQueryLog(ctx context.Context, entry service.QueryLogEntry) (string, error) {
	chunksJSON, err := json.Marshal(entry.Chunks)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chunk refs: %w", err)
	}

	var id string
	err = r.pool.QueryRow(ctx,
		`INSERT INTO query_logs (tenant_id, query, hybrid, top_k, total_tokens, duration_ms, chunks, chunk_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		entry.TenantID,
		entry.Query,
		entry.Hybrid,
		entry.TopK,
		entry.TotalTokens,
		entry.DurationMs,
		chunksJSON,
		len(entry.Chunks),
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

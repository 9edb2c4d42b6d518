//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenworks/briefbase/internal/service"
	"github.com/lumenworks/briefbase/internal/testutil"
)

func TestQueryLogRepository_CreateQueryLog(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewQueryLogRepository(pool)

	id, err := repo.CreateQueryLog(ctx, service.QueryLogEntry{
		TenantID:    "t1",
		Query:       "refund policy",
		Hybrid:      true,
		TopK:        5,
		TotalTokens: 312,
		DurationMs:  48,
		Chunks: []service.QueryLogChunk{
			{ChunkID: "c1", DocumentID: "d1", Similarity: 0.91},
			{ChunkID: "c2", DocumentID: "d1", Similarity: 0.84},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var (
		tenantID   string
		hybrid     bool
		chunkCount int
		chunksJSON []byte
	)
	err = pool.QueryRow(ctx,
		`SELECT tenant_id, hybrid, chunk_count, chunks FROM query_logs WHERE id = $1`,
		id,
	).Scan(&tenantID, &hybrid, &chunkCount, &chunksJSON)
	require.NoError(t, err)
	assert.Equal(t, "t1", tenantID)
	assert.True(t, hybrid)
	assert.Equal(t, 2, chunkCount)
	assert.Contains(t, string(chunksJSON), `"chunk_id"`)
}

func TestQueryLogRepository_CreateQueryLog_NoChunks(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewQueryLogRepository(pool)

	id, err := repo.CreateQueryLog(ctx, service.QueryLogEntry{
		TenantID: "t1",
		Query:    "nothing relevant",
		TopK:     5,
	})
	require.NoError(t, err)

	var chunkCount int
	err = pool.QueryRow(ctx, `SELECT chunk_count FROM query_logs WHERE id = $1`, id).Scan(&chunkCount)
	require.NoError(t, err)
	assert.Zero(t, chunkCount)
}

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
	"github.com/lumenworks/briefbase/internal/pagination"
	"github.com/lumenworks/briefbase/internal/testutil"
)

func newTestDocument(tenantID, name string, createdAt time.Time) *domain.Document {
	return domain.NewDocument(uuid.NewString(), tenantID, name, domain.SourceTypeDocument, "some content", createdAt)
}

func TestDocumentRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	doc := newTestDocument("t1", "handbook.txt", time.Now().UTC().Truncate(time.Microsecond))
	doc.StorageKey = "sources/t1/" + doc.ID + ".txt"
	require.NoError(t, repo.Create(ctx, doc))

	retrieved, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, retrieved.ID)
	assert.Equal(t, "t1", retrieved.TenantID)
	assert.Equal(t, "handbook.txt", retrieved.Name)
	assert.Equal(t, domain.SourceTypeDocument, retrieved.SourceType)
	assert.Equal(t, domain.DocumentStatusPending, retrieved.Status)
	assert.Equal(t, "some content", retrieved.Content)
	assert.Equal(t, doc.StorageKey, retrieved.StorageKey)
}

func TestDocumentRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentRepository_GetMetaByIDs(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	a := newTestDocument("t1", "a.txt", now)
	b := newTestDocument("t2", "b.txt", now)
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	metas, err := repo.GetMetaByIDs(ctx, []string{a.ID, b.ID, uuid.NewString()})
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "a.txt", metas[a.ID].Name)
	assert.Equal(t, "t2", metas[b.ID].TenantID)
}

func TestDocumentRepository_ListByTenantWithCursor(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond).Add(-time.Hour)
	for i := 0; i < 3; i++ {
		doc := newTestDocument("t1", "doc.txt", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Create(ctx, doc))
	}
	other := newTestDocument("t2", "other.txt", base)
	require.NoError(t, repo.Create(ctx, other))

	page1, err := repo.ListByTenantWithCursor(ctx, "t1", nil, 2)
	require.NoError(t, err)
	require.Len(t, page1.Items, 2)
	assert.True(t, page1.HasMore)
	assert.NotEmpty(t, page1.NextCursor)
	// Newest first.
	assert.True(t, page1.Items[0].UpdatedAt.After(page1.Items[1].UpdatedAt))

	cursor, err := pagination.DecodeCursor(page1.NextCursor)
	require.NoError(t, err)

	page2, err := repo.ListByTenantWithCursor(ctx, "t1", cursor, 2)
	require.NoError(t, err)
	require.Len(t, page2.Items, 1)
	assert.False(t, page2.HasMore)
	assert.Empty(t, page2.NextCursor)

	for _, d := range append(page1.Items, page2.Items...) {
		assert.Equal(t, "t1", d.TenantID)
	}
}

func TestDocumentRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	doc := newTestDocument("t1", "doc.txt", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, doc))

	require.NoError(t, repo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusProcessed))

	retrieved, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusProcessed, retrieved.Status)
	assert.True(t, retrieved.UpdatedAt.After(doc.UpdatedAt))

	err = repo.UpdateStatus(ctx, uuid.NewString(), domain.DocumentStatusFailed)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentRepository_Delete_CascadesToChunksAndJobs(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewDocumentChunkRepository(pool)
	jobRepo := NewIngestJobRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	doc := newTestDocument("t1", "doc.txt", now)
	require.NoError(t, docRepo.Create(ctx, doc))
	require.NoError(t, jobRepo.Create(ctx, domain.NewIngestJob(uuid.NewString(), doc.ID, now)))
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, []domain.DocumentChunk{
		newTestChunk(doc.ID, "t1", 0, "chunk body", unitVector(0)),
	}))

	require.NoError(t, docRepo.Delete(ctx, doc.ID))

	_, err := docRepo.GetByID(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	count, err := chunkRepo.CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	err = docRepo.Delete(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

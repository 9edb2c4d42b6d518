package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenworks/briefbase/internal/domain"
)

func TestBuildContext_Empty(t *testing.T) {
	assert.Equal(t, NoRelevantDocuments, BuildContext(nil))
	assert.Equal(t, NoRelevantDocuments, BuildContext([]*domain.RetrievedChunk{}))
}

func TestBuildContext_FormatsSourceMarkers(t *testing.T) {
	chunks := []*domain.RetrievedChunk{
		{ChunkID: "c1", DocumentID: "d1", DocumentName: "handbook.txt", ChunkIndex: 0, Content: "First block."},
		{ChunkID: "c2", DocumentID: "d2", DocumentName: "notes.txt", ChunkIndex: 4, Content: "Second block."},
	}

	got := BuildContext(chunks)
	want := "[Source 1: handbook.txt (Chunk 1)]\nFirst block." +
		"\n\n---\n\n" +
		"[Source 2: notes.txt (Chunk 5)]\nSecond block."
	assert.Equal(t, want, got)
}

func TestExtractCitations(t *testing.T) {
	long := strings.Repeat("z", 250)
	chunks := []*domain.RetrievedChunk{
		{ChunkID: "c1", DocumentID: "d1", DocumentName: "handbook.txt", ChunkIndex: 2, Content: "short", Similarity: 0.91},
		{ChunkID: "c2", DocumentID: "d2", DocumentName: "notes.txt", ChunkIndex: 0, Content: long, Similarity: 0.85},
	}

	citations := ExtractCitations(chunks)
	require.Len(t, citations, 2)

	assert.Equal(t, "c1", citations[0].ID)
	assert.Equal(t, "d1", citations[0].DocumentID)
	assert.Equal(t, "handbook.txt", citations[0].DocumentName)
	assert.Equal(t, "short", citations[0].Excerpt)
	assert.Equal(t, float32(0.91), citations[0].Similarity)
	assert.Equal(t, 2, citations[0].ChunkIndex)

	assert.Equal(t, strings.Repeat("z", 200)+"...", citations[1].Excerpt)
}

func TestExtractCitations_Empty(t *testing.T) {
	citations := ExtractCitations(nil)
	assert.NotNil(t, citations)
	assert.Empty(t, citations)
}

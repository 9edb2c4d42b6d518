package domain

import "time"

// ChunkMetadata carries size accounting and, for transcript chunks, speaker
// attribution. Extra holds source-specific metadata that the pipeline does
// not interpret.
type ChunkMetadata struct {
	WordCount     int
	TokenEstimate int
	Speaker       string
	Timestamp     string
	Extra         map[string]string
}

// Chunk is a contiguous slice of normalized source text, the atomic
// retrieval unit. StartChar/EndChar are offsets into the normalized text.
// Chunks are immutable once created; reprocessing a source replaces its
// chunk set wholesale rather than mutating individual chunks.
type Chunk struct {
	Content    string
	ChunkIndex int
	StartChar  int
	EndChar    int
	Metadata   ChunkMetadata
}

// DocumentChunk is a persisted chunk with its embedding, owned by exactly
// one document.
type DocumentChunk struct {
	ID            string
	DocumentID    string
	TenantID      string
	ChunkIndex    int
	Content       string
	StartChar     int
	EndChar       int
	WordCount     int
	TokenEstimate int
	Speaker       string
	Timestamp     string
	Embedding     []float32
	TokenCount    int
	CreatedAt     time.Time
}

// RetrievedChunk is a chunk enriched with retrieval-time information.
// Constructed per query, never persisted.
type RetrievedChunk struct {
	ChunkID       string
	DocumentID    string
	DocumentName  string
	ChunkIndex    int
	Content       string
	TokenEstimate int
	Similarity    float32
}

// RAGResult is the output of one retrieval call. TotalTokens covers the
// query plus all selected chunks and never exceeds the configured budget.
type RAGResult struct {
	Chunks      []*RetrievedChunk
	Query       string
	TotalTokens int
}

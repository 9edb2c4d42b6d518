package service

import "context"

// QueryLogChunk captures a single retrieved chunk for logging.
type QueryLogChunk struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Similarity float32 `json:"similarity"`
}

// QueryLogEntry captures one retrieval call and its outcome for later
// relevance analysis. TopK is the effective value the retrieval ran with,
// not the raw request value.
type QueryLogEntry struct {
	TenantID    string
	Query       string
	Hybrid      bool
	TopK        int
	TotalTokens int
	DurationMs  int64
	Chunks      []QueryLogChunk
}

// QueryLogRepository persists retrieval logs.
type QueryLogRepository interface {
	CreateQueryLog(ctx context.Context, entry QueryLogEntry) (string, error)
}

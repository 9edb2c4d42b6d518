package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/lumenworks/briefbase/internal/api"
	"github.com/lumenworks/briefbase/internal/api/middleware"
	"github.com/lumenworks/briefbase/internal/domain"
	"github.com/lumenworks/briefbase/internal/service"
)

type RetrieverService interface {
	Retrieve(ctx context.Context, query string, opts service.RetrieveOptions) (*domain.RAGResult, error)
	HybridSearch(ctx context.Context, query string, opts service.RetrieveOptions) (*domain.RAGResult, error)
}

type QueryHandler struct {
	retriever RetrieverService
	logRepo   service.QueryLogRepository
}

// NewQueryHandler creates a query handler. logRepo may be nil; query
// logging is best effort and never fails a request.
func NewQueryHandler(retriever RetrieverService, logRepo service.QueryLogRepository) *QueryHandler {
	return &QueryHandler{retriever: retriever, logRepo: logRepo}
}

type QueryRequest struct {
	Query               string   `json:"query"`
	TopK                int      `json:"top_k"`
	SimilarityThreshold float32  `json:"similarity_threshold"`
	MaxTokens           int      `json:"max_tokens"`
	DocumentIDs         []string `json:"document_ids"`
	Hybrid              bool     `json:"hybrid"`
	KeywordBoost        float32  `json:"keyword_boost"`
}

type QueryChunkResponse struct {
	ChunkID       string  `json:"chunk_id"`
	DocumentID    string  `json:"document_id"`
	DocumentName  string  `json:"document_name"`
	ChunkIndex    int     `json:"chunk_index"`
	Content       string  `json:"content"`
	TokenEstimate int     `json:"token_estimate"`
	Similarity    float32 `json:"similarity"`
}

type QueryResponse struct {
	Context     string               `json:"context"`
	Citations   []service.Citation   `json:"citations"`
	Chunks      []QueryChunkResponse `json:"chunks"`
	TotalTokens int                  `json:"total_tokens"`
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	opts := service.RetrieveOptions{
		TopK:                req.TopK,
		SimilarityThreshold: req.SimilarityThreshold,
		MaxTokens:           req.MaxTokens,
		DocumentIDs:         req.DocumentIDs,
		TenantID:            tenantID,
		KeywordBoost:        req.KeywordBoost,
	}
	if req.Hybrid && req.KeywordBoost == 0 {
		opts.KeywordBoost = service.DefaultKeywordBoost
	}

	start := time.Now()

	var result *domain.RAGResult
	var err error
	if req.Hybrid {
		result, err = h.retriever.HybridSearch(r.Context(), req.Query, opts)
	} else {
		result, err = h.retriever.Retrieve(r.Context(), req.Query, opts)
	}
	if err != nil {
		api.HandleError(w, err)
		return
	}

	h.logQuery(r.Context(), tenantID, req, result, time.Since(start))

	chunks := make([]QueryChunkResponse, len(result.Chunks))
	for i, c := range result.Chunks {
		chunks[i] = QueryChunkResponse{
			ChunkID:       c.ChunkID,
			DocumentID:    c.DocumentID,
			DocumentName:  c.DocumentName,
			ChunkIndex:    c.ChunkIndex,
			Content:       c.Content,
			TokenEstimate: c.TokenEstimate,
			Similarity:    c.Similarity,
		}
	}

	api.Success(w, http.StatusOK, QueryResponse{
		Context:     service.BuildContext(result.Chunks),
		Citations:   service.ExtractCitations(result.Chunks),
		Chunks:      chunks,
		TotalTokens: result.TotalTokens,
	})
}

func (h *QueryHandler) logQuery(ctx context.Context, tenantID string, req QueryRequest, result *domain.RAGResult, elapsed time.Duration) {
	if h.logRepo == nil {
		return
	}

	// Log the topK the retrieval actually ran with, not the raw request
	// value, so defaulted requests don't show up as topK 0.
	topK := req.TopK
	if topK == 0 {
		topK = service.DefaultTopK
	}

	entry := service.QueryLogEntry{
		TenantID:    tenantID,
		Query:       req.Query,
		Hybrid:      req.Hybrid,
		TopK:        topK,
		TotalTokens: result.TotalTokens,
		DurationMs:  elapsed.Milliseconds(),
	}
	for _, c := range result.Chunks {
		entry.Chunks = append(entry.Chunks, service.QueryLogChunk{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			Similarity: c.Similarity,
		})
	}

	if _, err := h.logRepo.CreateQueryLog(ctx, entry); err != nil {
		log.Printf("query_log_error: %v", err)
	}
}

package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lumenworks/briefbase/internal/chunker"
	"github.com/lumenworks/briefbase/internal/domain"
	"github.com/lumenworks/briefbase/internal/telemetry"
)

const (
	// DefaultTopK is the number of chunks returned per retrieval call
	DefaultTopK = 5
	// DefaultSimilarityThreshold filters out weakly related candidates
	DefaultSimilarityThreshold = 0.7
	// DefaultMaxTokens caps the cumulative token cost of query plus chunks
	DefaultMaxTokens = 4000
	// DefaultKeywordBoost weights lexical overlap in the hybrid score
	DefaultKeywordBoost = 0.3

	// candidateMultiplier oversizes the oracle request to leave room for
	// post-filtering by tenant and document scope.
	candidateMultiplier = 2

	// minKeywordLength excludes short words (articles, pronouns) from the
	// hybrid keyword set without a stopword list.
	minKeywordLength = 3
)

// ChunkCandidate is one similarity-oracle hit, ordered by similarity
// descending
type ChunkCandidate struct {
	ChunkID       string
	DocumentID    string
	Content       string
	ChunkIndex    int
	TokenEstimate int
	Similarity    float32
}

// DocumentMeta resolves a chunk's owning document for display and scoping
type DocumentMeta struct {
	ID       string
	Name     string
	TenantID string
}

// SimilarityOracle performs nearest-neighbor vector search. All returned
// candidates satisfy similarity > threshold, ordered descending.
type SimilarityOracle interface {
	SearchChunksByEmbedding(ctx context.Context, embedding []float32, threshold float32, limit int) ([]*ChunkCandidate, error)
}

// DocumentResolver looks up owning-document identity for retrieved chunks
type DocumentResolver interface {
	GetMetaByIDs(ctx context.Context, ids []string) (map[string]*DocumentMeta, error)
}

// QueryEmbedder embeds a query string, returning the vector and the query's
// own token cost
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, int, error)
}

// RetrieveOptions controls one retrieval call. Zero values for TopK,
// SimilarityThreshold, and MaxTokens fall back to the defaults; KeywordBoost
// is taken as given so a caller can disable the lexical component entirely.
type RetrieveOptions struct {
	TopK                int
	SimilarityThreshold float32
	DocumentIDs         []string
	TenantID            string
	MaxTokens           int
	KeywordBoost        float32
}

// DefaultRetrieveOptions provides the standard retrieval configuration
func DefaultRetrieveOptions() RetrieveOptions {
	return RetrieveOptions{
		TopK:                DefaultTopK,
		SimilarityThreshold: DefaultSimilarityThreshold,
		MaxTokens:           DefaultMaxTokens,
		KeywordBoost:        DefaultKeywordBoost,
	}
}

func (o *RetrieveOptions) normalize() error {
	if o.TopK < 0 {
		return domain.NewValidationError(fmt.Sprintf("topK cannot be negative, got %d", o.TopK))
	}
	if o.TopK == 0 {
		o.TopK = DefaultTopK
	}
	if o.MaxTokens < 0 {
		return domain.NewValidationError(fmt.Sprintf("maxTokens cannot be negative, got %d", o.MaxTokens))
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.SimilarityThreshold < 0 || o.SimilarityThreshold > 1 {
		return domain.NewValidationError("similarity threshold must be in [0,1]")
	}
	if o.SimilarityThreshold == 0 {
		o.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if o.KeywordBoost < 0 || o.KeywordBoost > 1 {
		return domain.NewValidationError("keyword boost must be in [0,1]")
	}
	return nil
}

// Retriever orchestrates query embedding, oracle invocation, scope
// filtering, and token-budgeted chunk selection
type Retriever struct {
	embedder  QueryEmbedder
	oracle    SimilarityOracle
	docs      DocumentResolver
	estimator chunker.TokenEstimator
}

// NewRetriever creates a new Retriever instance
func NewRetriever(embedder QueryEmbedder, oracle SimilarityOracle, docs DocumentResolver) *Retriever {
	return &Retriever{
		embedder:  embedder,
		oracle:    oracle,
		docs:      docs,
		estimator: chunker.DefaultEstimator(),
	}
}

// Retrieve runs the baseline vector-only procedure: embed the query, fetch
// 2×topK candidates above the threshold, filter by tenant/document scope,
// then walk candidates in oracle order adding chunks until the token budget
// or topK is reached. The walk stops at the first over-budget candidate
// rather than skipping it, preserving the oracle's relevance ordering.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts RetrieveOptions) (*domain.RAGResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "Retriever.Retrieve", telemetry.SpanAttributes{
		TenantID:  opts.TenantID,
		Operation: "retrieve",
	})
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	embedding, queryTokens, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates, err := r.oracle.SearchChunksByEmbedding(ctx, embedding, opts.SimilarityThreshold, opts.TopK*candidateMultiplier)
	if err != nil {
		return nil, domain.NewProviderError("vector search failed", err)
	}

	result := &domain.RAGResult{
		Chunks:      []*domain.RetrievedChunk{},
		Query:       query,
		TotalTokens: queryTokens,
	}
	if len(candidates) == 0 {
		return result, nil
	}

	metas, err := r.resolveDocuments(ctx, candidates)
	if err != nil {
		return nil, err
	}

	allowed := documentIDSet(opts.DocumentIDs)
	for _, cand := range candidates {
		meta, ok := metas[cand.DocumentID]
		if !ok {
			continue
		}
		if opts.TenantID != "" && meta.TenantID != opts.TenantID {
			// Out-of-scope owner: dropped, not counted against budget.
			continue
		}
		if allowed != nil && !allowed[cand.DocumentID] {
			continue
		}

		cost := cand.TokenEstimate
		if cost <= 0 {
			cost = r.estimator.Estimate(cand.Content)
		}
		if result.TotalTokens+cost > opts.MaxTokens {
			break
		}

		result.Chunks = append(result.Chunks, &domain.RetrievedChunk{
			ChunkID:       cand.ChunkID,
			DocumentID:    cand.DocumentID,
			DocumentName:  meta.Name,
			ChunkIndex:    cand.ChunkIndex,
			Content:       cand.Content,
			TokenEstimate: cost,
			Similarity:    cand.Similarity,
		})
		result.TotalTokens += cost

		if len(result.Chunks) >= opts.TopK {
			break
		}
	}

	return result, nil
}

// HybridSearch runs the baseline procedure over an enlarged 2×topK pool,
// then reranks by fusing vector similarity with lexical keyword overlap and
// truncates to topK. The budget walk happens before reranking, so a
// candidate excluded by the budget cannot resurface with a high keyword
// score; widening the pre-rerank pool would change retrieval semantics and
// is deliberately not done here.
func (r *Retriever) HybridSearch(ctx context.Context, query string, opts RetrieveOptions) (*domain.RAGResult, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	pool := opts
	pool.TopK = opts.TopK * 2
	result, err := r.Retrieve(ctx, query, pool)
	if err != nil {
		return nil, err
	}
	if len(result.Chunks) == 0 {
		return result, nil
	}

	keywords := queryKeywords(query)
	scored := make([]*domain.RetrievedChunk, len(result.Chunks))
	copy(scored, result.Chunks)

	combined := make(map[*domain.RetrievedChunk]float32, len(scored))
	for _, c := range scored {
		kw := keywordScore(c.Content, keywords)
		combined[c] = c.Similarity*(1-opts.KeywordBoost) + kw*opts.KeywordBoost
	}

	// Stable sort keeps the original vector-similarity order on ties.
	sort.SliceStable(scored, func(i, j int) bool {
		return combined[scored[i]] > combined[scored[j]]
	})

	if len(scored) > opts.TopK {
		scored = scored[:opts.TopK]
	}

	queryTokens := result.TotalTokens
	for _, c := range result.Chunks {
		queryTokens -= c.TokenEstimate
	}

	total := queryTokens
	for _, c := range scored {
		c.Similarity = combined[c]
		total += c.TokenEstimate
	}

	return &domain.RAGResult{
		Chunks:      scored,
		Query:       query,
		TotalTokens: total,
	}, nil
}

func (r *Retriever) resolveDocuments(ctx context.Context, candidates []*ChunkCandidate) (map[string]*DocumentMeta, error) {
	seen := make(map[string]bool, len(candidates))
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !seen[c.DocumentID] {
			seen[c.DocumentID] = true
			ids = append(ids, c.DocumentID)
		}
	}
	metas, err := r.docs.GetMetaByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve documents: %w", err)
	}
	return metas, nil
}

func documentIDSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// queryKeywords tokenizes the query into lowercase words longer than three
// characters. A heuristic, not a real tokenizer.
func queryKeywords(query string) []string {
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, `.,!?;:"'()[]`)
		if len(word) > minKeywordLength {
			keywords = append(keywords, word)
		}
	}
	return keywords
}

// keywordScore is the fraction of query keywords present as case-insensitive
// substrings of the chunk, zero when there are no qualifying keywords.
func keywordScore(content string, keywords []string) float32 {
	if len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			matched++
		}
	}
	return float32(matched) / float32(len(keywords))
}

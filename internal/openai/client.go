package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lumenworks/briefbase/internal/chunker"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the expected dimension of generated embeddings
	DefaultEmbeddingDimensions = 1536
	// MaxBatchSize is the largest number of texts sent in one provider call
	MaxBatchSize = 100
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrEmptyBatch is returned when a batch contains no texts
	ErrEmptyBatch = errors.New("batch cannot be empty")
	// ErrBatchTooLarge is returned when a batch exceeds MaxBatchSize
	ErrBatchTooLarge = fmt.Errorf("batch exceeds maximum of %d texts", MaxBatchSize)
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// EmbeddingAPI defines the provider interface for embedding generation.
// usageTokens is the provider-reported prompt token total for the request,
// zero when the provider does not report usage.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) (vectors [][]float32, usageTokens int, err error)
}

// Client wraps the OpenAI API client with dimension validation and per-text
// token accounting.
type Client struct {
	api        EmbeddingAPI
	dimensions int
	estimator  chunker.TokenEstimator
}

type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings, one vector per
// input in input order.
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, int, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	})
	if err != nil {
		return nil, 0, err
	}

	if len(resp.Data) != len(texts) {
		return nil, 0, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, resp.Usage.PromptTokens, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	Estimator           chunker.TokenEstimator
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	estimator := cfg.Estimator
	if estimator == nil {
		estimator = chunker.DefaultEstimator()
	}
	return &Client{
		api:        NewOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel),
		dimensions: dimensions,
		estimator:  estimator,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// GenerateEmbedding generates an embedding for a single text. The returned
// token count is the provider-reported usage when available, estimated
// otherwise.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, int, error) {
	if text == "" {
		return nil, 0, ErrEmptyText
	}

	vectors, usage, err := c.api.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(vectors) == 0 {
		return nil, 0, errors.New("no embedding data returned")
	}
	if err := c.checkDimensions(vectors[0]); err != nil {
		return nil, 0, err
	}

	tokens := usage
	if tokens <= 0 {
		tokens = c.estimator.Estimate(text)
	}
	return vectors[0], tokens, nil
}

// GenerateEmbeddings generates embeddings for up to MaxBatchSize texts in
// one provider call, order-preserving. Per-text token counts are estimated
// because the provider only reports a request-level total.
func (c *Client) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, []int, error) {
	if len(texts) == 0 {
		return nil, nil, ErrEmptyBatch
	}
	if len(texts) > MaxBatchSize {
		return nil, nil, ErrBatchTooLarge
	}

	vectors, _, err := c.api.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors))
	}

	tokens := make([]int, len(texts))
	for i, v := range vectors {
		if err := c.checkDimensions(v); err != nil {
			return nil, nil, err
		}
		tokens[i] = c.estimator.Estimate(texts[i])
	}
	return vectors, tokens, nil
}

func (c *Client) checkDimensions(embedding []float32) error {
	expected := c.dimensions
	if expected <= 0 {
		expected = DefaultEmbeddingDimensions
	}
	if len(embedding) != expected {
		return fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, expected, len(embedding))
	}
	return nil
}

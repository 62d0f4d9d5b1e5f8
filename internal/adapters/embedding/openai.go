// Package embedding provides the OpenAI embedding adapter implementing
// ports.EmbeddingService.
package embedding

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/entities"
	"github.com/BenLus/Github-Repo-Chatbot/internal/retry"
)

const (
	// DefaultModel matches the model the index was built for.
	DefaultModel = "text-embedding-3-small"

	// DefaultDimensions is the output dimensionality of DefaultModel.
	DefaultDimensions = 1536

	// maxBatchSize is the largest request the adapter sends in one call.
	// Larger inputs are split and rejoined transparently.
	maxBatchSize = 20
)

// OpenAIAdapter implements ports.EmbeddingService using the OpenAI API.
// Transient failures are retried with the shared backoff policy; exhausting
// the budget surfaces entities.ErrEmbeddingUnavailable.
type OpenAIAdapter struct {
	client    *openai.Client
	model     string
	dims      int
	batchSize int
	policy    retry.Policy
	logger    *slog.Logger
}

// NewOpenAIAdapter creates an adapter. baseURL overrides the API endpoint
// (used by tests); empty means the public API.
func NewOpenAIAdapter(apiKey, baseURL, model string, dims int, logger *slog.Logger) *OpenAIAdapter {
	if model == "" {
		model = DefaultModel
	}
	if dims <= 0 {
		dims = DefaultDimensions
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIAdapter{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		dims:      dims,
		batchSize: maxBatchSize,
		policy:    retry.DefaultPolicy(),
		logger:    logger,
	}
}

// Model identifies the embedding model configuration.
func (a *OpenAIAdapter) Model() string { return a.model }

// Dimensions is the fixed vector dimensionality this adapter produces.
func (a *OpenAIAdapter) Dimensions() int { return a.dims }

// Embed generates an embedding for a single text.
func (a *OpenAIAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates one vector per input, in input order. Batches beyond
// the service limit are split; callers never see the split.
func (a *OpenAIAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += a.batchSize {
		end := min(start+a.batchSize, len(texts))
		batch, err := a.embedOnce(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// embedOnce sends one batch, retrying transient failures.
func (a *OpenAIAdapter) embedOnce(ctx context.Context, batch []string) ([][]float32, error) {
	var rsp openai.EmbeddingResponse
	err := a.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		rsp, err = a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(a.model),
			Input: batch,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrEmbeddingUnavailable, err)
	}

	if len(rsp.Data) != len(batch) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", entities.ErrEmbeddingUnavailable, len(rsp.Data), len(batch))
	}

	vectors := make([][]float32, len(batch))
	for _, item := range rsp.Data {
		if item.Index < 0 || item.Index >= len(batch) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", entities.ErrEmbeddingUnavailable, item.Index)
		}
		if len(item.Embedding) != a.dims {
			return nil, fmt.Errorf("%w: model %s returned %d dimensions, expected %d",
				entities.ErrDimensionMismatch, a.model, len(item.Embedding), a.dims)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

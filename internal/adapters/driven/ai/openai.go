package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure OpenAI-compatible services implement the ports
var (
	_ driven.EmbeddingService = (*OpenAIEmbedding)(nil)
	_ driven.LLMService       = (*OpenAILLM)(nil)
)

// OpenAIEmbedding implements EmbeddingService against any OpenAI-compatible
// server (vLLM, LocalAI, Ollama's /v1) through langchaingo.
type OpenAIEmbedding struct {
	embedder embeddings.Embedder
	model    string
	logger   *slog.Logger
}

// NewOpenAIEmbedding creates an embedding service for an OpenAI-compatible endpoint.
// baseURL must include the API version path, e.g. http://host:11434/v1.
func NewOpenAIEmbedding(baseURL, model string) (*OpenAIEmbedding, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", domain.ErrInvalidInput)
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}

	// Local OpenAI-compatible servers do not check the token
	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return &OpenAIEmbedding{
		embedder: embedder,
		model:    model,
		logger:   slog.Default().With("component", "openai-embedding"),
	}, nil
}

// Embed generates embeddings for texts
func (e *OpenAIEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "error", err)
		return nil, err
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d texts, received %d embeddings",
			domain.ErrLengthMismatch, len(texts), len(vectors))
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a question
func (e *OpenAIEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Model returns the model name being used
func (e *OpenAIEmbedding) Model() string {
	return e.model
}

// HealthCheck verifies the embedding service is available
func (e *OpenAIEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "health check")
	return err
}

// Close is a no-op; langchaingo owns its transport
func (e *OpenAIEmbedding) Close() error {
	return nil
}

// OpenAILLM implements LLMService against an OpenAI-compatible chat endpoint
type OpenAILLM struct {
	client llms.Model
	model  string
}

// NewOpenAILLM creates a generation service for an OpenAI-compatible endpoint
func NewOpenAILLM(baseURL, model string) (*OpenAILLM, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", domain.ErrInvalidInput)
	}
	if model == "" {
		model = DefaultGenerationModel
	}

	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken("none"),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}

	return &OpenAILLM{client: client, model: model}, nil
}

// Generate returns the full completion for prompt
func (l *OpenAILLM) Generate(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, l.client, prompt)
}

// Model returns the model name being used
func (l *OpenAILLM) Model() string {
	return l.model
}

// Ping is not supported by the generic OpenAI API without spending a completion
func (l *OpenAILLM) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op; langchaingo owns its transport
func (l *OpenAILLM) Close() error {
	return nil
}

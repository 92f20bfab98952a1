package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Ollama services implement the ports
var (
	_ driven.EmbeddingService = (*OllamaEmbedding)(nil)
	_ driven.LLMService       = (*OllamaLLM)(nil)
)

// DefaultTimeout bounds every call to the model server
const DefaultTimeout = 300 * time.Second

// ollamaClient is the HTTP transport shared by the Ollama services
type ollamaClient struct {
	baseURL string
	client  *http.Client
}

func newOllamaClient(baseURL string, timeout time.Duration) ollamaClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return ollamaClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// doRequest posts reqBody as JSON to path and decodes the response into out
func (c ollamaClient) doRequest(ctx context.Context, path string, reqBody, out interface{}) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c ollamaClient) close() {
	c.client.CloseIdleConnections()
}

// OllamaEmbedding implements EmbeddingService using Ollama's /api/embed endpoint
type OllamaEmbedding struct {
	ollamaClient
	model string
}

// NewOllamaEmbedding creates a new Ollama embedding service
func NewOllamaEmbedding(baseURL, model string, timeout time.Duration) (*OllamaEmbedding, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: ollama base URL is required", domain.ErrInvalidInput)
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return &OllamaEmbedding{
		ollamaClient: newOllamaClient(baseURL, timeout),
		model:        model,
	}, nil
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates embeddings for texts in a single request
func (e *OllamaEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp ollamaEmbedResponse
	if err := e.doRequest(ctx, "/api/embed", ollamaEmbedRequest{Model: e.model, Input: texts}, &resp); err != nil {
		return nil, err
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d texts, received %d embeddings",
			domain.ErrLengthMismatch, len(texts), len(resp.Embeddings))
	}

	return resp.Embeddings, nil
}

// EmbedQuery generates an embedding for a question
func (e *OllamaEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// Model returns the model name being used
func (e *OllamaEmbedding) Model() string {
	return e.model
}

// HealthCheck verifies the embedding service is available
func (e *OllamaEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "health check")
	return err
}

// Close releases resources held by the embedding service
func (e *OllamaEmbedding) Close() error {
	e.close()
	return nil
}

// OllamaLLM implements LLMService using Ollama's /api/generate endpoint
type OllamaLLM struct {
	ollamaClient
	model string
}

// NewOllamaLLM creates a new Ollama generation service
func NewOllamaLLM(baseURL, model string, timeout time.Duration) (*OllamaLLM, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: ollama base URL is required", domain.ErrInvalidInput)
	}
	if model == "" {
		model = DefaultGenerationModel
	}

	return &OllamaLLM{
		ollamaClient: newOllamaClient(baseURL, timeout),
		model:        model,
	}, nil
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

// Generate returns the full, non-streamed completion for prompt
func (l *OllamaLLM) Generate(ctx context.Context, prompt string) (string, error) {
	var resp ollamaGenerateResponse
	req := ollamaGenerateRequest{Model: l.model, Prompt: prompt, Stream: false}
	if err := l.doRequest(ctx, "/api/generate", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// Model returns the model name being used
func (l *OllamaLLM) Model() string {
	return l.model
}

// Ping verifies the model server answers. /api/version does not load the model.
func (l *OllamaLLM) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/api/version", nil)
	if err != nil {
		return err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", domain.ErrServiceUnavailable, resp.StatusCode)
	}
	return nil
}

// Close releases resources held by the generation service
func (l *OllamaLLM) Close() error {
	l.close()
	return nil
}

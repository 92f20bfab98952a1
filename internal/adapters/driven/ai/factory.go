package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Factory implements AIServiceFactory
var _ driven.AIServiceFactory = (*Factory)(nil)

// Supported providers
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Default models
const (
	DefaultEmbeddingModel  = "embeddinggemma"
	DefaultGenerationModel = "gemma3:4b"
)

// Config selects the provider and models for created services
type Config struct {
	Provider        string
	EmbeddingModel  string
	GenerationModel string
	Timeout         time.Duration
}

// DefaultConfig returns the Ollama configuration
func DefaultConfig() Config {
	return Config{
		Provider:        ProviderOllama,
		EmbeddingModel:  DefaultEmbeddingModel,
		GenerationModel: DefaultGenerationModel,
		Timeout:         DefaultTimeout,
	}
}

// Factory creates AI services for a base URL
type Factory struct {
	config Config
}

// NewFactory creates a new AI service factory
func NewFactory(config Config) (*Factory, error) {
	if config.Provider == "" {
		config.Provider = ProviderOllama
	}
	if !IsSupportedProvider(config.Provider) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, config.Provider)
	}
	return &Factory{config: config}, nil
}

// IsSupportedProvider reports whether provider can be created by the factory
func IsSupportedProvider(provider string) bool {
	return provider == ProviderOllama || provider == ProviderOpenAI
}

// NormalizeBaseURL trims whitespace and trailing slashes
func NormalizeBaseURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}

// CreateEmbeddingService creates an embedding service talking to baseURL
func (f *Factory) CreateEmbeddingService(baseURL string) (driven.EmbeddingService, error) {
	baseURL = NormalizeBaseURL(baseURL)

	switch f.config.Provider {
	case ProviderOllama:
		return NewOllamaEmbedding(baseURL, f.config.EmbeddingModel, f.config.Timeout)
	case ProviderOpenAI:
		return NewOpenAIEmbedding(openAIBase(baseURL), f.config.EmbeddingModel)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, f.config.Provider)
	}
}

// CreateLLMService creates a generation service talking to baseURL
func (f *Factory) CreateLLMService(baseURL string) (driven.LLMService, error) {
	baseURL = NormalizeBaseURL(baseURL)

	switch f.config.Provider {
	case ProviderOllama:
		return NewOllamaLLM(baseURL, f.config.GenerationModel, f.config.Timeout)
	case ProviderOpenAI:
		return NewOpenAILLM(openAIBase(baseURL), f.config.GenerationModel)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, f.config.Provider)
	}
}

// openAIBase appends the API version path unless the caller already did
func openAIBase(baseURL string) string {
	if baseURL == "" || strings.HasSuffix(baseURL, "/v1") {
		return baseURL
	}
	return baseURL + "/v1"
}

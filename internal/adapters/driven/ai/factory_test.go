package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestNewFactory_DefaultsToOllama(t *testing.T) {
	factory, err := NewFactory(Config{})
	require.NoError(t, err)

	svc, err := factory.CreateEmbeddingService("http://localhost:11434")
	require.NoError(t, err)
	assert.IsType(t, &OllamaEmbedding{}, svc)
}

func TestNewFactory_InvalidProvider(t *testing.T) {
	_, err := NewFactory(Config{Provider: "anthropic"})
	assert.ErrorIs(t, err, domain.ErrInvalidProvider)
}

func TestFactory_StripsTrailingSlash(t *testing.T) {
	factory, err := NewFactory(DefaultConfig())
	require.NoError(t, err)

	emb, err := factory.CreateEmbeddingService("http://localhost:11434//")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", emb.(*OllamaEmbedding).baseURL)

	llm, err := factory.CreateLLMService(" http://localhost:11434/ ")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", llm.(*OllamaLLM).baseURL)
}

func TestFactory_Models(t *testing.T) {
	factory, err := NewFactory(Config{
		Provider:        ProviderOllama,
		EmbeddingModel:  "nomic-embed-text",
		GenerationModel: "llama3",
	})
	require.NoError(t, err)

	emb, err := factory.CreateEmbeddingService("http://localhost:11434")
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", emb.Model())

	llm, err := factory.CreateLLMService("http://localhost:11434")
	require.NoError(t, err)
	assert.Equal(t, "llama3", llm.Model())
}

func TestFactory_EmptyBaseURL(t *testing.T) {
	factory, err := NewFactory(DefaultConfig())
	require.NoError(t, err)

	_, err = factory.CreateEmbeddingService("/")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = factory.CreateLLMService("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFactory_OpenAIProvider(t *testing.T) {
	factory, err := NewFactory(Config{Provider: ProviderOpenAI})
	require.NoError(t, err)

	emb, err := factory.CreateEmbeddingService("http://localhost:8000")
	require.NoError(t, err)
	assert.IsType(t, &OpenAIEmbedding{}, emb)
	assert.Equal(t, DefaultEmbeddingModel, emb.Model())

	llm, err := factory.CreateLLMService("http://localhost:8000/v1/")
	require.NoError(t, err)
	assert.IsType(t, &OpenAILLM{}, llm)
	assert.Equal(t, DefaultGenerationModel, llm.Model())
}

func TestOpenAIBase(t *testing.T) {
	assert.Equal(t, "http://h:1/v1", openAIBase("http://h:1"))
	assert.Equal(t, "http://h:1/v1", openAIBase("http://h:1/v1"))
	assert.Equal(t, "", openAIBase(""))
}

func TestIsSupportedProvider(t *testing.T) {
	assert.True(t, IsSupportedProvider(ProviderOllama))
	assert.True(t, IsSupportedProvider(ProviderOpenAI))
	assert.False(t, IsSupportedProvider("cohere"))
}

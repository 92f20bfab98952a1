package mocks

import (
	"errors"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.AIServiceFactory = (*MockAIFactory)(nil)
	_ driven.EmbeddingService = (*MockEmbeddingService)(nil)
	_ driven.LLMService       = (*MockLLMService)(nil)
	_ driven.DistributedLock  = (*MockDistributedLock)(nil)
)

// ErrMockUnavailable is returned by MockAIFactory when Unavailable is set
var ErrMockUnavailable = errors.New("mock AI service unavailable")

// MockAIFactory hands out fixed services and records the base URLs asked for
type MockAIFactory struct {
	mu        sync.Mutex
	Embedding *MockEmbeddingService
	LLM       *MockLLMService
	baseURLs  []string

	// Unavailable makes every Create call fail
	Unavailable bool
}

// NewMockAIFactory creates a factory over fresh mock services
func NewMockAIFactory() *MockAIFactory {
	return &MockAIFactory{
		Embedding: NewMockEmbeddingService(),
		LLM:       NewMockLLMService("mock answer"),
	}
}

func (f *MockAIFactory) CreateEmbeddingService(baseURL string) (driven.EmbeddingService, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.baseURLs = append(f.baseURLs, baseURL)
	if f.Unavailable {
		return nil, ErrMockUnavailable
	}
	return f.Embedding, nil
}

func (f *MockAIFactory) CreateLLMService(baseURL string) (driven.LLMService, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.baseURLs = append(f.baseURLs, baseURL)
	if f.Unavailable {
		return nil, ErrMockUnavailable
	}
	return f.LLM, nil
}

// BaseURLs returns every base URL passed to the factory
func (f *MockAIFactory) BaseURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.baseURLs...)
}

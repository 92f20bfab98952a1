package runtime

import (
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.AIServiceFactory = (*Services)(nil)

// DefaultMaxEntries bounds the number of cached base URLs
const DefaultMaxEntries = 16

// Services caches AI services per base URL on top of a factory.
// Base URLs arrive with every request, so the same server is reused
// instead of rebuilding its HTTP transport each time.
// Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	factory    driven.AIServiceFactory
	maxEntries int

	embedding map[string]driven.EmbeddingService
	llm       map[string]driven.LLMService
}

// NewServices creates a cache over factory. maxEntries <= 0 uses DefaultMaxEntries.
func NewServices(factory driven.AIServiceFactory, maxEntries int) *Services {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Services{
		factory:    factory,
		maxEntries: maxEntries,
		embedding:  make(map[string]driven.EmbeddingService),
		llm:        make(map[string]driven.LLMService),
	}
}

func normalize(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}

// CreateEmbeddingService returns the cached embedding service for baseURL,
// creating it on first use
func (s *Services) CreateEmbeddingService(baseURL string) (driven.EmbeddingService, error) {
	key := normalize(baseURL)
	if key == "" {
		return nil, fmt.Errorf("%w: no url", domain.ErrInvalidInput)
	}

	s.mu.RLock()
	svc, ok := s.embedding[key]
	s.mu.RUnlock()
	if ok {
		return svc, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if svc, ok := s.embedding[key]; ok {
		return svc, nil
	}

	svc, err := s.factory.CreateEmbeddingService(key)
	if err != nil {
		return nil, err
	}

	if len(s.embedding) >= s.maxEntries {
		for k, old := range s.embedding {
			_ = old.Close()
			delete(s.embedding, k)
		}
	}
	s.embedding[key] = svc
	return svc, nil
}

// CreateLLMService returns the cached generation service for baseURL,
// creating it on first use
func (s *Services) CreateLLMService(baseURL string) (driven.LLMService, error) {
	key := normalize(baseURL)
	if key == "" {
		return nil, fmt.Errorf("%w: no url", domain.ErrInvalidInput)
	}

	s.mu.RLock()
	svc, ok := s.llm[key]
	s.mu.RUnlock()
	if ok {
		return svc, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if svc, ok := s.llm[key]; ok {
		return svc, nil
	}

	svc, err := s.factory.CreateLLMService(key)
	if err != nil {
		return nil, err
	}

	if len(s.llm) >= s.maxEntries {
		for k, old := range s.llm {
			_ = old.Close()
			delete(s.llm, k)
		}
	}
	s.llm[key] = svc
	return svc, nil
}

// Len returns the number of cached embedding and generation services
func (s *Services) Len() (embedding, llm int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.embedding), len(s.llm)
}

// Close shuts down all cached services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, svc := range s.embedding {
		_ = svc.Close()
		delete(s.embedding, k)
	}
	for k, svc := range s.llm {
		_ = svc.Close()
		delete(s.llm, k)
	}

	return nil
}

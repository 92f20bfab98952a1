// Package memory provides in-process implementations of the driven ports.
package memory

import (
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.KnowledgeStore = (*KnowledgeStore)(nil)

// KnowledgeStore keeps chunks and their embeddings in parallel slices.
// len(chunks) == len(vectors) holds after every operation, and every vector
// has the dimensionality fixed by the first append after a clear.
type KnowledgeStore struct {
	mu         sync.RWMutex
	chunks     []domain.Chunk
	vectors    []domain.Vector
	dimensions int
	generation uint64
}

// NewKnowledgeStore creates an empty knowledge store
func NewKnowledgeStore() *KnowledgeStore {
	return &KnowledgeStore{}
}

// Snapshot returns a read view of the current contents.
// Later appends never modify the elements visible through a snapshot.
func (s *KnowledgeStore) Snapshot() driven.KnowledgeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.chunks)
	return driven.KnowledgeSnapshot{
		Chunks:     s.chunks[:n:n],
		Vectors:    s.vectors[:n:n],
		Generation: s.generation,
	}
}

// Append adds texts and vectors as one unit. Nothing is added on error.
func (s *KnowledgeStore) Append(generation uint64, texts []string, vectors []domain.Vector) (int, error) {
	if len(texts) != len(vectors) {
		return 0, fmt.Errorf("%w: %d chunks, %d embeddings", domain.ErrLengthMismatch, len(texts), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return len(s.chunks), domain.ErrStaleGeneration
	}

	dims := s.dimensions
	for i, v := range vectors {
		if len(v) == 0 {
			return len(s.chunks), fmt.Errorf("%w: embedding %d is empty", domain.ErrDimensionMismatch, i)
		}
		if dims == 0 {
			dims = len(v)
		}
		if len(v) != dims {
			return len(s.chunks), fmt.Errorf("%w: embedding %d has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, i, len(v), dims)
		}
	}

	for i, text := range texts {
		s.chunks = append(s.chunks, domain.Chunk{Index: len(s.chunks), Text: text})
		s.vectors = append(s.vectors, vectors[i])
	}
	s.dimensions = dims

	return len(s.chunks), nil
}

// Clear removes everything and starts a new generation
func (s *KnowledgeStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = nil
	s.vectors = nil
	s.dimensions = 0
	s.generation++
}

// Stats returns the current size, dimensionality and generation
func (s *KnowledgeStore) Stats() domain.KnowledgeStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.KnowledgeStats{
		Chunks:     len(s.chunks),
		Dimensions: s.dimensions,
		Generation: s.generation,
	}
}

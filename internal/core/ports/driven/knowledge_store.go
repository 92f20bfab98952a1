package driven

import (
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// KnowledgeSnapshot is a consistent read view of the knowledge base.
// Chunks and Vectors are parallel and must not be modified.
type KnowledgeSnapshot struct {
	Chunks     []domain.Chunk
	Vectors    []domain.Vector
	Generation uint64
}

// Len returns the number of stored chunks
func (s KnowledgeSnapshot) Len() int {
	return len(s.Chunks)
}

// KnowledgeStore is the append-only store of chunks and their embeddings
type KnowledgeStore interface {
	// Snapshot returns the current contents
	Snapshot() KnowledgeSnapshot

	// Append adds texts and their vectors atomically.
	// It fails with domain.ErrStaleGeneration if the store was cleared since
	// generation was observed, and with domain.ErrLengthMismatch or
	// domain.ErrDimensionMismatch if the batch is inconsistent.
	Append(generation uint64, texts []string, vectors []domain.Vector) (total int, err error)

	// Clear removes everything and starts a new generation
	Clear()

	// Stats returns the current size, dimensionality and generation
	Stats() domain.KnowledgeStats
}

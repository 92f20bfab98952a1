package services

import (
	"sort"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// DefaultTopK is the number of chunks used as answer context
const DefaultTopK = 3

// Retrieve scores every stored vector against query by cosine similarity
// and returns the best min(k, n), highest score first. Equal scores keep
// the lower chunk index first.
func Retrieve(query domain.Vector, snapshot driven.KnowledgeSnapshot, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 || snapshot.Len() == 0 {
		return []domain.ScoredChunk{}, nil
	}

	scored := make([]domain.ScoredChunk, len(snapshot.Vectors))
	for i, v := range snapshot.Vectors {
		score, err := domain.CosineSimilarity(query, v)
		if err != nil {
			return nil, err
		}
		scored[i] = domain.ScoredChunk{Index: i, Score: score, Chunk: snapshot.Chunks[i]}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Index < scored[j].Index
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

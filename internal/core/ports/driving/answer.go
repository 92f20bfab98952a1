package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// AnswerService answers questions from the knowledge base
type AnswerService interface {
	// Ask retrieves the most similar chunks and generates a grounded answer
	Ask(ctx context.Context, req domain.AskRequest) (*domain.Answer, error)
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.AnswerService = (*AnswerService)(nil)

const promptTemplate = `Answer the question based only on the following context and answer in the same language as the question:

%s

Question: %s
Answer in full sentence:`

// BuildPrompt fills the answer prompt with context and question
func BuildPrompt(context, question string) string {
	return fmt.Sprintf(promptTemplate, context, question)
}

// AnswerService answers questions from the knowledge base
type AnswerService struct {
	store  driven.KnowledgeStore
	ai     driven.AIServiceFactory
	topK   int
	logger *slog.Logger
}

// AnswerServiceConfig holds dependencies for AnswerService.
type AnswerServiceConfig struct {
	Store  driven.KnowledgeStore
	AI     driven.AIServiceFactory
	TopK   int
	Logger *slog.Logger
}

// NewAnswerService creates a new answer service.
func NewAnswerService(cfg AnswerServiceConfig) *AnswerService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	return &AnswerService{
		store:  cfg.Store,
		ai:     cfg.AI,
		topK:   topK,
		logger: logger.With("component", "answer"),
	}
}

// Ask embeds the question, retrieves the closest chunks and generates an
// answer from them. Inputs are checked before any AI service is contacted:
// service URL, then knowledge base, then question.
func (s *AnswerService) Ask(ctx context.Context, req domain.AskRequest) (*domain.Answer, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(req.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: no url", domain.ErrInvalidInput)
	}

	snapshot := s.store.Snapshot()
	if snapshot.Len() == 0 {
		return nil, domain.ErrEmptyKnowledgeBase
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: no question", domain.ErrInvalidInput)
	}

	start := time.Now()

	embedder, err := s.ai.CreateEmbeddingService(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailed, err)
	}
	query, err := embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailed, err)
	}

	top, err := Retrieve(query, snapshot, s.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailed, err)
	}

	texts := make([]string, len(top))
	sources := make([]domain.Source, len(top))
	for i, sc := range top {
		texts[i] = sc.Chunk.Text
		sources[i] = domain.Source{
			Score: sc.Score,
			Text:  domain.Preview(sc.Chunk.Text, domain.SourcePreviewLength),
		}
	}

	llm, err := s.ai.CreateLLMService(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	answer, err := llm.Generate(ctx, BuildPrompt(strings.Join(texts, "\n\n"), question))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	s.logger.Info("question answered",
		"sources", len(sources),
		"top_score", sources[0].Score,
		"elapsed", time.Since(start),
	)

	return &domain.Answer{Answer: answer, Sources: sources}, nil
}

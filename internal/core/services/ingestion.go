package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.IngestionService = (*IngestionService)(nil)

// Ingestion defaults
const (
	DefaultEmbedBatchSize = 50
	DefaultLockTTL        = time.Hour
	IngestLockName        = "ingest"
)

// Submitter runs a job in the background
type Submitter interface {
	Submit(job func()) error
}

// IngestionService turns uploaded documents into knowledge-base entries.
// A run goes extract → chunk → embed in batches → append, reporting every
// step to the JobTracker.
type IngestionService struct {
	extractors driven.ExtractorRegistry
	pipeline   driven.PostProcessorPipeline
	store      driven.KnowledgeStore
	ai         driven.AIServiceFactory
	lock       driven.DistributedLock
	worker     Submitter
	tracker    *JobTracker
	batchSize  int
	lockTTL    time.Duration
	logger     *slog.Logger
}

// IngestionServiceConfig holds dependencies for IngestionService.
type IngestionServiceConfig struct {
	Extractors driven.ExtractorRegistry
	Pipeline   driven.PostProcessorPipeline
	Store      driven.KnowledgeStore
	AI         driven.AIServiceFactory
	Lock       driven.DistributedLock
	Worker     Submitter
	Tracker    *JobTracker
	BatchSize  int
	LockTTL    time.Duration
	Logger     *slog.Logger
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(cfg IngestionServiceConfig) *IngestionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}

	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}

	tracker := cfg.Tracker
	if tracker == nil {
		tracker = NewJobTracker(logger)
	}

	return &IngestionService{
		extractors: cfg.Extractors,
		pipeline:   cfg.Pipeline,
		store:      cfg.Store,
		ai:         cfg.AI,
		lock:       cfg.Lock,
		worker:     cfg.Worker,
		tracker:    tracker,
		batchSize:  batchSize,
		lockTTL:    lockTTL,
		logger:     logger.With("component", "ingestion"),
	}
}

// Start accepts an upload and runs it in the background.
// The service owns upload.Path from here on and removes it on every path.
func (s *IngestionService) Start(ctx context.Context, upload domain.Upload) (*domain.Job, error) {
	upload.BaseURL = strings.TrimRight(strings.TrimSpace(upload.BaseURL), "/")

	if upload.Path == "" {
		return nil, fmt.Errorf("%w: no file", domain.ErrInvalidInput)
	}
	if upload.BaseURL == "" {
		s.removeUpload(upload.Path)
		return nil, fmt.Errorf("%w: no url", domain.ErrInvalidInput)
	}

	// Each run holds the lock under its own lease
	lease := uuid.NewString()
	acquired, err := s.lock.Acquire(driven.WithLockOwner(ctx, lease), IngestLockName, s.lockTTL)
	if err != nil {
		s.removeUpload(upload.Path)
		return nil, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	if !acquired {
		s.removeUpload(upload.Path)
		return nil, domain.ErrIngestionInProgress
	}

	runID, err := s.tracker.Begin()
	if err != nil {
		s.releaseLock(lease)
		s.removeUpload(upload.Path)
		return nil, err
	}

	generation := s.store.Stats().Generation
	s.tracker.Log(runID, "Upload complete, starting processing...")

	s.logger.Info("upload accepted",
		"job_id", runID,
		"filename", upload.Filename,
		"mime_type", upload.MimeType,
		"size", upload.Size,
	)

	if err := s.worker.Submit(func() { s.run(runID, lease, generation, upload) }); err != nil {
		s.releaseLock(lease)
		s.removeUpload(upload.Path)
		s.tracker.Fail(runID, err.Error())
		return nil, err
	}

	job := s.tracker.Snapshot()
	return &job, nil
}

// run is the background half of an ingestion. Cleanup happens before the
// terminal transition so a client that sees done or error can start again.
func (s *IngestionService) run(runID, lease string, generation uint64, upload domain.Upload) {
	var (
		summary string
		err     error
	)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("ingestion panicked", "job_id", runID, "panic", r)
			err = fmt.Errorf("internal error: %v", r)
		}

		s.removeUpload(upload.Path)
		s.releaseLock(lease)

		if err != nil {
			s.tracker.Fail(runID, err.Error())
			return
		}
		s.tracker.Finish(runID, summary)
	}()

	ctx := driven.WithLockOwner(context.Background(), lease)
	summary, err = s.ingest(ctx, runID, generation, upload)
}

// ingest performs the pipeline and returns the summary line
func (s *IngestionService) ingest(ctx context.Context, runID string, generation uint64, upload domain.Upload) (string, error) {
	kind := documentKind(upload.MimeType)

	extractor := s.extractors.Get(upload.MimeType)
	if extractor == nil {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedDocument, upload.MimeType)
	}

	s.tracker.Log(runID, fmt.Sprintf("Extracting text from %s...", kind))
	text, err := extractor.Extract(ctx, upload.Path)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	s.tracker.Log(runID, fmt.Sprintf("Extracted %d characters", len([]rune(text))))

	s.tracker.Log(runID, "Chunking text...")
	chunks := s.pipeline.Process(text)
	s.tracker.Log(runID, fmt.Sprintf("Created %d chunks", len(chunks)))

	if len(chunks) == 0 {
		return "", domain.ErrNoChunks
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embedder, err := s.ai.CreateEmbeddingService(upload.BaseURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrEmbeddingFailed, err)
	}

	s.tracker.Log(runID, "Starting embedding...")
	vectors, elapsed, err := s.embedAll(ctx, runID, embedder, texts)
	if err != nil {
		return "", err
	}

	total, err := s.store.Append(generation, texts, vectors)
	if err != nil {
		if errors.Is(err, domain.ErrStaleGeneration) {
			s.logger.Info("discarding ingestion results after clear", "job_id", runID, "chunks", len(texts))
		}
		return "", err
	}

	s.logger.Info("ingestion committed", "job_id", runID, "chunks", len(texts), "total", total, "elapsed", elapsed)
	return fmt.Sprintf("Done! %d chunks embedded in %.1fs. Knowledge base: %d chunks",
		len(texts), elapsed.Seconds(), total), nil
}

// embedAll embeds texts in sequential batches, logging progress after each
func (s *IngestionService) embedAll(ctx context.Context, runID string, embedder driven.EmbeddingService, texts []string) ([]domain.Vector, time.Duration, error) {
	vectors := make([]domain.Vector, 0, len(texts))
	total := len(texts)
	startTotal := time.Now()

	for start := 0; start < total; start += s.batchSize {
		end := start + s.batchSize
		if end > total {
			end = total
		}
		batch := texts[start:end]

		batchStart := time.Now()
		embeddings, err := embedder.Embed(ctx, batch)
		batchElapsed := time.Since(batchStart)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailed, err)
		}
		if len(embeddings) != len(batch) {
			return nil, 0, fmt.Errorf("%w: sent %d texts, received %d embeddings",
				domain.ErrLengthMismatch, len(batch), len(embeddings))
		}

		for _, e := range embeddings {
			vectors = append(vectors, domain.Vector(e))
		}

		s.logger.Debug("batch embedded", "job_id", runID, "batch", start/s.batchSize, "elapsed", batchElapsed)
		s.tracker.Log(runID, fmt.Sprintf("Embedded %d/%d (%d%%) - %.1fs",
			end, total, 100*end/total, batchElapsed.Seconds()))
		s.extendLock(ctx, runID)
	}

	return vectors, time.Since(startTotal), nil
}

// Status returns the knowledge-base size and a snapshot of the job
func (s *IngestionService) Status(_ context.Context) (*domain.IngestionStatus, error) {
	job := s.tracker.Snapshot()
	return &domain.IngestionStatus{
		Chunks:    s.store.Stats().Chunks,
		JobStatus: job.Status,
		Logs:      job.Logs,
	}, nil
}

// Job returns a snapshot of the current job
func (s *IngestionService) Job() domain.Job {
	return s.tracker.Snapshot()
}

// Clear empties the knowledge base and resets the job to idle.
// A run still in flight keeps its lock until it ends but commits nothing.
func (s *IngestionService) Clear(_ context.Context) error {
	s.store.Clear()
	s.tracker.Reset()
	s.logger.Info("knowledge base cleared")
	return nil
}

// extendLock renews the ingestion lease between batches
func (s *IngestionService) extendLock(ctx context.Context, runID string) {
	if err := s.lock.Extend(ctx, IngestLockName, s.lockTTL); err != nil {
		s.logger.Warn("failed to extend ingestion lock", "job_id", runID, "error", err)
	}
}

func (s *IngestionService) releaseLock(lease string) {
	ctx, cancel := context.WithTimeout(driven.WithLockOwner(context.Background(), lease), 5*time.Second)
	defer cancel()

	if err := s.lock.Release(ctx, IngestLockName); err != nil {
		s.logger.Warn("failed to release ingestion lock", "error", err)
	}
}

func (s *IngestionService) removeUpload(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove upload", "path", path, "error", err)
	}
}

// documentKind names the document type in progress lines
func documentKind(mimeType string) string {
	if strings.Contains(strings.ToLower(mimeType), "pdf") {
		return "PDF"
	}
	return "document"
}

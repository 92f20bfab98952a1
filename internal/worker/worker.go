package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Worker runs ingestion jobs in the background, one at a time.
//
// The pool has a single goroutine. A submission that arrives while the
// previous job is returning waits for it; beyond one waiter, submissions
// fail with domain.ErrIngestionInProgress.
type Worker struct {
	pool   *ants.Pool
	logger *slog.Logger
}

// Config holds configuration for the worker.
type Config struct {
	Logger *slog.Logger
}

// Health describes the worker state
type Health struct {
	Running int  `json:"running"`
	Waiting int  `json:"waiting"`
	Closed  bool `json:"closed"`
}

// New creates a worker with a single-goroutine pool.
func New(cfg Config) (*Worker, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "worker")

	pool, err := ants.NewPool(1,
		ants.WithMaxBlockingTasks(1),
		ants.WithPanicHandler(func(p interface{}) {
			logger.Error("job panicked", "panic", fmt.Sprint(p))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Worker{pool: pool, logger: logger}, nil
}

// Submit schedules job to run in the background.
func (w *Worker) Submit(job func()) error {
	err := w.pool.Submit(job)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ants.ErrPoolOverload):
		return domain.ErrIngestionInProgress
	case errors.Is(err, ants.ErrPoolClosed):
		return fmt.Errorf("%w: worker stopped", domain.ErrServiceUnavailable)
	default:
		return fmt.Errorf("submit job: %w", err)
	}
}

// Health reports the pool state.
func (w *Worker) Health() Health {
	return Health{
		Running: w.pool.Running(),
		Waiting: w.pool.Waiting(),
		Closed:  w.pool.IsClosed(),
	}
}

// Stop waits up to timeout for the running job, then releases the pool.
func (w *Worker) Stop(timeout time.Duration) error {
	if err := w.pool.ReleaseTimeout(timeout); err != nil {
		w.logger.Warn("worker stopped before job finished", "error", err)
		return err
	}
	w.logger.Info("worker stopped")
	return nil
}

package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// JobTracker holds the state and log of the current ingestion run.
//
// Begin hands out a run ID; updates carrying any other ID are dropped, so a
// run that outlives a Reset or a newer Begin cannot change the visible job.
type JobTracker struct {
	mu     sync.Mutex
	job    domain.Job
	logger *slog.Logger
	now    func() time.Time
}

// NewJobTracker creates an idle tracker
func NewJobTracker(logger *slog.Logger) *JobTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobTracker{
		job:    domain.Job{Status: domain.JobStatusIdle, Logs: []string{}},
		logger: logger.With("component", "job_tracker"),
		now:    time.Now,
	}
}

// Begin moves the job to running under a fresh run ID.
// Returns domain.ErrIngestionInProgress if a run is already active.
func (t *JobTracker) Begin() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.job.Status == domain.JobStatusRunning {
		return "", domain.ErrIngestionInProgress
	}

	started := t.now()
	t.job = domain.Job{
		ID:        uuid.NewString(),
		Status:    domain.JobStatusRunning,
		Logs:      []string{},
		StartedAt: &started,
	}

	t.logger.Info("ingestion started", "job_id", t.job.ID)
	return t.job.ID, nil
}

// Log appends a progress line to the run's log
func (t *JobTracker) Log(runID, line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.current(runID) {
		return
	}
	t.job.Logs = append(t.job.Logs, line)
	t.logger.Debug(line, "job_id", runID)
}

// Finish marks the run done after appending summary
func (t *JobTracker) Finish(runID, summary string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.current(runID) {
		return
	}
	if summary != "" {
		t.job.Logs = append(t.job.Logs, summary)
	}
	t.finish(domain.JobStatusDone)
	t.logger.Info("ingestion finished", "job_id", runID)
}

// Fail marks the run failed and logs the reason
func (t *JobTracker) Fail(runID, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.current(runID) {
		return
	}
	t.job.Logs = append(t.job.Logs, "Error: "+reason)
	t.job.Error = reason
	t.finish(domain.JobStatusError)
	t.logger.Warn("ingestion failed", "job_id", runID, "error", reason)
}

// Reset returns the tracker to idle with an empty log.
// Any run in flight loses its ability to update the job.
func (t *JobTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.job.Status == domain.JobStatusRunning {
		t.logger.Info("ingestion detached by reset", "job_id", t.job.ID)
	}
	t.job = domain.Job{Status: domain.JobStatusIdle, Logs: []string{}}
}

// Snapshot returns a copy of the job that later updates do not affect
func (t *JobTracker) Snapshot() domain.Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	job := t.job
	job.Logs = append([]string(nil), t.job.Logs...)
	if job.Logs == nil {
		job.Logs = []string{}
	}
	return job
}

// current reports whether runID owns the running job. Caller holds mu.
func (t *JobTracker) current(runID string) bool {
	return runID != "" && t.job.ID == runID && t.job.Status == domain.JobStatusRunning
}

func (t *JobTracker) finish(status domain.JobStatus) {
	finished := t.now()
	t.job.Status = status
	t.job.FinishedAt = &finished
}

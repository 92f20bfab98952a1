package domain

import "time"

// JobStatus represents the current state of an ingestion job
type JobStatus string

const (
	JobStatusIdle    JobStatus = "idle"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusError   JobStatus = "error"
)

// IsTerminal reports whether the status ends a run
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// Job is a point-in-time copy of the ingestion job state
type Job struct {
	ID         string     `json:"id,omitempty"`
	Status     JobStatus  `json:"status"`
	Logs       []string   `json:"logs"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// IngestionStatus is the polling view of the knowledge base and job
type IngestionStatus struct {
	Chunks    int       `json:"chunks" example:"42"`
	JobStatus JobStatus `json:"job_status" example:"running" enums:"idle,running,done,error"`
	Logs      []string  `json:"logs"`
}

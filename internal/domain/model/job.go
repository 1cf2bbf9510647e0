package model

import "time"

// JobStatus represents the state of a conversion job.
type JobStatus string

const (
	JobStatusIdle       JobStatus = "idle"
	JobStatusCloning    JobStatus = "cloning"
	JobStatusConverting JobStatus = "converting"
	JobStatusSuccess    JobStatus = "success"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further mutation follows this status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailed
}

// Job is the per-project record of an in-progress or completed conversion
// run. Logs are append-only and stop growing once a terminal status is
// reached; a new run for the same project replaces the entry wholesale.
type Job struct {
	ProjectID string
	Status    JobStatus
	Logs      []string
	Message   string
	ErrDetail string
	StartedAt time.Time
}

// ConversionResult is the outcome of one full pipeline run. Immutable once
// produced; its log supersedes the job's running log at completion.
type ConversionResult struct {
	Success bool
	Message string
	Logs    []string
}

// HistoryEntry is a terminal job as persisted to the history store.
type HistoryEntry struct {
	ID         int64
	ProjectID  string
	Status     JobStatus
	Message    string
	Logs       []string
	StartedAt  time.Time
	FinishedAt time.Time
}

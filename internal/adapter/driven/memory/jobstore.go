// Package memory implements the JobStore port as an in-process map. Live job
// state is inherently per-process; durable history lives in the sqlite
// adapter.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ericfisherdev/nextshift/internal/domain/model"
	"github.com/ericfisherdev/nextshift/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.JobStore = (*JobStore)(nil)

// waitingLogLine is the placeholder log for a subscriber that raced the
// start request.
const waitingLogLine = "Waiting for conversion to start..."

// JobStore holds one job per project id plus a single-flight reservation so
// two runs never share a checkout directory.
type JobStore struct {
	mu       sync.Mutex
	jobs     map[string]*model.Job
	active   map[string]bool
	interval time.Duration
}

// NewJobStore creates an empty store. interval is the feed polling period;
// values <= 0 fall back to one second.
func NewJobStore(interval time.Duration) *JobStore {
	if interval <= 0 {
		interval = time.Second
	}
	return &JobStore{
		jobs:     make(map[string]*model.Job),
		active:   make(map[string]bool),
		interval: interval,
	}
}

// Begin replaces any previous job for the project with a fresh cloning entry
// and reserves the project. Returns false while a run is already active.
func (s *JobStore) Begin(projectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active[projectID] {
		return false
	}

	s.active[projectID] = true
	s.jobs[projectID] = &model.Job{
		ProjectID: projectID,
		Status:    model.JobStatusCloning,
		Logs:      []string{},
		StartedAt: time.Now(),
	}
	return true
}

// Append adds log lines to the project's job. Lines arriving after a
// terminal status are dropped, preserving the append-only invariant.
func (s *JobStore) Append(projectID string, lines ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[projectID]
	if !ok || job.Status.IsTerminal() {
		return
	}
	job.Logs = append(job.Logs, lines...)
}

// SetStatus advances the job's status. A terminal status releases the
// single-flight reservation.
func (s *JobStore) SetStatus(projectID string, status model.JobStatus, message, errDetail string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[projectID]
	if !ok {
		return
	}

	job.Status = status
	if message != "" {
		job.Message = message
	}
	if errDetail != "" {
		job.ErrDetail = errDetail
	}
	if status.IsTerminal() {
		delete(s.active, projectID)
	}
}

// Snapshot returns a copy of the current job, or a synthesized cloning
// placeholder when no job exists yet for the project.
func (s *JobStore) Snapshot(projectID string) model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[projectID]
	if !ok {
		return model.Job{
			ProjectID: projectID,
			Status:    model.JobStatusCloning,
			Logs:      []string{waitingLogLine},
		}
	}

	snap := *job
	snap.Logs = append([]string(nil), job.Logs...)
	return snap
}

// Subscribe delivers the current snapshot immediately, then one snapshot per
// interval until a terminal state is observed or ctx is canceled. The
// channel is closed after the terminal snapshot.
func (s *JobStore) Subscribe(ctx context.Context, projectID string) <-chan model.Job {
	ch := make(chan model.Job, 1)

	go func() {
		defer close(ch)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			snap := s.Snapshot(projectID)
			select {
			case ch <- snap:
			case <-ctx.Done():
				return
			}

			if snap.Status.IsTerminal() {
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

package driven

import (
	"context"

	"github.com/ericfisherdev/nextshift/internal/domain/model"
)

// JobStore defines the driven port for live conversion job state, keyed by
// project id. Implementations must tolerate concurrent readers while a
// single owning run mutates the entry.
type JobStore interface {
	// Begin replaces any previous job for the project with a fresh entry in
	// the cloning state and reserves the project for one run. It returns
	// false if a run is already active for the project (single-flight).
	Begin(projectID string) bool
	// Append adds log lines to the project's job. Appends after a terminal
	// status are dropped.
	Append(projectID string, lines ...string)
	// SetStatus advances the job's status. Message and errDetail may be
	// empty; a terminal status releases the single-flight reservation.
	SetStatus(projectID string, status model.JobStatus, message, errDetail string)
	// Snapshot returns a copy of the current job. For a project with no
	// job it synthesizes a cloning placeholder with a single waiting log
	// line, so a status subscriber racing the start request never errors.
	Snapshot(projectID string) model.Job
	// Subscribe delivers the current snapshot immediately and then an
	// updated snapshot per feed interval until a terminal state is
	// observed or ctx is canceled, after which the channel closes.
	Subscribe(ctx context.Context, projectID string) <-chan model.Job
}

package driven

import (
	"context"

	"github.com/ericfisherdev/nextshift/internal/domain/model"
)

// JobHistoryStore defines the driven port for persisting terminal jobs so
// conversion history survives process restarts. Live runs stay in the
// JobStore; only terminal outcomes are recorded here.
type JobHistoryStore interface {
	Record(ctx context.Context, entry model.HistoryEntry) error
	// ListRecent returns up to limit entries, most recent first.
	ListRecent(ctx context.Context, limit int) ([]model.HistoryEntry, error)
	// ListByProject returns all entries for a project, most recent first.
	ListByProject(ctx context.Context, projectID string) ([]model.HistoryEntry, error)
}

package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ericfisherdev/nextshift/internal/domain/model"
	"github.com/ericfisherdev/nextshift/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.JobHistoryStore = (*HistoryRepo)(nil)

// HistoryRepo is the SQLite implementation of the JobHistoryStore port.
// Log lines are stored as a JSON array in a single column; history rows are
// read far more often than written and never updated.
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo creates a new HistoryRepo.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Record inserts one terminal job into the history.
func (r *HistoryRepo) Record(ctx context.Context, entry model.HistoryEntry) error {
	logs, err := json.Marshal(entry.Logs)
	if err != nil {
		return fmt.Errorf("marshal logs for project %q: %w", entry.ProjectID, err)
	}

	const query = `INSERT INTO job_history (project_id, status, message, logs, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err = r.db.Writer.ExecContext(ctx, query,
		entry.ProjectID,
		string(entry.Status),
		entry.Message,
		string(logs),
		entry.StartedAt.UTC(),
		entry.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record history for project %q: %w", entry.ProjectID, err)
	}
	return nil
}

// ListRecent returns up to limit entries, most recent first.
func (r *HistoryRepo) ListRecent(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `SELECT id, project_id, status, message, logs, started_at, finished_at
		FROM job_history ORDER BY finished_at DESC, id DESC LIMIT ?`
	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

// ListByProject returns all entries for a project, most recent first.
func (r *HistoryRepo) ListByProject(ctx context.Context, projectID string) ([]model.HistoryEntry, error) {
	const query = `SELECT id, project_id, status, message, logs, started_at, finished_at
		FROM job_history WHERE project_id = ? ORDER BY finished_at DESC, id DESC`
	rows, err := r.db.Reader.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list history for project %q: %w", projectID, err)
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

// rowScanner abstracts *sql.Rows for scanEntries.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEntries(rows rowScanner) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	for rows.Next() {
		var (
			entry      model.HistoryEntry
			status     string
			logs       string
			startedAt  time.Time
			finishedAt time.Time
		)
		if err := rows.Scan(&entry.ID, &entry.ProjectID, &status, &entry.Message, &logs, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entry.Status = model.JobStatus(status)
		entry.StartedAt = startedAt
		entry.FinishedAt = finishedAt
		if err := json.Unmarshal([]byte(logs), &entry.Logs); err != nil {
			return nil, fmt.Errorf("unmarshal logs for history row %d: %w", entry.ID, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}

package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/nextshift/internal/domain/model"
)

func entryFixture(projectID string, status model.JobStatus, finished time.Time) model.HistoryEntry {
	return model.HistoryEntry{
		ProjectID:  projectID,
		Status:     status,
		Message:    "Conversion completed successfully",
		Logs:       []string{"Verifying Next.js project...", "Conversion completed successfully"},
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
	}
}

func TestHistoryRepo_RecordAndListByProject(t *testing.T) {
	db := setupTestDB(t)
	repo := NewHistoryRepo(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Record(ctx, entryFixture("prj_1", model.JobStatusSuccess, base)))
	require.NoError(t, repo.Record(ctx, entryFixture("prj_1", model.JobStatusFailed, base.Add(time.Hour))))
	require.NoError(t, repo.Record(ctx, entryFixture("prj_2", model.JobStatusSuccess, base)))

	entries, err := repo.ListByProject(ctx, "prj_1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Most recent first.
	assert.Equal(t, model.JobStatusFailed, entries[0].Status)
	assert.Equal(t, model.JobStatusSuccess, entries[1].Status)
	assert.Equal(t, "prj_1", entries[0].ProjectID)
	assert.Equal(t, []string{"Verifying Next.js project...", "Conversion completed successfully"}, entries[0].Logs)
	assert.True(t, entries[0].FinishedAt.Equal(base.Add(time.Hour)))
}

func TestHistoryRepo_ListRecentHonorsLimit(t *testing.T) {
	db := setupTestDB(t)
	repo := NewHistoryRepo(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Record(ctx, entryFixture("prj_1", model.JobStatusSuccess, base.Add(time.Duration(i)*time.Minute))))
	}

	entries, err := repo.ListRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].FinishedAt.After(entries[1].FinishedAt))
}

func TestHistoryRepo_ListByProjectEmpty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewHistoryRepo(db)

	entries, err := repo.ListByProject(context.Background(), "prj_none")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistoryRepo_EmptyLogsRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewHistoryRepo(db)
	ctx := context.Background()

	entry := entryFixture("prj_1", model.JobStatusFailed, time.Now().UTC())
	entry.Logs = nil
	require.NoError(t, repo.Record(ctx, entry))

	entries, err := repo.ListByProject(ctx, "prj_1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Logs)
}

package infrastructure

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/tg-scribe-go/internal/domain"
)

func newTestRepo(t *testing.T) *SQLiteRunRepository {
	repo, err := NewSQLiteRunRepository(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRunRepository_CreateAndFind(t *testing.T) {
	repo := newTestRepo(t)

	run := domain.NewRunRecord("family-chat", "Family Chat", 2024, domain.ModeFull)
	require.NoError(t, repo.Create(run))

	found, err := repo.FindByID(run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, found.ID)
	assert.Equal(t, "family-chat", found.ChatSlug)
	assert.Equal(t, "Family Chat", found.ChatTitle)
	assert.Equal(t, 2024, found.Year)
	assert.Equal(t, domain.ModeFull, found.Mode)
	assert.Equal(t, domain.RunRunning, found.Status)
	assert.Nil(t, found.FinishedAt)
}

func TestSQLiteRunRepository_FindByID_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.FindByID("no-such-run")
	assert.Error(t, err)
}

func TestSQLiteRunRepository_Update(t *testing.T) {
	repo := newTestRepo(t)

	run := domain.NewRunRecord("family-chat", "Family Chat", 2024, domain.ModeFull)
	require.NoError(t, repo.Create(run))

	run.TotalSeen = 40
	run.Admitted = 12
	run.Processed = 10
	run.Skipped = 2
	run.Rejected = 28
	run.DocumentPath = "/data/family-chat/2024/output/family-chat-2024.md"
	run.MarkCompleted()
	require.NoError(t, repo.Update(run))

	found, err := repo.FindByID(run.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.RunCompleted, found.Status)
	assert.Equal(t, 10, found.Processed)
	assert.Equal(t, 28, found.Rejected)
	assert.NotEmpty(t, found.DocumentPath)
	require.NotNil(t, found.FinishedAt)
}

func TestSQLiteRunRepository_FindRecent(t *testing.T) {
	repo := newTestRepo(t)

	old := domain.NewRunRecord("family-chat", "Family Chat", 2023, domain.ModeFull)
	old.StartedAt = time.Now().Add(-time.Hour)
	recent := domain.NewRunRecord("family-chat", "Family Chat", 2024, domain.ModeFull)

	require.NoError(t, repo.Create(old))
	require.NoError(t, repo.Create(recent))

	runs, err := repo.FindRecent(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, recent.ID, runs[0].ID)
	assert.Equal(t, old.ID, runs[1].ID)

	limited, err := repo.FindRecent(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, recent.ID, limited[0].ID)
}

func TestSQLiteRunRepository_FindByChat(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Create(domain.NewRunRecord("family-chat", "Family Chat", 2024, domain.ModeFull)))
	require.NoError(t, repo.Create(domain.NewRunRecord("work-chat", "Work Chat", 2024, domain.ModeFull)))

	runs, err := repo.FindByChat("family-chat")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "family-chat", runs[0].ChatSlug)
}

func TestSQLiteRunRepository_GetStats(t *testing.T) {
	repo := newTestRepo(t)

	completed := domain.NewRunRecord("family-chat", "Family Chat", 2024, domain.ModeFull)
	completed.Processed = 7
	completed.MarkCompleted()
	failed := domain.NewRunRecord("family-chat", "Family Chat", 2023, domain.ModeFull)
	failed.Processed = 3
	failed.MarkFailed(assert.AnError)
	running := domain.NewRunRecord("work-chat", "Work Chat", 2024, domain.ModeDryRun)

	require.NoError(t, repo.Create(completed))
	require.NoError(t, repo.Create(failed))
	require.NoError(t, repo.Create(running))

	stats, err := repo.GetStats()
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Running)
	assert.Equal(t, int64(10), stats.MessagesProcessed)
}

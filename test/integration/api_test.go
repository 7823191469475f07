// +build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/tg-scribe-go/api"
	"github.com/yourusername/tg-scribe-go/internal/domain"
	"github.com/yourusername/tg-scribe-go/internal/infrastructure"
)

func setupTestServer(t *testing.T) (*httptest.Server, domain.RunRepository) {
	repo, err := infrastructure.NewSQLiteRunRepository(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)

	router := api.SetupRouter(repo, zap.NewNop())
	server := httptest.NewServer(router)

	return server, repo
}

func TestAPI_Health(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&result)
	require.NoError(t, err)
	assert.Equal(t, "ok", result["status"])
}

func TestAPI_ListRuns(t *testing.T) {
	server, repo := setupTestServer(t)
	defer server.Close()

	run1 := domain.NewRunRecord("family-chat", "Family Chat", 2024, domain.ModeFull)
	run2 := domain.NewRunRecord("work-chat", "Work Chat", 2023, domain.ModeDryRun)
	require.NoError(t, repo.Create(run1))
	require.NoError(t, repo.Create(run2))

	resp, err := http.Get(server.URL + "/api/v1/runs")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var runs []map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&runs)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestAPI_ListRunsByChat(t *testing.T) {
	server, repo := setupTestServer(t)
	defer server.Close()

	require.NoError(t, repo.Create(domain.NewRunRecord("family-chat", "Family Chat", 2024, domain.ModeFull)))
	require.NoError(t, repo.Create(domain.NewRunRecord("work-chat", "Work Chat", 2024, domain.ModeFull)))

	resp, err := http.Get(server.URL + "/api/v1/runs?chat=family-chat")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var runs []map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&runs)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "family-chat", runs[0]["chat_slug"])
}

func TestAPI_GetRun(t *testing.T) {
	server, repo := setupTestServer(t)
	defer server.Close()

	run := domain.NewRunRecord("family-chat", "Family Chat", 2024, domain.ModeFull)
	run.Processed = 12
	run.MarkCompleted()
	require.NoError(t, repo.Create(run))

	resp, err := http.Get(server.URL + "/api/v1/runs/" + run.ID)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&result)
	require.NoError(t, err)
	assert.Equal(t, run.ID, result["id"])
	assert.Equal(t, "completed", result["status"])
	assert.Equal(t, float64(12), result["processed"])
}

func TestAPI_GetRun_NotFound(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/runs/no-such-run")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_GetStats(t *testing.T) {
	server, repo := setupTestServer(t)
	defer server.Close()

	completed := domain.NewRunRecord("family-chat", "Family Chat", 2024, domain.ModeFull)
	completed.Processed = 7
	completed.MarkCompleted()
	failed := domain.NewRunRecord("family-chat", "Family Chat", 2023, domain.ModeFull)
	failed.MarkFailed(assert.AnError)

	require.NoError(t, repo.Create(completed))
	require.NoError(t, repo.Create(failed))
	require.NoError(t, repo.Create(domain.NewRunRecord("work-chat", "Work Chat", 2024, domain.ModeDryRun)))

	resp, err := http.Get(server.URL + "/api/v1/runs/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var stats map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&stats)
	require.NoError(t, err)

	assert.Equal(t, float64(3), stats["total"])
	assert.Equal(t, float64(1), stats["completed"])
	assert.Equal(t, float64(1), stats["failed"])
	assert.Equal(t, float64(1), stats["running"])
	assert.Equal(t, float64(7), stats["messages_processed"])
}

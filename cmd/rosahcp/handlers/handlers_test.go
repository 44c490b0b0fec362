package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/rosahcp/internal/graph"
	"github.com/imamik/rosahcp/internal/store"
)

// seedStore writes a config file pointing at a temp-dir file store and
// populates it with the given jobs. It returns the config path.
func seedStore(t *testing.T, jobs ...*graph.Job) string {
	t.Helper()

	dir := t.TempDir()
	jobDir := filepath.Join(dir, "jobs")

	st, err := store.NewFileStore(jobDir)
	require.NoError(t, err)
	for _, job := range jobs {
		require.NoError(t, st.SaveJob(context.Background(), job))
	}

	configPath := filepath.Join(dir, "rosahcp.yaml")
	content := fmt.Sprintf("store:\n  backend: file\n  dir: %s\n", jobDir)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))
	return configPath
}

func testJob(t *testing.T, id, cluster string) *graph.Job {
	t.Helper()
	job, err := graph.NewJob(id, cluster, []graph.NodeSpec{
		{Kind: graph.KindNetwork, Name: "vpc"},
		{Kind: graph.KindCluster, Name: "rosa", DependsOn: []string{"Network/vpc"}},
	})
	require.NoError(t, err)
	return job
}

func TestStatus(t *testing.T) {
	t.Parallel()

	job := testJob(t, "job-1", "prod-east")
	job.OverallState = graph.JobRunning
	job.ProgressPercent = 40
	job.Node("Network/vpc").State = graph.StateReady
	job.Node("Cluster/rosa").State = graph.StateObserving
	job.Node("Cluster/rosa").LastObserved = "installing"
	job.Node("Cluster/rosa").Attempt = 3

	configPath := seedStore(t, job)

	var buf bytes.Buffer
	require.NoError(t, Status(context.Background(), &buf, configPath, "job-1"))

	out := buf.String()
	assert.Contains(t, out, "Job:      job-1")
	assert.Contains(t, out, "Cluster:  prod-east")
	assert.Contains(t, out, "Running (40%)")
	assert.Contains(t, out, "Network/vpc")
	assert.Contains(t, out, "installing (probe 3)")
}

func TestStatus_UnknownJob(t *testing.T) {
	t.Parallel()

	configPath := seedStore(t)

	var buf bytes.Buffer
	err := Status(context.Background(), &buf, configPath, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStatus_FailedJobShowsFirstFailure(t *testing.T) {
	t.Parallel()

	job := testJob(t, "job-2", "prod-west")
	job.OverallState = graph.JobFailed
	job.FirstFailed = "Network/vpc"
	job.Node("Network/vpc").State = graph.StateFailed
	job.Node("Network/vpc").Error = "quota exceeded"

	configPath := seedStore(t, job)

	var buf bytes.Buffer
	require.NoError(t, Status(context.Background(), &buf, configPath, "job-2"))

	out := buf.String()
	assert.Contains(t, out, "Failed:   Network/vpc: quota exceeded")
}

func TestList(t *testing.T) {
	t.Parallel()

	a := testJob(t, "job-a", "prod-east")
	a.OverallState = graph.JobSucceeded
	a.ProgressPercent = 100
	b := testJob(t, "job-b", "prod-west")
	b.OverallState = graph.JobRunning
	b.ProgressPercent = 25

	configPath := seedStore(t, a, b)

	var buf bytes.Buffer
	require.NoError(t, List(context.Background(), &buf, configPath))

	out := buf.String()
	assert.Contains(t, out, "JOB")
	assert.Contains(t, out, "job-a")
	assert.Contains(t, out, "Succeeded")
	assert.Contains(t, out, "100%")
	assert.Contains(t, out, "job-b")
}

func TestList_Empty(t *testing.T) {
	t.Parallel()

	configPath := seedStore(t)

	var buf bytes.Buffer
	require.NoError(t, List(context.Background(), &buf, configPath))
	assert.Equal(t, "no jobs\n", buf.String())
}

func TestCancel(t *testing.T) {
	t.Parallel()

	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	require.NoError(t, Cancel(context.Background(), &buf, srv.URL, "job-1"))

	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/v1/jobs/job-1", gotPath)
	assert.Contains(t, buf.String(), "cancellation requested for job job-1")
}

func TestCancel_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	err := Cancel(context.Background(), &buf, srv.URL, "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job ghost not found")
}

func TestCancel_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"job already terminal"}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	err := Cancel(context.Background(), &buf, srv.URL, "job-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job already terminal")
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, "file", cfg.Store.Backend)
}

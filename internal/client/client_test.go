package client

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"qabench/internal/api"
	"qabench/internal/batch"
	"qabench/internal/bench"
	"qabench/internal/dataset"
	"qabench/internal/runner"
	"qabench/internal/store"
	"qabench/internal/testutil"
)

func newServer(t *testing.T) (*httptest.Server, *store.FileStore) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "benchmarks", "capitals")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"name":"Capitals","description":"cities"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "qa.json"),
		[]byte(`{"questions":["Capital of France?","Capital of Japan?"],"answers":["Paris","Tokyo"]}`), 0o644))

	answerer := &testutil.EchoAnswerer{Answers: map[string]string{
		"Capital of France?": "Paris",
		"Capital of Japan?":  "Kyoto",
	}}
	results := store.NewFileStore(filepath.Join(root, "results"))
	server := httptest.NewServer(api.NewHandler(api.Config{
		Benchmarks: dataset.NewCatalog(filepath.Join(root, "benchmarks"), filepath.Join(root, "uploads")),
		Runner:     runner.New(runner.NewEvaluator(answerer, testutil.ContainsJudge())),
		Results:    results,
	}))
	t.Cleanup(server.Close)
	return server, results
}

// TestNewWithTimeoutSetsTimeout ensures the HTTP client timeout is applied.
func TestNewWithTimeoutSetsTimeout(t *testing.T) {
	timeout := 1500 * time.Millisecond
	client := NewWithTimeout("http://example/", timeout)
	if client.client.Timeout != timeout {
		t.Fatalf("expected timeout %s, got %s", timeout, client.client.Timeout)
	}
	if client.baseURL != "http://example" {
		t.Fatalf("expected trailing slash trimmed, got %q", client.baseURL)
	}
}

// TestStreamDecodesRun reads a full run from the server.
func TestStreamDecodesRun(t *testing.T) {
	server, _ := newServer(t)
	ctx := testutil.Context(t, 0)
	events, err := New(server.URL).Stream(ctx, batch.RunRequest{
		BenchmarkID: "capitals",
		Model:       bench.ModelConfig{ID: "m/a", Name: "A"},
	})
	require.NoError(t, err)
	output, err := runner.Collect(events, nil)
	require.NoError(t, err)
	require.Equal(t, 2, output.Summary.TotalQuestions)
	require.Equal(t, 1, output.Summary.CorrectCount)
	require.Equal(t, "Paris", output.Results[0].ModelAnswer)
	require.Equal(t, "Kyoto", output.Results[1].ModelAnswer)
}

// TestStreamReportsRequestErrors surfaces errors answered before streaming.
func TestStreamReportsRequestErrors(t *testing.T) {
	server, _ := newServer(t)
	_, err := New(server.URL).Stream(testutil.Context(t, 0), batch.RunRequest{
		BenchmarkID: "missing",
		Model:       bench.ModelConfig{ID: "m/a"},
	})
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr), "got %v", err)
	require.Equal(t, http.StatusNotFound, httpErr.Status)
	require.Contains(t, httpErr.Message, "benchmark not found")
}

// TestCoordinatorOverHTTP runs a two model batch through the server and
// persists the combined record once.
func TestCoordinatorOverHTTP(t *testing.T) {
	server, results := newServer(t)
	remote := New(server.URL)
	coordinator := batch.New(batch.Config{Streamer: remote, Persister: remote})
	ctx := testutil.Context(t, 0)

	_, err := coordinator.Start(ctx, batch.Request{
		Benchmark: batch.Benchmark{ID: "capitals", Name: "Capitals"},
		Judge:     bench.ModelConfig{ID: "j", Name: "Judge"},
		Models:    []bench.ModelConfig{{ID: "m/a", Name: "A"}, {ID: "m/b", Name: "B"}},
	})
	require.NoError(t, err)
	result, err := coordinator.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, batch.SaveSaved, result.Save.State)
	for _, run := range result.Runs {
		require.Equal(t, batch.StateCompleted, run.State)
		require.Equal(t, 2, run.Current)
	}

	entries, err := results.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, result.Save.Name, entries[0].Name)
	require.Equal(t, []string{"A", "B"}, entries[0].Models)

	listed, err := remote.Results(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	record, err := remote.Result(ctx, listed[0].Name)
	require.NoError(t, err)
	runs := record.Runs()
	require.Len(t, runs, 2)
	require.Equal(t, "m/a", runs[0].Summary.Model.ID)
	require.Equal(t, "m/b", runs[1].Summary.Model.ID)
}

// TestCatalogEndpoints covers benchmark listing, upload and models.
func TestCatalogEndpoints(t *testing.T) {
	server, _ := newServer(t)
	remote := New(server.URL)
	ctx := testutil.Context(t, 0)

	listing, err := remote.Upload(ctx, dataset.Upload{
		ID:          "colors",
		Name:        "Colors",
		Description: "sky",
		QA:          dataset.QA{Questions: []string{"Sky?"}, Answers: []string{"blue"}},
	})
	require.NoError(t, err)
	require.Equal(t, "colors", listing.ID)

	listings, err := remote.Benchmarks(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}
	require.Equal(t, []string{"capitals", "colors"}, ids)

	models, err := remote.Models(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, models)
}

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"qabench/internal/bench"
)

var (
	judgeModel = bench.ModelConfig{ID: "openai/gpt-4o-mini", Name: "GPT-4o Mini"}
	stamp      = time.Date(2026, 5, 6, 7, 8, 9, 123_000_000, time.UTC)
)

func runOutput(modelID string, correct ...bool) bench.RunOutput {
	results := make([]bench.ItemResult, len(correct))
	for i, ok := range correct {
		results[i] = bench.ItemResult{Index: i, Question: "q", Verdict: bench.Verdict{Correct: ok}}
	}
	return bench.RunOutput{
		Summary: bench.NewSummary(bench.ModelConfig{ID: modelID, Name: modelID}, judgeModel, results, stamp),
		Results: results,
	}
}

func newStore(t *testing.T) *FileStore {
	t.Helper()
	s := NewFileStore(filepath.Join(t.TempDir(), "results"))
	s.Now = func() time.Time { return stamp }
	return s
}

type recordingIndexer struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingIndexer) Index(ctx context.Context, name string, record Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	return nil
}

// TestSaveSingleNamesAndRoundTrips verifies the single record name and contents.
func TestSaveSingleNamesAndRoundTrips(t *testing.T) {
	s := newStore(t)
	indexer := &recordingIndexer{}
	s.Indexer = indexer
	output := runOutput("anthropic/claude-3.5-sonnet", true, false)
	name, err := s.SaveSingle(context.Background(), output, "geo")
	require.NoError(t, err)
	require.Equal(t, "geo_anthropic-claude-3-5-sonnet_2026-05-06T07-08-09-123Z.json", name)
	require.Equal(t, []string{name}, indexer.names)

	record, err := s.Load(name)
	require.NoError(t, err)
	require.Equal(t, KindSingle, record.Kind)
	require.Equal(t, "geo", record.BenchmarkID())
	require.Equal(t, 0.5, record.Single.Summary.Accuracy)
	require.Len(t, record.Single.Results, 2)
}

// TestSaveMultiNeverOverwrites verifies colliding names get a suffix.
func TestSaveMultiNeverOverwrites(t *testing.T) {
	s := newStore(t)
	runs := []bench.RunOutput{runOutput("a/x", true), runOutput("b/y", false)}
	first, err := s.SaveMulti(context.Background(), runs, "geo", "Geography", judgeModel)
	require.NoError(t, err)
	require.Equal(t, "geo_multi-2runs_2026-05-06T07-08-09-123Z.json", first)
	second, err := s.SaveMulti(context.Background(), runs[:1], "geo", "Geography", judgeModel)
	require.NoError(t, err)
	require.Equal(t, "geo_multi-1runs_2026-05-06T07-08-09-123Z.json", second)
	third, err := s.SaveMulti(context.Background(), runs, "geo", "Geography", judgeModel)
	require.NoError(t, err)
	require.Equal(t, "geo_multi-2runs_2026-05-06T07-08-09-123Z-2.json", third)

	record, err := s.Load(first)
	require.NoError(t, err)
	require.Equal(t, KindMulti, record.Kind)
	require.Len(t, record.Multi.Runs, 2)
	require.Equal(t, judgeModel, record.Multi.Judge)
}

// TestSaveMultiKeepsMilliseconds verifies saves within one second get
// distinct names that list newest first.
func TestSaveMultiKeepsMilliseconds(t *testing.T) {
	s := newStore(t)
	runs := []bench.RunOutput{runOutput("a/x", true)}
	s.Now = func() time.Time { return time.Date(2026, 5, 6, 7, 8, 9, 7_000_000, time.UTC) }
	earlier, err := s.SaveMulti(context.Background(), runs, "geo", "Geography", judgeModel)
	require.NoError(t, err)
	require.Equal(t, "geo_multi-1runs_2026-05-06T07-08-09-007Z.json", earlier)
	s.Now = func() time.Time { return time.Date(2026, 5, 6, 7, 8, 9, 450_000_000, time.UTC) }
	later, err := s.SaveMulti(context.Background(), runs, "geo", "Geography", judgeModel)
	require.NoError(t, err)
	require.Equal(t, "geo_multi-1runs_2026-05-06T07-08-09-450Z.json", later)

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, []string{later, earlier}, []string{entries[0].Name, entries[1].Name})
}

// TestSaveMultiRejectsEmpty verifies an empty batch is not persisted.
func TestSaveMultiRejectsEmpty(t *testing.T) {
	s := newStore(t)
	_, err := s.SaveMulti(context.Background(), nil, "geo", "Geography", judgeModel)
	require.Error(t, err)
}

// TestListNewestFirstSkipsMalformed verifies ordering and tolerance of bad files.
func TestListNewestFirstSkipsMalformed(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	older, err := s.SaveSingle(ctx, runOutput("a/x", true), "geo")
	require.NoError(t, err)
	s.Now = func() time.Time { return stamp.Add(time.Hour) }
	newer, err := s.SaveMulti(ctx, []bench.RunOutput{runOutput("a/x", true)}, "geo", "Geography", judgeModel)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, "broken.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, "notes.txt"), []byte("x"), 0o644))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, newer, entries[0].Name)
	require.Equal(t, KindMulti, entries[0].Kind)
	require.Equal(t, "Geography", entries[0].BenchmarkName)
	require.Equal(t, older, entries[1].Name)
	require.Equal(t, []string{"a/x"}, entries[1].Models)
}

// TestListMissingDir verifies an absent directory lists nothing.
func TestListMissingDir(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "absent"))
	entries, err := s.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
}

// TestLoadRejectsTraversal verifies names must be direct children.
func TestLoadRejectsTraversal(t *testing.T) {
	s := newStore(t)
	for _, name := range []string{"", "../secret.json", "a/b.json", `a\b.json`, "..json", ".hidden.json", "x.txt"} {
		_, err := s.Load(name)
		if !errors.Is(err, ErrInvalidName) {
			t.Fatalf("Load(%q) = %v, want ErrInvalidName", name, err)
		}
	}
	_, err := s.Load("missing.json")
	require.ErrorIs(t, err, ErrNotFound)
}

// TestLoadLegacyRecords verifies records without a kind are classified by shape.
func TestLoadLegacyRecords(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(s.Dir, 0o755))
	single := `{"summary":{"model":{"id":"m","name":"M"},"judge":{"id":"j","name":"J"},` +
		`"totalQuestions":1,"correctCount":1,"accuracy":1,"timestamp":"2025-01-01T00:00:00.000Z"},` +
		`"results":[{"index":0,"question":"q","expectedAnswer":"a","modelAnswer":"a","verdict":{"correct":true,"rationale":"ok"}}]}`
	multi := `{"benchmarkId":"geo","benchmarkName":"Geography","judge":{"id":"j","name":"J"},` +
		`"timestamp":"2025-01-02T00:00:00.000Z","runs":[` + single + `]}`
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, "m_2025.json"), []byte(single), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, "geo_multi.json"), []byte(multi), 0o644))

	record, err := s.Load("m_2025.json")
	require.NoError(t, err)
	require.Equal(t, KindSingle, record.Kind)
	record, err = s.Load("geo_multi.json")
	require.NoError(t, err)
	require.Equal(t, KindMulti, record.Kind)
	require.Equal(t, "geo", record.BenchmarkID())
}

// TestSlug covers characters that are unsafe in file names.
func TestSlug(t *testing.T) {
	cases := map[string]string{
		"openai/gpt-4o":               "openai-gpt-4o",
		"anthropic/claude-3.5-sonnet": "anthropic-claude-3-5-sonnet",
		"model:free":                  "model-free",
		"":                            "unknown",
	}
	for input, want := range cases {
		require.Equal(t, want, Slug(input), input)
	}
}

package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"qabench/internal/bench"
)

func writeBenchmark(t *testing.T, root, id, config, qa string) {
	t.Helper()
	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(config), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, qaFileName), []byte(qa), 0o644))
}

// TestParseQAJSON verifies JSON datasets become ordered items.
func TestParseQAJSON(t *testing.T) {
	qa, err := ParseQA([]byte(`{"questions":["A?","B?"],"answers":["a","b"]}`), "qa.json")
	require.NoError(t, err)
	want := []bench.Item{
		{Index: 0, Question: "A?", ExpectedAnswer: "a"},
		{Index: 1, Question: "B?", ExpectedAnswer: "b"},
	}
	if diff := cmp.Diff(want, Items(qa)); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

// TestParseQAYAML verifies YAML datasets are accepted.
func TestParseQAYAML(t *testing.T) {
	payload := "questions:\n  - A?\nanswers:\n  - a\n"
	qa, err := ParseQA([]byte(payload), "qa.yml")
	require.NoError(t, err)
	require.Len(t, qa.Questions, 1)
}

// TestParseQARejectsEmpty ensures an empty dataset is a validation error.
func TestParseQARejectsEmpty(t *testing.T) {
	_, err := ParseQA([]byte(`{"questions":[],"answers":[]}`), "qa.json")
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

// TestParseQARejectsMismatch ensures question and answer counts must agree.
func TestParseQARejectsMismatch(t *testing.T) {
	_, err := ParseQA([]byte(`{"questions":["A?","B?"],"answers":["a"]}`), "qa.json")
	if !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
	require.Contains(t, err.Error(), "2 questions but 1 answers")
}

// TestParseQARejectsBadShape ensures schema violations are reported per field.
func TestParseQARejectsBadShape(t *testing.T) {
	_, err := ParseQA([]byte(`{"questions":"A?","answers":["a"]}`), "qa.json")
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	require.NotEmpty(t, validation.Issues)
	require.Equal(t, "questions", validation.Issues[0].Field)
}

// TestCatalogListAndLoad verifies builtin entries win and broken entries are skipped.
func TestCatalogListAndLoad(t *testing.T) {
	builtin := t.TempDir()
	uploads := t.TempDir()
	writeBenchmark(t, builtin, "geo", `{"name":"Geography","description":"Capitals"}`,
		`{"questions":["Capital of France?"],"answers":["Paris"]}`)
	writeBenchmark(t, uploads, "geo", `{"name":"Shadowed","description":"x"}`,
		`{"questions":["Q"],"answers":["A"]}`)
	writeBenchmark(t, uploads, "math", `{"name":"Math","description":"Sums","source":"uploaded"}`,
		`{"questions":["1+1?","2+2?"],"answers":["2","4"]}`)
	writeBenchmark(t, uploads, "broken", `{"name":"Broken","description":"x"}`,
		`{"questions":["Q"],"answers":[]}`)

	catalog := NewCatalog(builtin, uploads)
	listings, err := catalog.List(context.Background())
	require.NoError(t, err)
	want := []Listing{
		{ID: "geo", Name: "Geography", Description: "Capitals", Source: SourceBuiltin, QuestionCount: 1},
		{ID: "math", Name: "Math", Description: "Sums", Source: SourceUploaded, QuestionCount: 2},
	}
	if diff := cmp.Diff(want, listings); diff != "" {
		t.Fatalf("listings mismatch (-want +got):\n%s", diff)
	}

	loaded, err := catalog.Load("math")
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)
	require.Equal(t, "4", loaded.Items[1].ExpectedAnswer)
}

// TestCatalogLoadMissing ensures unknown ids map to ErrNotFound.
func TestCatalogLoadMissing(t *testing.T) {
	catalog := NewCatalog(t.TempDir(), "")
	_, err := catalog.Load("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestCatalogLoadRejectsTraversal ensures ids cannot escape the catalog dirs.
func TestCatalogLoadRejectsTraversal(t *testing.T) {
	catalog := NewCatalog(t.TempDir(), "")
	for _, id := range []string{"..", "../etc", "a/b", ".hidden", ""} {
		if _, err := catalog.Load(id); err == nil {
			t.Fatalf("expected id %q to be rejected", id)
		}
	}
}

// TestCatalogSaveSlugifiesName verifies uploads are written and listed.
func TestCatalogSaveSlugifiesName(t *testing.T) {
	uploads := t.TempDir()
	catalog := NewCatalog("", uploads)
	listing, err := catalog.Save(Upload{
		Name:        " My Quiz! ",
		Description: "Trivia",
		QA:          QA{Questions: []string{"Q?"}, Answers: []string{"A"}},
	})
	require.NoError(t, err)
	require.Equal(t, "my-quiz", listing.ID)
	require.Equal(t, 1, listing.QuestionCount)

	loaded, err := catalog.Load("my-quiz")
	require.NoError(t, err)
	require.Equal(t, "My Quiz!", loaded.Name)
	require.Equal(t, SourceUploaded, loaded.Source)
}

// TestCatalogSaveValidation collects every upload problem in one error.
func TestCatalogSaveValidation(t *testing.T) {
	catalog := NewCatalog("", t.TempDir())
	_, err := catalog.Save(Upload{QA: QA{Questions: []string{"Q?"}}})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	require.Len(t, validation.Issues, 3)
	require.ErrorIs(t, err, ErrMismatch)
}

// TestCatalogSaveRejectsBuiltinConflict keeps uploads from hiding behind builtins.
func TestCatalogSaveRejectsBuiltinConflict(t *testing.T) {
	builtin := t.TempDir()
	writeBenchmark(t, builtin, "geo", `{"name":"Geography","description":"Capitals"}`,
		`{"questions":["Q"],"answers":["A"]}`)
	catalog := NewCatalog(builtin, t.TempDir())
	_, err := catalog.Save(Upload{
		ID:          "geo",
		Name:        "Geo",
		Description: "x",
		QA:          QA{Questions: []string{"Q"}, Answers: []string{"A"}},
	})
	require.Error(t, err)
}

// TestSlugify covers punctuation and edge dashes.
func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello World":   "hello-world",
		"--Trim--":      "trim",
		"GPT 4o / Mini": "gpt-4o-mini",
		"!!!":           "",
	}
	for input, want := range cases {
		if got := Slugify(input); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}

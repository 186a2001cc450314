package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"

	"qabench/internal/bench"
	"qabench/internal/metrics"
)

var (
	// ErrNotFound is returned when a named record does not exist.
	ErrNotFound = errors.New("result not found")
	// ErrInvalidName is returned for names that are not a direct child of the store.
	ErrInvalidName = errors.New("invalid result name")
)

const (
	recordExt     = ".json"
	timestampLayout = "2006-01-02T15:04:05.000Z"
	maxNameTries  = 100
)

// Indexer is notified after every successful save.
type Indexer interface {
	Index(ctx context.Context, name string, record Record) error
}

// Entry summarizes a stored record for listings.
type Entry struct {
	Name          string    `json:"name"`
	Kind          Kind      `json:"kind"`
	BenchmarkID   string    `json:"benchmarkId"`
	BenchmarkName string    `json:"benchmarkName,omitempty"`
	Models        []string  `json:"models"`
	RunCount      int       `json:"runCount"`
	Timestamp     time.Time `json:"timestamp"`
}

// FileStore keeps one JSON file per record in Dir.
type FileStore struct {
	Dir     string
	Indexer Indexer
	Now     func() time.Time
}

// NewFileStore builds a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir, Now: time.Now}
}

// SaveSingle writes one run and returns the record name.
func (s *FileStore) SaveSingle(ctx context.Context, output bench.RunOutput, benchmarkID string) (string, error) {
	if err := output.Validate(); err != nil {
		return "", fmt.Errorf("save single: %w", err)
	}
	record := Record{Kind: KindSingle, Single: &SingleRun{BenchmarkID: benchmarkID, RunOutput: output}}
	stamp := output.Summary.Timestamp
	if stamp.IsZero() {
		stamp = s.now()
	}
	base := fmt.Sprintf("%s_%s_%s", Slug(benchmarkID), Slug(output.Summary.Model.ID), stampSlug(stamp))
	return s.save(ctx, base, record)
}

// SaveMulti writes a batch of runs and returns the record name.
func (s *FileStore) SaveMulti(ctx context.Context, runs []bench.RunOutput, benchmarkID, benchmarkName string, judge bench.ModelConfig) (string, error) {
	now := s.now().UTC()
	record := Record{Kind: KindMulti, Multi: &bench.MultiRunOutput{
		BenchmarkID:   benchmarkID,
		BenchmarkName: benchmarkName,
		Judge:         judge,
		Timestamp:     now,
		Runs:          runs,
	}}
	if err := record.Validate(); err != nil {
		return "", fmt.Errorf("save multi: %w", err)
	}
	base := fmt.Sprintf("%s_multi-%druns_%s", Slug(benchmarkID), len(runs), stampSlug(now))
	return s.save(ctx, base, record)
}

// stampSlug renders t in UTC with millisecond precision, with the colons
// and the decimal point replaced so the result is safe in a file name.
func stampSlug(t time.Time) string {
	return stampReplacer.Replace(t.UTC().Format(timestampLayout))
}

var stampReplacer = strings.NewReplacer(":", "-", ".", "-")

func (s *FileStore) save(ctx context.Context, base string, record Record) (name string, err error) {
	defer func() { metrics.Persisted(string(record.Kind), err) }()
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	name, err = s.writeNew(base, data)
	if err != nil {
		return "", err
	}
	logger := clog.FromContext(ctx).With("name", name, "kind", record.Kind)
	logger.Info("results saved")
	if s.Indexer != nil {
		if err := s.Indexer.Index(ctx, name, record); err != nil {
			logger.Warn("indexing results failed", "error", err)
		}
	}
	return name, nil
}

// writeNew stages data in a temp file and links it under a fresh name, so an
// existing record is never replaced and readers never see a partial file.
func (s *FileStore) writeNew(base string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(s.Dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp record: %w", err)
	}
	for attempt := 1; attempt <= maxNameTries; attempt++ {
		name := base + recordExt
		if attempt > 1 {
			name = fmt.Sprintf("%s-%d%s", base, attempt, recordExt)
		}
		err := os.Link(tmpName, filepath.Join(s.Dir, name))
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("publish record: %w", err)
		}
	}
	return "", fmt.Errorf("publish record: no free name for %s", base)
}

// List returns every readable record ordered by name, descending, which puts
// the newest record of each benchmark first. Unreadable files are skipped
// with a warning.
func (s *FileStore) List(ctx context.Context) ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read results dir: %w", err)
	}
	logger := clog.FromContext(ctx)
	entries := make([]Entry, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		name := dirEntry.Name()
		if dirEntry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != recordExt {
			continue
		}
		record, err := s.Load(name)
		if err != nil {
			logger.Warn("skipping unreadable result", "name", name, "error", err)
			continue
		}
		entries = append(entries, entryFor(name, record))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name > entries[j].Name })
	return entries, nil
}

// Load reads one record by name.
func (s *FileStore) Load(name string) (Record, error) {
	if err := ValidateName(name); err != nil {
		return Record{}, err
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Record{}, fmt.Errorf("read result: %w", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("decode result %s: %w", name, err)
	}
	if err := record.Validate(); err != nil {
		return Record{}, fmt.Errorf("decode result %s: %w", name, err)
	}
	return record, nil
}

// ValidateName rejects names that could resolve outside the store directory.
func ValidateName(name string) error {
	switch {
	case name == "",
		strings.ContainsAny(name, `/\`),
		strings.Contains(name, ".."),
		strings.HasPrefix(name, "."),
		filepath.Base(name) != name,
		filepath.Ext(name) != recordExt:
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Slug replaces path-unsafe characters, including "/", ":" and ".", with "-".
func Slug(text string) string {
	slug := unsafeChars.ReplaceAllString(text, "-")
	if slug == "" {
		return "unknown"
	}
	return slug
}

func entryFor(name string, record Record) Entry {
	entry := Entry{
		Name:        name,
		Kind:        record.Kind,
		BenchmarkID: record.BenchmarkID(),
		Timestamp:   record.Timestamp(),
	}
	if record.Kind == KindMulti {
		entry.BenchmarkName = record.Multi.BenchmarkName
	} else {
		entry.BenchmarkName = record.Single.Summary.BenchmarkName
	}
	for _, run := range record.Runs() {
		entry.Models = append(entry.Models, run.Summary.Model.DisplayName())
	}
	entry.RunCount = len(entry.Models)
	return entry
}

func (s *FileStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

package dataset

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

	"github.com/chainguard-dev/clog"

	"qabench/internal/bench"
)

const (
	configFileName = "config.json"
	qaFileName     = "qa.json"
)

var qaFileNames = []string{qaFileName, "qa.yml", "qa.yaml"}

// Benchmark is a loaded dataset with its metadata.
type Benchmark struct {
	Listing
	Items []bench.Item
}

// Loader resolves a benchmark id to its dataset.
type Loader interface {
	Load(id string) (Benchmark, error)
}

// Upload is a benchmark submitted through the upload endpoint.
type Upload struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	QA          QA     `json:"qa"`
}

// Catalog reads benchmarks from an ordered list of directories. Earlier
// directories win when two contain the same id.
type Catalog struct {
	Dirs []Dir
	// UploadDir receives benchmarks written by Save.
	UploadDir string
}

// NewCatalog builds a catalog over the builtin and upload directories.
func NewCatalog(builtinDir, uploadDir string) *Catalog {
	catalog := &Catalog{UploadDir: uploadDir}
	if builtinDir != "" {
		catalog.Dirs = append(catalog.Dirs, Dir{Path: builtinDir, Source: SourceBuiltin})
	}
	if uploadDir != "" {
		catalog.Dirs = append(catalog.Dirs, Dir{Path: uploadDir, Source: SourceUploaded})
	}
	return catalog
}

// List returns every readable benchmark, sorted by id.
func (c *Catalog) List(ctx context.Context) ([]Listing, error) {
	logger := clog.FromContext(ctx)
	seen := map[string]bool{}
	var listings []Listing
	for _, dir := range c.Dirs {
		entries, err := os.ReadDir(dir.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read benchmark dir %s: %w", dir.Path, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() || seen[entry.Name()] {
				continue
			}
			benchmark, err := loadFrom(dir, entry.Name())
			if err != nil {
				logger.Warn("skipping benchmark", "id", entry.Name(), "dir", dir.Path, "error", err)
				continue
			}
			seen[entry.Name()] = true
			listings = append(listings, benchmark.Listing)
		}
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].ID < listings[j].ID })
	return listings, nil
}

// Load reads and validates the benchmark with the given id.
func (c *Catalog) Load(id string) (Benchmark, error) {
	if err := ValidateID(id); err != nil {
		return Benchmark{}, err
	}
	for _, dir := range c.Dirs {
		if _, err := os.Stat(filepath.Join(dir.Path, id)); err != nil {
			continue
		}
		return loadFrom(dir, id)
	}
	return Benchmark{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Save validates an upload and writes it into the upload directory,
// replacing an earlier upload with the same id.
func (c *Catalog) Save(upload Upload) (Listing, error) {
	if c.UploadDir == "" {
		return Listing{}, errors.New("uploads are not configured")
	}
	upload.Name = strings.TrimSpace(upload.Name)
	upload.Description = strings.TrimSpace(upload.Description)
	cfg := Config{Name: upload.Name, Description: upload.Description, Source: SourceUploaded}
	collector := &issueCollector{}
	appendIssues(collector, ValidateConfig(cfg))
	appendIssues(collector, ValidateQA(upload.QA))
	if err := collector.result(); err != nil {
		return Listing{}, err
	}
	id := strings.TrimSpace(upload.ID)
	if id == "" {
		id = Slugify(upload.Name)
	}
	if err := ValidateID(id); err != nil {
		return Listing{}, err
	}
	for _, dir := range c.Dirs {
		if dir.Source == SourceBuiltin {
			if _, err := os.Stat(filepath.Join(dir.Path, id)); err == nil {
				return Listing{}, &ValidationError{Issues: []Issue{{Field: "id", Message: fmt.Sprintf("%q conflicts with a builtin benchmark", id)}}}
			}
		}
	}
	target := filepath.Join(c.UploadDir, id)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return Listing{}, fmt.Errorf("create benchmark dir: %w", err)
	}
	if err := writeJSON(filepath.Join(target, configFileName), cfg); err != nil {
		return Listing{}, err
	}
	if err := writeJSON(filepath.Join(target, qaFileName), upload.QA); err != nil {
		return Listing{}, err
	}
	return Listing{
		ID:            id,
		Name:          cfg.Name,
		Description:   cfg.Description,
		Source:        SourceUploaded,
		QuestionCount: len(upload.QA.Questions),
	}, nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases text and collapses runs of other characters into dashes.
func Slugify(text string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(text), "-"), "-")
}

func loadFrom(dir Dir, id string) (Benchmark, error) {
	root := filepath.Join(dir.Path, id)
	cfg, err := readConfig(filepath.Join(root, configFileName))
	if err != nil {
		return Benchmark{}, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return Benchmark{}, err
	}
	qaPath, err := findQAFile(root)
	if err != nil {
		return Benchmark{}, err
	}
	qa, err := LoadQAFile(qaPath)
	if err != nil {
		return Benchmark{}, err
	}
	source := cfg.Source
	if source == "" {
		source = dir.Source
	}
	return Benchmark{
		Listing: Listing{
			ID:            id,
			Name:          cfg.Name,
			Description:   cfg.Description,
			Source:        source,
			QuestionCount: len(qa.Questions),
		},
		Items: Items(qa),
	}, nil
}

func findQAFile(root string) (string, error) {
	for _, name := range qaFileNames {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("read dataset: no %s in %s", qaFileName, root)
}

func appendIssues(collector *issueCollector, err error) {
	var validation *ValidationError
	if errors.As(err, &validation) {
		collector.issues = append(collector.issues, validation.Issues...)
	}
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

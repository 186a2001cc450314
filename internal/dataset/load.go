package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"qabench/internal/bench"
)

// LoadQAFile reads, parses and validates a question/answer file.
func LoadQAFile(path string) (QA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return QA{}, fmt.Errorf("read dataset: %w", err)
	}
	return ParseQA(data, path)
}

// ParseQA decodes and validates dataset bytes. The path extension selects
// YAML (.yml, .yaml) or JSON (anything else).
func ParseQA(data []byte, path string) (QA, error) {
	var qa QA
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		err = decodeYAML(data, &qa)
	default:
		if err = ValidateQAShape(data); err == nil {
			err = decodeJSON(data, &qa)
		}
	}
	if err != nil {
		return QA{}, err
	}
	if err := ValidateQA(qa); err != nil {
		return QA{}, err
	}
	return qa, nil
}

// Items converts a validated dataset into ordered benchmark items.
func Items(qa QA) []bench.Item {
	items := make([]bench.Item, len(qa.Questions))
	for i, question := range qa.Questions {
		items[i] = bench.Item{Index: i, Question: question, ExpectedAnswer: qa.Answers[i]}
	}
	return items
}

func readConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read benchmark config: %w", err)
	}
	var cfg Config
	// Benchmark configs carry extra keys in the wild, so unknown fields are tolerated.
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse benchmark config: %w", err)
	}
	return cfg, nil
}

func decodeJSON(data []byte, out any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return fmt.Errorf("parse json: multiple documents are not supported")
		}
		return fmt.Errorf("parse json: %w", err)
	}
	return nil
}

func decodeYAML(data []byte, out any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return fmt.Errorf("parse yaml: multiple documents are not supported")
		}
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultConfig = `version: 1
server:
  addr: ":3000"
benchmarks:
  builtin_dir: "benchmarks"
  upload_dir: ".qabench/uploads"
results:
  dir: "results"
  duckdb_path: ".qabench/results.duckdb"
defaults:
  models:
    - id: "anthropic/claude-3.5-sonnet"
      name: "Claude 3.5 Sonnet"
  judge:
    id: "openai/gpt-4o-mini"
    name: "GPT-4o Mini"
providers:
  default: openrouter
  # limits:
  #   - prefix: "anthropic/"
  #     requests_per_minute: 50
  #     max_concurrent: 4
evaluation:
  max_retries: 3
  retry_delay: 1s
  run_timeout: 30m
  max_concurrent_runs: 0
`

// Scaffold writes a starter config file. It refuses to overwrite.
func Scaffold(path string) error {
	if path == "" {
		return fmt.Errorf("config path is required")
	}
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return fmt.Errorf("config path %q is a directory", path)
		}
		return fmt.Errorf("config file already exists at %q", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

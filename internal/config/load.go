package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// ErrNoConfig is returned when no config file is found.
var ErrNoConfig = errors.New("config not found")

// Load reads, parses, applies the environment, normalizes and validates a
// config file. Relative directories resolve against the project root.
func Load(ctx context.Context, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, err
	}
	return finish(ctx, cfg, RootFromConfigPath(path), envconfig.OsLookuper())
}

// Discover loads the config found above startDir, or the defaults rooted at
// startDir when there is none.
func Discover(ctx context.Context, startDir string) (Config, error) {
	path, err := FindConfigPath(startDir)
	if err == nil {
		return Load(ctx, path)
	}
	if !errors.Is(err, ErrNoConfig) {
		return Config{}, err
	}
	root := startDir
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return Config{}, fmt.Errorf("get working directory: %w", err)
		}
	}
	return finish(ctx, Config{Version: 1}, root, envconfig.OsLookuper())
}

// Parse decodes YAML config, rejecting unknown fields and multiple documents.
func Parse(data []byte) (Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return Config{}, fmt.Errorf("parse config: multiple YAML documents are not supported")
		}
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func finish(ctx context.Context, cfg Config, root string, lookuper envconfig.Lookuper) (Config, error) {
	if err := ApplyEnv(ctx, &cfg, lookuper); err != nil {
		return Config{}, err
	}
	Normalize(&cfg, root)
	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv reads secrets from the environment and lets QABENCH_* variables
// override file settings.
func ApplyEnv(ctx context.Context, cfg *Config, lookuper envconfig.Lookuper) error {
	var secrets Secrets
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &secrets, Lookuper: lookuper}); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	cfg.Secrets = secrets
	override(&cfg.Server.Addr, secrets.Addr)
	override(&cfg.Server.URL, secrets.ServerURL)
	override(&cfg.Results.Dir, secrets.ResultsDir)
	override(&cfg.Benchmarks.BuiltinDir, secrets.BenchmarksDir)
	override(&cfg.Benchmarks.UploadDir, secrets.UploadDir)
	override(&cfg.Results.DuckDBPath, secrets.DuckDBPath)
	return nil
}

func override(field *string, value string) {
	if value != "" {
		*field = value
	}
}

func resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

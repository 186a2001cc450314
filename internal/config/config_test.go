package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/require"

	"qabench/internal/agent"
	"qabench/internal/ratelimit"
	"qabench/internal/testutil"
)

func writeConfig(t *testing.T, root, body string) string {
	t.Helper()
	path := ConfigPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// TestParseRejectsUnknownFields ensures typos in config keys fail loudly.
func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("version: 1\nservr:\n  addr: x\n"))
	if err == nil || !strings.Contains(err.Error(), "servr") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	_, err = Parse([]byte("version: 1\n---\nversion: 1\n"))
	if err == nil || !strings.Contains(err.Error(), "multiple YAML documents") {
		t.Fatalf("expected multi-document error, got %v", err)
	}
}

// TestNormalizeFillsDefaults checks every defaulted field.
func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := Config{}
	Normalize(&cfg, "/proj")

	require.Equal(t, 1, cfg.Version)
	require.Equal(t, DefaultAddr, cfg.Server.Addr)
	require.Equal(t, filepath.Join("/proj", "benchmarks"), cfg.Benchmarks.BuiltinDir)
	require.Equal(t, filepath.Join("/proj", ".qabench/uploads"), cfg.Benchmarks.UploadDir)
	require.Equal(t, filepath.Join("/proj", "results"), cfg.Results.Dir)
	require.Empty(t, cfg.Results.DuckDBPath)
	require.Equal(t, "openai/gpt-4o-mini", cfg.Defaults.Judge.ID)
	require.Equal(t, agent.ProviderOpenRouter, cfg.Providers.Default)
	require.Equal(t, 3, cfg.Evaluation.MaxRetries)
	require.Equal(t, time.Second, cfg.Evaluation.RetryDelay)
	require.Equal(t, 30*time.Minute, cfg.Evaluation.RunTimeout)
	require.Equal(t, 500, cfg.Evaluation.AnswerMaxTokens)
	require.Equal(t, 200, cfg.Evaluation.JudgeFallbackMaxTokens)
	require.NoError(t, Validate(&cfg))
}

// TestValidateCollectsIssues reports every problem at once.
func TestValidateCollectsIssues(t *testing.T) {
	cfg := Config{}
	Normalize(&cfg, "/proj")
	cfg.Providers.Default = "bedrock"
	cfg.Providers.Routes = []agent.Route{{Provider: agent.ProviderAnthropic}}
	cfg.Evaluation.MaxRetries = -1
	cfg.Server.URL = "localhost:3000"
	cfg.Providers.Limits = []ratelimit.Limit{{Prefix: "openai/", MaxConcurrent: -2}}

	err := Validate(&cfg)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := map[string]bool{}
	for _, issue := range validation.Issues {
		fields[issue.Field] = true
	}
	for _, field := range []string{"providers.default", "providers.routes[0].prefix", "evaluation.max_retries", "server.url", "providers.limits[0]"} {
		if !fields[field] {
			t.Fatalf("expected issue for %s, got %v", field, validation.Issues)
		}
	}
}

// TestApplyEnvOverridesFile lets the environment win over YAML.
func TestApplyEnvOverridesFile(t *testing.T) {
	ctx := testutil.Context(t, 0)
	cfg, err := Parse([]byte("version: 1\nserver:\n  addr: \":9000\"\nresults:\n  dir: out\n"))
	require.NoError(t, err)

	lookuper := envconfig.MapLookuper(map[string]string{
		"OPENROUTER_API_KEY":  "sk-or",
		"ANTHROPIC_API_KEY":   "sk-ant",
		"QABENCH_ADDR":        ":8080",
		"QABENCH_RESULTS_DIR": "/var/results",
	})
	require.NoError(t, ApplyEnv(ctx, &cfg, lookuper))
	Normalize(&cfg, "/proj")

	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, "/var/results", cfg.Results.Dir)
	router := cfg.RouterConfig()
	require.Equal(t, "sk-or", router.OpenRouterAPIKey)
	require.Equal(t, "sk-ant", router.AnthropicAPIKey)
}

// TestLoadResolvesRelativeToProjectRoot reads a config file end to end.
func TestLoadResolvesRelativeToProjectRoot(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, `version: 1
benchmarks:
  builtin_dir: data/benchmarks
results:
  duckdb_path: .qabench/results.duckdb
defaults:
  models:
    - id: vendor/model
providers:
  routes:
    - prefix: "anthropic/"
      provider: anthropic
      strip_prefix: true
evaluation:
  retry_delay: 250ms
  run_timeout: 2m
`)
	cfg, err := Load(testutil.Context(t, 0), path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "data/benchmarks"), cfg.Benchmarks.BuiltinDir)
	require.Equal(t, filepath.Join(root, ".qabench/results.duckdb"), cfg.Results.DuckDBPath)
	require.Equal(t, 250*time.Millisecond, cfg.Evaluation.RetryDelay)
	require.Equal(t, 2*time.Minute, cfg.Evaluation.RunTimeout)
	require.Equal(t, []agent.Route{{Prefix: "anthropic/", Provider: agent.ProviderAnthropic, StripPrefix: true}}, cfg.Providers.Routes)
	require.Equal(t, "vendor/model", cfg.Defaults.Models[0].ModelConfig().ID)
}

// TestFindConfigPathWalksUp locates the config from a nested directory.
func TestFindConfigPathWalksUp(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, "version: 1\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindConfigPath(nested)
	require.NoError(t, err)
	require.Equal(t, path, found)
	require.Equal(t, root, RootFromConfigPath(found))
}

// TestFindConfigPathMissing reports ErrNoConfig.
func TestFindConfigPathMissing(t *testing.T) {
	_, err := FindConfigPath(t.TempDir())
	require.ErrorIs(t, err, ErrNoConfig)
}

// TestScaffoldWritesLoadableConfig round-trips the starter file.
func TestScaffoldWritesLoadableConfig(t *testing.T) {
	root := t.TempDir()
	path := ConfigPath(root)
	require.NoError(t, Scaffold(path))
	require.Error(t, Scaffold(path))

	cfg, err := Load(testutil.Context(t, 0), path)
	require.NoError(t, err)
	require.Equal(t, "anthropic/claude-3.5-sonnet", cfg.Defaults.Models[0].ID)
}

// Package config loads qabench settings from .qabench/config.yml and the
// environment.
package config

import (
	"time"

	"qabench/internal/agent"
	"qabench/internal/bench"
	"qabench/internal/ratelimit"
)

// Config is the full runtime configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Server     ServerConfig     `yaml:"server"`
	Benchmarks BenchmarksConfig `yaml:"benchmarks"`
	Results    ResultsConfig    `yaml:"results"`
	Defaults   DefaultsConfig   `yaml:"defaults"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Evaluation EvaluationConfig `yaml:"evaluation"`

	// Secrets never come from the YAML file.
	Secrets Secrets `yaml:"-"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	AssetsBaseURL string `yaml:"assets_base_url"`
	// URL is where the CLI reaches a running server; empty runs in-process.
	URL string `yaml:"url"`
}

// BenchmarksConfig locates benchmark datasets.
type BenchmarksConfig struct {
	BuiltinDir string `yaml:"builtin_dir"`
	UploadDir  string `yaml:"upload_dir"`
}

// ResultsConfig locates stored results.
type ResultsConfig struct {
	Dir        string `yaml:"dir"`
	DuckDBPath string `yaml:"duckdb_path"`
	// PersistSingle also saves every streamed single run.
	PersistSingle bool `yaml:"persist_single"`
}

// ModelRef names a model in config.
type ModelRef struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ModelConfig converts the reference to a bench model.
func (m ModelRef) ModelConfig() bench.ModelConfig {
	return bench.ModelConfig{ID: m.ID, Name: m.Name}
}

// DefaultsConfig names the models used when a request omits them.
type DefaultsConfig struct {
	Models []ModelRef `yaml:"models"`
	Judge  ModelRef   `yaml:"judge"`
}

// ProvidersConfig routes model ids to provider backends.
type ProvidersConfig struct {
	Default           string        `yaml:"default"`
	Routes            []agent.Route `yaml:"routes"`
	OpenRouterBaseURL string        `yaml:"openrouter_base_url"`
	OpenAIBaseURL     string        `yaml:"openai_base_url"`
	// Limits bound model calls per model id prefix.
	Limits []ratelimit.Limit `yaml:"limits"`
}

// EvaluationConfig tunes the evaluation pipeline.
type EvaluationConfig struct {
	MaxRetries             int           `yaml:"max_retries"`
	RetryDelay             time.Duration `yaml:"retry_delay"`
	RunTimeout             time.Duration `yaml:"run_timeout"`
	MaxConcurrentRuns      int           `yaml:"max_concurrent_runs"`
	AnswerSystemPrompt     string        `yaml:"answer_system_prompt"`
	JudgeSystemPrompt      string        `yaml:"judge_system_prompt"`
	AnswerMaxTokens        int           `yaml:"answer_max_tokens"`
	JudgeFallbackMaxTokens int           `yaml:"judge_fallback_max_tokens"`
}

// Secrets and deploy-time overrides read from the environment.
type Secrets struct {
	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY"`
	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`

	Addr          string `env:"QABENCH_ADDR"`
	ServerURL     string `env:"QABENCH_SERVER"`
	ResultsDir    string `env:"QABENCH_RESULTS_DIR"`
	BenchmarksDir string `env:"QABENCH_BENCHMARKS_DIR"`
	UploadDir     string `env:"QABENCH_UPLOAD_DIR"`
	DuckDBPath    string `env:"QABENCH_DUCKDB_PATH"`
}

// Limiter returns the model call limiter, or nil when no limits are set.
func (c Config) Limiter() *ratelimit.Limiter {
	if len(c.Providers.Limits) == 0 {
		return nil
	}
	return ratelimit.New(c.Providers.Limits)
}

// RouterConfig returns the provider routing settings with credentials.
func (c Config) RouterConfig() agent.RouterConfig {
	return agent.RouterConfig{
		Default:           c.Providers.Default,
		Routes:            c.Providers.Routes,
		OpenRouterAPIKey:  c.Secrets.OpenRouterAPIKey,
		OpenRouterBaseURL: c.Providers.OpenRouterBaseURL,
		AnthropicAPIKey:   c.Secrets.AnthropicAPIKey,
		OpenAIAPIKey:      c.Secrets.OpenAIAPIKey,
		OpenAIBaseURL:     c.Providers.OpenAIBaseURL,
	}
}

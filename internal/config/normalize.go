package config

import (
	"qabench/internal/agent"
	"qabench/internal/batch"
	"qabench/internal/judge"
	"qabench/internal/runner"
)

// Defaults applied by Normalize.
const (
	DefaultAddr          = ":3000"
	DefaultBenchmarksDir = "benchmarks"
	DefaultUploadDir     = ".qabench/uploads"
	DefaultResultsDir    = "results"
)

// Normalize fills defaults and resolves directories against root.
func Normalize(cfg *Config, root string) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	setDefault(&cfg.Server.Addr, DefaultAddr)
	setDefault(&cfg.Benchmarks.BuiltinDir, DefaultBenchmarksDir)
	setDefault(&cfg.Benchmarks.UploadDir, DefaultUploadDir)
	setDefault(&cfg.Results.Dir, DefaultResultsDir)
	cfg.Benchmarks.BuiltinDir = resolve(root, cfg.Benchmarks.BuiltinDir)
	cfg.Benchmarks.UploadDir = resolve(root, cfg.Benchmarks.UploadDir)
	cfg.Results.Dir = resolve(root, cfg.Results.Dir)
	cfg.Results.DuckDBPath = resolve(root, cfg.Results.DuckDBPath)

	if cfg.Defaults.Judge.ID == "" {
		cfg.Defaults.Judge = ModelRef{ID: judge.DefaultJudge.ID, Name: judge.DefaultJudge.Name}
	}
	setDefault(&cfg.Providers.Default, agent.ProviderOpenRouter)

	eval := &cfg.Evaluation
	if eval.MaxRetries == 0 {
		eval.MaxRetries = runner.DefaultMaxRetries
	}
	if eval.RetryDelay == 0 {
		eval.RetryDelay = runner.DefaultRetryDelay
	}
	if eval.RunTimeout == 0 {
		eval.RunTimeout = batch.DefaultRunTimeout
	}
	setDefault(&eval.AnswerSystemPrompt, agent.DefaultAnswerSystemPrompt)
	setDefault(&eval.JudgeSystemPrompt, judge.DefaultSystemPrompt)
	if eval.AnswerMaxTokens == 0 {
		eval.AnswerMaxTokens = agent.DefaultAnswerMaxTokens
	}
	if eval.JudgeFallbackMaxTokens == 0 {
		eval.JudgeFallbackMaxTokens = judge.DefaultFallbackMaxTokens
	}
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

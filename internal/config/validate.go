package config

import (
	"fmt"
	"strings"

	"qabench/internal/agent"
)

// Issue captures a validation problem with a config field.
type Issue struct {
	Field   string
	Message string
}

// ValidationError aggregates config validation issues.
type ValidationError struct {
	Issues []Issue
}

// Error renders validation errors as a multi-line string.
func (err *ValidationError) Error() string {
	if err == nil || len(err.Issues) == 0 {
		return "config validation failed"
	}
	lines := make([]string, 0, len(err.Issues))
	for _, issue := range err.Issues {
		lines = append(lines, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return strings.Join(lines, "\n")
}

// issueCollector accumulates validation issues.
type issueCollector struct {
	issues []Issue
}

func (c *issueCollector) add(field, message string) {
	c.issues = append(c.issues, Issue{Field: field, Message: message})
}

func (c *issueCollector) result() error {
	if len(c.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: c.issues}
}

// Validate checks a normalized config.
func Validate(cfg *Config) error {
	collector := &issueCollector{}

	if cfg.Version != 1 {
		collector.add("version", fmt.Sprintf("unsupported version %d", cfg.Version))
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		collector.add("server.addr", "is required")
	}
	if url := cfg.Server.URL; url != "" && !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		collector.add("server.url", fmt.Sprintf("must be an http(s) URL, got %q", url))
	}
	if strings.TrimSpace(cfg.Results.Dir) == "" {
		collector.add("results.dir", "is required")
	}

	for i, model := range cfg.Defaults.Models {
		if strings.TrimSpace(model.ID) == "" {
			collector.add(fmt.Sprintf("defaults.models[%d].id", i), "is required")
		}
	}
	if strings.TrimSpace(cfg.Defaults.Judge.ID) == "" {
		collector.add("defaults.judge.id", "is required")
	}

	validateProvider(collector, "providers.default", cfg.Providers.Default)
	for i, route := range cfg.Providers.Routes {
		prefix := fmt.Sprintf("providers.routes[%d]", i)
		if strings.TrimSpace(route.Prefix) == "" {
			collector.add(prefix+".prefix", "is required")
		}
		validateProvider(collector, prefix+".provider", route.Provider)
	}
	for i, limit := range cfg.Providers.Limits {
		if err := limit.Validate(); err != nil {
			collector.add(fmt.Sprintf("providers.limits[%d]", i), err.Error())
		}
	}

	eval := cfg.Evaluation
	if eval.MaxRetries < 1 {
		collector.add("evaluation.max_retries", "must be >= 1")
	}
	if eval.RetryDelay < 0 {
		collector.add("evaluation.retry_delay", "must be >= 0")
	}
	if eval.RunTimeout <= 0 {
		collector.add("evaluation.run_timeout", "must be > 0")
	}
	if eval.MaxConcurrentRuns < 0 {
		collector.add("evaluation.max_concurrent_runs", "must be >= 0")
	}
	if eval.AnswerMaxTokens < 1 {
		collector.add("evaluation.answer_max_tokens", "must be >= 1")
	}
	if eval.JudgeFallbackMaxTokens < 1 {
		collector.add("evaluation.judge_fallback_max_tokens", "must be >= 1")
	}
	return collector.result()
}

func validateProvider(collector *issueCollector, field, provider string) {
	switch provider {
	case agent.ProviderOpenRouter, agent.ProviderAnthropic, agent.ProviderOpenAI:
	case "":
		collector.add(field, "is required")
	default:
		collector.add(field, fmt.Sprintf("unsupported provider %q", provider))
	}
}

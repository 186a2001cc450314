package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"

	"qabench/internal/agent"
	"qabench/internal/config"
	"qabench/internal/dataset"
	"qabench/internal/judge"
	"qabench/internal/ratelimit"
	"qabench/internal/resultsdb"
	"qabench/internal/runner"
	"qabench/internal/store"
)

// newEvaluator builds the model-backed item evaluator. Tests replace it.
var newEvaluator = func(cfg config.Config) runner.ItemEvaluator {
	providers := ratelimit.Wrap(agent.NewRouter(cfg.RouterConfig()), cfg.Limiter())
	answerer := &agent.ModelAnswerer{
		Providers: providers,
		System:    cfg.Evaluation.AnswerSystemPrompt,
		MaxTokens: cfg.Evaluation.AnswerMaxTokens,
	}
	grader := judge.NewLLMJudge(providers)
	grader.System = cfg.Evaluation.JudgeSystemPrompt
	grader.FallbackMaxTokens = cfg.Evaluation.JudgeFallbackMaxTokens
	evaluator := runner.NewEvaluator(answerer, grader)
	evaluator.MaxRetries = cfg.Evaluation.MaxRetries
	evaluator.RetryDelay = cfg.Evaluation.RetryDelay
	return evaluator
}

// services holds the in-process components built from config.
type services struct {
	catalog *dataset.Catalog
	results *store.FileStore
	runner  *runner.Runner
	models  *agent.ModelCatalog
	index   *resultsdb.DB
}

// openServices wires the catalog, result store and runner. The DuckDB index
// is attached to the store when a path is configured.
func openServices(ctx context.Context, cfg config.Config) (*services, error) {
	svc := &services{
		catalog: dataset.NewCatalog(cfg.Benchmarks.BuiltinDir, cfg.Benchmarks.UploadDir),
		results: store.NewFileStore(cfg.Results.Dir),
		runner:  runner.New(newEvaluator(cfg)),
		models:  agent.NewModelCatalog(cfg.Providers.OpenRouterBaseURL, nil),
	}
	if cfg.Results.DuckDBPath != "" {
		index, err := resultsdb.Open(ctx, cfg.Results.DuckDBPath)
		if err != nil {
			return nil, fmt.Errorf("open results index: %w", err)
		}
		svc.index = index
		svc.results.Indexer = index
		clog.FromContext(ctx).Debug("results index attached", "path", cfg.Results.DuckDBPath)
	}
	return svc, nil
}

// Close releases the results index.
func (s *services) Close() error {
	if s == nil || s.index == nil {
		return nil
	}
	return s.index.Close()
}

// closeServices closes svc and joins its error into err.
func closeServices(svc *services, err *error) {
	if closeErr := svc.Close(); closeErr != nil {
		*err = errors.Join(*err, closeErr)
	}
}

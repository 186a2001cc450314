// Package runner evaluates benchmark items and streams run progress.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"

	"qabench/internal/agent"
	"qabench/internal/bench"
	"qabench/internal/judge"
	"qabench/internal/metrics"
)

const (
	// DefaultMaxRetries is the number of ask-then-judge attempts per item.
	DefaultMaxRetries = 3
	// DefaultRetryDelay is multiplied by the attempt number between attempts.
	DefaultRetryDelay = time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the context-aware wait used between attempts.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Evaluator asks a model one question and has a judge grade the answer.
type Evaluator struct {
	Answerer   agent.Answerer
	Judge      judge.Interface
	MaxRetries int
	RetryDelay time.Duration
	Sleep      SleepFunc
}

// NewEvaluator builds an evaluator with the default retry policy.
func NewEvaluator(answerer agent.Answerer, j judge.Interface) *Evaluator {
	return &Evaluator{
		Answerer:   answerer,
		Judge:      j,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		Sleep:      Sleep,
	}
}

// Evaluate never fails: after the last failed attempt it returns an error
// answer with an incorrect verdict. A cancelled ctx ends the retries early.
func (e *Evaluator) Evaluate(ctx context.Context, item bench.Item, model, judgeModel bench.ModelConfig) bench.ItemResult {
	maxRetries := e.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	sleep := e.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	logger := clog.FromContext(ctx).With("model", model.ID, "item", item.Index)

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= maxRetries; attempt++ {
		attempts = attempt
		metrics.ItemAttempt(model.ID)
		result, err := e.attempt(ctx, item, model, judgeModel)
		if err == nil {
			metrics.ItemEvaluated(model.ID, result.Verdict.Correct)
			return result
		}
		lastErr = err
		if attempt == maxRetries || ctx.Err() != nil {
			break
		}
		delay := e.RetryDelay * time.Duration(attempt)
		logger.Warn("item attempt failed, retrying", "attempt", attempt, "max_attempts", maxRetries, "delay", delay, "error", err)
		if err := sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	logger.Error("item failed", "attempts", attempts, "error", lastErr)
	metrics.ItemFailed(model.ID)
	metrics.ItemEvaluated(model.ID, false)
	return bench.ItemResult{
		Index:          item.Index,
		Question:       item.Question,
		ExpectedAnswer: item.ExpectedAnswer,
		ModelAnswer:    fmt.Sprintf("[ERROR: %v]", lastErr),
		Verdict: bench.Verdict{
			Correct:   false,
			Rationale: fmt.Sprintf("Failed after %d attempts: %v", maxRetries, lastErr),
		},
	}
}

func (e *Evaluator) attempt(ctx context.Context, item bench.Item, model, judgeModel bench.ModelConfig) (bench.ItemResult, error) {
	answer, err := e.Answerer.Answer(ctx, item.Question, model)
	if err != nil {
		return bench.ItemResult{}, fmt.Errorf("ask %s: %w", model.ID, err)
	}
	verdict, err := e.Judge.Judge(ctx, judge.Request{
		Judge:          judgeModel,
		Question:       item.Question,
		ExpectedAnswer: item.ExpectedAnswer,
		ModelAnswer:    answer,
	})
	if err != nil {
		return bench.ItemResult{}, fmt.Errorf("judge: %w", err)
	}
	return bench.ItemResult{
		Index:          item.Index,
		Question:       item.Question,
		ExpectedAnswer: item.ExpectedAnswer,
		ModelAnswer:    answer,
		Verdict:        verdict,
	}, nil
}

// Package judge grades model answers against expected answers.
package judge

import (
	"context"

	"qabench/internal/bench"
)

// DefaultJudge is used when a run does not name a judge.
var DefaultJudge = bench.ModelConfig{ID: "openai/gpt-4o-mini", Name: "GPT-4o Mini"}

// Request contains the context for one judgment.
type Request struct {
	Judge          bench.ModelConfig
	Question       string
	ExpectedAnswer string
	ModelAnswer    string
}

// Interface defines the contract for judge implementations.
type Interface interface {
	Judge(ctx context.Context, request Request) (bench.Verdict, error)
}

// Func adapts a function to Interface.
type Func func(ctx context.Context, request Request) (bench.Verdict, error)

// Judge calls f.
func (f Func) Judge(ctx context.Context, request Request) (bench.Verdict, error) {
	return f(ctx, request)
}

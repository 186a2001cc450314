package agent

import (
	"context"
	"strings"
	"time"

	"qabench/internal/bench"
	"qabench/internal/metrics"
)

// DefaultAnswerSystemPrompt frames every benchmark question.
const DefaultAnswerSystemPrompt = `You are answering trivia questions from a benchmark dataset.

Answer concisely and directly. Give the single most accurate answer you can.`

// DefaultAnswerMaxTokens bounds the length of a model answer.
const DefaultAnswerMaxTokens = 500

// Answerer asks the model under test a benchmark question.
type Answerer interface {
	Answer(ctx context.Context, question string, model bench.ModelConfig) (string, error)
}

// ModelAnswerer resolves a provider per model and asks it the question.
type ModelAnswerer struct {
	Providers Factory
	System    string
	MaxTokens int
}

// Answer returns the trimmed model answer.
func (a *ModelAnswerer) Answer(ctx context.Context, question string, model bench.ModelConfig) (string, error) {
	provider, err := a.Providers.ForModel(model.ID)
	if err != nil {
		return "", err
	}
	system := a.System
	if system == "" {
		system = DefaultAnswerSystemPrompt
	}
	maxTokens := a.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultAnswerMaxTokens
	}
	started := time.Now()
	text, err := provider.Complete(ctx, Prompt{System: system, User: question, MaxTokens: maxTokens})
	metrics.CapabilityLatency(metrics.KindAnswer, time.Since(started).Seconds())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

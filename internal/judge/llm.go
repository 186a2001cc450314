package judge

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"

	"qabench/internal/agent"
	"qabench/internal/bench"
	"qabench/internal/metrics"
)

// DefaultSystemPrompt instructs the judge model.
const DefaultSystemPrompt = `You are a strict but fair judge evaluating answers to trivia questions. Evaluate if the model's answer is correct. The answer doesn't need to be word-for-word identical, but it must convey the same core meaning and be factually accurate.`

// DefaultFallbackMaxTokens bounds the free-text fallback response.
const DefaultFallbackMaxTokens = 200

const fallbackInstructions = `Respond in this exact JSON format only, with no other text:
{"correct": true/false, "rationale": "brief explanation"}`

// LLMJudge asks a judge model for a structured verdict, falling back to
// free-text parsing for models without structured output support.
type LLMJudge struct {
	Providers         agent.Factory
	System            string
	FallbackMaxTokens int
}

// NewLLMJudge builds a judge that resolves providers through providers.
func NewLLMJudge(providers agent.Factory) *LLMJudge {
	return &LLMJudge{Providers: providers}
}

// Judge grades one answer. Errors are returned only when the judge model
// could not be reached at all.
func (j *LLMJudge) Judge(ctx context.Context, request Request) (bench.Verdict, error) {
	model := request.Judge
	if model.ID == "" {
		model = DefaultJudge
	}
	provider, err := j.Providers.ForModel(model.ID)
	if err != nil {
		return bench.Verdict{}, err
	}
	system := j.System
	if system == "" {
		system = DefaultSystemPrompt
	}
	output, err := verdictOutputSchema()
	if err != nil {
		return bench.Verdict{}, err
	}
	started := time.Now()
	defer func() {
		metrics.CapabilityLatency(metrics.KindJudge, time.Since(started).Seconds())
	}()

	text, err := provider.Complete(ctx, agent.Prompt{System: system, User: BuildPrompt(request), Output: output})
	if err == nil {
		verdict, parseErr := parseStrict(text)
		if parseErr == nil {
			return verdict, nil
		}
		err = parseErr
	}
	if ctx.Err() != nil {
		return bench.Verdict{}, ctx.Err()
	}
	logger := clog.FromContext(ctx).With("judge", model.ID)
	logger.Warn("structured judge output failed, falling back to text parsing", "error", err)

	maxTokens := j.FallbackMaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultFallbackMaxTokens
	}
	text, err = provider.Complete(ctx, agent.Prompt{
		User:      system + "\n\n" + BuildPrompt(request) + "\n\n" + fallbackInstructions,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return bench.Verdict{}, fmt.Errorf("judge %s: %w", model.ID, err)
	}
	verdict, err := extractVerdict(text)
	if err == nil {
		return verdict, nil
	}
	logger.Warn("judge response unparsable, inferring verdict", "error", err, "response", text)
	metrics.JudgeLossy()
	return inferVerdict(text), nil
}

// BuildPrompt renders the user message shown to the judge.
func BuildPrompt(request Request) string {
	return fmt.Sprintf("QUESTION: %s\n\nEXPECTED ANSWER: %s\n\nMODEL'S ANSWER: %s",
		request.Question, request.ExpectedAnswer, request.ModelAnswer)
}

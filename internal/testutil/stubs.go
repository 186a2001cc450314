package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"qabench/internal/bench"
	"qabench/internal/judge"
)

// EchoAnswerer answers from Answers, or with "answer to <question>" when the
// question is not listed. The first FailFirst calls for each question fail.
type EchoAnswerer struct {
	Answers   map[string]string
	FailFirst int

	mu    sync.Mutex
	calls map[string]int
}

// Answer implements agent.Answerer.
func (a *EchoAnswerer) Answer(ctx context.Context, question string, model bench.ModelConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.mu.Lock()
	if a.calls == nil {
		a.calls = map[string]int{}
	}
	a.calls[question]++
	call := a.calls[question]
	a.mu.Unlock()
	if call <= a.FailFirst {
		return "", fmt.Errorf("transient failure %d", call)
	}
	if answer, ok := a.Answers[question]; ok {
		return answer, nil
	}
	return "answer to " + question, nil
}

// Calls reports how often question was asked.
func (a *EchoAnswerer) Calls(question string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[question]
}

// ContainsJudge marks an answer correct when it contains the expected answer,
// ignoring case.
func ContainsJudge() judge.Interface {
	return judge.Func(func(ctx context.Context, request judge.Request) (bench.Verdict, error) {
		if err := ctx.Err(); err != nil {
			return bench.Verdict{}, err
		}
		correct := strings.Contains(strings.ToLower(request.ModelAnswer), strings.ToLower(request.ExpectedAnswer))
		return bench.Verdict{Correct: correct, Rationale: fmt.Sprintf("contains %q: %t", request.ExpectedAnswer, correct)}, nil
	})
}

// Items builds n benchmark items whose questions are "q<i>" and answers "a<i>".
func Items(n int) []bench.Item {
	items := make([]bench.Item, n)
	for i := range items {
		items[i] = bench.Item{Index: i, Question: fmt.Sprintf("q%d", i), ExpectedAnswer: fmt.Sprintf("a%d", i)}
	}
	return items
}

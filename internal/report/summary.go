// Package report prints run results to a terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"qabench/internal/bench"
)

const (
	// MaxIncorrectListed caps the incorrect answers printed per run.
	MaxIncorrectListed = 10
	answerExcerpt      = 100
)

// PrintSummary writes the totals of one run. Incorrect answers are listed
// only when there are between one and MaxIncorrectListed of them.
func PrintSummary(w io.Writer, output bench.RunOutput) {
	summary := output.Summary
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Model:     %s\n", summary.Model.DisplayName())
	fmt.Fprintf(w, "Judge:     %s\n", summary.Judge.DisplayName())
	if summary.BenchmarkName != "" || summary.BenchmarkID != "" {
		fmt.Fprintf(w, "Benchmark: %s\n", firstNonEmpty(summary.BenchmarkName, summary.BenchmarkID))
	}
	fmt.Fprintf(w, "Correct:   %d/%d\n", summary.CorrectCount, summary.TotalQuestions)
	fmt.Fprintf(w, "Accuracy:  %s\n", formatAccuracy(summary.Accuracy))
	fmt.Fprintln(w, rule)

	var incorrect []bench.ItemResult
	for _, result := range output.Results {
		if !result.Verdict.Correct {
			incorrect = append(incorrect, result)
		}
	}
	if len(incorrect) == 0 || len(incorrect) > MaxIncorrectListed {
		return
	}
	fmt.Fprintln(w, "Incorrect answers:")
	for _, result := range incorrect {
		fmt.Fprintf(w, "\n%d. %s\n", result.Index+1, result.Question)
		fmt.Fprintf(w, "   Expected: %s\n", result.ExpectedAnswer)
		fmt.Fprintf(w, "   Got:      %s\n", truncate(result.ModelAnswer, answerExcerpt))
		fmt.Fprintf(w, "   Reason:   %s\n", result.Verdict.Rationale)
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

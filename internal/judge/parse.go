package judge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"qabench/internal/bench"
)

// LossyPrefix marks rationales of verdicts inferred from unparsable output.
const LossyPrefix = "[lossy]"

const lossyExcerpt = 100

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parseStrict decodes a verdict that must be exactly one JSON object.
func parseStrict(text string) (bench.Verdict, error) {
	var raw struct {
		Correct   *bool   `json:"correct"`
		Rationale *string `json:"rationale"`
	}
	decoder := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(text))))
	if err := decoder.Decode(&raw); err != nil {
		return bench.Verdict{}, fmt.Errorf("parse verdict: %w", err)
	}
	if raw.Correct == nil || raw.Rationale == nil {
		return bench.Verdict{}, errors.New("parse verdict: correct and rationale are required")
	}
	return bench.Verdict{Correct: *raw.Correct, Rationale: *raw.Rationale}, nil
}

// extractVerdict finds the outermost JSON object in free text, which may be
// wrapped in prose or a markdown fence, and decodes it.
func extractVerdict(text string) (bench.Verdict, error) {
	match := jsonObjectPattern.FindString(text)
	if match == "" {
		return bench.Verdict{}, errors.New("no JSON object found in response")
	}
	return parseStrict(match)
}

// inferVerdict guesses a verdict by substring. The rationale is flagged so
// readers can tell it apart from a real judgment.
func inferVerdict(text string) bench.Verdict {
	lower := strings.ToLower(text)
	correct := strings.Contains(lower, `"correct": true`) || strings.Contains(lower, `"correct":true`)
	excerpt := text
	if runes := []rune(excerpt); len(runes) > lossyExcerpt {
		excerpt = string(runes[:lossyExcerpt])
	}
	return bench.Verdict{Correct: correct, Rationale: LossyPrefix + " " + excerpt}
}

// IsLossy reports whether a verdict came from the substring fallback.
func IsLossy(verdict bench.Verdict) bool {
	return strings.HasPrefix(verdict.Rationale, LossyPrefix)
}

package bench

import (
	"fmt"
	"time"
)

// Item is a single question and expected answer from a benchmark dataset.
type Item struct {
	Index          int    `json:"index"`
	Question       string `json:"question"`
	ExpectedAnswer string `json:"expectedAnswer"`
}

// Verdict is the judge's correctness determination for one item.
type Verdict struct {
	Correct   bool   `json:"correct"`
	Rationale string `json:"rationale"`
}

// ItemResult records the model answer and verdict for one item.
type ItemResult struct {
	Index          int     `json:"index"`
	Question       string  `json:"question"`
	ExpectedAnswer string  `json:"expectedAnswer"`
	ModelAnswer    string  `json:"modelAnswer"`
	Verdict        Verdict `json:"verdict"`
}

// ModelConfig identifies a model under test or a judge.
type ModelConfig struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DisplayName returns the name, falling back to the id.
func (m ModelConfig) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

// RunSummary aggregates accuracy metrics for a completed run.
type RunSummary struct {
	Model          ModelConfig `json:"model"`
	Judge          ModelConfig `json:"judge"`
	BenchmarkID    string      `json:"benchmarkId,omitempty"`
	BenchmarkName  string      `json:"benchmarkName,omitempty"`
	TotalQuestions int         `json:"totalQuestions"`
	CorrectCount   int         `json:"correctCount"`
	Accuracy       float64     `json:"accuracy"`
	Timestamp      time.Time   `json:"timestamp"`
}

// RunOutput is the complete output of a single run.
type RunOutput struct {
	Summary RunSummary   `json:"summary"`
	Results []ItemResult `json:"results"`
}

// MultiRunOutput groups runs that share a benchmark and judge.
type MultiRunOutput struct {
	BenchmarkID   string      `json:"benchmarkId"`
	BenchmarkName string      `json:"benchmarkName"`
	Judge         ModelConfig `json:"judge"`
	Timestamp     time.Time   `json:"timestamp"`
	Runs          []RunOutput `json:"runs"`
}

// NewSummary computes the run summary for a set of results.
func NewSummary(model, judge ModelConfig, results []ItemResult, now time.Time) RunSummary {
	correct := 0
	for _, result := range results {
		if result.Verdict.Correct {
			correct++
		}
	}
	return RunSummary{
		Model:          model,
		Judge:          judge,
		TotalQuestions: len(results),
		CorrectCount:   correct,
		Accuracy:       Accuracy(correct, len(results)),
		Timestamp:      now.UTC(),
	}
}

// Accuracy returns correct/total, or 0 for an empty run.
func Accuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

// Validate checks the output invariants of a run.
func (o RunOutput) Validate() error {
	if len(o.Results) != o.Summary.TotalQuestions {
		return fmt.Errorf("run output has %d results but summary reports %d questions", len(o.Results), o.Summary.TotalQuestions)
	}
	if o.Summary.CorrectCount < 0 || o.Summary.CorrectCount > o.Summary.TotalQuestions {
		return fmt.Errorf("correct count %d out of range [0,%d]", o.Summary.CorrectCount, o.Summary.TotalQuestions)
	}
	if o.Summary.Accuracy != Accuracy(o.Summary.CorrectCount, o.Summary.TotalQuestions) {
		return fmt.Errorf("accuracy %v does not match %d/%d", o.Summary.Accuracy, o.Summary.CorrectCount, o.Summary.TotalQuestions)
	}
	return nil
}

package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when no benchmark matches an id.
	ErrNotFound = errors.New("benchmark not found")
	// ErrEmpty is returned when a dataset has no questions.
	ErrEmpty = errors.New("dataset is empty")
	// ErrMismatch is returned when question and answer counts differ.
	ErrMismatch = errors.New("question and answer counts differ")
)

// Issue captures a validation problem in a dataset.
type Issue struct {
	Field   string
	Message string
	Err     error
}

// ValidationError reports one or more validation issues.
type ValidationError struct {
	Issues []Issue
}

// Error returns a readable message for validation failures.
func (err *ValidationError) Error() string {
	if err == nil || len(err.Issues) == 0 {
		return ""
	}
	parts := make([]string, 0, len(err.Issues))
	for _, issue := range err.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return fmt.Sprintf("dataset validation failed: %s", strings.Join(parts, "; "))
}

// Unwrap exposes issue sentinels to errors.Is.
func (err *ValidationError) Unwrap() []error {
	if err == nil {
		return nil
	}
	var errs []error
	for _, issue := range err.Issues {
		if issue.Err != nil {
			errs = append(errs, issue.Err)
		}
	}
	return errs
}

type issueCollector struct {
	issues []Issue
}

func (collector *issueCollector) add(field, message string) {
	collector.issues = append(collector.issues, Issue{Field: field, Message: message})
}

func (collector *issueCollector) addErr(field string, err error, message string) {
	collector.issues = append(collector.issues, Issue{Field: field, Message: message, Err: err})
}

func (collector *issueCollector) result() error {
	if len(collector.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: collector.issues}
}

// ValidateQA checks that a parsed dataset can be turned into benchmark items.
func ValidateQA(qa QA) error {
	collector := &issueCollector{}
	if len(qa.Questions) != len(qa.Answers) {
		collector.addErr("answers", ErrMismatch,
			fmt.Sprintf("%d questions but %d answers", len(qa.Questions), len(qa.Answers)))
	}
	if len(qa.Questions) == 0 {
		collector.addErr("questions", ErrEmpty, "must include at least one entry")
	}
	for i, question := range qa.Questions {
		if strings.TrimSpace(question) == "" {
			collector.add(fmt.Sprintf("questions[%d]", i), "is required")
		}
	}
	return collector.result()
}

// ValidateConfig checks benchmark metadata.
func ValidateConfig(cfg Config) error {
	collector := &issueCollector{}
	if strings.TrimSpace(cfg.Name) == "" {
		collector.add("name", "is required")
	}
	if strings.TrimSpace(cfg.Description) == "" {
		collector.add("description", "is required")
	}
	switch cfg.Source {
	case "", SourceBuiltin, SourceUploaded:
	default:
		collector.add("source", fmt.Sprintf("unsupported source %q", cfg.Source))
	}
	return collector.result()
}

// ValidateID rejects ids that are not a single clean path segment.
func ValidateID(id string) error {
	trimmed := strings.TrimSpace(id)
	switch {
	case trimmed == "":
		return &ValidationError{Issues: []Issue{{Field: "id", Message: "is required"}}}
	case trimmed != id,
		strings.ContainsAny(id, `/\`),
		id == "." || id == "..",
		strings.HasPrefix(id, "."):
		return &ValidationError{Issues: []Issue{{Field: "id", Message: fmt.Sprintf("invalid benchmark id %q", id)}}}
	}
	return nil
}

package quiz

import (
	"fmt"
	"strings"

	"github.com/abhisek/lumora/internal/transcript"
)

// Validator checks a generated question.
type Validator interface {
	Name() string
	Validate(q *Question, doc *transcript.Document) *ValidationError
}

// ValidationError describes why a generated question was rejected.
type ValidationError struct {
	Validator string
	Question  int
	Message   string
	Retryable bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: question %d: %s", e.Validator, e.Question+1, e.Message)
}

// StructuralValidator checks text fields, option counts and answer indexes,
// including those of reinforcement questions.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(q *Question, _ *transcript.Document) *ValidationError {
	if msg := checkChoice("", q.Question, q.Options, q.CorrectAnswer); msg != "" {
		return &ValidationError{Validator: v.Name(), Message: msg, Retryable: true}
	}
	if strings.TrimSpace(q.Explanation) == "" {
		return &ValidationError{Validator: v.Name(), Message: "explanation is empty", Retryable: true}
	}
	for i, r := range q.ReinforcementQuestions {
		if msg := checkChoice(fmt.Sprintf("reinforcement %d: ", i+1), r.Question, r.Options, r.CorrectAnswer); msg != "" {
			return &ValidationError{Validator: v.Name(), Message: msg, Retryable: true}
		}
	}
	return nil
}

func checkChoice(prefix, text string, options []string, correct int) string {
	if strings.TrimSpace(text) == "" {
		return prefix + "question is empty"
	}
	if len(options) != OptionCount {
		return fmt.Sprintf("%shas %d options, want %d", prefix, len(options), OptionCount)
	}
	seen := make(map[string]bool, len(options))
	for _, o := range options {
		key := strings.ToLower(strings.TrimSpace(o))
		if key == "" {
			return prefix + "has an empty option"
		}
		if seen[key] {
			return fmt.Sprintf("%shas duplicate option %q", prefix, o)
		}
		seen[key] = true
	}
	if correct < 0 || correct >= len(options) {
		return fmt.Sprintf("%scorrectAnswer %d out of range", prefix, correct)
	}
	return ""
}

// TimelineValidator checks that startTime falls inside the transcript.
type TimelineValidator struct{}

func (v *TimelineValidator) Name() string { return "timeline" }

func (v *TimelineValidator) Validate(q *Question, doc *transcript.Document) *ValidationError {
	if q.StartTime < 0 {
		return &ValidationError{Validator: v.Name(), Message: "startTime is negative", Retryable: true}
	}
	if doc == nil {
		return nil
	}
	if end := doc.Duration(); end > 0 && q.StartTime > end {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("startTime %.0fs is past the end of the transcript (%.0fs)", q.StartTime, end),
			Retryable: true,
		}
	}
	return nil
}

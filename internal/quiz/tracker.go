package quiz

import (
	"context"

	"github.com/abhisek/lumora/internal/store"
)

// Tracker answers which quizzes exist and which a student has passed.
// A pass is permanent; there is no stored failed state.
type Tracker struct {
	repo store.QuizRepo
}

// NewTracker creates a Tracker over repo.
func NewTracker(repo store.QuizRepo) *Tracker {
	return &Tracker{repo: repo}
}

func (t *Tracker) IsQuizCompleted(ctx context.Context, studentID, videoID string) (bool, error) {
	return t.repo.IsQuizCompleted(ctx, studentID, videoID)
}

// MarkQuizCompleted records a pass. Repeated calls are no-ops; the result
// reports whether this call recorded it.
func (t *Tracker) MarkQuizCompleted(ctx context.Context, studentID, videoID string) (bool, error) {
	return t.repo.MarkQuizCompleted(ctx, studentID, videoID)
}

// PassedFor reports passes for each of videoIDs.
func (t *Tracker) PassedFor(ctx context.Context, studentID string, videoIDs []string) (map[string]bool, error) {
	return t.repo.PassedFor(ctx, studentID, videoIDs)
}

// HasQuiz reports which of videoIDs have a quiz attached.
func (t *Tracker) HasQuiz(ctx context.Context, videoIDs []string) (map[string]bool, error) {
	return t.repo.VideosWithQuiz(ctx, videoIDs)
}

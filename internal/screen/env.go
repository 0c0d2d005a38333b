package screen

import (
	"log/slog"

	"github.com/abhisek/lumora/internal/assistant"
	"github.com/abhisek/lumora/internal/course"
	"github.com/abhisek/lumora/internal/playback"
	"github.com/abhisek/lumora/internal/progress"
	"github.com/abhisek/lumora/internal/quiz"
	"github.com/abhisek/lumora/internal/transcript"
)

// Env carries the services every screen may need. Assistant may be nil.
type Env struct {
	StudentID   string
	Catalog     *course.Catalog
	Learner     *course.Learner
	Progress    *progress.Service
	Quizzes     *quiz.Service
	Transcripts *transcript.Service
	Assistant   *assistant.Assistant
	Playback    playback.Config
	Logger      *slog.Logger
}

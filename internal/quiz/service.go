package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abhisek/lumora/internal/store"
	"github.com/abhisek/lumora/internal/transcript"
)

// ErrNoGenerator is returned by Service.Generate when no LLM is configured.
var ErrNoGenerator = errors.New("quiz generation is not configured")

// Submission is a graded attempt.
type Submission struct {
	Result
	// NewlyPassed is true on the attempt that first recorded a pass.
	NewlyPassed bool
}

// Service generates, stores and grades video quizzes.
type Service struct {
	gen         Generator
	repo        store.QuizRepo
	tracker     *Tracker
	transcripts *transcript.Service
	config      Config
	logger      *slog.Logger
}

// NewService wires a quiz service. gen may be nil when no LLM is available;
// stored quizzes can still be taken.
func NewService(gen Generator, repo store.QuizRepo, transcripts *transcript.Service, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gen:         gen,
		repo:        repo,
		tracker:     NewTracker(repo),
		transcripts: transcripts,
		config:      cfg,
		logger:      logger,
	}
}

// Tracker returns the completion tracker backing this service.
func (s *Service) Tracker() *Tracker { return s.tracker }

// Generate builds a quiz for videoID from its stored transcript and saves
// it, replacing any previous quiz.
func (s *Service) Generate(ctx context.Context, videoID string) (*Quiz, error) {
	if s.gen == nil {
		return nil, ErrNoGenerator
	}
	t, err := s.transcripts.Get(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	questions, err := s.gen.Generate(ctx, t.VideoTitle, t.Document)
	if err != nil {
		return nil, err
	}
	model := ""
	if m, ok := s.gen.(interface{ ModelID() string }); ok {
		model = m.ModelID()
	}
	q, err := s.save(ctx, videoID, questions, model)
	if err != nil {
		return nil, err
	}
	s.logger.Info("quiz generated", "video", videoID, "questions", len(questions), "model", model)
	return q, nil
}

// Import stores an externally authored question set for videoID after
// running the structural checks.
func (s *Service) Import(ctx context.Context, videoID string, questions []Question) (*Quiz, error) {
	if len(questions) == 0 {
		return nil, errors.New("quiz has no questions")
	}
	v := &StructuralValidator{}
	for i := range questions {
		if verr := v.Validate(&questions[i], nil); verr != nil {
			verr.Question = i
			return nil, verr
		}
	}
	return s.save(ctx, videoID, questions, "imported")
}

func (s *Service) save(ctx context.Context, videoID string, questions []Question, model string) (*Quiz, error) {
	data, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}
	row := &store.Quiz{VideoID: videoID, Questions: data, Model: model}
	if err := s.repo.SaveQuiz(ctx, row); err != nil {
		return nil, err
	}
	return &Quiz{VideoID: videoID, Questions: questions, Model: model, CreatedAt: row.CreatedAt}, nil
}

// Get returns the quiz of videoID or store.ErrNotFound.
func (s *Service) Get(ctx context.Context, videoID string) (*Quiz, error) {
	row, err := s.repo.GetQuiz(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("quiz for video %s: %w", videoID, store.ErrNotFound)
	}
	q := &Quiz{VideoID: row.VideoID, Model: row.Model, CreatedAt: row.CreatedAt}
	if err := json.Unmarshal(row.Questions, &q.Questions); err != nil {
		return nil, fmt.Errorf("decode quiz %s: %w", videoID, err)
	}
	return q, nil
}

// Delete removes the quiz of videoID. Recorded passes are kept.
func (s *Service) Delete(ctx context.Context, videoID string) error {
	return s.repo.DeleteQuiz(ctx, videoID)
}

// Submit grades answers for the quiz of videoID and records a pass.
// Failed attempts leave no trace and may be retried without limit.
func (s *Service) Submit(ctx context.Context, studentID, videoID string, answers []int) (Submission, error) {
	q, err := s.Get(ctx, videoID)
	if err != nil {
		return Submission{}, err
	}
	res, err := Grade(q.Questions, answers, s.config.PassRatio)
	if err != nil {
		return Submission{}, err
	}
	sub := Submission{Result: res}
	if !res.Passed {
		return sub, nil
	}
	sub.NewlyPassed, err = s.tracker.MarkQuizCompleted(ctx, studentID, videoID)
	if err != nil {
		return sub, fmt.Errorf("record quiz pass: %w", err)
	}
	if sub.NewlyPassed {
		s.logger.Info("quiz passed", "student", studentID, "video", videoID,
			"correct", res.Correct, "total", res.Total)
	}
	return sub, nil
}

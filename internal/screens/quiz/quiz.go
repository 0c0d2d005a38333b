// Package quiz is the screen where a student takes a video's quiz.
package quiz

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/lumora/internal/course"
	quizsvc "github.com/abhisek/lumora/internal/quiz"
	"github.com/abhisek/lumora/internal/router"
	"github.com/abhisek/lumora/internal/screen"
	"github.com/abhisek/lumora/internal/transcript"
	"github.com/abhisek/lumora/internal/ui/components"
	"github.com/abhisek/lumora/internal/ui/layout"
	"github.com/abhisek/lumora/internal/ui/theme"
)

// PassedMsg is sent to the screen below after a passing attempt has been
// recorded. It carries the navigation decision for that event.
type PassedMsg struct {
	VideoID    string
	Transition course.Transition
}

type loadedMsg struct {
	quiz *quizsvc.Quiz
	err  error
}

type gradedMsg struct {
	sub        quizsvc.Submission
	transition course.Transition
	err        error
}

type phase int

const (
	phaseLoading phase = iota
	phaseAnswering
	phaseGrading
	phaseResult
)

type Screen struct {
	env      *screen.Env
	courseID string
	videoID  string

	phase     phase
	quiz      *quizsvc.Quiz
	current   int
	questions []components.MultiChoice
	sub       quizsvc.Submission
	trans     course.Transition
	err       error
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

func New(env *screen.Env, courseID, videoID string) *Screen {
	return &Screen{env: env, courseID: courseID, videoID: videoID}
}

func (s *Screen) Init() tea.Cmd {
	env, videoID := s.env, s.videoID
	return func() tea.Msg {
		q, err := env.Quizzes.Get(context.Background(), videoID)
		return loadedMsg{quiz: q, err: err}
	}
}

func (s *Screen) Title() string { return "Quiz" }

func (s *Screen) KeyHints() []layout.KeyHint {
	switch s.phase {
	case phaseAnswering:
		return []layout.KeyHint{
			{Key: "1-4", Description: "Answer"},
			{Key: "←→", Description: "Question"},
			{Key: "s", Description: "Submit"},
			{Key: "Esc", Description: "Leave"},
		}
	case phaseResult:
		if s.sub.Passed {
			return []layout.KeyHint{{Key: "Enter", Description: "Continue"}}
		}
		return []layout.KeyHint{{Key: "r", Description: "Retry"}, {Key: "Esc", Description: "Back to video"}}
	}
	return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.err != nil {
			s.err = msg.err
			return s, nil
		}
		s.quiz = msg.quiz
		s.start()
		return s, nil

	case gradedMsg:
		if msg.err != nil {
			s.err = msg.err
			s.phase = phaseAnswering
			return s, nil
		}
		s.sub, s.trans = msg.sub, msg.transition
		s.phase = phaseResult
		if s.sub.Passed {
			for i := range s.questions {
				s.questions[i].Reveal(s.quiz.Questions[i].CorrectAnswer)
			}
		}
		return s, nil

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *Screen) start() {
	s.phase = phaseAnswering
	s.current = 0
	s.err = nil
	s.questions = make([]components.MultiChoice, len(s.quiz.Questions))
	for i, q := range s.quiz.Questions {
		s.questions[i] = components.NewMultiChoice(q.Question, q.Options)
	}
}

func (s *Screen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()
	switch s.phase {
	case phaseAnswering:
		switch key {
		case "left", "h":
			s.current = max(s.current-1, 0)
			return s, nil
		case "right", "l", "tab":
			s.current = min(s.current+1, len(s.questions)-1)
			return s, nil
		case "s":
			return s, s.submit()
		}
		answered := s.questions[s.current].Answered()
		s.questions[s.current], _ = s.questions[s.current].Update(msg)
		if !answered && s.questions[s.current].Answered() {
			if s.current < len(s.questions)-1 {
				s.current++
			} else if s.allAnswered() {
				return s, s.submit()
			}
		}
	case phaseResult:
		switch {
		case s.sub.Passed && key == "enter":
			passed := PassedMsg{VideoID: s.videoID, Transition: s.trans}
			return s, tea.Sequence(
				func() tea.Msg { return router.PopScreenMsg{} },
				func() tea.Msg { return passed },
			)
		case !s.sub.Passed && key == "r":
			s.start()
		}
	}
	return s, nil
}

func (s *Screen) allAnswered() bool {
	for _, q := range s.questions {
		if !q.Answered() {
			return false
		}
	}
	return true
}

func (s *Screen) submit() tea.Cmd {
	answers := make([]int, len(s.questions))
	for i, q := range s.questions {
		answers[i] = q.Chosen
	}
	s.phase = phaseGrading
	env, courseID, videoID := s.env, s.courseID, s.videoID
	return func() tea.Msg {
		ctx := context.Background()
		sub, err := env.Quizzes.Submit(ctx, env.StudentID, videoID, answers)
		if err != nil || !sub.Passed {
			return gradedMsg{sub: sub, err: err}
		}
		t, err := env.Learner.QuizPassed(ctx, env.StudentID, courseID, videoID)
		return gradedMsg{sub: sub, transition: t, err: err}
	}
}

func (s *Screen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	if s.err != nil {
		b.WriteString(theme.Incorrect.Render("  "+s.err.Error()) + "\n\n")
	}
	switch s.phase {
	case phaseLoading:
		if s.err == nil {
			b.WriteString(theme.Hint.Render("  Loading quiz..."))
		}
	case phaseGrading:
		b.WriteString(theme.Hint.Render("  Grading..."))
	case phaseAnswering:
		b.WriteString(s.viewQuestion(width))
	case phaseResult:
		b.WriteString(s.viewResult(width))
	}
	return lipgloss.NewStyle().Width(width).MaxHeight(height).Render(b.String())
}

func (s *Screen) viewQuestion(width int) string {
	var b strings.Builder
	answered := 0
	for _, q := range s.questions {
		if q.Answered() {
			answered++
		}
	}
	b.WriteString(theme.Hint.Render(fmt.Sprintf("  Question %d of %d · %d answered", s.current+1, len(s.questions), answered)))
	b.WriteString("\n")
	if at := s.quiz.Questions[s.current].StartTime; at > 0 {
		b.WriteString(theme.Hint.Render("  about the part at " + transcript.Clock(at)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(theme.Card.Width(min(width-4, 90)).Render(s.questions[s.current].View()))
	return b.String()
}

func (s *Screen) viewResult(width int) string {
	var b strings.Builder
	score := fmt.Sprintf("  %d of %d correct (%d%%)", s.sub.Correct, s.sub.Total, s.sub.Percent())
	if s.sub.Passed {
		b.WriteString(theme.Correct.Render(score + " · passed"))
		b.WriteString("\n")
		switch {
		case s.trans.Navigate && s.trans.Next != nil:
			b.WriteString(theme.Hint.Render("  Next up: " + s.trans.Next.Title))
		case s.trans.Next != nil:
			b.WriteString(theme.Hint.Render("  Finish watching this video to unlock " + s.trans.Next.Title))
		default:
			b.WriteString(theme.Hint.Render("  That was the last video of the course."))
		}
	} else {
		b.WriteString(theme.Incorrect.Render(score + " · not passed yet"))
		b.WriteString("\n\n")
		for _, i := range s.sub.Wrong {
			q := s.quiz.Questions[i]
			b.WriteString(theme.Hint.Render(fmt.Sprintf("  Review question %d (see %s)", i+1, transcript.Clock(q.StartTime))))
			b.WriteString("\n")
		}
		return b.String()
	}
	b.WriteString("\n\n")

	for _, i := range s.sub.Wrong {
		q := s.quiz.Questions[i]
		b.WriteString(theme.Card.Width(min(width-4, 90)).Render(
			s.questions[i].View() + "\n" + theme.Hint.Render(q.Explanation)))
		b.WriteString("\n")
	}
	return b.String()
}

package quiz

import (
	"context"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"

	"github.com/abhisek/lumora/internal/course"
	"github.com/abhisek/lumora/internal/progress"
	quizsvc "github.com/abhisek/lumora/internal/quiz"
	"github.com/abhisek/lumora/internal/screen"
	"github.com/abhisek/lumora/internal/store"
	"github.com/abhisek/lumora/internal/transcript"
)

type fixture struct {
	env    *screen.Env
	course string
	videos []store.Video
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()

	prog := progress.NewService(st.Progress(), st.Courses(), nil)
	transcripts := transcript.NewService(st.Transcripts(), st.Courses(), nil, nil)
	quizzes := quizsvc.NewService(nil, st.Quizzes(), transcripts, quizsvc.DefaultConfig(), nil)
	catalog := course.NewCatalog(st.Courses(), nil)
	f := &fixture{env: &screen.Env{
		StudentID:   "alice",
		Catalog:     catalog,
		Learner:     course.NewLearner(st.Courses(), prog, quizzes.Tracker()),
		Progress:    prog,
		Quizzes:     quizzes,
		Transcripts: transcripts,
	}}

	c := &store.Course{Title: "Statistics"}
	if err := catalog.CreateCourse(ctx, c); err != nil {
		t.Fatalf("create course: %v", err)
	}
	f.course = c.ID
	for _, title := range []string{"Mean", "Variance"} {
		v := &store.Video{CourseID: c.ID, Title: title, DurationSeconds: 300}
		if err := catalog.AddVideo(ctx, v); err != nil {
			t.Fatalf("add video: %v", err)
		}
		f.videos = append(f.videos, *v)
	}

	_, err = quizzes.Import(ctx, f.videos[0].ID, []quizsvc.Question{
		{Question: "What is the mean of 2 and 4?", Options: []string{"2", "3", "4", "6"}, CorrectAnswer: 1, Explanation: "(2+4)/2", StartTime: 30},
		{Question: "The mean is also called?", Options: []string{"average", "mode", "range", "median"}, CorrectAnswer: 0, Explanation: "Same thing", StartTime: 90},
	})
	if err != nil {
		t.Fatalf("import quiz: %v", err)
	}
	if _, err := prog.MarkEnded(ctx, "alice", f.videos[0].ID); err != nil {
		t.Fatalf("mark ended: %v", err)
	}
	return f
}

func press(s *Screen, k string) tea.Cmd {
	_, cmd := s.Update(tea.KeyPressMsg{Code: rune(k[0]), Text: k})
	return cmd
}

func load(t *testing.T, f *fixture) *Screen {
	t.Helper()
	s := New(f.env, f.course, f.videos[0].ID)
	s.Update(s.Init()())
	if s.phase != phaseAnswering {
		t.Fatalf("phase = %v, err = %v", s.phase, s.err)
	}
	return s
}

func TestFailedAttemptHidesAnswers(t *testing.T) {
	f := newFixture(t)
	s := load(t, f)

	if cmd := press(s, "2"); cmd != nil {
		t.Fatal("first answer must not submit")
	}
	if s.current != 1 {
		t.Fatalf("current = %d, want auto-advance to 1", s.current)
	}
	cmd := press(s, "3")
	if cmd == nil {
		t.Fatal("answering the last question must submit")
	}
	s.Update(cmd())

	if s.phase != phaseResult || s.sub.Passed {
		t.Fatalf("expected a failed result, got phase=%v sub=%+v err=%v", s.phase, s.sub, s.err)
	}
	view := s.View(100, 40)
	if !strings.Contains(view, "Review question 2 (see 01:30)") {
		t.Errorf("view missing review hint:\n%s", view)
	}
	if strings.Contains(view, "Same thing") {
		t.Error("failed attempt revealed an explanation")
	}

	press(s, "r")
	if s.phase != phaseAnswering || s.current != 0 || s.questions[0].Answered() {
		t.Error("retry must start a fresh attempt")
	}
}

func TestPassNavigatesToNextVideo(t *testing.T) {
	f := newFixture(t)
	s := load(t, f)

	press(s, "2")
	cmd := press(s, "1")
	if cmd == nil {
		t.Fatal("expected submit")
	}
	s.Update(cmd())

	if !s.sub.Passed || !s.sub.NewlyPassed {
		t.Fatalf("expected first pass, got %+v (err %v)", s.sub, s.err)
	}
	if !s.trans.Navigate || !s.trans.KeepPanel || s.trans.Next == nil || s.trans.Next.ID != f.videos[1].ID {
		t.Errorf("transition = %+v", s.trans)
	}
	if !strings.Contains(s.View(100, 40), "Next up: Variance") {
		t.Error("view missing next video")
	}
	if _, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter}); cmd == nil {
		t.Error("enter on a pass must leave the quiz")
	}

	o, err := f.env.Learner.Outline(context.Background(), "alice", f.course)
	if err != nil {
		t.Fatalf("outline: %v", err)
	}
	if !o.Entries[1].Accessible {
		t.Error("second video still locked after pass")
	}
}

func TestSubmitEarly(t *testing.T) {
	f := newFixture(t)
	s := load(t, f)

	press(s, "2")
	cmd := press(s, "s")
	if cmd == nil {
		t.Fatal("s must submit")
	}
	s.Update(cmd())
	if s.phase != phaseResult || s.sub.Passed || s.sub.Total != 2 {
		t.Errorf("unanswered question must count as wrong: %+v", s.sub)
	}
}

func TestMissingQuiz(t *testing.T) {
	f := newFixture(t)
	s := New(f.env, f.course, f.videos[1].ID)
	s.Update(s.Init()())
	if s.err == nil || s.phase != phaseLoading {
		t.Errorf("expected a load error, got phase=%v err=%v", s.phase, s.err)
	}
}

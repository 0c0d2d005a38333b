package outline

import (
	"context"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"

	"github.com/abhisek/lumora/internal/course"
	"github.com/abhisek/lumora/internal/progress"
	"github.com/abhisek/lumora/internal/quiz"
	"github.com/abhisek/lumora/internal/router"
	"github.com/abhisek/lumora/internal/screen"
	"github.com/abhisek/lumora/internal/screens/player"
	"github.com/abhisek/lumora/internal/store"
	"github.com/abhisek/lumora/internal/transcript"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name  string
		entry course.Entry
		want  string
	}{
		{"locked", course.Entry{}, "locked"},
		{"not started", course.Entry{Accessible: true}, "not started"},
		{"partial", course.Entry{Accessible: true, Record: &progress.Record{WatchedPercent: 42}}, "42%"},
		{"watched with quiz", course.Entry{Accessible: true, Record: &progress.Record{WatchedPercent: 96, Completed: true}, HasQuiz: true}, "watched · quiz"},
		{"quiz passed", course.Entry{Accessible: true, Record: &progress.Record{WatchedPercent: 100, Completed: true}, HasQuiz: true, QuizPassed: true}, "watched · quiz passed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := status(tt.entry); got != tt.want {
				t.Errorf("status = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLockedEntriesAreDisabled(t *testing.T) {
	st, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	prog := progress.NewService(st.Progress(), st.Courses(), nil)
	transcripts := transcript.NewService(st.Transcripts(), st.Courses(), nil, nil)
	quizzes := quiz.NewService(nil, st.Quizzes(), transcripts, quiz.DefaultConfig(), nil)
	catalog := course.NewCatalog(st.Courses(), nil)
	env := &screen.Env{
		StudentID: "bob",
		Catalog:   catalog,
		Learner:   course.NewLearner(st.Courses(), prog, quizzes.Tracker()),
		Progress:  prog,
		Quizzes:   quizzes,
	}

	c := &store.Course{Title: "Compilers"}
	if err := catalog.CreateCourse(ctx, c); err != nil {
		t.Fatalf("create course: %v", err)
	}
	var ids []string
	for _, title := range []string{"Lexing", "Parsing"} {
		v := &store.Video{CourseID: c.ID, Title: title}
		if err := catalog.AddVideo(ctx, v); err != nil {
			t.Fatalf("add video: %v", err)
		}
		ids = append(ids, v.ID)
	}

	s := New(env, c.ID)
	s.Update(s.Init()())
	if s.Title() != "Compilers" {
		t.Errorf("Title = %q", s.Title())
	}
	if s.menu.Items[0].Disabled || !s.menu.Items[1].Disabled {
		t.Fatalf("disabled = %v/%v, want false/true", s.menu.Items[0].Disabled, s.menu.Items[1].Disabled)
	}

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	push, ok := cmd().(router.PushScreenMsg)
	if !ok {
		t.Fatal("enter must open the player")
	}
	if _, ok := push.Screen.(*player.Screen); !ok {
		t.Errorf("pushed %T", push.Screen)
	}

	if _, err := prog.MarkEnded(ctx, "bob", ids[0]); err != nil {
		t.Fatalf("mark ended: %v", err)
	}
	_, cmd = s.Update(screen.ResumedMsg{})
	s.Update(cmd())
	if s.menu.Items[1].Disabled {
		t.Error("second video still locked after the first was watched")
	}
	if s.menu.Selected != 0 {
		t.Errorf("reload moved the cursor to %d", s.menu.Selected)
	}
}

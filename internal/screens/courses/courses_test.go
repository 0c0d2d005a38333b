package courses

import (
	"context"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"

	"github.com/abhisek/lumora/internal/course"
	"github.com/abhisek/lumora/internal/progress"
	"github.com/abhisek/lumora/internal/router"
	"github.com/abhisek/lumora/internal/screen"
	"github.com/abhisek/lumora/internal/screens/outline"
	"github.com/abhisek/lumora/internal/store"
)

func TestListsCoursesWithProgress(t *testing.T) {
	st, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	catalog := course.NewCatalog(st.Courses(), nil)
	prog := progress.NewService(st.Progress(), st.Courses(), nil)
	env := &screen.Env{StudentID: "carol", Catalog: catalog, Progress: prog}

	s := New(env)
	s.Update(s.Init()())
	if !strings.Contains(s.View(100, 20), "No courses yet") {
		t.Error("expected the empty state")
	}

	empty := &store.Course{Title: "Empty"}
	full := &store.Course{Title: "Databases"}
	for _, c := range []*store.Course{empty, full} {
		if err := catalog.CreateCourse(ctx, c); err != nil {
			t.Fatalf("create course: %v", err)
		}
	}
	var first string
	for i, title := range []string{"Indexes", "Joins"} {
		v := &store.Video{CourseID: full.ID, Title: title}
		if err := catalog.AddVideo(ctx, v); err != nil {
			t.Fatalf("add video: %v", err)
		}
		if i == 0 {
			first = v.ID
		}
	}
	if _, err := prog.MarkEnded(ctx, "carol", first); err != nil {
		t.Fatalf("mark ended: %v", err)
	}

	_, cmd := s.Update(tea.KeyPressMsg{Code: 'r', Text: "r"})
	s.Update(cmd())
	view := s.View(100, 20)
	if !strings.Contains(view, "2 videos · 50% complete") {
		t.Errorf("view missing progress:\n%s", view)
	}

	var idx int
	for i, it := range s.menu.Items {
		if it.Label == "Empty" && !it.Disabled {
			t.Error("a course without videos must be disabled")
		}
		if it.Label == "Databases" {
			idx = i
		}
	}
	s.menu.Select(idx)
	_, cmd = s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	push, ok := cmd().(router.PushScreenMsg)
	if !ok {
		t.Fatal("enter must open the course")
	}
	if _, ok := push.Screen.(*outline.Screen); !ok {
		t.Errorf("pushed %T", push.Screen)
	}
}

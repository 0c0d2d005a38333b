// Package courses is the start screen: the list of available courses.
package courses

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/lumora/internal/router"
	"github.com/abhisek/lumora/internal/screen"
	"github.com/abhisek/lumora/internal/screens/outline"
	"github.com/abhisek/lumora/internal/store"
	"github.com/abhisek/lumora/internal/ui/components"
	"github.com/abhisek/lumora/internal/ui/layout"
	"github.com/abhisek/lumora/internal/ui/theme"
)

type loadedMsg struct {
	rows []row
	err  error
}

type row struct {
	course  store.Course
	percent int
	total   int
}

// Screen lists courses with the student's completion share.
type Screen struct {
	env  *screen.Env
	menu components.Menu
	rows []row
	err  error
	busy bool
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

func New(env *screen.Env) *Screen {
	return &Screen{env: env, busy: true}
}

func (s *Screen) Init() tea.Cmd { return s.load() }

func (s *Screen) Title() string { return "Courses" }

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Open"},
		{Key: "r", Description: "Refresh"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (s *Screen) load() tea.Cmd {
	env := s.env
	return func() tea.Msg {
		ctx := context.Background()
		list, err := env.Catalog.ListCourses(ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		rows := make([]row, 0, len(list))
		for _, c := range list {
			cp, err := env.Progress.GetCourseProgress(ctx, env.StudentID, c.ID)
			if err != nil {
				return loadedMsg{err: err}
			}
			rows = append(rows, row{course: c, percent: cp.Percent, total: cp.Total})
		}
		return loadedMsg{rows: rows}
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.busy = false
		s.err = msg.err
		s.rows = msg.rows
		prev := s.menu.Selected
		s.menu = components.NewMenu(s.items())
		s.menu.Select(prev)
		return s, nil
	case screen.ResumedMsg:
		return s, s.load()
	case tea.KeyMsg:
		if msg.String() == "r" {
			s.busy = true
			return s, s.load()
		}
	}
	var cmd tea.Cmd
	s.menu, cmd = s.menu.Update(msg)
	return s, cmd
}

func (s *Screen) items() []components.MenuItem {
	items := make([]components.MenuItem, len(s.rows))
	for i, r := range s.rows {
		courseID := r.course.ID
		items[i] = components.MenuItem{
			Label:    r.course.Title,
			Detail:   fmt.Sprintf("%d videos · %d%% complete", r.total, r.percent),
			Disabled: r.total == 0,
			Action: func() tea.Cmd {
				return func() tea.Msg {
					return router.PushScreenMsg{Screen: outline.New(s.env, courseID)}
				}
			},
		}
	}
	return items
}

func (s *Screen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(theme.Title.Render("  Your courses"))
	b.WriteString("\n\n")
	switch {
	case s.err != nil:
		b.WriteString(theme.Incorrect.Render("  " + s.err.Error()))
	case s.busy:
		b.WriteString(theme.Hint.Render("  Loading..."))
	case len(s.rows) == 0:
		b.WriteString(theme.Hint.Render("  No courses yet. Create one with `lumora course create`."))
	default:
		b.WriteString(s.menu.View())
	}
	return lipgloss.NewStyle().Width(width).MaxHeight(height).Render(b.String())
}

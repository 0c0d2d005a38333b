// Package outline shows one course's videos with their lock state.
package outline

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/lumora/internal/course"
	"github.com/abhisek/lumora/internal/router"
	"github.com/abhisek/lumora/internal/screen"
	"github.com/abhisek/lumora/internal/screens/player"
	"github.com/abhisek/lumora/internal/ui/components"
	"github.com/abhisek/lumora/internal/ui/layout"
	"github.com/abhisek/lumora/internal/ui/theme"
)

type loadedMsg struct {
	outline *course.Outline
	err     error
}

type Screen struct {
	env      *screen.Env
	courseID string
	outline  *course.Outline
	menu     components.Menu
	err      error
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

func New(env *screen.Env, courseID string) *Screen {
	return &Screen{env: env, courseID: courseID}
}

func (s *Screen) Init() tea.Cmd { return s.load() }

func (s *Screen) Title() string {
	if s.outline == nil {
		return "Course"
	}
	return s.outline.Course.Title
}

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Watch"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *Screen) load() tea.Cmd {
	env, courseID := s.env, s.courseID
	return func() tea.Msg {
		o, err := env.Learner.Outline(context.Background(), env.StudentID, courseID)
		return loadedMsg{outline: o, err: err}
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.err = msg.err
		if msg.err != nil {
			return s, nil
		}
		prev := s.menu.Selected
		s.outline = msg.outline
		s.menu = components.NewMenu(s.items())
		s.menu.Select(prev)
		return s, nil
	case screen.ResumedMsg:
		return s, s.load()
	}
	var cmd tea.Cmd
	s.menu, cmd = s.menu.Update(msg)
	return s, cmd
}

func (s *Screen) items() []components.MenuItem {
	items := make([]components.MenuItem, len(s.outline.Entries))
	for i, e := range s.outline.Entries {
		videoID := e.Video.ID
		items[i] = components.MenuItem{
			Label:    fmt.Sprintf("%2d. %s", e.Video.Position, e.Video.Title),
			Detail:   status(e),
			Disabled: !e.Accessible,
			Action: func() tea.Cmd {
				return func() tea.Msg {
					return router.PushScreenMsg{Screen: player.New(s.env, s.courseID, videoID, player.PanelTranscript)}
				}
			},
		}
	}
	return items
}

// status is the one-line state of an entry.
func status(e course.Entry) string {
	var parts []string
	switch {
	case !e.Accessible:
		parts = append(parts, "locked")
	case e.Record == nil:
		parts = append(parts, "not started")
	case e.Record.Completed:
		parts = append(parts, "watched")
	default:
		parts = append(parts, fmt.Sprintf("%d%%", e.Record.WatchedPercent))
	}
	if e.HasQuiz {
		if e.QuizPassed {
			parts = append(parts, "quiz passed")
		} else {
			parts = append(parts, "quiz")
		}
	}
	return strings.Join(parts, " · ")
}

func (s *Screen) View(width, height int) string {
	if s.err != nil {
		return "\n" + theme.Incorrect.Render("  "+s.err.Error())
	}
	if s.outline == nil {
		return "\n" + theme.Hint.Render("  Loading...")
	}
	var b strings.Builder
	b.WriteString("\n")
	if d := s.outline.Course.Description; d != "" {
		b.WriteString(lipgloss.NewStyle().Width(width-4).PaddingLeft(2).Foreground(theme.TextDim).Render(d))
		b.WriteString("\n\n")
	}
	cp := s.outline.Progress
	bar := components.NewProgressBar(fmt.Sprintf("  %d/%d watched", cp.Completed, cp.Total), cp.Percent, min(width-4, 70))
	b.WriteString(bar.View())
	b.WriteString("\n\n")
	b.WriteString(s.menu.View())
	return lipgloss.NewStyle().Width(width).MaxHeight(height).Render(b.String())
}

// Package app runs the terminal player.
package app

import (
	"context"
	"fmt"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/lumora/internal/router"
	"github.com/abhisek/lumora/internal/screen"
	"github.com/abhisek/lumora/internal/screens/courses"
	"github.com/abhisek/lumora/internal/screens/outline"
	"github.com/abhisek/lumora/internal/ui/layout"
)

// Options selects the first screen. With CourseID set the player starts
// on that course's outline instead of the course list.
type Options struct {
	Env      *screen.Env
	CourseID string
}

// Model is the root Bubble Tea model.
type Model struct {
	router  *router.Router
	student string
	width   int
	height  int
}

func newModel(opts Options) Model {
	var first screen.Screen = courses.New(opts.Env)
	if opts.CourseID != "" {
		first = outline.New(opts.Env, opts.CourseID)
	}
	return Model{router: router.New(first), student: opts.Env.StudentID}
}

func (m Model) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if c, ok := m.router.Active().(screen.InputCapturer); ok && c.CapturingInput() {
			break
		}
		if msg.String() == "esc" && m.router.Depth() > 1 {
			return m, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}
	return m, m.router.Update(msg)
}

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	if m.width == 0 || m.height == 0 {
		return v
	}
	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	header := layout.RenderHeader(active.Title(), m.student, m.width)

	hints := []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
	if p, ok := active.(screen.KeyHintProvider); ok {
		hints = p.KeyHints()
	} else if m.router.Depth() > 1 {
		hints = append([]layout.KeyHint{{Key: "Esc", Description: "Back"}}, hints...)
	}
	footer := layout.RenderFooter(hints, m.width)

	contentHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	content := m.router.View(m.width, contentHeight)
	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

// Run starts the program and blocks until the student quits or ctx is
// cancelled. Open screens are closed on the way out so pending progress
// is written.
func Run(ctx context.Context, opts Options) error {
	m := newModel(opts)
	defer m.router.CloseAll()

	p := tea.NewProgram(m, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run terminal player: %w", err)
	}
	return nil
}

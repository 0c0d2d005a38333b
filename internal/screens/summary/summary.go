// Package summary is the screen shown once every video of a course is
// completed.
package summary

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/lumora/internal/course"
	"github.com/abhisek/lumora/internal/router"
	"github.com/abhisek/lumora/internal/screen"
	"github.com/abhisek/lumora/internal/transcript"
	"github.com/abhisek/lumora/internal/ui/layout"
	"github.com/abhisek/lumora/internal/ui/theme"
)

// Screen summarizes a finished course.
type Screen struct {
	outline *course.Outline
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

func New(o *course.Outline) *Screen {
	return &Screen{outline: o}
}

func (s *Screen) Init() tea.Cmd { return nil }

func (s *Screen) Title() string { return "Course Complete" }

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Continue"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "enter", "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}
	return s, nil
}

// Stats are the totals shown on the summary.
type Stats struct {
	Videos        int
	Completed     int
	Quizzes       int
	QuizzesPassed int
	Seconds       int
}

// Tally counts the outline's videos, completions, quizzes and length.
func Tally(o *course.Outline) Stats {
	var st Stats
	for _, e := range o.Entries {
		st.Videos++
		st.Seconds += e.Video.DurationSeconds
		if e.Record != nil && e.Record.Completed {
			st.Completed++
		}
		if e.HasQuiz {
			st.Quizzes++
			if e.QuizPassed {
				st.QuizzesPassed++
			}
		}
	}
	return st
}

func (s *Screen) View(width, height int) string {
	o := s.outline
	if o == nil {
		return ""
	}
	st := Tally(o)
	center := func(style lipgloss.Style, text string) string {
		return style.Width(width).Align(lipgloss.Center).Render(text)
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(center(theme.Title, "Course complete!"))
	b.WriteString("\n")
	b.WriteString(center(lipgloss.NewStyle().Foreground(theme.Text), o.Course.Title))
	b.WriteString("\n\n")

	line := fmt.Sprintf("Videos: %d/%d", st.Completed, st.Videos)
	if st.Quizzes > 0 {
		line += fmt.Sprintf("        Quizzes passed: %d/%d", st.QuizzesPassed, st.Quizzes)
	}
	if st.Seconds > 0 {
		line += "        Watched: " + transcript.Clock(float64(st.Seconds))
	}
	b.WriteString(center(lipgloss.NewStyle().Foreground(theme.TextDim), line))
	b.WriteString("\n\n")

	divider := lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", min(width-8, 60)))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, divider))
	b.WriteString("\n\n")

	for _, e := range o.Entries {
		mark := theme.Correct.Render("✓")
		if e.Record == nil || !e.Record.Completed {
			mark = theme.Hint.Render("·")
		}
		row := fmt.Sprintf("%s %2d. %s", mark, e.Video.Position, e.Video.Title)
		if e.HasQuiz && e.QuizPassed {
			row += theme.Hint.Render("  quiz passed")
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, row))
		b.WriteString("\n")
	}
	return lipgloss.NewStyle().MaxHeight(height).Render(b.String())
}

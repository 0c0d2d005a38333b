package player

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/lumora/internal/assistant"
	"github.com/abhisek/lumora/internal/progress"
	"github.com/abhisek/lumora/internal/transcript"
	"github.com/abhisek/lumora/internal/ui/components"
	"github.com/abhisek/lumora/internal/ui/layout"
	"github.com/abhisek/lumora/internal/ui/theme"
)

// transcriptRadius is how many seconds around the playhead the transcript
// panel shows.
const transcriptRadius = 45

func (s *Screen) View(width, height int) string {
	if s.session == nil {
		if s.err != nil {
			return "\n" + theme.Incorrect.Render("  "+s.err.Error())
		}
		return "\n" + theme.Hint.Render("  Loading video...")
	}

	mainWidth, panelWidth := width, width
	if !layout.IsCompactWidth(width) {
		mainWidth = width * 11 / 20
		panelWidth = width - mainWidth - 1
	}
	main := s.viewMain(mainWidth)
	panel := s.viewPanel(panelWidth - 2)

	var out string
	if layout.IsCompactWidth(width) {
		out = lipgloss.JoinVertical(lipgloss.Left, main, "", panel)
	} else {
		out = lipgloss.JoinHorizontal(lipgloss.Top, main, " ", panel)
	}
	return lipgloss.NewStyle().MaxHeight(height).Render(out)
}

func (s *Screen) viewMain(width int) string {
	var b strings.Builder
	v := s.session.Video
	b.WriteString("\n")
	b.WriteString(theme.Title.Render(fmt.Sprintf("  %d. %s", v.Position, v.Title)))
	b.WriteString("\n")
	if v.Description != "" {
		b.WriteString(lipgloss.NewStyle().Width(width-4).PaddingLeft(2).Foreground(theme.TextDim).Render(v.Description))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	state := "▶ playing"
	switch {
	case s.ended:
		state = "■ ended"
	case !s.playing:
		state = "⏸ paused"
	}
	clock := transcript.Clock(s.position)
	if s.duration > 0 {
		clock += " / " + transcript.Clock(s.duration)
	}
	b.WriteString(theme.Body.Render(fmt.Sprintf("  %s   %s", state, clock)))
	b.WriteString("\n\n")

	position := 0
	if s.duration > 0 {
		position = int(s.position / s.duration * 100)
	}
	playhead := components.NewProgressBar("  Position", position, width-2)
	b.WriteString(playhead.View())
	b.WriteString("\n")
	watched := components.NewProgressBar("  Watched ", int(s.display.MaxPercent), width-2)
	watched.Mark = progress.CompletionThreshold
	b.WriteString(watched.View())
	b.WriteString("\n\n")

	var flags []string
	if s.display.Completed {
		flags = append(flags, theme.Correct.Render("completed"))
	}
	if s.session.HasQuiz {
		if s.session.QuizPassed {
			flags = append(flags, theme.Correct.Render("quiz passed"))
		} else {
			flags = append(flags, theme.Warning.Render("quiz pending"))
		}
	}
	if s.display.Pending {
		flags = append(flags, theme.Hint.Render("saving"))
	}
	if len(flags) > 0 {
		b.WriteString("  " + strings.Join(flags, "  ") + "\n")
	}
	if s.duration <= 0 {
		b.WriteString(theme.Hint.Render("  Duration unknown: press e when you have finished watching.") + "\n")
	}
	if s.status != "" {
		b.WriteString(theme.Body.Render("  "+s.status) + "\n")
	}
	if s.err != nil {
		b.WriteString(theme.Incorrect.Render("  "+s.err.Error()) + "\n")
	}
	return lipgloss.NewStyle().Width(width).Render(b.String())
}

func (s *Screen) viewPanel(width int) string {
	tabs := make([]string, 0, panelCount)
	for p := Panel(0); p < panelCount; p++ {
		if p == s.panel {
			tabs = append(tabs, theme.ActiveTab.Render(p.String()))
		} else {
			tabs = append(tabs, theme.Tab.Render(p.String()))
		}
	}
	var body string
	switch s.panel {
	case PanelAssistant:
		body = s.viewAssistant(width - 4)
	default:
		body = s.viewTranscript(width - 4)
	}
	return theme.Card.Width(width).Render(strings.Join(tabs, " ") + "\n\n" + body)
}

func (s *Screen) viewTranscript(width int) string {
	if s.doc == nil {
		return theme.Hint.Render("No transcript for this video.")
	}
	chunks := s.doc.Window(s.position, transcriptRadius)
	if len(chunks) == 0 {
		return theme.Hint.Render("Nothing said around " + transcript.Clock(s.position) + ".")
	}
	current, found := s.doc.At(s.position)
	var b strings.Builder
	for _, c := range chunks {
		line := fmt.Sprintf("[%s] %s", transcript.Clock(c.Start), c.Text)
		style := lipgloss.NewStyle().Width(width).Foreground(theme.TextDim)
		if found && c == current {
			style = style.Foreground(theme.Text).Bold(true)
		}
		b.WriteString(style.Render(line) + "\n")
	}
	return b.String()
}

func (s *Screen) viewAssistant(width int) string {
	if s.env.Assistant == nil {
		return theme.Hint.Render("The assistant needs an LLM provider. Set LUMORA_LLM_PROVIDER and an API key.")
	}
	var b strings.Builder
	if s.question != "" {
		b.WriteString(theme.Selected.Render("You: ") + lipgloss.NewStyle().Width(width-5).Render(s.question))
		b.WriteString("\n\n")
	}
	switch {
	case s.asking:
		b.WriteString(theme.Hint.Render("Thinking..."))
	case s.answer != "":
		b.WriteString(lipgloss.NewStyle().Width(width).Foreground(theme.Text).Render(assistant.Render(s.answer)))
	default:
		b.WriteString(theme.Hint.Render("Ask anything about this lecture. Press / to type."))
	}
	b.WriteString("\n\n")
	b.WriteString(s.input.View())
	return b.String()
}

package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/lumora/internal/ui/theme"
)

var optionLabels = []string{"A", "B", "C", "D", "E", "F"}

// MultiChoice is one quiz question. The answer key is not known while the
// student is choosing; Reveal marks the correct option after grading.
type MultiChoice struct {
	Question string
	Options  []string
	Selected int
	Chosen   int // -1 until the student confirms
	correct  int // -1 until revealed
}

func NewMultiChoice(question string, options []string) MultiChoice {
	return MultiChoice{Question: question, Options: options, Chosen: -1, correct: -1}
}

// Answered reports whether an option has been confirmed.
func (m MultiChoice) Answered() bool { return m.Chosen >= 0 }

// Reveal shows correct as the right answer.
func (m *MultiChoice) Reveal(correct int) { m.correct = correct }

// Update moves the cursor and confirms with enter or a number key.
func (m MultiChoice) Update(msg tea.Msg) (MultiChoice, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok || m.correct >= 0 {
		return m, nil
	}
	switch key := kmsg.String(); key {
	case "up", "k":
		if m.Selected > 0 {
			m.Selected--
		}
	case "down", "j":
		if m.Selected < len(m.Options)-1 {
			m.Selected++
		}
	case "enter", "space":
		m.Chosen = m.Selected
	case "1", "2", "3", "4", "5", "6":
		if i := int(key[0] - '1'); i < len(m.Options) {
			m.Selected, m.Chosen = i, i
		}
	}
	return m, nil
}

func (m MultiChoice) View() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(m.Question))
	b.WriteString("\n\n")

	for i, opt := range m.Options {
		label := fmt.Sprint(i + 1)
		if i < len(optionLabels) {
			label = optionLabels[i]
		}
		prefix := "  "
		if i == m.Selected && m.correct < 0 {
			prefix = "▸ "
		}
		mark := ""
		if i == m.Chosen {
			mark = "  ●"
		}
		line := fmt.Sprintf("%s%s)  %s%s", prefix, label, opt, mark)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		switch {
		case m.correct >= 0 && i == m.correct:
			style = theme.Correct
		case m.correct >= 0 && i == m.Chosen:
			style = theme.Incorrect
		case m.correct >= 0:
			style = theme.Locked
		case i == m.Selected:
			style = theme.Selected
		}
		b.WriteString(style.Render(line) + "\n")
	}
	return b.String()
}

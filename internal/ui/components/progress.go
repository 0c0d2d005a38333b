package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/lumora/internal/ui/theme"
)

// ProgressBar is a horizontal bar for a 0..100 percent.
type ProgressBar struct {
	Label   string
	Percent int
	Width   int
	// Mark draws a tick at this percent, e.g. the completion threshold.
	Mark int
}

func NewProgressBar(label string, percent, width int) ProgressBar {
	return ProgressBar{Label: label, Percent: percent, Width: width}
}

func (p ProgressBar) View() string {
	var out string
	if p.Label != "" {
		out = lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label) + "  "
	}

	barWidth := max(p.Width-lipgloss.Width(out)-6, 4)
	pct := min(max(p.Percent, 0), 100)
	filled := barWidth * pct / 100

	cells := make([]string, barWidth)
	for i := range cells {
		cells[i] = " "
	}
	if p.Mark > 0 && p.Mark < 100 {
		cells[barWidth*p.Mark/100] = "│"
	}
	fill := lipgloss.NewStyle().Background(theme.Secondary)
	empty := lipgloss.NewStyle().Background(theme.Border)
	out += fill.Render(strings.Join(cells[:filled], "")) + empty.Render(strings.Join(cells[filled:], ""))
	out += lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf(" %3d%%", pct))
	return out
}

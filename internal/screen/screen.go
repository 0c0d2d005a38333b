// Package screen defines the contract between the router and the
// terminal player's screens.
package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/lumora/internal/ui/layout"
)

// Screen is one page of the terminal player.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	// View renders the content area only; the frame is drawn by the app.
	View(width, height int) string
	Title() string
}

// KeyHintProvider is implemented by screens with their own footer hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// Closer is implemented by screens holding resources that must be
// released when they leave the stack.
type Closer interface {
	Close()
}

// ResumedMsg is delivered to a screen when the screen above it is popped.
type ResumedMsg struct{}

// InputCapturer is implemented by screens with a focused text field. While
// CapturingInput is true the app passes every key, including Esc, to the
// screen.
type InputCapturer interface {
	CapturingInput() bool
}

// Package player is the video screen. It plays a video on a virtual clock,
// reports samples through a playback channel and shows the transcript and
// assistant panels next to it.
package player

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/lumora/internal/assistant"
	"github.com/abhisek/lumora/internal/course"
	"github.com/abhisek/lumora/internal/playback"
	"github.com/abhisek/lumora/internal/progress"
	"github.com/abhisek/lumora/internal/router"
	"github.com/abhisek/lumora/internal/screen"
	quizscreen "github.com/abhisek/lumora/internal/screens/quiz"
	"github.com/abhisek/lumora/internal/screens/summary"
	"github.com/abhisek/lumora/internal/store"
	"github.com/abhisek/lumora/internal/transcript"
	"github.com/abhisek/lumora/internal/ui/components"
	"github.com/abhisek/lumora/internal/ui/layout"
)

// Panel is the side panel shown next to the video.
type Panel int

const (
	PanelTranscript Panel = iota
	PanelAssistant
	panelCount
)

func (p Panel) String() string {
	if p == PanelAssistant {
		return "Ask"
	}
	return "Transcript"
}

const seekStep = 10.0

type loadedMsg struct {
	session    *course.Session
	transcript *transcript.Video
	err        error
}

type tickMsg time.Time

// endedMsg follows the end-of-video write; advanceMsg is a plain refresh.
type endedMsg struct {
	advance course.AdvanceDecision
	err     error
}

type advanceMsg struct {
	advance course.AdvanceDecision
	err     error
}

type answerMsg struct {
	question string
	text     string
	err      error
}

type seekedMsg struct{ err error }

// writeState is updated by the channel's callbacks from its own goroutines.
type writeState struct {
	mu        sync.Mutex
	err       error
	completed bool
}

func (w *writeState) get() (completed bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.completed, w.err
}

type Screen struct {
	env      *screen.Env
	courseID string
	videoID  string
	panel    Panel

	session  *course.Session
	doc      *transcript.Video
	channel  *playback.Channel
	cancel   context.CancelFunc
	writes   *writeState
	display  playback.Display
	position float64
	duration float64
	playing  bool
	ended    bool
	advance  *course.AdvanceDecision

	input    components.TextInput
	asking   bool
	question string
	answer   string

	status string
	err    error
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)
var _ screen.Closer = (*Screen)(nil)
var _ screen.InputCapturer = (*Screen)(nil)

// New opens videoID of courseID with panel selected.
func New(env *screen.Env, courseID, videoID string, panel Panel) *Screen {
	return &Screen{
		env:      env,
		courseID: courseID,
		videoID:  videoID,
		panel:    panel,
		writes:   &writeState{},
		input:    components.NewTextInput("Ask about this video...", 500),
	}
}

func (s *Screen) Init() tea.Cmd {
	env, courseID, videoID := s.env, s.courseID, s.videoID
	return func() tea.Msg {
		ctx := context.Background()
		sess, err := env.Learner.Open(ctx, env.StudentID, courseID, videoID)
		if err != nil {
			return loadedMsg{err: err}
		}
		doc, err := env.Transcripts.Get(ctx, videoID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return loadedMsg{err: err}
		}
		return loadedMsg{session: sess, transcript: doc}
	}
}

func (s *Screen) Title() string {
	if s.session == nil {
		return "Video"
	}
	return s.session.Video.Title
}

func (s *Screen) KeyHints() []layout.KeyHint {
	if s.input.Focused() {
		return []layout.KeyHint{{Key: "Enter", Description: "Ask"}, {Key: "Esc", Description: "Cancel"}}
	}
	hints := []layout.KeyHint{
		{Key: "Space", Description: "Play/Pause"},
		{Key: "←→", Description: "Seek"},
		{Key: "Tab", Description: "Panel"},
	}
	if s.panel == PanelAssistant {
		hints = append(hints, layout.KeyHint{Key: "/", Description: "Ask"})
	}
	if s.session != nil && s.session.HasQuiz {
		hints = append(hints, layout.KeyHint{Key: "q", Description: "Quiz"})
	}
	if s.advance != nil && s.advance.MayAdvance && s.advance.Next != nil {
		hints = append(hints, layout.KeyHint{Key: "n", Description: "Next"})
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
}

func (s *Screen) CapturingInput() bool { return s.input.Focused() }

// Close stops the playback clocks and waits for the final write.
func (s *Screen) Close() {
	if s.channel == nil {
		return
	}
	s.cancel()
	s.channel.Close()
	s.channel.Wait()
}

func (s *Screen) interval() time.Duration {
	if s.env.Playback.UIInterval > 0 {
		return s.env.Playback.UIInterval
	}
	return playback.DefaultUIInterval
}

func (s *Screen) tick() tea.Cmd {
	return tea.Tick(s.interval(), func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		return s.handleLoaded(msg)
	case tickMsg:
		return s.handleTick()
	case endedMsg:
		return s.handleEnded(msg)
	case advanceMsg:
		if msg.err != nil {
			s.err = msg.err
			return s, nil
		}
		s.setAdvance(msg.advance)
		return s, nil
	case seekedMsg:
		s.err = msg.err
		return s, nil
	case answerMsg:
		s.asking = false
		s.question = msg.question
		if msg.err != nil {
			s.answer = ""
			s.err = msg.err
			return s, nil
		}
		s.answer = msg.text
		return s, nil
	case quizscreen.PassedMsg:
		return s.handleQuizPassed(msg)
	case screen.ResumedMsg:
		return s, s.refreshAdvance()
	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	if s.input.Focused() {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *Screen) handleLoaded(msg loadedMsg) (screen.Screen, tea.Cmd) {
	if msg.err != nil {
		s.err = msg.err
		return s, nil
	}
	s.session = msg.session
	s.doc = msg.transcript
	s.duration = float64(s.session.Video.DurationSeconds)
	if s.duration <= 0 && s.doc != nil {
		s.duration = s.doc.Duration()
	}
	s.position = float64(s.session.ResumeAt)

	cfg := s.env.Playback
	cfg.Logger = s.env.Logger
	writes := s.writes
	cfg.OnError = func(err error) {
		writes.mu.Lock()
		writes.err = err
		writes.mu.Unlock()
	}
	cfg.OnCompleted = func(progress.Decision) {
		writes.mu.Lock()
		writes.completed = true
		writes.err = nil
		writes.mu.Unlock()
	}
	s.channel = playback.New(s.env.Progress, s.env.StudentID, s.videoID, s.session.Record, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.channel.Run(ctx)

	s.display = s.channel.RefreshDisplay()
	s.playing = true
	return s, tea.Batch(s.tick(), s.refreshAdvance())
}

// handleTick advances the virtual clock and reports a sample.
func (s *Screen) handleTick() (screen.Screen, tea.Cmd) {
	if s.channel == nil {
		return s, nil
	}
	var cmd tea.Cmd
	if s.playing && !s.ended {
		s.position += s.interval().Seconds()
		if s.duration > 0 && s.position >= s.duration {
			s.position = s.duration
			s.playing = false
			cmd = s.end()
		}
		s.report()
	}
	s.display = s.channel.RefreshDisplay()
	if completed, err := s.writes.get(); err != nil {
		s.err = err
	} else if completed && s.status == "" {
		s.status = "Video completed"
	}
	return s, tea.Batch(cmd, s.tick())
}

func (s *Screen) report() {
	if s.duration <= 0 {
		return
	}
	s.channel.Report(progress.Sample{
		Percent:         s.position / s.duration * 100,
		PositionSeconds: s.position,
	})
}

func (s *Screen) end() tea.Cmd {
	s.ended = true
	ch, env, courseID, videoID := s.channel, s.env, s.courseID, s.videoID
	return func() tea.Msg {
		ctx := context.Background()
		if err := ch.Ended(ctx); err != nil {
			return endedMsg{err: err}
		}
		adv, err := env.Learner.Advance(ctx, env.StudentID, courseID, videoID)
		return endedMsg{advance: adv, err: err}
	}
}

func (s *Screen) refreshAdvance() tea.Cmd {
	env, courseID, videoID := s.env, s.courseID, s.videoID
	return func() tea.Msg {
		adv, err := env.Learner.Advance(context.Background(), env.StudentID, courseID, videoID)
		return advanceMsg{advance: adv, err: err}
	}
}

func (s *Screen) handleEnded(msg endedMsg) (screen.Screen, tea.Cmd) {
	if msg.err != nil {
		s.err = msg.err
		return s, nil
	}
	adv := msg.advance
	s.setAdvance(adv)
	switch {
	case adv.NeedsQuiz:
		s.status = "Take the quiz to unlock the next video"
		return s, s.openQuiz()
	case adv.MayAdvance && adv.Next != nil:
		s.status = "Up next: " + adv.Next.Title + " (press n)"
	case adv.MayAdvance:
		s.status = "Course finished"
		return s, s.courseComplete()
	}
	return s, nil
}

// courseComplete pushes the summary screen when every video of the course
// is completed.
func (s *Screen) courseComplete() tea.Cmd {
	env, courseID := s.env, s.courseID
	return func() tea.Msg {
		o, err := env.Learner.Outline(context.Background(), env.StudentID, courseID)
		if err != nil || o.Progress.Total == 0 || o.Progress.Completed < o.Progress.Total {
			return nil
		}
		return router.PushScreenMsg{Screen: summary.New(o)}
	}
}

func (s *Screen) setAdvance(adv course.AdvanceDecision) {
	s.advance = &adv
	if s.session != nil && adv.NeedsQuiz {
		s.session.HasQuiz = true
	}
}

// handleQuizPassed applies the transition decided for a quiz pass. The
// next video keeps the current panel when the transition asks for it.
func (s *Screen) handleQuizPassed(msg quizscreen.PassedMsg) (screen.Screen, tea.Cmd) {
	if msg.VideoID != s.videoID {
		return s, nil
	}
	t := msg.Transition
	if t.Navigate && t.Next != nil {
		panel := PanelTranscript
		if t.KeepPanel {
			panel = s.panel
		}
		next := New(s.env, s.courseID, t.Next.ID, panel)
		return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
	}
	s.status = "Quiz passed"
	if t.Next == nil {
		return s, tea.Batch(s.refreshAdvance(), s.courseComplete())
	}
	return s, s.refreshAdvance()
}

func (s *Screen) openQuiz() tea.Cmd {
	q := quizscreen.New(s.env, s.courseID, s.videoID)
	return func() tea.Msg { return router.PushScreenMsg{Screen: q} }
}

func (s *Screen) seek(delta float64) tea.Cmd {
	s.position = max(s.position+delta, 0)
	if s.duration > 0 {
		s.position = min(s.position, s.duration)
	}
	ch, pos := s.channel, s.position
	return func() tea.Msg {
		return seekedMsg{err: ch.Seek(context.Background(), pos)}
	}
}

func (s *Screen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()
	if s.input.Focused() {
		switch key {
		case "esc":
			s.input.Blur()
			return s, nil
		case "enter":
			return s, s.ask()
		}
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	if s.channel == nil {
		return s, nil
	}

	switch key {
	case "space", " ":
		if s.ended {
			s.ended = false
			s.position = 0
		}
		s.playing = !s.playing
	case "left", "h":
		return s, s.seek(-seekStep)
	case "right", "l":
		return s, s.seek(seekStep)
	case "e":
		if !s.ended {
			s.position = s.duration
			s.playing = false
			s.report()
			return s, s.end()
		}
	case "tab":
		s.panel = (s.panel + 1) % panelCount
	case "/":
		if s.panel == PanelAssistant && s.env.Assistant != nil && !s.asking {
			return s, s.input.Focus()
		}
	case "q":
		if s.session.HasQuiz {
			return s, s.openQuiz()
		}
	case "n":
		if s.advance != nil && s.advance.MayAdvance && s.advance.Next != nil {
			// A manual switch starts the next video on the default panel.
			next := New(s.env, s.courseID, s.advance.Next.ID, PanelTranscript)
			return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
		}
	}
	return s, nil
}

func (s *Screen) ask() tea.Cmd {
	question := s.input.Take()
	s.input.Blur()
	if question == "" || s.env.Assistant == nil {
		return nil
	}
	s.asking = true
	s.question = question
	s.answer = ""
	a, env, videoID, at := s.env.Assistant, s.env, s.videoID, s.position
	return func() tea.Msg {
		ans, err := a.Ask(context.Background(), assistant.Request{
			StudentID:   env.StudentID,
			VideoID:     videoID,
			Question:    question,
			CurrentTime: at,
		})
		if err != nil {
			return answerMsg{question: question, err: err}
		}
		return answerMsg{question: question, text: ans.Text}
	}
}

// Package playback reconciles a high-frequency media player sample stream
// with low-frequency progress writes.
//
// A Channel keeps two clocks: a short UI clock that only refreshes display
// state and a long persistence clock that writes the best known progress.
// Writes always carry max(latest reported, highest seen) percent, so a
// dropped or failed write is repaired by the next tick without retries.
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/abhisek/lumora/internal/progress"
)

// Default clock intervals.
const (
	DefaultUIInterval      = 500 * time.Millisecond
	DefaultPersistInterval = 5 * time.Second
)

// Writer persists progress samples. *progress.Service satisfies it.
type Writer interface {
	UpsertProgress(ctx context.Context, studentID, videoID string, s progress.Sample) (progress.Decision, error)
	MarkEnded(ctx context.Context, studentID, videoID string) (progress.Decision, error)
}

// Display is the in-memory state shown to the student.
type Display struct {
	Percent         float64 // latest reported
	MaxPercent      float64 // highest seen this session or stored
	PositionSeconds float64
	Completed       bool
	Pending         bool // unsent progress exists
}

// Config tunes a Channel. Zero values take defaults.
type Config struct {
	UIInterval      time.Duration
	PersistInterval time.Duration
	Logger          *slog.Logger

	// OnDisplay is called with fresh display state on every UI tick.
	OnDisplay func(Display)
	// OnCompleted is called once when a write first marks the video completed.
	OnCompleted func(progress.Decision)
	// OnError is called when a write fails. The data stays pending.
	OnError func(error)
}

func (c Config) withDefaults() Config {
	if c.UIInterval <= 0 {
		c.UIInterval = DefaultUIInterval
	}
	if c.PersistInterval <= 0 {
		c.PersistInterval = DefaultPersistInterval
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Channel is the reporting path for one (student, video) pair.
type Channel struct {
	w         Writer
	studentID string
	videoID   string
	cfg       Config

	mu        sync.Mutex
	latest    progress.Sample
	localMax  float64
	dirty     bool
	completed bool
	closed    bool
	stop      chan struct{}

	inflight sync.WaitGroup
}

// New creates a channel. initial is the stored record (nil if none); its
// percent seeds the local maximum so a resumed session never sends less.
func New(w Writer, studentID, videoID string, initial *progress.Record, cfg Config) *Channel {
	c := &Channel{
		w:         w,
		studentID: studentID,
		videoID:   videoID,
		cfg:       cfg.withDefaults(),
		stop:      make(chan struct{}),
	}
	if initial != nil {
		c.localMax = float64(initial.WatchedPercent)
		c.latest = progress.Sample{
			Percent:         float64(initial.WatchedPercent),
			PositionSeconds: float64(initial.PlaybackPositionSeconds),
		}
		c.completed = initial.Completed
	}
	return c
}

// Report records a player sample. It never blocks on I/O.
func (c *Channel) Report(s progress.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if math.IsNaN(s.Percent) {
		s.Percent = c.latest.Percent
	} else if s.Percent > c.localMax {
		c.localMax = math.Min(s.Percent, 100)
	}
	if math.IsNaN(s.PositionSeconds) || math.IsInf(s.PositionSeconds, 0) {
		s.PositionSeconds = c.latest.PositionSeconds
	}
	c.latest = s
	c.dirty = true
}

// RefreshDisplay returns the current display state and passes it to
// OnDisplay. It performs no I/O.
func (c *Channel) RefreshDisplay() Display {
	c.mu.Lock()
	d := Display{
		Percent:         c.latest.Percent,
		MaxPercent:      c.localMax,
		PositionSeconds: c.latest.PositionSeconds,
		Completed:       c.completed,
		Pending:         c.dirty,
	}
	c.mu.Unlock()

	if c.cfg.OnDisplay != nil {
		c.cfg.OnDisplay(d)
	}
	return d
}

// Flush writes pending progress, if any. The sent percent is the larger of
// the latest report and the local maximum. On failure the data stays
// pending for the next flush.
func (c *Channel) Flush(ctx context.Context) error {
	c.mu.Lock()
	if !c.dirty {
		c.mu.Unlock()
		return nil
	}
	s := c.outgoing()
	c.dirty = false
	c.mu.Unlock()

	return c.write(ctx, s)
}

// Seek records a position change and writes it immediately.
func (c *Channel) Seek(ctx context.Context, positionSeconds float64) error {
	c.mu.Lock()
	if !math.IsNaN(positionSeconds) && !math.IsInf(positionSeconds, 0) {
		c.latest.PositionSeconds = positionSeconds
	}
	s := c.outgoing()
	c.dirty = false
	c.mu.Unlock()

	return c.write(ctx, s)
}

// Ended records the player's end-of-video event immediately.
func (c *Channel) Ended(ctx context.Context) error {
	c.mu.Lock()
	c.localMax = 100
	c.latest = progress.Sample{Percent: 100}
	c.dirty = false
	c.mu.Unlock()

	c.inflight.Add(1)
	defer c.inflight.Done()

	d, err := c.w.MarkEnded(ctx, c.studentID, c.videoID)
	if err != nil {
		c.failed(err)
		return fmt.Errorf("mark ended: %w", err)
	}
	c.succeeded(d)
	return nil
}

// outgoing builds the sample to persist. Caller holds c.mu.
func (c *Channel) outgoing() progress.Sample {
	pct := c.localMax
	if c.latest.Percent > pct {
		pct = c.latest.Percent
	}
	return progress.Sample{
		Percent:         pct,
		PositionSeconds: c.latest.PositionSeconds,
	}
}

func (c *Channel) write(ctx context.Context, s progress.Sample) error {
	c.inflight.Add(1)
	defer c.inflight.Done()

	d, err := c.w.UpsertProgress(ctx, c.studentID, c.videoID, s)
	if err != nil {
		c.mu.Lock()
		c.dirty = true
		c.mu.Unlock()
		c.failed(err)
		return fmt.Errorf("save progress: %w", err)
	}
	c.succeeded(d)
	return nil
}

func (c *Channel) failed(err error) {
	c.cfg.Logger.Warn("progress write failed",
		"student", c.studentID, "video", c.videoID, "err", err)
	if c.cfg.OnError != nil {
		c.cfg.OnError(err)
	}
}

func (c *Channel) succeeded(d progress.Decision) {
	c.mu.Lock()
	c.completed = c.completed || d.Record.Completed
	if p := float64(d.Record.WatchedPercent); p > c.localMax {
		c.localMax = p
	}
	c.mu.Unlock()

	if d.JustCompleted && c.cfg.OnCompleted != nil {
		c.cfg.OnCompleted(d)
	}
}

// Run drives both clocks until ctx is done or Close is called. Persistence
// runs in its own goroutine per tick with a context detached from ctx, so
// stopping the channel never aborts a write already under way.
func (c *Channel) Run(ctx context.Context) {
	ui := time.NewTicker(c.cfg.UIInterval)
	defer ui.Stop()
	persist := time.NewTicker(c.cfg.PersistInterval)
	defer persist.Stop()

	writeCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ui.C:
			c.RefreshDisplay()
		case <-persist.C:
			c.inflight.Add(1)
			go func() {
				defer c.inflight.Done()
				_ = c.Flush(writeCtx)
			}()
		}
	}
}

// Close stops the clocks started by Run and sends any pending progress in
// the background. It is safe to call more than once.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.stop)
	pending := c.dirty
	c.mu.Unlock()

	if pending {
		c.inflight.Add(1)
		go func() {
			defer c.inflight.Done()
			_ = c.Flush(context.Background())
		}()
	}
}

// Wait blocks until every write started so far has finished.
func (c *Channel) Wait() {
	c.inflight.Wait()
}

package playback

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/lumora/internal/progress"
)

// fakeWriter applies samples with the real evaluator and records calls.
type fakeWriter struct {
	mu      sync.Mutex
	rec     *progress.Record
	sent    []progress.Sample
	ended   int
	failing bool
}

func (f *fakeWriter) UpsertProgress(_ context.Context, _, _ string, s progress.Sample) (progress.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, s)
	if f.failing {
		return progress.Decision{}, errors.New("offline")
	}
	d := progress.Evaluate(f.rec, s)
	f.rec = &d.Record
	return d, nil
}

func (f *fakeWriter) MarkEnded(_ context.Context, _, _ string) (progress.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended++
	if f.failing {
		return progress.Decision{}, errors.New("offline")
	}
	d := progress.EvaluateEnded(f.rec)
	f.rec = &d.Record
	return d, nil
}

func (f *fakeWriter) calls() []progress.Sample {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]progress.Sample(nil), f.sent...)
}

func (f *fakeWriter) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

func TestFlushSendsMaxNeverRegresses(t *testing.T) {
	w := &fakeWriter{}
	c := New(w, "alice", "v0", nil, Config{})
	ctx := context.Background()

	c.Report(progress.Sample{Percent: 40, PositionSeconds: 120})
	c.Report(progress.Sample{Percent: 60, PositionSeconds: 200})
	c.Report(progress.Sample{Percent: 30, PositionSeconds: 90}) // seek back between ticks
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	sent := w.calls()
	if len(sent) != 1 {
		t.Fatalf("writes = %d, want 1 (intermediate ticks dropped)", len(sent))
	}
	if sent[0].Percent != 60 || sent[0].PositionSeconds != 90 {
		t.Errorf("sent = %+v, want percent 60 position 90", sent[0])
	}
}

func TestFlushIgnoresNaNPercent(t *testing.T) {
	w := &fakeWriter{}
	c := New(w, "alice", "v0", nil, Config{})

	c.Report(progress.Sample{Percent: 60, PositionSeconds: 100})
	c.Report(progress.Sample{Percent: math.NaN(), PositionSeconds: 110})
	if d := c.RefreshDisplay(); math.IsNaN(d.Percent) || d.MaxPercent != 60 {
		t.Errorf("display = %+v, want finite percent and max 60", d)
	}
	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	sent := w.calls()
	if len(sent) != 1 {
		t.Fatalf("writes = %d, want 1", len(sent))
	}
	if sent[0].Percent != 60 || sent[0].PositionSeconds != 110 {
		t.Errorf("sent = %+v, want percent 60 position 110", sent[0])
	}
}

func TestFlushSkipsWhenNothingPending(t *testing.T) {
	w := &fakeWriter{}
	c := New(w, "alice", "v0", nil, Config{})
	ctx := context.Background()

	if err := c.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	c.Report(progress.Sample{Percent: 10, PositionSeconds: 5})
	_ = c.Flush(ctx)
	_ = c.Flush(ctx)

	if n := len(w.calls()); n != 1 {
		t.Errorf("writes = %d, want 1", n)
	}
}

func TestFailedFlushResendsOnNextTick(t *testing.T) {
	w := &fakeWriter{}
	var errs int
	c := New(w, "alice", "v0", nil, Config{OnError: func(error) { errs++ }})
	ctx := context.Background()

	w.setFailing(true)
	c.Report(progress.Sample{Percent: 50, PositionSeconds: 300})
	if err := c.Flush(ctx); err == nil {
		t.Fatal("expected flush error")
	}
	if !c.RefreshDisplay().Pending {
		t.Error("data not pending after failed write")
	}

	w.setFailing(false)
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	sent := w.calls()
	if len(sent) != 2 || sent[1].Percent != 50 {
		t.Errorf("sent = %+v, want resend of 50%%", sent)
	}
	if errs != 1 {
		t.Errorf("OnError calls = %d, want 1", errs)
	}
}

func TestInitialRecordSeedsLocalMax(t *testing.T) {
	w := &fakeWriter{}
	initial := &progress.Record{WatchedPercent: 80, PlaybackPositionSeconds: 480}
	c := New(w, "alice", "v0", initial, Config{})

	c.Report(progress.Sample{Percent: 10, PositionSeconds: 60})
	_ = c.Flush(context.Background())

	if sent := w.calls(); sent[0].Percent != 80 {
		t.Errorf("sent percent = %v, want 80", sent[0].Percent)
	}
}

func TestEndedAndSeekWriteImmediately(t *testing.T) {
	w := &fakeWriter{}
	var completions int
	c := New(w, "alice", "v0", nil, Config{OnCompleted: func(progress.Decision) { completions++ }})
	ctx := context.Background()

	c.Report(progress.Sample{Percent: 20, PositionSeconds: 60})
	if err := c.Seek(ctx, 30); err != nil {
		t.Fatalf("seek: %v", err)
	}
	sent := w.calls()
	if len(sent) != 1 || sent[0].PositionSeconds != 30 || sent[0].Percent != 20 {
		t.Errorf("seek sent %+v", sent)
	}

	if err := c.Ended(ctx); err != nil {
		t.Fatalf("ended: %v", err)
	}
	if w.ended != 1 {
		t.Errorf("MarkEnded calls = %d, want 1", w.ended)
	}
	if completions != 1 {
		t.Errorf("OnCompleted calls = %d, want 1", completions)
	}
	d := c.RefreshDisplay()
	if !d.Completed || d.Pending || d.MaxPercent != 100 {
		t.Errorf("display = %+v", d)
	}
}

func TestOnCompletedFiresOnce(t *testing.T) {
	w := &fakeWriter{}
	var completions int
	c := New(w, "alice", "v0", nil, Config{OnCompleted: func(progress.Decision) { completions++ }})
	ctx := context.Background()

	for _, p := range []float64{90, 96, 99, 100} {
		c.Report(progress.Sample{Percent: p, PositionSeconds: p})
		_ = c.Flush(ctx)
	}
	if completions != 1 {
		t.Errorf("OnCompleted calls = %d, want 1", completions)
	}
}

func TestRunPersistsOnTickAndCloseFlushes(t *testing.T) {
	w := &fakeWriter{}
	displays := make(chan Display, 64)
	c := New(w, "alice", "v0", nil, Config{
		UIInterval:      5 * time.Millisecond,
		PersistInterval: 20 * time.Millisecond,
		OnDisplay: func(d Display) {
			select {
			case displays <- d:
			default:
			}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	c.Report(progress.Sample{Percent: 25, PositionSeconds: 150})

	deadline := time.After(2 * time.Second)
	for len(w.calls()) == 0 {
		select {
		case <-deadline:
			t.Fatal("no write within 2s")
		case <-time.After(5 * time.Millisecond):
		}
	}
	select {
	case <-displays:
	case <-deadline:
		t.Fatal("no display refresh")
	}

	c.Report(progress.Sample{Percent: 30, PositionSeconds: 180})
	c.Close()
	<-done
	c.Wait()

	w.mu.Lock()
	stored := w.rec.WatchedPercent
	w.mu.Unlock()
	if stored != 30 {
		t.Errorf("stored percent = %d, want 30 flushed on close", stored)
	}
	c.Close() // idempotent
}

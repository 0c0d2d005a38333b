package progress

import (
	"math"
	"testing"
)

func TestEvaluateFirstSample(t *testing.T) {
	tests := []struct {
		name          string
		sample        Sample
		wantPercent   int
		wantPos       int
		wantCompleted bool
		wantIssues    int
	}{
		{"below threshold", Sample{94, 120}, 94, 120, false, 0},
		{"at threshold", Sample{95, 300}, 95, 300, true, 0},
		{"fraction floored", Sample{94.99, 12.7}, 94, 12, false, 0},
		{"over 100 clamped", Sample{140, 10}, 100, 10, true, 1},
		{"negative percent clamped", Sample{-5, 10}, 0, 10, false, 1},
		{"negative position clamped", Sample{10, -3}, 10, 0, false, 1},
		{"NaN percent ignored", Sample{math.NaN(), 10}, 0, 10, false, 1},
		{"infinite percent clamped", Sample{math.Inf(1), 10}, 100, 10, true, 1},
		{"infinite position ignored", Sample{10, math.Inf(1)}, 10, 0, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(nil, tt.sample)
			if d.Record.WatchedPercent != tt.wantPercent {
				t.Errorf("percent = %d, want %d", d.Record.WatchedPercent, tt.wantPercent)
			}
			if d.Record.PlaybackPositionSeconds != tt.wantPos {
				t.Errorf("position = %d, want %d", d.Record.PlaybackPositionSeconds, tt.wantPos)
			}
			if d.Record.Completed != tt.wantCompleted {
				t.Errorf("completed = %v, want %v", d.Record.Completed, tt.wantCompleted)
			}
			if d.JustCompleted != tt.wantCompleted {
				t.Errorf("justCompleted = %v, want %v", d.JustCompleted, tt.wantCompleted)
			}
			if len(d.Issues) != tt.wantIssues {
				t.Errorf("issues = %v, want %d", d.Issues, tt.wantIssues)
			}
			if (d.Err() != nil) != (tt.wantIssues > 0) {
				t.Errorf("Err() = %v", d.Err())
			}
		})
	}
}

func TestEvaluateNeverLowersPercent(t *testing.T) {
	prev := &Record{WatchedPercent: 97, PlaybackPositionSeconds: 310, Completed: true}
	d := Evaluate(prev, Sample{Percent: 50, PositionSeconds: 100})

	if d.Record.WatchedPercent != 97 {
		t.Errorf("percent = %d, want 97", d.Record.WatchedPercent)
	}
	if d.Record.PlaybackPositionSeconds != 100 {
		t.Errorf("position = %d, want 100", d.Record.PlaybackPositionSeconds)
	}
	if !d.Record.Completed {
		t.Error("completion reverted")
	}
	if d.JustCompleted {
		t.Error("justCompleted on an already completed record")
	}
	if prev.PlaybackPositionSeconds != 310 {
		t.Error("Evaluate mutated prev")
	}
}

func TestEvaluateNonFinitePositionKeepsLast(t *testing.T) {
	prev := &Record{WatchedPercent: 30, PlaybackPositionSeconds: 180}
	d := Evaluate(prev, Sample{Percent: 35, PositionSeconds: math.NaN()})

	if d.Record.PlaybackPositionSeconds != 180 {
		t.Errorf("position = %d, want 180", d.Record.PlaybackPositionSeconds)
	}
	if d.Record.WatchedPercent != 35 {
		t.Errorf("percent = %d, want 35", d.Record.WatchedPercent)
	}
	if len(d.Issues) != 1 || d.Issues[0].Field != "position" {
		t.Errorf("issues = %v", d.Issues)
	}
}

func TestEvaluateMonotonicOverSequence(t *testing.T) {
	samples := []float64{10, 40, 20, 60, 59, 97, 50, 0, 100, 3}
	var rec *Record
	last := 0
	completed := false
	for _, p := range samples {
		d := Evaluate(rec, Sample{Percent: p, PositionSeconds: p})
		if d.Record.WatchedPercent < last {
			t.Fatalf("percent dropped from %d to %d", last, d.Record.WatchedPercent)
		}
		if completed && !d.Record.Completed {
			t.Fatal("completion reverted")
		}
		last = d.Record.WatchedPercent
		completed = d.Record.Completed
		rec = &d.Record
	}
	if last != 100 {
		t.Errorf("final percent = %d, want 100", last)
	}
}

func TestEvaluateEnded(t *testing.T) {
	d := EvaluateEnded(&Record{WatchedPercent: 80, PlaybackPositionSeconds: 400})
	if d.Record.WatchedPercent != 100 || d.Record.PlaybackPositionSeconds != 0 || !d.Record.Completed {
		t.Errorf("record = %+v", d.Record)
	}
	if !d.JustCompleted {
		t.Error("expected justCompleted")
	}

	again := EvaluateEnded(&d.Record)
	if again.JustCompleted {
		t.Error("justCompleted on second end event")
	}
}

func TestMayAdvance(t *testing.T) {
	done := &Record{Completed: true}
	tests := []struct {
		name       string
		rec        *Record
		hasQuiz    bool
		quizPassed bool
		want       bool
	}{
		{"no record", nil, false, false, false},
		{"not completed", &Record{WatchedPercent: 90}, false, false, false},
		{"completed no quiz", done, false, false, true},
		{"completed quiz pending", done, true, false, false},
		{"completed quiz passed", done, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MayAdvance(tt.rec, tt.hasQuiz, tt.quizPassed); got != tt.want {
				t.Errorf("MayAdvance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResumePosition(t *testing.T) {
	tests := []struct {
		name     string
		rec      *Record
		duration int
		want     int
	}{
		{"no record", nil, 600, 0},
		{"stored position", &Record{WatchedPercent: 40, PlaybackPositionSeconds: 120}, 600, 120},
		{"completed restarts", &Record{WatchedPercent: 97, PlaybackPositionSeconds: 310}, 600, 0},
		{"estimate from duration", &Record{WatchedPercent: 50}, 300, 150},
		{"unknown duration", &Record{WatchedPercent: 50}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResumePosition(tt.rec, tt.duration); got != tt.want {
				t.Errorf("ResumePosition = %d, want %d", got, tt.want)
			}
		})
	}
}

// Package progress decides how playback samples change a student's
// per-video watch record and persists the result.
package progress

import (
	"errors"
	"math"

	"github.com/abhisek/lumora/internal/store"
)

// CompletionThreshold is the watched percent at or above which a video
// counts as completed.
const CompletionThreshold = 95

// Record is one student's watch state for one video.
type Record = store.VideoProgress

// Sample is one report from the media player.
type Sample struct {
	Percent         float64
	PositionSeconds float64
}

// Decision is the outcome of applying a sample to a record.
type Decision struct {
	Record Record

	// JustCompleted is true only on the sample that moves the record from
	// not completed to completed.
	JustCompleted bool

	// Issues lists the sample fields that were clamped or ignored.
	Issues []*InvalidSampleError
}

// Err joins Issues into a single error, or returns nil.
func (d Decision) Err() error {
	errs := make([]error, len(d.Issues))
	for i, e := range d.Issues {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// IsComplete reports whether percent meets the completion threshold.
func IsComplete(percent int) bool {
	return percent >= CompletionThreshold
}

// Evaluate applies s to prev (nil for a first report).
//
// Percent is clamped to [0,100] and floored; it never lowers the stored
// percent. Position is last-write: a negative position becomes 0 and a
// non-finite one is ignored in favour of the stored position. Completion
// is one-way.
func Evaluate(prev *Record, s Sample) Decision {
	var d Decision
	if prev != nil {
		d.Record = *prev
	}
	wasCompleted := d.Record.Completed

	if pct, ok, issue := sanitizePercent(s.Percent); ok {
		if pct > d.Record.WatchedPercent {
			d.Record.WatchedPercent = pct
		}
		if issue != nil {
			d.Issues = append(d.Issues, issue)
		}
	} else {
		d.Issues = append(d.Issues, issue)
	}

	if pos, ok, issue := sanitizePosition(s.PositionSeconds); ok {
		d.Record.PlaybackPositionSeconds = pos
		if issue != nil {
			d.Issues = append(d.Issues, issue)
		}
	} else {
		d.Issues = append(d.Issues, issue)
	}

	d.Record.Completed = wasCompleted || IsComplete(d.Record.WatchedPercent)
	d.JustCompleted = d.Record.Completed && !wasCompleted
	return d
}

// EvaluateEnded applies the player's end-of-video event: the record is
// forced to 100%, completed, with the position reset to the start.
func EvaluateEnded(prev *Record) Decision {
	var d Decision
	if prev != nil {
		d.Record = *prev
	}
	wasCompleted := d.Record.Completed
	d.Record.WatchedPercent = 100
	d.Record.PlaybackPositionSeconds = 0
	d.Record.Completed = true
	d.JustCompleted = !wasCompleted
	return d
}

func sanitizePercent(v float64) (int, bool, *InvalidSampleError) {
	switch {
	case math.IsNaN(v):
		return 0, false, &InvalidSampleError{Field: "percent", Value: v, Reason: "not a number, ignored"}
	case v < 0:
		return 0, true, &InvalidSampleError{Field: "percent", Value: v, Reason: "below 0, clamped"}
	case v > 100:
		return 100, true, &InvalidSampleError{Field: "percent", Value: v, Reason: "above 100, clamped"}
	}
	return int(math.Floor(v)), true, nil
}

func sanitizePosition(v float64) (int, bool, *InvalidSampleError) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return 0, false, &InvalidSampleError{Field: "position", Value: v, Reason: "not finite, ignored"}
	case v < 0:
		return 0, true, &InvalidSampleError{Field: "position", Value: v, Reason: "negative, clamped to 0"}
	case v > math.MaxInt32:
		return math.MaxInt32, true, &InvalidSampleError{Field: "position", Value: v, Reason: "too large, clamped"}
	}
	return int(math.Floor(v)), true, nil
}

// MayAdvance reports whether the student may move past the video rec
// belongs to: it must be completed and, when it has a quiz, the quiz
// must be passed.
func MayAdvance(rec *Record, hasQuiz, quizPassed bool) bool {
	if rec == nil || !rec.Completed {
		return false
	}
	return !hasQuiz || quizPassed
}

// ResumePosition returns where playback should start. Completed-by-watch
// videos start over. A stored position wins; a record without one falls
// back to percent of the real duration when that is known.
func ResumePosition(rec *Record, durationSeconds int) int {
	if rec == nil || rec.WatchedPercent >= CompletionThreshold {
		return 0
	}
	if rec.PlaybackPositionSeconds > 0 {
		return rec.PlaybackPositionSeconds
	}
	if rec.WatchedPercent > 0 && durationSeconds > 0 {
		return rec.WatchedPercent * durationSeconds / 100
	}
	return 0
}

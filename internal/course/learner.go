package course

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/lumora/internal/progress"
	"github.com/abhisek/lumora/internal/quiz"
	"github.com/abhisek/lumora/internal/store"
	"github.com/abhisek/lumora/internal/unlock"
)

// ErrVideoLocked is returned when a student opens a video whose
// predecessor is not finished.
var ErrVideoLocked = errors.New("video is locked")

// Entry is one video of a course as the student sees it.
type Entry struct {
	Video      store.Video
	Record     *progress.Record // nil until the first report
	HasQuiz    bool
	QuizPassed bool
	Accessible bool
}

// Outline is a course with per-video lock state, in playback order.
type Outline struct {
	Course   store.Course
	Entries  []Entry
	Progress *progress.CourseProgress
}

// Find returns the index of videoID, or -1.
func (o *Outline) Find(videoID string) int {
	for i := range o.Entries {
		if o.Entries[i].Video.ID == videoID {
			return i
		}
	}
	return -1
}

// After returns the entry following index i, or nil.
func (o *Outline) After(i int) *Entry {
	if i < 0 || i+1 >= len(o.Entries) {
		return nil
	}
	return &o.Entries[i+1]
}

// Session is what a player needs to start a video.
type Session struct {
	Entry
	// ResumeAt is the second to seek to on load.
	ResumeAt int
	Next     *Entry
}

// AdvanceDecision says whether the student may move past a video.
type AdvanceDecision struct {
	MayAdvance bool
	// NeedsQuiz is set when the video is watched but its quiz is not passed.
	NeedsQuiz bool
	Next      *store.Video
}

// Transition is the result of an event that may move the student to
// another video. Callers switch to Next only when Navigate is set, and the
// switch is a continuation of the same lesson: KeepPanel tells them not to
// apply the panel reset they would do on a manual video change.
type Transition struct {
	Next      *store.Video
	Navigate  bool
	KeepPanel bool
}

// Learner answers the student's questions about a course.
type Learner struct {
	courses  store.CourseRepo
	progress *progress.Service
	quizzes  *quiz.Tracker
}

// NewLearner wires the student view.
func NewLearner(courses store.CourseRepo, prog *progress.Service, quizzes *quiz.Tracker) *Learner {
	return &Learner{courses: courses, progress: prog, quizzes: quizzes}
}

// Outline loads the course and recomputes every video's lock state from the
// stored positions, progress and quiz passes.
func (l *Learner) Outline(ctx context.Context, studentID, courseID string) (*Outline, error) {
	c, err := l.courses.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	videos, err := l.courses.ListVideos(ctx, courseID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(videos))
	byID := make(map[string]store.Video, len(videos))
	for i, v := range videos {
		ids[i] = v.ID
		byID[v.ID] = v
	}

	cp, err := l.progress.ForVideos(ctx, studentID, courseID, ids)
	if err != nil {
		return nil, err
	}
	hasQuiz, err := l.quizzes.HasQuiz(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load quizzes: %w", err)
	}
	passed, err := l.quizzes.PassedFor(ctx, studentID, ids)
	if err != nil {
		return nil, fmt.Errorf("load quiz passes: %w", err)
	}

	items := make([]unlock.Item, len(videos))
	for i, v := range videos {
		items[i] = unlock.Item{VideoID: v.ID, Position: v.Position, HasQuiz: hasQuiz[v.ID]}
	}

	o := &Outline{Course: *c, Progress: cp}
	for _, a := range unlock.Evaluate(items, cp.Records, passed) {
		e := Entry{
			Video:      byID[a.VideoID],
			HasQuiz:    a.HasQuiz,
			QuizPassed: passed[a.VideoID],
			Accessible: a.Accessible,
		}
		if rec, ok := cp.Records[a.VideoID]; ok {
			e.Record = &rec
		}
		o.Entries = append(o.Entries, e)
	}
	return o, nil
}

func (l *Learner) entry(ctx context.Context, studentID, courseID, videoID string) (*Outline, int, error) {
	o, err := l.Outline(ctx, studentID, courseID)
	if err != nil {
		return nil, -1, err
	}
	i := o.Find(videoID)
	if i < 0 {
		return nil, -1, fmt.Errorf("video %s, course %s: %w", videoID, courseID, ErrVideoNotInCourse)
	}
	return o, i, nil
}

// Open checks that the student may watch videoID and returns where to
// resume playback.
func (l *Learner) Open(ctx context.Context, studentID, courseID, videoID string) (*Session, error) {
	o, i, err := l.entry(ctx, studentID, courseID, videoID)
	if err != nil {
		return nil, err
	}
	e := o.Entries[i]
	if !e.Accessible {
		return nil, fmt.Errorf("video %s: %w", videoID, ErrVideoLocked)
	}
	return &Session{
		Entry:    e,
		ResumeAt: progress.ResumePosition(e.Record, e.Video.DurationSeconds),
		Next:     o.After(i),
	}, nil
}

// Advance reports whether the student may move on from videoID. A video
// that is still locked never allows it.
func (l *Learner) Advance(ctx context.Context, studentID, courseID, videoID string) (AdvanceDecision, error) {
	o, i, err := l.entry(ctx, studentID, courseID, videoID)
	if err != nil {
		return AdvanceDecision{}, err
	}
	e := o.Entries[i]
	d := AdvanceDecision{MayAdvance: e.Accessible && progress.MayAdvance(e.Record, e.HasQuiz, e.QuizPassed)}
	d.NeedsQuiz = e.Accessible && !d.MayAdvance && e.Record != nil && e.Record.Completed && e.HasQuiz
	if next := o.After(i); next != nil {
		d.Next = &next.Video
	}
	return d, nil
}

// QuizPassed is called after the quiz of videoID has been recorded as
// passed. It navigates to the next video when that video is now open.
func (l *Learner) QuizPassed(ctx context.Context, studentID, courseID, videoID string) (Transition, error) {
	o, i, err := l.entry(ctx, studentID, courseID, videoID)
	if err != nil {
		return Transition{}, err
	}
	t := Transition{KeepPanel: true}
	if next := o.After(i); next != nil {
		t.Next = &next.Video
		t.Navigate = next.Accessible
	}
	return t, nil
}

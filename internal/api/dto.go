package api

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/abhisek/lumora/internal/course"
	"github.com/abhisek/lumora/internal/progress"
	"github.com/abhisek/lumora/internal/quiz"
	"github.com/abhisek/lumora/internal/store"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind parses the JSON body into dst and validates it. The returned error
// has already been written to the response when respond is true.
func bind(c *fiber.Ctx, dst any) (respond bool, err error) {
	if err := c.BodyParser(dst); err != nil {
		return true, fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return true, invalidFields(c, err)
	}
	return false, nil
}

type courseRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Thumbnail   string `json:"thumbnail" validate:"omitempty,url"`
}

type videoRequest struct {
	Title           string `json:"title" validate:"required,max=200"`
	Description     string `json:"description" validate:"max=5000"`
	URL             string `json:"url" validate:"omitempty,url"`
	Thumbnail       string `json:"thumbnail" validate:"omitempty,url"`
	DurationSeconds int    `json:"durationSeconds" validate:"gte=0"`
}

type moveRequest struct {
	Position int `json:"position" validate:"required"`
}

// progressRequest is one player sample. Percent is 0..100 and may be
// fractional; out-of-range values are clamped server side.
type progressRequest struct {
	Percent         *float64 `json:"percent" validate:"required"`
	PositionSeconds *float64 `json:"positionSeconds" validate:"required"`
}

type quizImportRequest struct {
	Questions []quiz.Question `json:"questions" validate:"required,min=1"`
}

type quizSubmitRequest struct {
	Answers []int `json:"answers" validate:"required,min=1,dive,gte=-1"`
}

type noteRequest struct {
	Title   string `json:"title" validate:"max=200"`
	Content string `json:"content" validate:"max=100000"`
}

type askRequest struct {
	Question    string  `json:"question" validate:"required,max=4000"`
	CurrentTime float64 `json:"currentTime" validate:"gte=0"`
}

type courseView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toCourseView(c store.Course) courseView {
	return courseView{ID: c.ID, Title: c.Title, Description: c.Description, Thumbnail: c.Thumbnail, CreatedAt: c.CreatedAt}
}

type videoView struct {
	ID              string `json:"id"`
	CourseID        string `json:"courseId"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	URL             string `json:"url"`
	Thumbnail       string `json:"thumbnail,omitempty"`
	DurationSeconds int    `json:"durationSeconds"`
	Position        int    `json:"position"`
}

func toVideoView(v store.Video) videoView {
	return videoView{
		ID: v.ID, CourseID: v.CourseID, Title: v.Title, Description: v.Description,
		URL: v.URL, Thumbnail: v.Thumbnail, DurationSeconds: v.DurationSeconds, Position: v.Position,
	}
}

func toVideoViews(vs []store.Video) []videoView {
	out := make([]videoView, len(vs))
	for i, v := range vs {
		out[i] = toVideoView(v)
	}
	return out
}

type progressView struct {
	VideoID                 string    `json:"videoId"`
	WatchedPercent          int       `json:"watchedPercent"`
	PlaybackPositionSeconds int       `json:"playbackPositionSeconds"`
	Completed               bool      `json:"completed"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

func toProgressView(r *progress.Record) *progressView {
	if r == nil {
		return nil
	}
	return &progressView{
		VideoID: r.VideoID, WatchedPercent: r.WatchedPercent,
		PlaybackPositionSeconds: r.PlaybackPositionSeconds, Completed: r.Completed, UpdatedAt: r.UpdatedAt,
	}
}

type decisionView struct {
	Progress      *progressView `json:"progress"`
	JustCompleted bool          `json:"justCompleted"`
	Warnings      []string      `json:"warnings,omitempty"`
}

func toDecisionView(d progress.Decision) decisionView {
	out := decisionView{Progress: toProgressView(&d.Record), JustCompleted: d.JustCompleted}
	for _, is := range d.Issues {
		out.Warnings = append(out.Warnings, is.Error())
	}
	return out
}

type courseProgressView struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

type entryView struct {
	Video      videoView     `json:"video"`
	Progress   *progressView `json:"progress"`
	HasQuiz    bool          `json:"hasQuiz"`
	QuizPassed bool          `json:"quizPassed"`
	Accessible bool          `json:"accessible"`
}

func toEntryView(e course.Entry) entryView {
	return entryView{
		Video: toVideoView(e.Video), Progress: toProgressView(e.Record),
		HasQuiz: e.HasQuiz, QuizPassed: e.QuizPassed, Accessible: e.Accessible,
	}
}

type outlineView struct {
	Course   courseView         `json:"course"`
	Videos   []entryView        `json:"videos"`
	Progress courseProgressView `json:"progress"`
}

func toOutlineView(o *course.Outline) outlineView {
	out := outlineView{
		Course: toCourseView(o.Course),
		Videos: make([]entryView, len(o.Entries)),
		Progress: courseProgressView{
			Completed: o.Progress.Completed, Total: o.Progress.Total, Percent: o.Progress.Percent,
		},
	}
	for i, e := range o.Entries {
		out.Videos[i] = toEntryView(e)
	}
	return out
}

type sessionView struct {
	entryView
	ResumeAt int        `json:"resumeAt"`
	Next     *entryView `json:"next,omitempty"`
}

type transitionView struct {
	NextVideoID string `json:"nextVideoId,omitempty"`
	Navigate    bool   `json:"navigate"`
	KeepPanel   bool   `json:"keepPanel"`
}

// questionView hides the answer key from students.
type questionView struct {
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	StartTime float64  `json:"startTime"`
}

type submissionView struct {
	Correct     int             `json:"correct"`
	Total       int             `json:"total"`
	Percent     int             `json:"percent"`
	Passed      bool            `json:"passed"`
	Wrong       []int           `json:"wrong,omitempty"`
	Review      []quiz.Question `json:"review,omitempty"`
	NewlyPassed bool            `json:"newlyPassed"`
	Transition  *transitionView `json:"transition,omitempty"`
}

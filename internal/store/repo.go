package store

import (
	"context"
	"time"
)

// Course is a titled, ordered collection of videos.
type Course struct {
	ID          string
	Title       string
	Description string
	Thumbnail   string
	CreatedAt   time.Time
}

// Video is one lesson within a course. Position is 1-based and contiguous
// within the course.
type Video struct {
	ID              string
	CourseID        string
	Title           string
	Description     string
	URL             string
	Thumbnail       string
	DurationSeconds int
	Position        int
	CreatedAt       time.Time
}

// VideoProgress is one student's watch state for one video.
type VideoProgress struct {
	StudentID               string
	VideoID                 string
	WatchedPercent          int
	PlaybackPositionSeconds int
	Completed               bool
	UpdatedAt               time.Time
}

// ProgressFunc computes the next progress row from the current one (nil
// when the student has no row for the video yet).
type ProgressFunc func(prev *VideoProgress) (VideoProgress, error)

// Quiz is the generated question set attached to a video.
type Quiz struct {
	VideoID   string
	Questions []byte // JSON
	Model     string
	CreatedAt time.Time
}

// Transcript is the timed text of a video.
type Transcript struct {
	VideoID    string
	VideoTitle string
	Chunks     []byte // JSON
	FullText   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Note is a student's free-form note on a video.
type Note struct {
	StudentID string
	VideoID   string
	Title     string
	Content   string
	UpdatedAt time.Time
}

// ChatMessage is one turn of the assistant conversation for a video.
type ChatMessage struct {
	ID        string
	Sequence  int64
	StudentID string
	VideoID   string
	Role      string
	Content   string
	CreatedAt time.Time
}

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To

	Purpose string // LLM events only; empty matches all
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request. ID is its global sequence number.
type LLMRequestEvent struct {
	ID        int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMPurposeUsage aggregates LLM calls per purpose.
type LLMPurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// LLMModelUsage aggregates token counts per model for cost estimates.
type LLMModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// CourseRepo manages courses and their ordered videos.
type CourseRepo interface {
	CreateCourse(ctx context.Context, c *Course) error
	GetCourse(ctx context.Context, id string) (*Course, error)
	ListCourses(ctx context.Context) ([]Course, error)

	// DeleteCourse removes the course, its videos and everything keyed by them.
	DeleteCourse(ctx context.Context, id string) error

	// AddVideo appends v at max(position)+1 and sets v.Position.
	AddVideo(ctx context.Context, v *Video) error
	GetVideo(ctx context.Context, id string) (*Video, error)
	UpdateVideo(ctx context.Context, v *Video) error

	// ListVideos returns the course's videos ordered by position, then ID.
	ListVideos(ctx context.Context, courseID string) ([]Video, error)

	// SetOrder rewrites positions so that videoIDs[i] has position i+1.
	// videoIDs must be exactly the course's videos.
	SetOrder(ctx context.Context, courseID string, videoIDs []string) error

	// RemoveVideo deletes the video and its dependents, then renumbers the
	// remaining videos to 1..N.
	RemoveVideo(ctx context.Context, courseID, videoID string) error
}

// ProgressRepo stores per-student video progress.
type ProgressRepo interface {
	// GetProgress returns nil, nil when no row exists.
	GetProgress(ctx context.Context, studentID, videoID string) (*VideoProgress, error)

	// ApplyProgress reads the current row, calls fn and writes its result,
	// all within one transaction.
	ApplyProgress(ctx context.Context, studentID, videoID string, fn ProgressFunc) (*VideoProgress, error)

	// ListProgress returns the rows for the given videos keyed by video ID.
	ListProgress(ctx context.Context, studentID string, videoIDs []string) (map[string]VideoProgress, error)
}

// QuizRepo stores generated quizzes and per-student quiz completions.
type QuizRepo interface {
	SaveQuiz(ctx context.Context, q *Quiz) error
	// GetQuiz returns nil, nil when the video has no quiz.
	GetQuiz(ctx context.Context, videoID string) (*Quiz, error)
	DeleteQuiz(ctx context.Context, videoID string) error
	// VideosWithQuiz reports which of videoIDs have a quiz.
	VideosWithQuiz(ctx context.Context, videoIDs []string) (map[string]bool, error)

	IsQuizCompleted(ctx context.Context, studentID, videoID string) (bool, error)
	// MarkQuizCompleted is idempotent; the first completion time is kept.
	// It reports whether a new completion was recorded.
	MarkQuizCompleted(ctx context.Context, studentID, videoID string) (bool, error)
	// PassedFor reports which of videoIDs the student has passed.
	PassedFor(ctx context.Context, studentID string, videoIDs []string) (map[string]bool, error)
}

// TranscriptRepo stores video transcripts.
type TranscriptRepo interface {
	SaveTranscript(ctx context.Context, t *Transcript) error
	// GetTranscript returns ErrNotFound when the video has no transcript.
	GetTranscript(ctx context.Context, videoID string) (*Transcript, error)
}

// NoteRepo stores one note per (student, video).
type NoteRepo interface {
	SaveNote(ctx context.Context, n *Note) error
	// GetNote returns nil, nil when the student has no note for the video.
	GetNote(ctx context.Context, studentID, videoID string) (*Note, error)
}

// ChatRepo stores assistant conversations.
type ChatRepo interface {
	AppendChatMessage(ctx context.Context, m *ChatMessage) error
	// ChatHistory returns the most recent limit messages in chronological
	// order (limit 0 = all).
	ChatHistory(ctx context.Context, studentID, videoID string, limit int) ([]ChatMessage, error)
	ClearChat(ctx context.Context, studentID, videoID string) error
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)
	// GetLLMEvent returns nil, nil when no event has the given ID.
	GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error)
	LLMUsageByPurpose(ctx context.Context) ([]LLMPurposeUsage, error)
	LLMUsageByModel(ctx context.Context) ([]LLMModelUsage, error)
}

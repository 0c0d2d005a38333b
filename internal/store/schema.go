package store

import (
	"context"
	"fmt"
	"math"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table names.
const (
	tableCourses         = "courses"
	tableVideos          = "videos"
	tableProgress        = "video_progress"
	tableQuizzes         = "quizzes"
	tableQuizCompletions = "quiz_completions"
	tableTranscripts     = "transcripts"
	tableNotes           = "notes"
	tableChatMessages    = "chat_messages"
	tableLLMEvents       = "llm_request_events"
	tableSequence        = "global_sequence"
)

const textSize = math.MaxInt32

var (
	coursesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "title", Type: field.TypeString},
		{Name: "description", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "thumbnail", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	coursesTable = &schema.Table{
		Name:       tableCourses,
		Columns:    coursesColumns,
		PrimaryKey: []*schema.Column{coursesColumns[0]},
	}

	videosColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "course_id", Type: field.TypeString, Size: 36},
		{Name: "title", Type: field.TypeString},
		{Name: "description", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "url", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "thumbnail", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "duration_seconds", Type: field.TypeInt, Default: 0},
		{Name: "position", Type: field.TypeInt},
		{Name: "created_at", Type: field.TypeTime},
	}
	videosTable = &schema.Table{
		Name:       tableVideos,
		Columns:    videosColumns,
		PrimaryKey: []*schema.Column{videosColumns[0]},
		ForeignKeys: []*schema.ForeignKey{{
			Symbol:     "videos_courses_videos",
			Columns:    []*schema.Column{videosColumns[1]},
			RefTable:   coursesTable,
			RefColumns: []*schema.Column{coursesColumns[0]},
			OnDelete:   schema.Cascade,
		}},
		// Not unique: positions shift one row at a time during reorder.
		Indexes: []*schema.Index{{
			Name:    "video_course_id_position",
			Columns: []*schema.Column{videosColumns[1], videosColumns[7]},
		}},
	}

	progressColumns = []*schema.Column{
		{Name: "student_id", Type: field.TypeString, Size: 128},
		{Name: "video_id", Type: field.TypeString, Size: 36},
		{Name: "watched_percent", Type: field.TypeInt, Default: 0},
		{Name: "playback_position_seconds", Type: field.TypeInt, Default: 0},
		{Name: "completed", Type: field.TypeBool, Default: false},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	progressTable = &schema.Table{
		Name:        tableProgress,
		Columns:     progressColumns,
		PrimaryKey:  []*schema.Column{progressColumns[0], progressColumns[1]},
		ForeignKeys: []*schema.ForeignKey{videoFK("video_progress_videos", progressColumns[1])},
		Indexes: []*schema.Index{{
			Name:    "videoprogress_video_id",
			Columns: []*schema.Column{progressColumns[1]},
		}},
	}

	quizzesColumns = []*schema.Column{
		{Name: "video_id", Type: field.TypeString, Size: 36},
		{Name: "questions", Type: field.TypeString, Size: textSize},
		{Name: "model", Type: field.TypeString, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	quizzesTable = &schema.Table{
		Name:        tableQuizzes,
		Columns:     quizzesColumns,
		PrimaryKey:  []*schema.Column{quizzesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{videoFK("quizzes_videos", quizzesColumns[0])},
	}

	quizCompletionsColumns = []*schema.Column{
		{Name: "student_id", Type: field.TypeString, Size: 128},
		{Name: "video_id", Type: field.TypeString, Size: 36},
		{Name: "passed", Type: field.TypeBool, Default: true},
		{Name: "completed_at", Type: field.TypeTime},
	}
	quizCompletionsTable = &schema.Table{
		Name:        tableQuizCompletions,
		Columns:     quizCompletionsColumns,
		PrimaryKey:  []*schema.Column{quizCompletionsColumns[0], quizCompletionsColumns[1]},
		ForeignKeys: []*schema.ForeignKey{videoFK("quiz_completions_videos", quizCompletionsColumns[1])},
	}

	transcriptsColumns = []*schema.Column{
		{Name: "video_id", Type: field.TypeString, Size: 36},
		{Name: "video_title", Type: field.TypeString, Default: ""},
		{Name: "chunks", Type: field.TypeString, Size: textSize},
		{Name: "full_text", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	transcriptsTable = &schema.Table{
		Name:        tableTranscripts,
		Columns:     transcriptsColumns,
		PrimaryKey:  []*schema.Column{transcriptsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{videoFK("transcripts_videos", transcriptsColumns[0])},
	}

	notesColumns = []*schema.Column{
		{Name: "student_id", Type: field.TypeString, Size: 128},
		{Name: "video_id", Type: field.TypeString, Size: 36},
		{Name: "title", Type: field.TypeString, Default: ""},
		{Name: "content", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "updated_at", Type: field.TypeTime},
	}
	notesTable = &schema.Table{
		Name:        tableNotes,
		Columns:     notesColumns,
		PrimaryKey:  []*schema.Column{notesColumns[0], notesColumns[1]},
		ForeignKeys: []*schema.ForeignKey{videoFK("notes_videos", notesColumns[1])},
	}

	chatColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "student_id", Type: field.TypeString, Size: 128},
		{Name: "video_id", Type: field.TypeString, Size: 36},
		{Name: "role", Type: field.TypeString, Size: 16},
		{Name: "content", Type: field.TypeString, Size: textSize},
		{Name: "created_at", Type: field.TypeTime},
	}
	chatTable = &schema.Table{
		Name:        tableChatMessages,
		Columns:     chatColumns,
		PrimaryKey:  []*schema.Column{chatColumns[0]},
		ForeignKeys: []*schema.ForeignKey{videoFK("chat_messages_videos", chatColumns[3])},
		Indexes: []*schema.Index{{
			Name:    "chatmessage_student_id_video_id_sequence",
			Columns: []*schema.Column{chatColumns[2], chatColumns[3], chatColumns[1]},
		}},
	}

	llmEventsColumns = []*schema.Column{
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString, Default: ""},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: textSize, Default: ""},
	}
	llmEventsTable = &schema.Table{
		Name:       tableLLMEvents,
		Columns:    llmEventsColumns,
		PrimaryKey: []*schema.Column{llmEventsColumns[0]},
	}

	sequenceColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt},
		{Name: "next_val", Type: field.TypeInt64, Default: 1},
	}
	sequenceTable = &schema.Table{
		Name:       tableSequence,
		Columns:    sequenceColumns,
		PrimaryKey: []*schema.Column{sequenceColumns[0]},
	}

	// tables lists every table in creation order.
	tables = []*schema.Table{
		coursesTable,
		videosTable,
		progressTable,
		quizzesTable,
		quizCompletionsTable,
		transcriptsTable,
		notesTable,
		chatTable,
		llmEventsTable,
		sequenceTable,
	}

	// videoDependents are the tables keyed by video_id, deleted before
	// their video.
	videoDependents = []string{
		tableProgress,
		tableQuizzes,
		tableQuizCompletions,
		tableTranscripts,
		tableNotes,
		tableChatMessages,
	}
)

// videoFK declares a cascading reference from c to videos.id, so deleting a
// video (or its course) removes progress, quiz state, transcripts, notes and chat.
func videoFK(symbol string, c *schema.Column) *schema.ForeignKey {
	return &schema.ForeignKey{
		Symbol:     symbol,
		Columns:    []*schema.Column{c},
		RefTable:   videosTable,
		RefColumns: []*schema.Column{videosColumns[0]},
		OnDelete:   schema.Cascade,
	}
}

// migrate creates or extends the schema in append-only mode and seeds the
// global sequence row.
func (s *Store) migrate(ctx context.Context) error {
	drv := entsql.OpenDB(s.dialect, s.db)
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	if err := m.Create(ctx, tables...); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	seed := s.builder().Insert(tableSequence).
		Columns("id", "next_val").
		Values(1, 1).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing())
	if _, err := exec(ctx, s.db, seed); err != nil {
		return fmt.Errorf("seed sequence: %w", err)
	}
	return nil
}

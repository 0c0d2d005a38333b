package progress

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abhisek/lumora/internal/store"
)

// CourseProgress aggregates a student's records across one course.
type CourseProgress struct {
	CourseID  string
	Records   map[string]Record // by video ID; videos never reported are absent
	Completed int
	Total     int
	Percent   int // Completed*100/Total, rounded down; 0 for an empty course
}

// Service applies samples to stored progress records.
type Service struct {
	repo    store.ProgressRepo
	courses store.CourseRepo
	logger  *slog.Logger
}

// NewService creates a progress service. A nil logger uses slog.Default().
func NewService(repo store.ProgressRepo, courses store.CourseRepo, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, courses: courses, logger: logger}
}

// UpsertProgress applies a player sample to the student's record for the
// video, creating it on first report. The read and write happen in one
// transaction so racing samples cannot lower the stored percent.
func (s *Service) UpsertProgress(ctx context.Context, studentID, videoID string, sample Sample) (Decision, error) {
	return s.apply(ctx, studentID, videoID, func(prev *Record) Decision {
		return Evaluate(prev, sample)
	})
}

// MarkEnded records the end-of-video event.
func (s *Service) MarkEnded(ctx context.Context, studentID, videoID string) (Decision, error) {
	return s.apply(ctx, studentID, videoID, EvaluateEnded)
}

func (s *Service) apply(ctx context.Context, studentID, videoID string, eval func(*Record) Decision) (Decision, error) {
	var d Decision
	rec, err := s.repo.ApplyProgress(ctx, studentID, videoID, func(prev *store.VideoProgress) (store.VideoProgress, error) {
		d = eval(prev)
		return d.Record, nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("save progress for video %s: %w", videoID, err)
	}
	d.Record = *rec

	for _, issue := range d.Issues {
		s.logger.Warn("progress sample sanitized",
			"student", studentID, "video", videoID,
			"field", issue.Field, "value", issue.Value, "reason", issue.Reason)
	}
	if d.JustCompleted {
		s.logger.Info("video completed", "student", studentID, "video", videoID,
			"percent", d.Record.WatchedPercent)
	}
	return d, nil
}

// GetProgress returns the student's record for the video, or nil.
func (s *Service) GetProgress(ctx context.Context, studentID, videoID string) (*Record, error) {
	rec, err := s.repo.GetProgress(ctx, studentID, videoID)
	if err != nil {
		return nil, fmt.Errorf("load progress for video %s: %w", videoID, err)
	}
	return rec, nil
}

// GetCourseProgress loads the student's records for every video in the
// course and computes the completed share.
func (s *Service) GetCourseProgress(ctx context.Context, studentID, courseID string) (*CourseProgress, error) {
	videos, err := s.courses.ListVideos(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list videos of course %s: %w", courseID, err)
	}
	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.ID
	}
	return s.ForVideos(ctx, studentID, courseID, ids)
}

// ForVideos is GetCourseProgress for an already listed set of videos.
func (s *Service) ForVideos(ctx context.Context, studentID, courseID string, videoIDs []string) (*CourseProgress, error) {
	records, err := s.repo.ListProgress(ctx, studentID, videoIDs)
	if err != nil {
		return nil, fmt.Errorf("load course progress: %w", err)
	}
	return Summarize(courseID, videoIDs, records), nil
}

// Summarize builds a CourseProgress from already loaded records.
func Summarize(courseID string, videoIDs []string, records map[string]Record) *CourseProgress {
	cp := &CourseProgress{CourseID: courseID, Records: records, Total: len(videoIDs)}
	for _, id := range videoIDs {
		if r, ok := records[id]; ok && r.Completed {
			cp.Completed++
		}
	}
	if cp.Total > 0 {
		cp.Percent = cp.Completed * 100 / cp.Total
	}
	return cp
}

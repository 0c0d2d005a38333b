// Package course manages the course catalog and the student's view of a
// course: which videos are open, where to resume, and what comes next.
package course

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/abhisek/lumora/internal/store"
	"github.com/abhisek/lumora/internal/unlock"
)

var (
	// ErrVideoNotInCourse is returned when a video ID belongs to another course.
	ErrVideoNotInCourse = errors.New("video is not in this course")
	// ErrInvalid marks rejected input such as an empty title.
	ErrInvalid = errors.New("invalid input")
)

// Catalog is the administrative side of courses and their videos.
type Catalog struct {
	repo   store.CourseRepo
	logger *slog.Logger
}

// NewCatalog creates a Catalog.
func NewCatalog(repo store.CourseRepo, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{repo: repo, logger: logger}
}

func (c *Catalog) CreateCourse(ctx context.Context, course *store.Course) error {
	course.Title = strings.TrimSpace(course.Title)
	if course.Title == "" {
		return fmt.Errorf("course title is empty: %w", ErrInvalid)
	}
	if err := c.repo.CreateCourse(ctx, course); err != nil {
		return err
	}
	c.logger.Info("course created", "course", course.ID, "title", course.Title)
	return nil
}

func (c *Catalog) GetCourse(ctx context.Context, id string) (*store.Course, error) {
	return c.repo.GetCourse(ctx, id)
}

func (c *Catalog) ListCourses(ctx context.Context) ([]store.Course, error) {
	return c.repo.ListCourses(ctx)
}

// DeleteCourse removes the course with its videos and all per-video data.
func (c *Catalog) DeleteCourse(ctx context.Context, id string) error {
	if err := c.repo.DeleteCourse(ctx, id); err != nil {
		return err
	}
	c.logger.Info("course deleted", "course", id)
	return nil
}

// Videos lists the course's videos in playback order.
func (c *Catalog) Videos(ctx context.Context, courseID string) ([]store.Video, error) {
	if _, err := c.repo.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return c.repo.ListVideos(ctx, courseID)
}

// AddVideo appends v to the end of its course.
func (c *Catalog) AddVideo(ctx context.Context, v *store.Video) error {
	if err := validateVideo(v); err != nil {
		return err
	}
	if err := c.repo.AddVideo(ctx, v); err != nil {
		return err
	}
	c.logger.Info("video added", "course", v.CourseID, "video", v.ID, "position", v.Position)
	return nil
}

// UpdateVideo changes a video's metadata. Position and course are not
// changed here; use MoveVideo.
func (c *Catalog) UpdateVideo(ctx context.Context, v *store.Video) error {
	if err := validateVideo(v); err != nil {
		return err
	}
	if _, err := c.videoInCourse(ctx, v.CourseID, v.ID); err != nil {
		return err
	}
	return c.repo.UpdateVideo(ctx, v)
}

func validateVideo(v *store.Video) error {
	v.Title = strings.TrimSpace(v.Title)
	switch {
	case v.Title == "":
		return fmt.Errorf("video title is empty: %w", ErrInvalid)
	case v.DurationSeconds < 0:
		return fmt.Errorf("negative duration %d: %w", v.DurationSeconds, ErrInvalid)
	}
	return nil
}

// Video returns videoID if it belongs to courseID.
func (c *Catalog) Video(ctx context.Context, courseID, videoID string) (*store.Video, error) {
	return c.videoInCourse(ctx, courseID, videoID)
}

func (c *Catalog) videoInCourse(ctx context.Context, courseID, videoID string) (*store.Video, error) {
	v, err := c.repo.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if v.CourseID != courseID {
		return nil, fmt.Errorf("video %s, course %s: %w", videoID, courseID, ErrVideoNotInCourse)
	}
	return v, nil
}

// MoveVideo puts videoID at the 1-based position target, shifting the
// videos in between. Targets outside 1..N are clamped. It returns the new
// order.
func (c *Catalog) MoveVideo(ctx context.Context, courseID, videoID string, target int) ([]store.Video, error) {
	if _, err := c.videoInCourse(ctx, courseID, videoID); err != nil {
		return nil, err
	}
	videos, err := c.orderedVideos(ctx, courseID)
	if err != nil {
		return nil, err
	}
	from := slices.IndexFunc(videos, func(v store.Video) bool { return v.ID == videoID })
	to := min(max(target, 1), len(videos)) - 1

	moved := videos[from]
	videos = slices.Delete(videos, from, from+1)
	videos = slices.Insert(videos, to, moved)

	if err := c.setOrder(ctx, courseID, videos); err != nil {
		return nil, err
	}
	c.logger.Info("video moved", "course", courseID, "video", videoID, "from", from+1, "to", to+1)
	return videos, nil
}

// RemoveVideo deletes a video with its progress, quiz, transcript, notes
// and chat, then closes the gap in positions.
func (c *Catalog) RemoveVideo(ctx context.Context, courseID, videoID string) error {
	if _, err := c.videoInCourse(ctx, courseID, videoID); err != nil {
		return err
	}
	if err := c.repo.RemoveVideo(ctx, courseID, videoID); err != nil {
		return err
	}
	c.logger.Info("video removed", "course", courseID, "video", videoID)
	return nil
}

// Renumber rewrites positions to 1..N in the order the unlock gate sees
// them, repairing gaps and collisions left by concurrent edits.
func (c *Catalog) Renumber(ctx context.Context, courseID string) ([]store.Video, error) {
	videos, err := c.orderedVideos(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return videos, c.setOrder(ctx, courseID, videos)
}

// orderedVideos lists the course's videos sorted by the gate's ordering.
func (c *Catalog) orderedVideos(ctx context.Context, courseID string) ([]store.Video, error) {
	videos, err := c.repo.ListVideos(ctx, courseID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]store.Video, len(videos))
	items := make([]unlock.Item, len(videos))
	for i, v := range videos {
		byID[v.ID] = v
		items[i] = unlock.Item{VideoID: v.ID, Position: v.Position}
	}
	out := make([]store.Video, 0, len(videos))
	for _, it := range unlock.Order(items) {
		out = append(out, byID[it.VideoID])
	}
	return out, nil
}

func (c *Catalog) setOrder(ctx context.Context, courseID string, videos []store.Video) error {
	ids := make([]string, len(videos))
	for i := range videos {
		ids[i] = videos[i].ID
		videos[i].Position = i + 1
	}
	return c.repo.SetOrder(ctx, courseID, ids)
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

var (
	courseFields = []string{"id", "title", "description", "thumbnail", "created_at"}
	videoFields  = []string{
		"id", "course_id", "title", "description", "url", "thumbnail",
		"duration_seconds", "position", "created_at",
	}
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// courseRepo implements CourseRepo.
type courseRepo struct {
	s *Store
}

func scanCourse(sc rowScanner) (Course, error) {
	var c Course
	err := sc.Scan(&c.ID, &c.Title, &c.Description, &c.Thumbnail, &c.CreatedAt)
	return c, err
}

func scanVideo(sc rowScanner) (Video, error) {
	var v Video
	err := sc.Scan(&v.ID, &v.CourseID, &v.Title, &v.Description, &v.URL, &v.Thumbnail,
		&v.DurationSeconds, &v.Position, &v.CreatedAt)
	return v, err
}

func (r *courseRepo) CreateCourse(ctx context.Context, c *Course) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	ins := r.s.builder().Insert(tableCourses).
		Columns(courseFields...).
		Values(c.ID, c.Title, c.Description, c.Thumbnail, c.CreatedAt)
	_, err := exec(ctx, r.s.db, ins)
	return wrapErr("create course", err)
}

func (r *courseRepo) GetCourse(ctx context.Context, id string) (*Course, error) {
	query, args := r.s.builder().Select(courseFields...).
		From(r.s.builder().Table(tableCourses)).
		Where(entsql.EQ("id", id)).
		Query()
	c, err := scanCourse(r.s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("course %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get course", err)
	}
	return &c, nil
}

func (r *courseRepo) ListCourses(ctx context.Context) ([]Course, error) {
	query, args := r.s.builder().Select(courseFields...).
		From(r.s.builder().Table(tableCourses)).
		OrderBy("created_at", "id").
		Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list courses", err)
	}
	defer rows.Close()

	var out []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, wrapErr("scan course", err)
		}
		out = append(out, c)
	}
	return out, wrapErr("list courses", rows.Err())
}

func (r *courseRepo) DeleteCourse(ctx context.Context, id string) error {
	err := r.s.withTx(ctx, func(tx *sql.Tx) error {
		// Dependents go first so the delete does not rely on cascades
		// being enabled on the connection.
		for _, t := range videoDependents {
			sub := r.s.builder().Select("id").
				From(r.s.builder().Table(tableVideos)).
				Where(entsql.EQ("course_id", id))
			del := r.s.builder().Delete(t).Where(entsql.In("video_id", sub))
			if _, err := exec(ctx, tx, del); err != nil {
				return fmt.Errorf("delete %s: %w", t, err)
			}
		}
		if _, err := exec(ctx, tx, r.s.builder().Delete(tableVideos).Where(entsql.EQ("course_id", id))); err != nil {
			return fmt.Errorf("delete videos: %w", err)
		}
		res, err := exec(ctx, tx, r.s.builder().Delete(tableCourses).Where(entsql.EQ("id", id)))
		if err != nil {
			return err
		}
		return requireAffected(res, "course "+id)
	})
	return wrapErr("delete course", err)
}

func (r *courseRepo) AddVideo(ctx context.Context, v *Video) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	err := r.s.withTx(ctx, func(tx *sql.Tx) error {
		if err := r.courseExists(ctx, tx, v.CourseID); err != nil {
			return err
		}

		query, args := r.s.builder().Select(entsql.Max("position")).
			From(r.s.builder().Table(tableVideos)).
			Where(entsql.EQ("course_id", v.CourseID)).
			Query()
		var maxPos sql.NullInt64
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&maxPos); err != nil {
			return fmt.Errorf("max position: %w", err)
		}
		v.Position = int(maxPos.Int64) + 1

		ins := r.s.builder().Insert(tableVideos).
			Columns(videoFields...).
			Values(v.ID, v.CourseID, v.Title, v.Description, v.URL, v.Thumbnail,
				v.DurationSeconds, v.Position, v.CreatedAt)
		_, err := exec(ctx, tx, ins)
		return err
	})
	return wrapErr("add video", err)
}

func (r *courseRepo) courseExists(ctx context.Context, q querier, id string) error {
	query, args := r.s.builder().Select("id").
		From(r.s.builder().Table(tableCourses)).
		Where(entsql.EQ("id", id)).
		Query()
	var got string
	err := q.QueryRowContext(ctx, query, args...).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("course %s: %w", id, ErrNotFound)
	}
	return err
}

func (r *courseRepo) GetVideo(ctx context.Context, id string) (*Video, error) {
	query, args := r.s.builder().Select(videoFields...).
		From(r.s.builder().Table(tableVideos)).
		Where(entsql.EQ("id", id)).
		Query()
	v, err := scanVideo(r.s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get video", err)
	}
	return &v, nil
}

func (r *courseRepo) UpdateVideo(ctx context.Context, v *Video) error {
	upd := r.s.builder().Update(tableVideos).
		Set("title", v.Title).
		Set("description", v.Description).
		Set("url", v.URL).
		Set("thumbnail", v.Thumbnail).
		Set("duration_seconds", v.DurationSeconds).
		Where(entsql.EQ("id", v.ID))
	res, err := exec(ctx, r.s.db, upd)
	if err != nil {
		return wrapErr("update video", err)
	}
	return wrapErr("update video", requireAffected(res, "video "+v.ID))
}

func (r *courseRepo) ListVideos(ctx context.Context, courseID string) ([]Video, error) {
	videos, err := r.listVideos(ctx, r.s.db, courseID)
	return videos, wrapErr("list videos", err)
}

func (r *courseRepo) listVideos(ctx context.Context, q querier, courseID string) ([]Video, error) {
	query, args := r.s.builder().Select(videoFields...).
		From(r.s.builder().Table(tableVideos)).
		Where(entsql.EQ("course_id", courseID)).
		OrderBy("position", "id").
		Query()
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *courseRepo) SetOrder(ctx context.Context, courseID string, videoIDs []string) error {
	err := r.s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := r.listVideos(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if len(current) != len(videoIDs) {
			return fmt.Errorf("order has %d videos, course has %d", len(videoIDs), len(current))
		}
		pos := make(map[string]int, len(current))
		for _, v := range current {
			pos[v.ID] = v.Position
		}
		for _, id := range videoIDs {
			if _, ok := pos[id]; !ok {
				return fmt.Errorf("video %s in course %s: %w", id, courseID, ErrNotFound)
			}
		}
		return r.writePositions(ctx, tx, pos, videoIDs)
	})
	return wrapErr("set video order", err)
}

// writePositions assigns position i+1 to ids[i], skipping rows whose
// position is already right.
func (r *courseRepo) writePositions(ctx context.Context, tx *sql.Tx, current map[string]int, ids []string) error {
	for i, id := range ids {
		if current[id] == i+1 {
			continue
		}
		upd := r.s.builder().Update(tableVideos).
			Set("position", i+1).
			Where(entsql.EQ("id", id))
		if _, err := exec(ctx, tx, upd); err != nil {
			return fmt.Errorf("set position of %s: %w", id, err)
		}
	}
	return nil
}

func (r *courseRepo) RemoveVideo(ctx context.Context, courseID, videoID string) error {
	err := r.s.withTx(ctx, func(tx *sql.Tx) error {
		for _, t := range videoDependents {
			if _, err := exec(ctx, tx, r.s.builder().Delete(t).Where(entsql.EQ("video_id", videoID))); err != nil {
				return fmt.Errorf("delete %s: %w", t, err)
			}
		}
		del := r.s.builder().Delete(tableVideos).
			Where(entsql.And(entsql.EQ("id", videoID), entsql.EQ("course_id", courseID)))
		res, err := exec(ctx, tx, del)
		if err != nil {
			return err
		}
		if err := requireAffected(res, "video "+videoID); err != nil {
			return err
		}

		rest, err := r.listVideos(ctx, tx, courseID)
		if err != nil {
			return err
		}
		current := make(map[string]int, len(rest))
		ids := make([]string, len(rest))
		for i, v := range rest {
			current[v.ID] = v.Position
			ids[i] = v.ID
		}
		return r.writePositions(ctx, tx, current, ids)
	})
	return wrapErr("remove video", err)
}

// requireAffected turns a zero-row write into ErrNotFound.
func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

var progressFields = []string{
	"student_id", "video_id", "watched_percent", "playback_position_seconds", "completed", "updated_at",
}

// progressRepo implements ProgressRepo.
type progressRepo struct {
	s *Store
}

func scanProgress(sc rowScanner) (VideoProgress, error) {
	var p VideoProgress
	err := sc.Scan(&p.StudentID, &p.VideoID, &p.WatchedPercent, &p.PlaybackPositionSeconds,
		&p.Completed, &p.UpdatedAt)
	return p, err
}

func (r *progressRepo) selectOne(studentID, videoID string) *entsql.Selector {
	return r.s.builder().Select(progressFields...).
		From(r.s.builder().Table(tableProgress)).
		Where(entsql.And(entsql.EQ("student_id", studentID), entsql.EQ("video_id", videoID)))
}

func (r *progressRepo) GetProgress(ctx context.Context, studentID, videoID string) (*VideoProgress, error) {
	query, args := r.selectOne(studentID, videoID).Query()
	p, err := scanProgress(r.s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get progress", err)
	}
	return &p, nil
}

func (r *progressRepo) ApplyProgress(ctx context.Context, studentID, videoID string, fn ProgressFunc) (*VideoProgress, error) {
	var out VideoProgress
	err := r.s.withTx(ctx, func(tx *sql.Tx) error {
		sel := r.selectOne(studentID, videoID)
		if r.s.dialect == dialect.Postgres {
			sel.ForUpdate()
		}
		query, args := sel.Query()

		var prev *VideoProgress
		p, err := scanProgress(tx.QueryRowContext(ctx, query, args...))
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("read progress: %w", err)
		default:
			prev = &p
		}

		next, err := fn(prev)
		if err != nil {
			return err
		}
		next.StudentID, next.VideoID = studentID, videoID
		next.UpdatedAt = time.Now().UTC()

		if prev == nil {
			ins := r.s.builder().Insert(tableProgress).
				Columns(append(progressFields, "created_at")...).
				Values(studentID, videoID, next.WatchedPercent, next.PlaybackPositionSeconds,
					next.Completed, next.UpdatedAt, next.UpdatedAt)
			if _, err := exec(ctx, tx, ins); err != nil {
				return fmt.Errorf("insert progress: %w", err)
			}
		} else {
			upd := r.s.builder().Update(tableProgress).
				Set("watched_percent", next.WatchedPercent).
				Set("playback_position_seconds", next.PlaybackPositionSeconds).
				Set("completed", next.Completed).
				Set("updated_at", next.UpdatedAt).
				Where(entsql.And(entsql.EQ("student_id", studentID), entsql.EQ("video_id", videoID)))
			if _, err := exec(ctx, tx, upd); err != nil {
				return fmt.Errorf("update progress: %w", err)
			}
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, wrapErr("apply progress", err)
	}
	return &out, nil
}

func (r *progressRepo) ListProgress(ctx context.Context, studentID string, videoIDs []string) (map[string]VideoProgress, error) {
	out := make(map[string]VideoProgress, len(videoIDs))
	if len(videoIDs) == 0 {
		return out, nil
	}
	query, args := r.s.builder().Select(progressFields...).
		From(r.s.builder().Table(tableProgress)).
		Where(entsql.And(entsql.EQ("student_id", studentID), entsql.In("video_id", anySlice(videoIDs)...))).
		Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list progress", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, wrapErr("scan progress", err)
		}
		out[p.VideoID] = p
	}
	return out, wrapErr("list progress", rows.Err())
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

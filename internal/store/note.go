package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// noteRepo implements NoteRepo.
type noteRepo struct {
	s *Store
}

func (r *noteRepo) SaveNote(ctx context.Context, n *Note) error {
	n.UpdatedAt = time.Now().UTC()
	ins := r.s.builder().Insert(tableNotes).
		Columns("student_id", "video_id", "title", "content", "updated_at").
		Values(n.StudentID, n.VideoID, n.Title, n.Content, n.UpdatedAt).
		OnConflict(
			entsql.ConflictColumns("student_id", "video_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("title")
				u.SetExcluded("content")
				u.SetExcluded("updated_at")
			}),
		)
	_, err := exec(ctx, r.s.db, ins)
	return wrapErr("save note", err)
}

func (r *noteRepo) GetNote(ctx context.Context, studentID, videoID string) (*Note, error) {
	query, args := r.s.builder().Select("student_id", "video_id", "title", "content", "updated_at").
		From(r.s.builder().Table(tableNotes)).
		Where(entsql.And(entsql.EQ("student_id", studentID), entsql.EQ("video_id", videoID))).
		Query()
	var n Note
	err := r.s.db.QueryRowContext(ctx, query, args...).
		Scan(&n.StudentID, &n.VideoID, &n.Title, &n.Content, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get note", err)
	}
	return &n, nil
}

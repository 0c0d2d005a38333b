package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// quizRepo implements QuizRepo.
type quizRepo struct {
	s *Store
}

func (r *quizRepo) SaveQuiz(ctx context.Context, q *Quiz) error {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	ins := r.s.builder().Insert(tableQuizzes).
		Columns("video_id", "questions", "model", "created_at").
		Values(q.VideoID, string(q.Questions), q.Model, q.CreatedAt).
		OnConflict(
			entsql.ConflictColumns("video_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("questions")
				u.SetExcluded("model")
				u.SetExcluded("created_at")
			}),
		)
	_, err := exec(ctx, r.s.db, ins)
	return wrapErr("save quiz", err)
}

func (r *quizRepo) GetQuiz(ctx context.Context, videoID string) (*Quiz, error) {
	query, args := r.s.builder().Select("video_id", "questions", "model", "created_at").
		From(r.s.builder().Table(tableQuizzes)).
		Where(entsql.EQ("video_id", videoID)).
		Query()
	var (
		q         Quiz
		questions string
	)
	err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&q.VideoID, &questions, &q.Model, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get quiz", err)
	}
	q.Questions = []byte(questions)
	return &q, nil
}

func (r *quizRepo) DeleteQuiz(ctx context.Context, videoID string) error {
	_, err := exec(ctx, r.s.db, r.s.builder().Delete(tableQuizzes).Where(entsql.EQ("video_id", videoID)))
	return wrapErr("delete quiz", err)
}

func (r *quizRepo) VideosWithQuiz(ctx context.Context, videoIDs []string) (map[string]bool, error) {
	out, err := r.videoSet(ctx, tableQuizzes, entsql.In("video_id", anySlice(videoIDs)...), len(videoIDs))
	return out, wrapErr("videos with quiz", err)
}

func (r *quizRepo) IsQuizCompleted(ctx context.Context, studentID, videoID string) (bool, error) {
	passed, err := r.PassedFor(ctx, studentID, []string{videoID})
	if err != nil {
		return false, err
	}
	return passed[videoID], nil
}

func (r *quizRepo) MarkQuizCompleted(ctx context.Context, studentID, videoID string) (bool, error) {
	ins := r.s.builder().Insert(tableQuizCompletions).
		Columns("student_id", "video_id", "passed", "completed_at").
		Values(studentID, videoID, true, time.Now().UTC()).
		OnConflict(entsql.ConflictColumns("student_id", "video_id"), entsql.DoNothing())
	res, err := exec(ctx, r.s.db, ins)
	if err != nil {
		return false, wrapErr("mark quiz completed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr("mark quiz completed", err)
	}
	return n > 0, nil
}

func (r *quizRepo) PassedFor(ctx context.Context, studentID string, videoIDs []string) (map[string]bool, error) {
	p := entsql.And(
		entsql.EQ("student_id", studentID),
		entsql.In("video_id", anySlice(videoIDs)...),
		entsql.EQ("passed", true),
	)
	out, err := r.videoSet(ctx, tableQuizCompletions, p, len(videoIDs))
	return out, wrapErr("passed quizzes", err)
}

// videoSet returns the video_id values of table matching p as a set.
func (r *quizRepo) videoSet(ctx context.Context, table string, p *entsql.Predicate, size int) (map[string]bool, error) {
	out := make(map[string]bool, size)
	if size == 0 {
		return out, nil
	}
	query, args := r.s.builder().Select("video_id").
		From(r.s.builder().Table(table)).
		Where(p).
		Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

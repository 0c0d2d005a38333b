package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// transcriptRepo implements TranscriptRepo.
type transcriptRepo struct {
	s *Store
}

func (r *transcriptRepo) SaveTranscript(ctx context.Context, t *Transcript) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	ins := r.s.builder().Insert(tableTranscripts).
		Columns("video_id", "video_title", "chunks", "full_text", "created_at", "updated_at").
		Values(t.VideoID, t.VideoTitle, string(t.Chunks), t.FullText, t.CreatedAt, t.UpdatedAt).
		OnConflict(
			entsql.ConflictColumns("video_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("video_title")
				u.SetExcluded("chunks")
				u.SetExcluded("full_text")
				u.SetExcluded("updated_at")
			}),
		)
	_, err := exec(ctx, r.s.db, ins)
	return wrapErr("save transcript", err)
}

func (r *transcriptRepo) GetTranscript(ctx context.Context, videoID string) (*Transcript, error) {
	query, args := r.s.builder().
		Select("video_id", "video_title", "chunks", "full_text", "created_at", "updated_at").
		From(r.s.builder().Table(tableTranscripts)).
		Where(entsql.EQ("video_id", videoID)).
		Query()
	var (
		t      Transcript
		chunks string
	)
	err := r.s.db.QueryRowContext(ctx, query, args...).
		Scan(&t.VideoID, &t.VideoTitle, &chunks, &t.FullText, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transcript for video %s: %w", videoID, ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get transcript", err)
	}
	t.Chunks = []byte(chunks)
	return &t, nil
}

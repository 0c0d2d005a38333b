package store

import (
	"context"
	"slices"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

var chatFields = []string{"id", "sequence", "student_id", "video_id", "role", "content", "created_at"}

// chatRepo implements ChatRepo.
type chatRepo struct {
	s *Store
}

func (r *chatRepo) AppendChatMessage(ctx context.Context, m *ChatMessage) error {
	seq, err := r.s.nextSequence(ctx)
	if err != nil {
		return wrapErr("append chat message", err)
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Sequence = seq

	ins := r.s.builder().Insert(tableChatMessages).
		Columns(chatFields...).
		Values(m.ID, m.Sequence, m.StudentID, m.VideoID, m.Role, m.Content, m.CreatedAt)
	_, err = exec(ctx, r.s.db, ins)
	return wrapErr("append chat message", err)
}

func (r *chatRepo) ChatHistory(ctx context.Context, studentID, videoID string, limit int) ([]ChatMessage, error) {
	sel := r.s.builder().Select(chatFields...).
		From(r.s.builder().Table(tableChatMessages)).
		Where(entsql.And(entsql.EQ("student_id", studentID), entsql.EQ("video_id", videoID))).
		OrderBy(entsql.Desc("sequence"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("chat history", err)
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.Sequence, &m.StudentID, &m.VideoID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, wrapErr("scan chat message", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("chat history", err)
	}
	slices.Reverse(out)
	return out, nil
}

func (r *chatRepo) ClearChat(ctx context.Context, studentID, videoID string) error {
	del := r.s.builder().Delete(tableChatMessages).
		Where(entsql.And(entsql.EQ("student_id", studentID), entsql.EQ("video_id", videoID)))
	_, err := exec(ctx, r.s.db, del)
	return wrapErr("clear chat", err)
}

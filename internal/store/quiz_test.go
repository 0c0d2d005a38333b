package store

import (
	"context"
	"testing"
)

func TestQuizSaveGetReplace(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, v := seedCourse(t, s, 2)
	repo := s.Quizzes()

	q, err := repo.GetQuiz(ctx, v[0].ID)
	if err != nil || q != nil {
		t.Fatalf("get before save = %+v, %v", q, err)
	}

	if err := repo.SaveQuiz(ctx, &Quiz{VideoID: v[0].ID, Questions: []byte(`[1]`), Model: "m1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.SaveQuiz(ctx, &Quiz{VideoID: v[0].ID, Questions: []byte(`[2]`), Model: "m2"}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	q, err = repo.GetQuiz(ctx, v[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(q.Questions) != `[2]` || q.Model != "m2" {
		t.Errorf("quiz = %+v", q)
	}

	has, err := repo.VideosWithQuiz(ctx, []string{v[0].ID, v[1].ID})
	if err != nil {
		t.Fatalf("videos with quiz: %v", err)
	}
	if !has[v[0].ID] || has[v[1].ID] {
		t.Errorf("has quiz = %v", has)
	}

	if err := repo.DeleteQuiz(ctx, v[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if q, _ := repo.GetQuiz(ctx, v[0].ID); q != nil {
		t.Error("quiz survived delete")
	}
}

func TestMarkQuizCompletedIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, v := seedCourse(t, s, 2)
	repo := s.Quizzes()

	done, err := repo.IsQuizCompleted(ctx, "alice", v[0].ID)
	if err != nil || done {
		t.Fatalf("completed before mark = %v, %v", done, err)
	}

	created, err := repo.MarkQuizCompleted(ctx, "alice", v[0].ID)
	if err != nil || !created {
		t.Fatalf("first mark = %v, %v; want true", created, err)
	}
	var first string
	if err := s.DB().QueryRow(`SELECT completed_at FROM quiz_completions`).Scan(&first); err != nil {
		t.Fatalf("read completed_at: %v", err)
	}

	created, err = repo.MarkQuizCompleted(ctx, "alice", v[0].ID)
	if err != nil || created {
		t.Fatalf("second mark = %v, %v; want false", created, err)
	}
	var second string
	if err := s.DB().QueryRow(`SELECT completed_at FROM quiz_completions`).Scan(&second); err != nil {
		t.Fatalf("read completed_at: %v", err)
	}
	if first != second {
		t.Errorf("completed_at changed: %q -> %q", first, second)
	}

	passed, err := repo.PassedFor(ctx, "alice", []string{v[0].ID, v[1].ID})
	if err != nil {
		t.Fatalf("passed for: %v", err)
	}
	if !passed[v[0].ID] || passed[v[1].ID] {
		t.Errorf("passed = %v", passed)
	}
	if other, _ := repo.IsQuizCompleted(ctx, "bob", v[0].ID); other {
		t.Error("completion leaked to another student")
	}
}

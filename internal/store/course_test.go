package store

import (
	"context"
	"errors"
	"testing"
)

func positions(t *testing.T, s *Store, courseID string) map[string]int {
	t.Helper()
	videos, err := s.Courses().ListVideos(context.Background(), courseID)
	if err != nil {
		t.Fatalf("list videos: %v", err)
	}
	out := make(map[string]int, len(videos))
	for _, v := range videos {
		out[v.Title] = v.Position
	}
	return out
}

func TestCourseCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Courses()

	c := &Course{Title: "Algebra", Description: "Intro"}
	if err := repo.CreateCourse(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := repo.GetCourse(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Algebra" || got.Description != "Intro" {
		t.Errorf("course = %+v", got)
	}

	list, err := repo.ListCourses(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len(courses) = %d, want 1", len(list))
	}

	if _, err := repo.GetCourse(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get missing: err = %v, want ErrNotFound", err)
	}
}

func TestAddVideoAppends(t *testing.T) {
	s := openTestStore(t)
	c, videos := seedCourse(t, s, 3)

	for i, v := range videos {
		if v.Position != i+1 {
			t.Errorf("%s position = %d, want %d", v.Title, v.Position, i+1)
		}
	}

	err := s.Courses().AddVideo(context.Background(), &Video{CourseID: "nope", Title: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("add to missing course: err = %v, want ErrNotFound", err)
	}

	got, err := s.Courses().GetVideo(context.Background(), videos[1].ID)
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if got.CourseID != c.ID || got.DurationSeconds != 600 {
		t.Errorf("video = %+v", got)
	}
}

func TestUpdateVideo(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, videos := seedCourse(t, s, 1)

	v := videos[0]
	v.Title = "Renamed"
	v.DurationSeconds = 120
	v.Position = 99 // ignored
	if err := s.Courses().UpdateVideo(ctx, &v); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.Courses().GetVideo(ctx, v.ID)
	if got.Title != "Renamed" || got.DurationSeconds != 120 || got.Position != 1 {
		t.Errorf("video = %+v", got)
	}

	if err := s.Courses().UpdateVideo(ctx, &Video{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing: err = %v, want ErrNotFound", err)
	}
}

func TestSetOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c, v := seedCourse(t, s, 3)

	if err := s.Courses().SetOrder(ctx, c.ID, []string{v[2].ID, v[0].ID, v[1].ID}); err != nil {
		t.Fatalf("set order: %v", err)
	}
	want := map[string]int{"V3": 1, "V1": 2, "V2": 3}
	got := positions(t, s, c.ID)
	for title, pos := range want {
		if got[title] != pos {
			t.Errorf("%s position = %d, want %d", title, got[title], pos)
		}
	}

	if err := s.Courses().SetOrder(ctx, c.ID, []string{v[0].ID}); err == nil {
		t.Error("expected error for partial order")
	}
}

func TestRemoveVideoRenumbersAndCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c, v := seedCourse(t, s, 4)

	_, err := s.Progress().ApplyProgress(ctx, "alice", v[1].ID, func(*VideoProgress) (VideoProgress, error) {
		return VideoProgress{WatchedPercent: 50}, nil
	})
	if err != nil {
		t.Fatalf("apply progress: %v", err)
	}
	if _, err := s.Quizzes().MarkQuizCompleted(ctx, "alice", v[1].ID); err != nil {
		t.Fatalf("mark quiz: %v", err)
	}

	if err := s.Courses().RemoveVideo(ctx, c.ID, v[1].ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	want := map[string]int{"V1": 1, "V3": 2, "V4": 3}
	got := positions(t, s, c.ID)
	if len(got) != 3 {
		t.Fatalf("len(videos) = %d, want 3", len(got))
	}
	for title, pos := range want {
		if got[title] != pos {
			t.Errorf("%s position = %d, want %d", title, got[title], pos)
		}
	}

	p, err := s.Progress().GetProgress(ctx, "alice", v[1].ID)
	if err != nil || p != nil {
		t.Errorf("progress after delete = %+v, %v; want nil", p, err)
	}
	done, _ := s.Quizzes().IsQuizCompleted(ctx, "alice", v[1].ID)
	if done {
		t.Error("quiz completion survived video delete")
	}

	if err := s.Courses().RemoveVideo(ctx, c.ID, v[1].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("remove twice: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteCourseCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c, v := seedCourse(t, s, 2)

	if err := s.Notes().SaveNote(ctx, &Note{StudentID: "alice", VideoID: v[0].ID, Content: "hi"}); err != nil {
		t.Fatalf("save note: %v", err)
	}
	_, err := s.Progress().ApplyProgress(ctx, "alice", v[1].ID, func(*VideoProgress) (VideoProgress, error) {
		return VideoProgress{WatchedPercent: 100, Completed: true}, nil
	})
	if err != nil {
		t.Fatalf("apply progress: %v", err)
	}
	if _, err := s.Quizzes().MarkQuizCompleted(ctx, "alice", v[1].ID); err != nil {
		t.Fatalf("mark quiz: %v", err)
	}
	if err := s.Courses().DeleteCourse(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Courses().GetVideo(ctx, v[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("video after course delete: err = %v, want ErrNotFound", err)
	}
	n, err := s.Notes().GetNote(ctx, "alice", v[0].ID)
	if err != nil || n != nil {
		t.Errorf("note after course delete = %+v, %v; want nil", n, err)
	}
	p, err := s.Progress().GetProgress(ctx, "alice", v[1].ID)
	if err != nil || p != nil {
		t.Errorf("progress after course delete = %+v, %v; want nil", p, err)
	}
	if done, _ := s.Quizzes().IsQuizCompleted(ctx, "alice", v[1].ID); done {
		t.Error("quiz completion survived course delete")
	}
	if err := s.Courses().DeleteCourse(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete twice: err = %v, want ErrNotFound", err)
	}
}

package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/abhisek/lumora/internal/llm"
	"github.com/abhisek/lumora/internal/store"
	"github.com/abhisek/lumora/internal/transcript"
	"github.com/google/uuid"
)

func testDoc() *transcript.Document {
	return &transcript.Document{
		Chunks: []transcript.Chunk{
			{Text: "A goroutine is a lightweight thread.", Start: 0, End: 30},
			{Text: "Channels connect goroutines.", Start: 30, End: 90},
		},
		Text: "A goroutine is a lightweight thread. Channels connect goroutines.",
	}
}

func validQuizJSON() json.RawMessage {
	return json.RawMessage(`{"questions": [
		{
			"question": "What connects goroutines?",
			"options": ["Mutexes", "Channels", "Files", "Sockets"],
			"correctAnswer": 1,
			"explanation": "Channels are the connection between goroutines.",
			"startTime": 30,
			"reinforcementQuestions": [
				{"question": "Channels are used to...", "options": ["communicate", "compile", "format", "lint"], "correctAnswer": 0, "explanation": "They pass values."}
			]
		},
		{
			"question": "A goroutine is a...",
			"options": ["process", "lightweight thread", "file", "package"],
			"correctAnswer": 1,
			"explanation": "Stated at the start.",
			"startTime": 2,
			"reinforcementQuestions": []
		}
	]}`)
}

func TestGenerate_Valid(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: validQuizJSON()})
	gen := New(mock, DefaultConfig())

	qs, err := gen.Generate(context.Background(), "Concurrency", testDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("got %d questions, want 2", len(qs))
	}
	if qs[0].CorrectAnswer != 1 || qs[0].StartTime != 30 {
		t.Errorf("unexpected first question: %+v", qs[0])
	}
	if len(qs[0].ReinforcementQuestions) != 1 {
		t.Errorf("expected 1 reinforcement question, got %d", len(qs[0].ReinforcementQuestions))
	}

	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
	req := mock.Calls[0]
	if req.Schema != QuizSchema {
		t.Error("expected the quiz schema on the request")
	}
	msg := req.Messages[0].Content
	if !strings.Contains(msg, "Video: Concurrency") || !strings.Contains(msg, "[00:30] Channels connect goroutines.") {
		t.Errorf("user message missing title or transcript:\n%s", msg)
	}
}

func TestGenerate_ValidatorRejects(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		validator string
	}{
		{
			name:      "three options",
			body:      `{"questions":[{"question":"q","options":["a","b","c"],"correctAnswer":0,"explanation":"e","startTime":1,"reinforcementQuestions":[]}]}`,
			validator: "structural",
		},
		{
			name:      "answer out of range",
			body:      `{"questions":[{"question":"q","options":["a","b","c","d"],"correctAnswer":4,"explanation":"e","startTime":1,"reinforcementQuestions":[]}]}`,
			validator: "structural",
		},
		{
			name:      "duplicate options",
			body:      `{"questions":[{"question":"q","options":["a","A","c","d"],"correctAnswer":0,"explanation":"e","startTime":1,"reinforcementQuestions":[]}]}`,
			validator: "structural",
		},
		{
			name:      "start past end",
			body:      `{"questions":[{"question":"q","options":["a","b","c","d"],"correctAnswer":0,"explanation":"e","startTime":500,"reinforcementQuestions":[]}]}`,
			validator: "timeline",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(tt.body)})
			_, err := New(mock, DefaultConfig()).Generate(context.Background(), "v", testDoc())
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Validator != tt.validator {
				t.Errorf("validator = %q, want %q", verr.Validator, tt.validator)
			}
		})
	}
}

func TestGenerate_ProviderError(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrRateLimit{}})
	_, err := New(mock, DefaultConfig()).Generate(context.Background(), "v", testDoc())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGenerate_EmptyTranscript(t *testing.T) {
	mock := llm.NewMockProvider()
	_, err := New(mock, DefaultConfig()).Generate(context.Background(), "v", &transcript.Document{})
	if !errors.Is(err, transcript.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if mock.CallCount() != 0 {
		t.Error("provider must not be called without a transcript")
	}
}

func TestGrade(t *testing.T) {
	qs := make([]Question, 10)
	for i := range qs {
		qs[i].CorrectAnswer = i % OptionCount
	}
	answers := func(correct int) []int {
		out := make([]int, len(qs))
		for i := range out {
			out[i] = qs[i].CorrectAnswer
			if i >= correct {
				out[i] = (qs[i].CorrectAnswer + 1) % OptionCount
			}
		}
		return out
	}

	tests := []struct {
		name    string
		answers []int
		ratio   float64
		correct int
		passed  bool
	}{
		{"all correct", answers(10), 0.7, 10, true},
		{"exactly at ratio", answers(7), 0.7, 7, true},
		{"just below", answers(6), 0.7, 6, false},
		{"missing answers are wrong", answers(10)[:5], 0.7, 5, false},
		{"invalid ratio uses default", answers(7), 0, 7, true},
		{"full marks required", answers(9), 1, 9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Grade(qs, tt.answers, tt.ratio)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Correct != tt.correct || res.Passed != tt.passed || res.Total != 10 {
				t.Errorf("got %+v, want correct=%d passed=%v", res, tt.correct, tt.passed)
			}
			if len(res.Wrong) != 10-tt.correct {
				t.Errorf("wrong = %v", res.Wrong)
			}
		})
	}

	if _, err := Grade(nil, nil, 0.7); err == nil {
		t.Error("expected error for empty quiz")
	}
	if _, err := Grade(qs[:1], []int{0, 1}, 0.7); !errors.Is(err, ErrBadSubmission) {
		t.Error("expected error for extra answers")
	}
}

func newTestService(t *testing.T, provider llm.Provider) (*Service, string) {
	t.Helper()
	s, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	c := &store.Course{Title: "Go"}
	if err := s.Courses().CreateCourse(ctx, c); err != nil {
		t.Fatalf("create course: %v", err)
	}
	v := &store.Video{CourseID: c.ID, Title: "Concurrency"}
	if err := s.Courses().AddVideo(ctx, v); err != nil {
		t.Fatalf("add video: %v", err)
	}

	ts := transcript.NewService(s.Transcripts(), s.Courses(), nil, nil)
	data, _ := json.Marshal(testDoc())
	if _, err := ts.Import(ctx, v.ID, data); err != nil {
		t.Fatalf("import transcript: %v", err)
	}

	var gen Generator
	if provider != nil {
		gen = New(provider, DefaultConfig())
	}
	return NewService(gen, s.Quizzes(), ts, DefaultConfig(), nil), v.ID
}

func TestService_GenerateAndSubmit(t *testing.T) {
	svc, videoID := newTestService(t, llm.NewMockProvider(llm.MockResponse{Content: validQuizJSON()}))
	ctx := context.Background()

	q, err := svc.Generate(ctx, videoID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if q.Model != "mock" {
		t.Errorf("model = %q, want mock", q.Model)
	}

	got, err := svc.Get(ctx, videoID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Questions) != 2 {
		t.Fatalf("stored %d questions, want 2", len(got.Questions))
	}

	sub, err := svc.Submit(ctx, "alice", videoID, []int{1, 0})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.Passed || sub.NewlyPassed {
		t.Errorf("1/2 must fail, got %+v", sub)
	}
	done, _ := svc.Tracker().IsQuizCompleted(ctx, "alice", videoID)
	if done {
		t.Error("failed attempt must not record completion")
	}

	sub, err = svc.Submit(ctx, "alice", videoID, []int{1, 1})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !sub.Passed || !sub.NewlyPassed || sub.Percent() != 100 {
		t.Errorf("expected first pass, got %+v", sub)
	}

	sub, err = svc.Submit(ctx, "alice", videoID, []int{1, 1})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !sub.Passed || sub.NewlyPassed {
		t.Errorf("second pass must not be new, got %+v", sub)
	}

	// A later failed attempt does not revoke the pass.
	if _, err := svc.Submit(ctx, "alice", videoID, []int{0, 0}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	done, _ = svc.Tracker().IsQuizCompleted(ctx, "alice", videoID)
	if !done {
		t.Error("pass must be permanent")
	}
}

func TestService_NoQuiz(t *testing.T) {
	svc, videoID := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Generate(ctx, videoID); !errors.Is(err, ErrNoGenerator) {
		t.Errorf("expected ErrNoGenerator, got %v", err)
	}
	if _, err := svc.Submit(ctx, "alice", videoID, []int{0}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Import(t *testing.T) {
	svc, videoID := newTestService(t, nil)
	ctx := context.Background()

	bad := []Question{{Question: "q", Options: []string{"a", "b"}, Explanation: "e"}}
	if _, err := svc.Import(ctx, videoID, bad); err == nil {
		t.Error("expected structural error")
	}

	good := []Question{{Question: "q", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 2, Explanation: "e"}}
	if _, err := svc.Import(ctx, videoID, good); err != nil {
		t.Fatalf("import: %v", err)
	}
	has, err := svc.Tracker().HasQuiz(ctx, []string{videoID, "other"})
	if err != nil {
		t.Fatalf("has quiz: %v", err)
	}
	if !has[videoID] || has["other"] {
		t.Errorf("has quiz = %v", has)
	}
}

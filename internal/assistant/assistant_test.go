package assistant

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/abhisek/lumora/internal/llm"
	"github.com/abhisek/lumora/internal/store"
	"github.com/abhisek/lumora/internal/transcript"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReferences(t *testing.T) {
	text := "See [timestamp](30) and later [timestamp](95). Ignore [timestamp](abc) and [timestamp](9999)."
	refs := ParseReferences(text, 120)
	require.Len(t, refs, 2)
	assert.Equal(t, 30, refs[0].Seconds)
	assert.Equal(t, 95, refs[1].Seconds)
	assert.Equal(t, strings.Index(text, "[timestamp](30)"), refs[0].Offset)

	assert.Len(t, ParseReferences(text, 0), 3, "no duration keeps every numeric citation")
}

func TestRender(t *testing.T) {
	assert.Equal(t, "at [05:45] and [1:00:00]", Render("at [timestamp](345) and [timestamp](3600)"))
	assert.Equal(t, "plain", Render("plain"))
}

func setup(t *testing.T, provider llm.Provider) (*Assistant, *store.Store, string) {
	t.Helper()
	s, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	c := &store.Course{Title: "Go"}
	require.NoError(t, s.Courses().CreateCourse(ctx, c))
	v := &store.Video{CourseID: c.ID, Title: "Interfaces"}
	require.NoError(t, s.Courses().AddVideo(ctx, v))

	ts := transcript.NewService(s.Transcripts(), s.Courses(), nil, nil)
	_, err = ts.Import(ctx, v.ID, []byte(`{"chunks":[
		{"text":"Interfaces are satisfied implicitly.","timestamp":[0,40]},
		{"text":"The empty interface holds any value.","timestamp":[40,100]}]}`))
	require.NoError(t, err)

	return New(provider, ts, s.Chat(), DefaultConfig(), nil), s, v.ID
}

func TestAsk(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`{"answer":"It is covered at [timestamp](40)."}`)},
		llm.MockResponse{Content: json.RawMessage(`{"answer":"Yes."}`)},
	)
	a, _, videoID := setup(t, mock)
	ctx := context.Background()

	ans, err := a.Ask(ctx, Request{StudentID: "alice", VideoID: videoID, Question: "Where is any explained?", CurrentTime: 12.7})
	require.NoError(t, err)
	assert.Equal(t, []Reference{{Seconds: 40, Offset: strings.Index(ans.Text, "[timestamp]")}}, ans.References)

	first := mock.Calls[0]
	assert.Contains(t, first.System, "Lecture: Interfaces")
	assert.Contains(t, first.System, "Current position: 12 seconds (00:12)")
	assert.Contains(t, first.System, "[00:40] The empty interface holds any value.")
	require.Len(t, first.Messages, 1)

	_, err = a.Ask(ctx, Request{StudentID: "alice", VideoID: videoID, Question: "Really?"})
	require.NoError(t, err)

	second := mock.Calls[1]
	require.Len(t, second.Messages, 3, "history replayed before the new question")
	assert.Equal(t, llm.RoleAssistant, second.Messages[1].Role)
	assert.Equal(t, "Really?", second.Messages[2].Content)

	hist, err := a.History(ctx, "alice", videoID)
	require.NoError(t, err)
	require.Len(t, hist, 4)
	assert.Equal(t, RoleUser, hist[0].Role)
	assert.Equal(t, "Yes.", hist[3].Content)

	require.NoError(t, a.Clear(ctx, "alice", videoID))
	hist, err = a.History(ctx, "alice", videoID)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestAskFailureKeepsHistoryClean(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	a, _, videoID := setup(t, mock)
	ctx := context.Background()

	_, err := a.Ask(ctx, Request{StudentID: "bob", VideoID: videoID, Question: "hello"})
	require.Error(t, err)

	hist, err := a.History(ctx, "bob", videoID)
	require.NoError(t, err)
	assert.Empty(t, hist)

	_, err = a.Ask(ctx, Request{StudentID: "bob", VideoID: videoID, Question: "  "})
	assert.Error(t, err)
}

func TestAskWithoutTranscript(t *testing.T) {
	a, _, _ := setup(t, llm.NewMockProvider())
	_, err := a.Ask(context.Background(), Request{StudentID: "bob", VideoID: "nope", Question: "hi"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

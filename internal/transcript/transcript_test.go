package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/abhisek/lumora/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "chunks": [
    {"text": " second ", "timestamp": [12.5, 20]},
    {"text": "first", "timestamp": [0, 12.5]},
    {"text": "   ", "timestamp": [20, 21]},
    {"text": "third", "timestamp": [20, null]}
  ],
  "text": ""
}`

func TestParseObject(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)
	require.Len(t, doc.Chunks, 3)

	assert.Equal(t, "first", doc.Chunks[0].Text)
	assert.Equal(t, "second", doc.Chunks[1].Text)
	assert.Equal(t, 20.0, doc.Chunks[2].Start)
	assert.Equal(t, 20.0, doc.Chunks[2].End, "missing end collapses to start")
	assert.Equal(t, "first second third", doc.Text)
	assert.Equal(t, 20.0, doc.Duration())
}

func TestParseBareArray(t *testing.T) {
	doc, err := Parse([]byte(`[{"text":"hello","timestamp":[1,2]}]`))
	require.NoError(t, err)
	assert.Equal(t, []Chunk{{Text: "hello", Start: 1, End: 2}}, doc.Chunks)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`{"chunks": []}`))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Parse([]byte(`{"chunks": [{"text":"x","timestamp":[-1,2]}]}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestChunkJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Chunk{Text: "hi", Start: 3, End: 4.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hi","timestamp":[3,4.5]}`, string(data))
}

func TestWindowAndAt(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	w := doc.Window(16, 1)
	require.Len(t, w, 1)
	assert.Equal(t, "second", w[0].Text)

	assert.Len(t, doc.Window(12.5, 0), 2, "boundary touches both chunks")
	assert.Empty(t, doc.Window(100, 5))

	c, ok := doc.At(5)
	assert.True(t, ok)
	assert.Equal(t, "first", c.Text)
	_, ok = doc.At(30)
	assert.False(t, ok)
}

func TestFormat(t *testing.T) {
	got := Format([]Chunk{{Text: "intro", Start: 5}, {Text: "deep dive", Start: 3725}})
	assert.Equal(t, "[00:05] intro\n[1:02:05] deep dive", got)
}

type fakeTranscriber struct {
	doc *Document
	err error
}

func (f fakeTranscriber) Transcribe(context.Context, string) (*Document, error) {
	return f.doc, f.err
}

func newTestService(t *testing.T, tr Transcriber) (*Service, string) {
	t.Helper()
	s, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	c := &store.Course{Title: "course"}
	require.NoError(t, s.Courses().CreateCourse(ctx, c))
	v := &store.Video{CourseID: c.ID, Title: "Pointers"}
	require.NoError(t, s.Courses().AddVideo(ctx, v))
	return NewService(s.Transcripts(), s.Courses(), tr, nil), v.ID
}

func TestServiceImportAndGet(t *testing.T) {
	svc, videoID := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, videoID)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = svc.Import(ctx, videoID, []byte(sampleDoc))
	require.NoError(t, err)

	got, err := svc.Get(ctx, videoID)
	require.NoError(t, err)
	assert.Equal(t, "Pointers", got.VideoTitle)
	assert.Len(t, got.Chunks, 3)
	assert.Equal(t, "first second third", got.Text)

	_, err = svc.Import(ctx, "missing", []byte(sampleDoc))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestServiceTranscribe(t *testing.T) {
	ctx := context.Background()

	svc, videoID := newTestService(t, nil)
	_, err := svc.Transcribe(ctx, videoID, "talk.mp3")
	assert.ErrorIs(t, err, ErrNoTranscriber)

	doc := &Document{Chunks: []Chunk{{Text: "spoken", Start: 0, End: 2}}, Text: "spoken"}
	svc, videoID = newTestService(t, fakeTranscriber{doc: doc})
	_, err = svc.Transcribe(ctx, videoID, "talk.mp3")
	require.NoError(t, err)

	got, err := svc.Get(ctx, videoID)
	require.NoError(t, err)
	assert.Equal(t, doc.Chunks, got.Chunks)
}

package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abhisek/lumora/internal/store"
)

// ErrNoTranscriber is returned by Transcribe when no speech-to-text backend
// is configured.
var ErrNoTranscriber = errors.New("no transcriber configured")

// Video is a stored transcript together with the title it was made for.
type Video struct {
	VideoID    string
	VideoTitle string
	*Document
}

// Service imports, generates and loads video transcripts.
type Service struct {
	repo        store.TranscriptRepo
	videos      store.CourseRepo
	transcriber Transcriber
	logger      *slog.Logger
}

// NewService creates a transcript service. transcriber may be nil.
func NewService(repo store.TranscriptRepo, videos store.CourseRepo, transcriber Transcriber, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, videos: videos, transcriber: transcriber, logger: logger}
}

// Import parses data and stores it as the transcript of videoID, replacing
// any previous one.
func (s *Service) Import(ctx context.Context, videoID string, data []byte) (*Video, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, videoID, doc)
}

// Transcribe runs speech-to-text on the media file at path and stores the
// result for videoID.
func (s *Service) Transcribe(ctx context.Context, videoID, path string) (*Video, error) {
	if s.transcriber == nil {
		return nil, ErrNoTranscriber
	}
	if _, err := s.videos.GetVideo(ctx, videoID); err != nil {
		return nil, err
	}
	doc, err := s.transcriber.Transcribe(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, videoID, doc)
}

func (s *Service) save(ctx context.Context, videoID string, doc *Document) (*Video, error) {
	v, err := s.videos.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	chunks, err := json.Marshal(doc.Chunks)
	if err != nil {
		return nil, fmt.Errorf("encode chunks: %w", err)
	}
	err = s.repo.SaveTranscript(ctx, &store.Transcript{
		VideoID:    videoID,
		VideoTitle: v.Title,
		Chunks:     chunks,
		FullText:   doc.Text,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("transcript saved", "video", videoID, "chunks", len(doc.Chunks))
	return &Video{VideoID: videoID, VideoTitle: v.Title, Document: doc}, nil
}

// Get loads the transcript of videoID. It returns store.ErrNotFound when the
// video has none.
func (s *Service) Get(ctx context.Context, videoID string) (*Video, error) {
	t, err := s.repo.GetTranscript(ctx, videoID)
	if err != nil {
		return nil, err
	}
	doc := &Document{Text: t.FullText}
	if err := json.Unmarshal(t.Chunks, &doc.Chunks); err != nil {
		return nil, fmt.Errorf("decode transcript %s: %w", videoID, err)
	}
	return &Video{VideoID: t.VideoID, VideoTitle: t.VideoTitle, Document: doc}, nil
}

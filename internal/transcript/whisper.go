package transcript

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// Transcriber turns a media file into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (*Document, error)
}

// WhisperConfig configures the OpenAI speech-to-text client.
type WhisperConfig struct {
	APIKey   string
	BaseURL  string
	Model    string // Default: whisper-1
	Language string
}

// WhisperTranscriber transcribes audio with the OpenAI Whisper API.
type WhisperTranscriber struct {
	client   *openai.Client
	model    string
	language string
}

// NewWhisperTranscriber creates a transcriber from cfg.
func NewWhisperTranscriber(cfg WhisperConfig) (*WhisperTranscriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required for transcription")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperTranscriber{
		client:   openai.NewClientWithConfig(oc),
		model:    model,
		language: cfg.Language,
	}, nil
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, path string) (*Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("media file: %w", err)
	}
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: path,
		Language: w.language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription: %w", err)
	}

	doc := &Document{Text: resp.Text}
	for _, seg := range resp.Segments {
		doc.Chunks = append(doc.Chunks, Chunk{Text: seg.Text, Start: seg.Start, End: seg.End})
	}
	if len(doc.Chunks) == 0 && resp.Text != "" {
		doc.Chunks = []Chunk{{Text: resp.Text, Start: 0, End: resp.Duration}}
	}
	if err := doc.normalize(); err != nil {
		return nil, err
	}
	return doc, nil
}

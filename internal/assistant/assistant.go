// Package assistant answers student questions about a video, grounded in
// its transcript, and keeps the conversation per student and video.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/abhisek/lumora/internal/llm"
	"github.com/abhisek/lumora/internal/store"
	"github.com/abhisek/lumora/internal/transcript"
)

// Chat roles as stored in history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Config tunes the assistant.
type Config struct {
	// HistoryTurns is how many previous messages are replayed to the model.
	HistoryTurns int
	MaxTokens    int
	Temperature  float64
}

// DefaultConfig returns the assistant defaults.
func DefaultConfig() Config {
	return Config{HistoryTurns: 12, MaxTokens: 1024, Temperature: 0.3}
}

// Request is one question from a student.
type Request struct {
	StudentID string
	VideoID   string
	Question  string
	// CurrentTime is the player position in seconds when the question was asked.
	CurrentTime float64
}

// Answer is the assistant's reply.
type Answer struct {
	Text       string
	References []Reference
}

var answerSchema = &llm.Schema{
	Name:        "assistant-answer",
	Description: "The assistant's reply to the student, in markdown",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": map[string]any{
				"type":        "string",
				"description": "Markdown reply. Transcript moments are cited as [timestamp](seconds).",
			},
		},
		"required":             []any{"answer"},
		"additionalProperties": false,
	},
}

// Assistant is the transcript-grounded question answerer.
type Assistant struct {
	provider    llm.Provider
	transcripts *transcript.Service
	chat        store.ChatRepo
	config      Config
	logger      *slog.Logger
}

// New creates an Assistant.
func New(provider llm.Provider, transcripts *transcript.Service, chat store.ChatRepo, cfg Config, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{provider: provider, transcripts: transcripts, chat: chat, config: cfg, logger: logger}
}

// Ask answers req.Question. The question and the answer are appended to the
// chat history only when the model call succeeds.
func (a *Assistant) Ask(ctx context.Context, req Request) (*Answer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, errors.New("question is empty")
	}
	t, err := a.transcripts.Get(ctx, req.VideoID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	history, err := a.chat.ChatHistory(ctx, req.StudentID, req.VideoID, a.config.HistoryTurns)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}

	msgs := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: question})

	resp, err := a.provider.Generate(llm.WithPurpose(ctx, llm.PurposeAssistant), llm.Request{
		System:      buildSystemPrompt(t, req.CurrentTime),
		Messages:    msgs,
		Schema:      answerSchema,
		MaxTokens:   a.config.MaxTokens,
		Temperature: a.config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("assistant generation failed: %w", err)
	}
	var out struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("failed to parse assistant response: %w", err)
	}

	for _, m := range []*store.ChatMessage{
		{StudentID: req.StudentID, VideoID: req.VideoID, Role: RoleUser, Content: question},
		{StudentID: req.StudentID, VideoID: req.VideoID, Role: RoleAssistant, Content: out.Answer},
	} {
		if err := a.chat.AppendChatMessage(ctx, m); err != nil {
			return nil, fmt.Errorf("save chat message: %w", err)
		}
	}

	refs := ParseReferences(out.Answer, t.Duration())
	a.logger.Debug("assistant answered", "video", req.VideoID, "refs", len(refs))
	return &Answer{Text: out.Answer, References: refs}, nil
}

// History returns the stored conversation, oldest first.
func (a *Assistant) History(ctx context.Context, studentID, videoID string) ([]store.ChatMessage, error) {
	return a.chat.ChatHistory(ctx, studentID, videoID, 0)
}

// Clear deletes the stored conversation.
func (a *Assistant) Clear(ctx context.Context, studentID, videoID string) error {
	return a.chat.ClearChat(ctx, studentID, videoID)
}

func buildSystemPrompt(t *transcript.Video, currentTime float64) string {
	if math.IsNaN(currentTime) || currentTime < 0 {
		currentTime = 0
	}
	var b strings.Builder
	b.WriteString(`You are the learning assistant for a video lecture. Help the student understand the lecture, find where topics are discussed, and give extra explanations or examples when asked.

Cite moments of the video as [timestamp](seconds) with whole seconds taken from the transcript, for example [timestamp](345). Do not write mm:ss yourself and do not use any other citation format.
If the student does not say which part they mean, assume the part around their current position.
`)
	fmt.Fprintf(&b, "\nLecture: %s\n", t.VideoTitle)
	fmt.Fprintf(&b, "Current position: %d seconds (%s)\n", int(currentTime), transcript.Clock(currentTime))
	b.WriteString("\nTranscript:\n")
	b.WriteString(transcript.Format(t.Chunks))
	return b.String()
}

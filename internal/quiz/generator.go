package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abhisek/lumora/internal/llm"
	"github.com/abhisek/lumora/internal/transcript"
)

// Generator produces quiz questions for a video.
type Generator interface {
	Generate(ctx context.Context, title string, doc *transcript.Document) ([]Question, error)
}

// LLMGenerator implements Generator using an LLM provider.
type LLMGenerator struct {
	provider llm.Provider
	config   Config
}

// New creates an LLMGenerator.
func New(provider llm.Provider, cfg Config) *LLMGenerator {
	return &LLMGenerator{provider: provider, config: cfg}
}

type quizOutput struct {
	Questions []Question `json:"questions"`
}

func (g *LLMGenerator) Generate(ctx context.Context, title string, doc *transcript.Document) ([]Question, error) {
	if doc == nil || len(doc.Chunks) == 0 {
		return nil, transcript.ErrEmpty
	}
	ctx = llm.WithPurpose(ctx, llm.PurposeQuizGen)

	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(title, doc, g.config)},
		},
		Schema:      QuizSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	var raw quizOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}
	if len(raw.Questions) == 0 {
		return nil, errors.New("LLM returned no questions")
	}

	for i := range raw.Questions {
		q := &raw.Questions[i]
		for _, v := range g.config.Validators {
			if verr := v.Validate(q, doc); verr != nil {
				verr.Question = i
				return nil, verr
			}
		}
	}
	return raw.Questions, nil
}

// ModelID reports the model behind the provider.
func (g *LLMGenerator) ModelID() string {
	return g.provider.ModelID()
}

// Package llm talks to hosted language models. Quiz generation and the
// lecture assistant both go through Provider, which returns JSON checked
// against the request's schema.
package llm

import (
	"context"
	"encoding/json"
)

// Provider is one model endpoint.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelID() string
}

// Request is a single generation call.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, asks the provider for structured output and the
	// reply is validated against it. Without a schema Content holds the
	// model's text unchanged.
	Schema *Schema

	MaxTokens   int // defaultMaxTokens when zero
	Temperature float64
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a JSON Schema document plus the name providers show the model.
type Schema struct {
	Name        string // kebab-case, e.g. "video-quiz"
	Description string
	Definition  map[string]any
}

type Response struct {
	Content    json.RawMessage
	Usage      Usage
	Model      string
	StopReason StopReason
}

// StopReason is normalized across providers.
type StopReason string

const (
	StopEnd       StopReason = "end"
	StopMaxTokens StopReason = "max_tokens"
)

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

func newUsage(in, out int) Usage {
	return Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
}

const defaultMaxTokens = 2048

func maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return defaultMaxTokens
}

// finish turns provider output into a Response. Structured output cut off
// by the token limit is reported as ErrMaxTokensExceeded rather than as a
// schema failure.
func finish(req Request, text string, usage Usage, model string, stop StopReason) (*Response, error) {
	content := json.RawMessage(text)
	if req.Schema != nil {
		if stop == StopMaxTokens {
			return nil, &ErrMaxTokensExceeded{Content: content}
		}
		if err := validateResponse(req.Schema, content); err != nil {
			return nil, err
		}
	}
	return &Response{Content: content, Usage: usage, Model: model, StopReason: stop}, nil
}

// alias resolves a short model name; unknown names are passed through as
// provider model IDs.
func alias(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}

// named is implemented by providers that know their vendor name.
type named interface {
	Name() string
}

func providerName(p Provider) string {
	if n, ok := p.(named); ok {
		return n.Name()
	}
	return "unknown"
}

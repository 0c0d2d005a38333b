package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/lumora/internal/store"
)

type logged struct {
	inner  Provider
	events store.EventRepo
	logger *slog.Logger
}

// WithLogging records each call as an LLM request event and logs it at
// debug level. A nil repo only logs.
func WithLogging(p Provider, events store.EventRepo) Provider {
	return &logged{inner: p, events: events, logger: slog.Default().With("component", "llm")}
}

func (l *logged) ModelID() string { return l.inner.ModelID() }
func (l *logged) Name() string    { return providerName(l.inner) }

func (l *logged) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	ev := store.LLMRequestEventData{
		Provider:    providerName(l.inner),
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: transcribeRequest(req),
	}
	if resp != nil {
		ev.Model = resp.Model
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		ev.ResponseBody = string(resp.Content)
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}

	l.logger.Debug("llm request", "purpose", ev.Purpose, "provider", ev.Provider, "model", ev.Model,
		"latency_ms", ev.LatencyMs, "input_tokens", ev.InputTokens, "output_tokens", ev.OutputTokens,
		"error", ev.ErrorMessage)

	if l.events != nil {
		if werr := l.events.AppendLLMRequest(context.WithoutCancel(ctx), ev); werr != nil {
			l.logger.Warn("record LLM request event", "error", werr)
		}
	}
	return resp, err
}

// transcribeRequest renders a request the way `lumora llm view` prints it.
func transcribeRequest(req Request) string {
	var b strings.Builder
	section := func(label, body string) {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", label, body)
	}
	if req.System != "" {
		section("system", req.System)
	}
	for _, m := range req.Messages {
		section(string(m.Role), m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			section("schema: "+req.Schema.Name, string(def))
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/abhisek/lumora/internal/store"
	"github.com/google/uuid"
)

func TestLoggingProvider_RecordsEvents(t *testing.T) {
	st, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"answer":"ok"}`), Usage: Usage{InputTokens: 12, OutputTokens: 3}},
		MockResponse{Err: &ErrProviderUnavailable{}},
	)
	p := WithLogging(mock, st.EventRepo())

	ctx := WithPurpose(context.Background(), "assistant")
	req := Request{System: "be brief", Messages: []Message{{Role: RoleUser, Content: "hi"}}}
	if _, err := p.Generate(ctx, req); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := p.Generate(ctx, req); err == nil {
		t.Fatal("expected second call to fail")
	}

	events, err := st.EventRepo().QueryLLMEvents(context.Background(), store.QueryOpts{})
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	failed, ok := events[0], events[1]
	if failed.Success || failed.ErrorMessage == "" {
		t.Errorf("newest event should be the failure, got %+v", failed)
	}
	if !ok.Success || ok.Purpose != "assistant" || ok.InputTokens != 12 || ok.ResponseBody != `{"answer":"ok"}` {
		t.Errorf("unexpected success event: %+v", ok)
	}
	if ok.Provider != "mock" {
		t.Errorf("provider = %q, want mock", ok.Provider)
	}
	if !strings.Contains(ok.RequestBody, "[system]\nbe brief") {
		t.Errorf("request body not serialized: %q", ok.RequestBody)
	}
}

func TestLoggingProvider_NilRepo(t *testing.T) {
	p := WithLogging(NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)}), nil)
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LUMORA_LLM_PROVIDER", "openrouter")
	t.Setenv("LUMORA_OPENROUTER_API_KEY", "sk-or")
	t.Setenv("LUMORA_OPENROUTER_MODEL", "openai/gpt-4o-mini")

	cfg := ConfigFromEnv()
	if cfg.Provider != "openrouter" || cfg.OpenRouter.APIKey != "sk-or" || cfg.OpenRouter.Model != "openai/gpt-4o-mini" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}

	cfg.OpenRouter.APIKey = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "LUMORA_OPENROUTER_API_KEY") {
		t.Errorf("expected missing key error, got %v", err)
	}
}

func TestDiscoverConfig(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}
	if _, ok := DiscoverConfig(); ok {
		t.Fatal("nothing should be discovered")
	}

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENAI_API_KEY", "sk-oai")
	cfg, ok := DiscoverConfig()
	if !ok || cfg.Provider != "openai" || cfg.OpenAI.APIKey != "sk-oai" {
		t.Errorf("OpenAI should win over Anthropic, got %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantErr string
	}{
		{Config{Provider: "mock"}, ""},
		{Config{Provider: "gemini", Gemini: Endpoint{APIKey: "k"}}, ""},
		{Config{Provider: "anthropic"}, "LUMORA_ANTHROPIC_API_KEY"},
		{Config{Provider: "llama"}, "unknown LLM provider"},
	}
	for _, tt := range tests {
		err := tt.cfg.Validate()
		switch {
		case tt.wantErr == "" && err != nil:
			t.Errorf("%s: unexpected error %v", tt.cfg.Provider, err)
		case tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)):
			t.Errorf("%s: error %v, want %q", tt.cfg.Provider, err, tt.wantErr)
		}
	}
}

func TestMockProviderQueue(t *testing.T) {
	m := NewMockProvider(MockResponse{Content: json.RawMessage(`1`)})
	m.AddResponse(MockResponse{Err: &ErrRateLimit{}})

	if r, err := m.Generate(context.Background(), Request{System: "a"}); err != nil || string(r.Content) != "1" {
		t.Fatalf("first reply = %v, %v", r, err)
	}
	if _, err := m.Generate(context.Background(), Request{System: "b"}); err == nil {
		t.Fatal("second reply should be the queued error")
	}
	if _, err := m.Generate(context.Background(), Request{}); err == nil {
		t.Fatal("an empty queue should fail")
	}
	if m.CallCount() != 3 || m.Calls[1].System != "b" {
		t.Errorf("calls not recorded: %+v", m.Calls)
	}
}

func TestPurpose(t *testing.T) {
	if got := PurposeFrom(context.Background()); got != "unknown" {
		t.Errorf("default purpose = %q", got)
	}
	if got := PurposeFrom(WithPurpose(context.Background(), PurposeQuizGen)); got != "quiz-gen" {
		t.Errorf("purpose = %q", got)
	}
}

func TestNewProvider_OpenRouter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "openrouter"
	cfg.OpenRouter.APIKey = "sk-or"
	p, err := NewProvider(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != cfg.OpenRouter.Model {
		t.Errorf("model = %q, want %q", p.ModelID(), cfg.OpenRouter.Model)
	}
}

func TestNewProviderFromEnv(t *testing.T) {
	for _, k := range []string{"LUMORA_LLM_PROVIDER", "GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}
	if _, err := NewProviderFromEnv(context.Background(), nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatal("expected error with no provider configured")
	}

	t.Setenv("LUMORA_LLM_PROVIDER", "mock")
	p, err := NewProviderFromEnv(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "mock" {
		t.Errorf("model = %q, want mock", p.ModelID())
	}
}

func TestLookupCost(t *testing.T) {
	c := LookupCost("gpt-4o-mini")
	if c == nil {
		t.Fatal("expected pricing for gpt-4o-mini")
	}
	if got := c.Cost(1_000_000, 1_000_000); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("cost = %v, want 0.75", got)
	}
	for _, id := range []string{"gpt-4o-mini-2024-07-18", "openai/gpt-4o-mini", "claude-haiku-4-5-20251001"} {
		if LookupCost(id) == nil {
			t.Errorf("no pricing for %q", id)
		}
	}
	if LookupCost("no-such-model") != nil {
		t.Error("expected nil for unknown model")
	}
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/abhisek/lumora/internal/store"
)

// NewProvider builds the configured provider. Calls go through retry,
// then event logging, then the vendor SDK, so every attempt is logged.
func NewProvider(ctx context.Context, cfg Config, events store.EventRepo) (Provider, error) {
	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s provider: %w", cfg.Provider, err)
	}
	return WithRetry(WithLogging(base, events), cfg.Retry), nil
}

// ErrNotConfigured is returned by NewProviderFromEnv when the environment
// names no provider and holds no API key.
var ErrNotConfigured = errors.New("no LLM provider configured: set LUMORA_LLM_PROVIDER or an API key")

// NewProviderFromEnv prefers explicit LUMORA_* settings and falls back to
// the first standard API key found.
func NewProviderFromEnv(ctx context.Context, events store.EventRepo) (Provider, error) {
	cfg := ConfigFromEnv()
	if os.Getenv("LUMORA_LLM_PROVIDER") == "" {
		discovered, ok := DiscoverConfig()
		if !ok {
			return nil, ErrNotConfigured
		}
		cfg = discovered
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewProvider(ctx, cfg, events)
}

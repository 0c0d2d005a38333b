package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Endpoint is what every vendor needs: a key, a model and optionally a
// base URL for proxies and compatible gateways.
type Endpoint struct {
	APIKey  string
	Model   string
	BaseURL string
}

type Config struct {
	// Provider is one of anthropic, openai, gemini, openrouter or mock.
	Provider string

	Anthropic  Endpoint
	OpenAI     Endpoint
	Gemini     Endpoint
	OpenRouter Endpoint

	Retry RetryConfig
}

func DefaultConfig() Config {
	return Config{
		Provider:   "anthropic",
		Anthropic:  Endpoint{Model: "claude-haiku"},
		OpenAI:     Endpoint{Model: "gpt-4o-mini"},
		Gemini:     Endpoint{Model: "gemini-flash"},
		OpenRouter: Endpoint{Model: "google/gemini-2.5-flash"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
			Budget:      90 * time.Second,
		},
	}
}

// vendors lists the real providers in discovery order, with the standard
// key variable each SDK documents.
var vendors = []struct {
	name     string
	endpoint func(*Config) *Endpoint
	stdKey   string
}{
	{"gemini", func(c *Config) *Endpoint { return &c.Gemini }, "GEMINI_API_KEY"},
	{"openai", func(c *Config) *Endpoint { return &c.OpenAI }, "OPENAI_API_KEY"},
	{"anthropic", func(c *Config) *Endpoint { return &c.Anthropic }, "ANTHROPIC_API_KEY"},
	{"openrouter", func(c *Config) *Endpoint { return &c.OpenRouter }, "OPENROUTER_API_KEY"},
}

func envPrefix(vendor string) string {
	return "LUMORA_" + strings.ToUpper(vendor) + "_"
}

// ConfigFromEnv reads LUMORA_LLM_PROVIDER and LUMORA_<VENDOR>_API_KEY,
// _MODEL and _BASE_URL on top of the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if p := os.Getenv("LUMORA_LLM_PROVIDER"); p != "" {
		cfg.Provider = strings.ToLower(p)
	}
	for _, v := range vendors {
		e, prefix := v.endpoint(&cfg), envPrefix(v.name)
		setFromEnv(&e.APIKey, prefix+"API_KEY")
		setFromEnv(&e.Model, prefix+"MODEL")
		setFromEnv(&e.BaseURL, prefix+"BASE_URL")
	}
	return cfg
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// DiscoverConfig picks the first vendor whose standard key variable is
// set, in the order Gemini, OpenAI, Anthropic, OpenRouter.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()
	for _, v := range vendors {
		if k := os.Getenv(v.stdKey); k != "" {
			cfg.Provider = v.name
			v.endpoint(&cfg).APIKey = k
			return cfg, true
		}
	}
	return Config{}, false
}

// Validate checks the selected provider has a key.
func (c Config) Validate() error {
	if c.Provider == "mock" {
		return nil
	}
	for _, v := range vendors {
		if v.name != c.Provider {
			continue
		}
		if v.endpoint(&c).APIKey == "" {
			return fmt.Errorf("%sAPI_KEY is required for the %s provider", envPrefix(v.name), v.name)
		}
		return nil
	}
	return fmt.Errorf("unknown LLM provider %q", c.Provider)
}

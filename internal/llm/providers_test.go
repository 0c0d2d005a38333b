package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

var answerSchema = &Schema{
	Name: "test-answer",
	Definition: map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"answer": map[string]any{"type": "string"}},
		"required":             []any{"answer"},
		"additionalProperties": false,
	},
}

func jsonHandler(t *testing.T, status int, body any, inspect func(map[string]any)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			var got map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			inspect(got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}

func serve(t *testing.T, h http.Handler) string {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

func anthropicReply(text, stop string) map[string]any {
	return map[string]any{
		"id": "msg_1", "type": "message", "role": "assistant",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"model":       "claude-haiku-4-5",
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
	}
}

func TestAnthropicGenerate(t *testing.T) {
	url := serve(t, jsonHandler(t, http.StatusOK, anthropicReply(`{"answer":"at 01:30"}`, "end_turn"), func(body map[string]any) {
		assert.Equal(t, "claude-haiku-4-5", body["model"])
		assert.EqualValues(t, defaultMaxTokens, body["max_tokens"])
		msgs := body["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])
	}))

	p, err := NewAnthropicProvider(Endpoint{APIKey: "k", Model: "claude-haiku", BaseURL: url})
	require.NoError(t, err)
	assert.Equal(t, "claude-haiku-4-5", p.ModelID())

	resp, err := p.Generate(context.Background(), Request{
		System:   "Answer from the transcript.",
		Messages: []Message{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hello"}},
		Schema:   answerSchema,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":"at 01:30"}`, string(resp.Content))
	assert.Equal(t, Usage{InputTokens: 50, OutputTokens: 30, TotalTokens: 80}, resp.Usage)
	assert.Equal(t, StopEnd, resp.StopReason)
}

func TestAnthropicTruncatedJSON(t *testing.T) {
	url := serve(t, jsonHandler(t, http.StatusOK, anthropicReply(`{"answer":"cut`, "max_tokens"), nil))
	p, err := NewAnthropicProvider(Endpoint{APIKey: "k", Model: "claude-haiku", BaseURL: url})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "q"}}, Schema: answerSchema})
	var truncated *ErrMaxTokensExceeded
	assert.ErrorAs(t, err, &truncated)
}

func TestAnthropicErrors(t *testing.T) {
	apiError := map[string]any{"type": "error", "error": map[string]any{"type": "x", "message": "nope"}}
	tests := []struct {
		status int
		check  func(t *testing.T, err error)
	}{
		{http.StatusTooManyRequests, func(t *testing.T, err error) {
			var rl *ErrRateLimit
			require.ErrorAs(t, err, &rl)
			assert.Equal(t, 7*time.Second, rl.RetryAfter)
		}},
		{http.StatusServiceUnavailable, func(t *testing.T, err error) {
			var unavailable *ErrProviderUnavailable
			assert.ErrorAs(t, err, &unavailable)
		}},
		{http.StatusUnauthorized, func(t *testing.T, err error) {
			var rejected *ErrRequestRejected
			require.ErrorAs(t, err, &rejected)
			assert.Equal(t, http.StatusUnauthorized, rejected.Status)
		}},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			url := serve(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "7")
				jsonHandler(t, tt.status, apiError, nil)(w, r)
			}))
			p, err := NewAnthropicProvider(Endpoint{APIKey: "k", BaseURL: url})
			require.NoError(t, err)
			_, err = p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "q"}}})
			tt.check(t, err)
		})
	}
}

func openaiReply(content, finish string) map[string]any {
	return map[string]any{
		"id": "c1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 25, "total_tokens": 65},
	}
}

func TestOpenAIGenerate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", jsonHandler(t, http.StatusOK, openaiReply(`{"answer":"yes"}`, "stop"), func(body map[string]any) {
		msgs := body["messages"].([]any)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
		format := body["response_format"].(map[string]any)
		assert.Equal(t, "json_schema", format["type"])
		assert.Equal(t, "test-answer", format["json_schema"].(map[string]any)["name"])
	}))
	url := serve(t, mux)

	p, err := NewOpenAIProvider(Endpoint{APIKey: "k", Model: "gpt-mini", BaseURL: url + "/v1"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", p.ModelID())
	assert.Equal(t, "openai", p.Name())

	resp, err := p.Generate(context.Background(), Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "q"}},
		Schema:   answerSchema,
	})
	require.NoError(t, err)
	assert.Equal(t, 65, resp.Usage.TotalTokens)
}

func TestOpenAISchemaMismatch(t *testing.T) {
	url := serve(t, jsonHandler(t, http.StatusOK, openaiReply(`{"reply":"yes"}`, "stop"), nil))
	p, err := NewOpenAIProvider(Endpoint{APIKey: "k", BaseURL: url})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), Request{Schema: answerSchema})
	var invalid *ErrInvalidResponse
	assert.ErrorAs(t, err, &invalid)

	resp, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err, "free text is not validated")
	assert.Equal(t, `{"reply":"yes"}`, string(resp.Content))
}

func TestOpenAIRateLimit(t *testing.T) {
	body := map[string]any{"error": map[string]any{"message": "slow down", "type": "rate_limit"}}
	url := serve(t, jsonHandler(t, http.StatusTooManyRequests, body, nil))
	p, err := NewOpenAIProvider(Endpoint{APIKey: "k", BaseURL: url})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	assert.ErrorAs(t, err, &rl)
}

func TestOpenRouterDefaults(t *testing.T) {
	_, err := NewOpenRouterProvider(Endpoint{})
	assert.Error(t, err)

	p, err := NewOpenRouterProvider(Endpoint{APIKey: "sk-or", Model: "openai/gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "openrouter", p.Name())
	assert.Equal(t, "openai/gpt-4o-mini", p.ModelID(), "gateway model IDs are not aliased")
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"options": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 4,
				"maxItems": 4,
			},
			"correctAnswer": map[string]any{"type": "integer", "minimum": 0, "maximum": 3},
			"kind":          map[string]any{"type": "string", "enum": []any{"a", "b"}},
		},
		"required":             []any{"options", "correctAnswer"},
		"additionalProperties": false,
	})

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.ElementsMatch(t, []string{"options", "correctAnswer"}, s.Required)

	opts := s.Properties["options"]
	require.NotNil(t, opts)
	assert.Equal(t, genai.TypeArray, opts.Type)
	assert.Equal(t, genai.TypeString, opts.Items.Type)
	require.NotNil(t, opts.MinItems)
	assert.EqualValues(t, 4, *opts.MinItems)

	ans := s.Properties["correctAnswer"]
	require.NotNil(t, ans.Maximum)
	assert.EqualValues(t, 3, *ans.Maximum)
	assert.Equal(t, []string{"a", "b"}, s.Properties["kind"].Enum)
}

func TestGeminiRequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), Endpoint{})
	assert.Error(t, err)
}

func TestAliases(t *testing.T) {
	assert.Equal(t, "gemini-2.5-flash", alias("gemini-flash", geminiAliases))
	assert.Equal(t, "claude-sonnet-4-5", alias("claude-sonnet", anthropicAliases))
	assert.Equal(t, "my-own-model", alias("my-own-model", openaiAliases))
}

func TestClassify(t *testing.T) {
	cause := errors.New("boom")
	var unavailable *ErrProviderUnavailable
	assert.ErrorAs(t, classify(0, nil, cause), &unavailable)
	assert.ErrorAs(t, classify(http.StatusRequestTimeout, nil, cause), &unavailable)
	assert.ErrorIs(t, classify(http.StatusBadRequest, nil, cause), cause)

	h := http.Header{}
	h.Set("Retry-After", "bogus")
	var rl *ErrRateLimit
	require.ErrorAs(t, classify(http.StatusTooManyRequests, h, cause), &rl)
	assert.Zero(t, rl.RetryAfter)
}

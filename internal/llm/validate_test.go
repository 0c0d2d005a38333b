package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

var lessonSchema = &Schema{
	Name: "test-lesson",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":   map[string]any{"type": "string"},
			"level":   map[string]any{"type": "string", "enum": []any{"intro", "advanced"}},
			"options": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "minItems": 4, "maxItems": 4},
			"answer":  map[string]any{"type": "integer", "minimum": 0, "maximum": 3},
			"at":      map[string]any{"type": "number"},
		},
		"required": []any{"title", "options", "answer"},
	},
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		valid bool
	}{
		{"complete", `{"title":"Joins","level":"intro","options":["a","b","c","d"],"answer":2,"at":61.5}`, true},
		{"optional fields absent", `{"title":"Joins","options":["a","b","c","d"],"answer":0}`, true},
		{"missing required", `{"title":"Joins","answer":0}`, false},
		{"wrong type", `{"title":7,"options":["a","b","c","d"],"answer":0}`, false},
		{"enum", `{"title":"Joins","level":"expert","options":["a","b","c","d"],"answer":0}`, false},
		{"three options", `{"title":"Joins","options":["a","b","c"],"answer":0}`, false},
		{"answer out of range", `{"title":"Joins","options":["a","b","c","d"],"answer":4}`, false},
		{"malformed", `{"title":`, false},
		{"empty", ``, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(lessonSchema, json.RawMessage(tt.raw))
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var invalid *ErrInvalidResponse
			if assert.ErrorAs(t, err, &invalid) {
				assert.Equal(t, tt.raw, string(invalid.Content))
			}
		})
	}
}

func TestValidateResponseNilSchema(t *testing.T) {
	assert.NoError(t, validateResponse(nil, json.RawMessage("plain text")))
}

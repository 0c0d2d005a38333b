package quiz

import "github.com/abhisek/lumora/internal/llm"

func optionsSchema(desc string) map[string]any {
	return map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"minItems":    OptionCount,
		"maxItems":    OptionCount,
		"description": desc,
	}
}

func answerIndexSchema() map[string]any {
	return map[string]any{
		"type":        "integer",
		"minimum":     0,
		"maximum":     OptionCount - 1,
		"description": "Zero-based index of the correct option",
	}
}

// QuizSchema defines the JSON schema for quiz generation responses.
var QuizSchema = &llm.Schema{
	Name:        "video-quiz",
	Description: "Multiple-choice questions about a course video, each tied to a moment in the transcript",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question":      map[string]any{"type": "string", "description": "The question shown to the student"},
						"options":       optionsSchema("Exactly 4 answer options"),
						"correctAnswer": answerIndexSchema(),
						"explanation":   map[string]any{"type": "string", "description": "Why the correct option is right"},
						"startTime": map[string]any{
							"type":        "number",
							"minimum":     0,
							"description": "Second of the video where the concept is explained",
						},
						"reinforcementQuestions": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"question":      map[string]any{"type": "string"},
									"options":       optionsSchema("Exactly 4 answer options"),
									"correctAnswer": answerIndexSchema(),
									"explanation":   map[string]any{"type": "string"},
								},
								"required":             []any{"question", "options", "correctAnswer", "explanation"},
								"additionalProperties": false,
							},
							"description": "Two easier follow-up questions on the same concept",
						},
					},
					"required":             []any{"question", "options", "correctAnswer", "explanation", "startTime", "reinforcementQuestions"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}

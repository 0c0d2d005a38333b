package quiz

// DefaultPassRatio is the share of correct answers needed to pass.
const DefaultPassRatio = 0.7

// Config controls quiz generation and grading.
type Config struct {
	// Validators run in order on every generated question; the first
	// failure rejects the whole quiz.
	Validators []Validator

	// Questions is how many questions to ask for.
	Questions int

	// MaxTranscriptChunks caps the transcript lines put in the prompt.
	MaxTranscriptChunks int

	MaxTokens   int
	Temperature float64

	// PassRatio is the minimum correct/total for a pass, in (0, 1].
	PassRatio float64
}

// DefaultConfig returns the standard validator chain and defaults.
func DefaultConfig() Config {
	return Config{
		Validators: []Validator{
			&StructuralValidator{},
			&TimelineValidator{},
		},
		Questions:           5,
		MaxTranscriptChunks: 400,
		MaxTokens:           4096,
		Temperature:         0.4,
		PassRatio:           DefaultPassRatio,
	}
}

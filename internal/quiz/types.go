// Package quiz generates multiple-choice quizzes from video transcripts,
// grades submissions, and records passes so the next video can unlock.
package quiz

import "time"

// OptionCount is the number of answer options on every question.
const OptionCount = 4

// Question is one multiple-choice question anchored to a moment in the video.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	// StartTime is the second of the video the question is about.
	StartTime float64 `json:"startTime"`
	// ReinforcementQuestions are follow-ups shown after a wrong answer.
	ReinforcementQuestions []Reinforcement `json:"reinforcementQuestions,omitempty"`
}

// Reinforcement is a follow-up question on the same concept.
type Reinforcement struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Quiz is the stored question set of a video.
type Quiz struct {
	VideoID   string
	Questions []Question
	Model     string
	CreatedAt time.Time
}

// Result is the outcome of grading one submission.
type Result struct {
	Correct int
	Total   int
	Passed  bool
	// Wrong lists the indexes of questions answered incorrectly.
	Wrong []int
}

// Percent is the score rounded down to a whole percent.
func (r Result) Percent() int {
	if r.Total == 0 {
		return 0
	}
	return r.Correct * 100 / r.Total
}

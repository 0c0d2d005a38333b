package quiz

import (
	"errors"
	"fmt"
	"math"
)

// ErrBadSubmission is returned by Grade for an answer list that does not
// fit the quiz.
var ErrBadSubmission = errors.New("submission does not match quiz")

// Grade scores answers against questions. answers[i] is the chosen option
// index for questions[i]; a missing or out-of-range answer counts as wrong.
// The quiz passes when correct/total reaches passRatio (DefaultPassRatio
// when passRatio is not in (0, 1]).
func Grade(questions []Question, answers []int, passRatio float64) (Result, error) {
	if len(questions) == 0 {
		return Result{}, fmt.Errorf("quiz has no questions")
	}
	if len(answers) > len(questions) {
		return Result{}, fmt.Errorf("got %d answers for %d questions: %w", len(answers), len(questions), ErrBadSubmission)
	}
	if passRatio <= 0 || passRatio > 1 || math.IsNaN(passRatio) {
		passRatio = DefaultPassRatio
	}

	res := Result{Total: len(questions)}
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.CorrectAnswer {
			res.Correct++
			continue
		}
		res.Wrong = append(res.Wrong, i)
	}
	// Integer comparison: 7 of 10 passes at 0.7.
	res.Passed = res.Correct*1000 >= int(math.Ceil(passRatio*1000-1e-9))*res.Total
	return res, nil
}

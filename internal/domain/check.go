package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidAnswer is returned when an answer has the wrong shape for
	// the task type, such as text for a multiple choice task.
	ErrInvalidAnswer = errors.New("invalid answer")

	// ErrCheckUnsupported is returned for task types that need a human to
	// grade them.
	ErrCheckUnsupported = errors.New("answer checking not supported for task type")
)

// CheckResult is the outcome of grading one answer.
type CheckResult struct {
	IsCorrect bool
	// Feedback is the task's explanation, if it has one.
	Feedback string
	// CorrectAnswer is the right option index for multiple choice tasks and
	// nil otherwise.
	CorrectAnswer *int
}

// Check expects the index of the chosen option.
func (d MultipleChoiceData) Check(answer any) (CheckResult, error) {
	choice, ok := wholeNumber(answer)
	if !ok {
		return CheckResult{}, fmt.Errorf("%w: multiple choice answer must be an option index, got %T", ErrInvalidAnswer, answer)
	}
	correct := d.CorrectAnswer
	return CheckResult{
		IsCorrect:     choice == correct,
		Feedback:      d.Explanation,
		CorrectAnswer: &correct,
	}, nil
}

// Check expects the text that fills the blank. Surrounding whitespace is
// ignored; letter case is ignored unless the task is case sensitive.
func (d FillBlankData) Check(answer any) (CheckResult, error) {
	text, ok := answer.(string)
	if !ok {
		return CheckResult{}, fmt.Errorf("%w: fill in the blank answer must be text, got %T", ErrInvalidAnswer, answer)
	}
	text = strings.TrimSpace(text)

	res := CheckResult{Feedback: d.Explanation}
	for _, want := range d.CorrectAnswers {
		want = strings.TrimSpace(want)
		if text == want || (!d.CaseSensitive && strings.EqualFold(text, want)) {
			res.IsCorrect = true
			break
		}
	}
	return res, nil
}

// Check always fails: free text answers are not graded automatically.
func (ShortAnswerData) Check(any) (CheckResult, error) {
	return CheckResult{}, fmt.Errorf("%w: %s", ErrCheckUnsupported, TaskTypeShortAnswer)
}

// Check expects an object mapping every item to a target. The answer is
// correct only when it matches CorrectMatches exactly.
func (d DragDropData) Check(answer any) (CheckResult, error) {
	given, ok := answer.(map[string]any)
	if !ok {
		return CheckResult{}, fmt.Errorf("%w: drag and drop answer must map items to targets, got %T", ErrInvalidAnswer, answer)
	}

	correct := len(given) == len(d.CorrectMatches)
	for item, v := range given {
		target, ok := v.(string)
		if !ok {
			return CheckResult{}, fmt.Errorf("%w: target for %q must be text, got %T", ErrInvalidAnswer, item, v)
		}
		if d.CorrectMatches[item] != target {
			correct = false
		}
	}
	return CheckResult{IsCorrect: correct}, nil
}

func wholeNumber(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.Abs(n) > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil || i > math.MaxInt32 || i < math.MinInt32 {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// Package grading implements answer evaluation and submission assembly for
// tests and assignments. Evaluation is pure: a question plus a candidate
// answer yields a correctness verdict, never an error. Anything missing or
// malformed is simply incorrect.
package grading

import (
	"encoding/json"
	"strings"

	"github.com/orvit/classroom-service/internal/models"
)

// Evaluate returns the correctness verdict for one question and one
// candidate answer. Essay questions are never auto-evaluated and always
// return false; callers exclude them from score and total separately.
func Evaluate(q *models.Question, answer models.AnswerValue) bool {
	if q == nil || answer.IsEmpty() {
		return false
	}

	switch q.Type {
	case models.MultipleChoice:
		return evaluateMultipleChoice(q, answer)
	case models.Checkbox:
		return evaluateCheckbox(q, answer)
	case models.ShortAnswer, models.FillInBlank:
		return evaluateShortAnswer(q, answer)
	case models.MixMatch:
		return evaluateMixMatch(q, answer)
	case models.Essay:
		return false
	default:
		return false
	}
}

// evaluateMultipleChoice: exact, case-sensitive string equality.
func evaluateMultipleChoice(q *models.Question, answer models.AnswerValue) bool {
	var content models.MultipleChoiceContent
	if err := json.Unmarshal(q.Content, &content); err != nil {
		return false
	}
	var selected string
	if err := json.Unmarshal(answer, &selected); err != nil {
		return false
	}
	return selected == content.CorrectAnswer
}

// evaluateCheckbox: set equality against the authored correct answers.
// Order is irrelevant and duplicate selections collapse.
func evaluateCheckbox(q *models.Question, answer models.AnswerValue) bool {
	var content models.CheckboxContent
	if err := json.Unmarshal(q.Content, &content); err != nil {
		return false
	}
	var selected []string
	if err := json.Unmarshal(answer, &selected); err != nil {
		return false
	}

	want := make(map[string]struct{}, len(content.CorrectAnswers))
	for _, a := range content.CorrectAnswers {
		want[a] = struct{}{}
	}
	got := make(map[string]struct{}, len(selected))
	for _, a := range selected {
		got[a] = struct{}{}
	}

	if len(got) != len(want) {
		return false
	}
	for a := range want {
		if _, ok := got[a]; !ok {
			return false
		}
	}
	return true
}

// evaluateShortAnswer: both sides are trimmed of surrounding whitespace and
// case-folded before comparison. fill_in_the_blank shares this path.
func evaluateShortAnswer(q *models.Question, answer models.AnswerValue) bool {
	var content models.ShortAnswerContent
	if err := json.Unmarshal(q.Content, &content); err != nil {
		return false
	}
	var text string
	if err := json.Unmarshal(answer, &text); err != nil {
		return false
	}
	return normalizeText(text) == normalizeText(content.CorrectAnswer)
}

// evaluateMixMatch: correct iff for every authored pair the selected right
// value equals the authored right value for that left value. Extra
// selections for unknown left values do not count against the student.
func evaluateMixMatch(q *models.Question, answer models.AnswerValue) bool {
	var content models.MixMatchContent
	if err := json.Unmarshal(q.Content, &content); err != nil {
		return false
	}
	var matches map[string]string
	if err := json.Unmarshal(answer, &matches); err != nil {
		return false
	}
	if len(content.Pairs) == 0 {
		return false
	}
	for _, pair := range content.Pairs {
		if matches[pair.Left] != pair.Right {
			return false
		}
	}
	return true
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

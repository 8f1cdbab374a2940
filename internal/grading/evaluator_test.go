package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orvit/classroom-service/internal/models"
)

func multipleChoiceQuestion(id, correct string, choices ...string) models.Question {
	return models.Question{
		ID:   id,
		Type: models.MultipleChoice,
		Text: "pick one",
		Content: models.MarshalContent(models.MultipleChoiceContent{
			Choices:       choices,
			CorrectAnswer: correct,
		}),
	}
}

func checkboxQuestion(id string, choices, correct []string) models.Question {
	return models.Question{
		ID:   id,
		Type: models.Checkbox,
		Text: "pick all that apply",
		Content: models.MarshalContent(models.CheckboxContent{
			Choices:        choices,
			CorrectAnswers: correct,
		}),
	}
}

func shortAnswerQuestion(id, correct string) models.Question {
	return models.Question{
		ID:   id,
		Type: models.ShortAnswer,
		Text: "answer briefly",
		Content: models.MarshalContent(models.ShortAnswerContent{
			CorrectAnswer: correct,
		}),
	}
}

func TestEvaluate_MultipleChoice(t *testing.T) {
	q := multipleChoiceQuestion("q1", "Paris", "Paris", "London", "Rome")

	t.Run("exact match is correct", func(t *testing.T) {
		assert.True(t, Evaluate(&q, models.TextAnswer("Paris")))
	})

	t.Run("case mismatch is incorrect", func(t *testing.T) {
		assert.False(t, Evaluate(&q, models.TextAnswer("paris")))
	})

	t.Run("trailing whitespace is incorrect", func(t *testing.T) {
		assert.False(t, Evaluate(&q, models.TextAnswer("Paris ")))
	})

	t.Run("missing answer is incorrect", func(t *testing.T) {
		assert.False(t, Evaluate(&q, nil))
	})
}

func TestEvaluate_Checkbox(t *testing.T) {
	q := checkboxQuestion("q1", []string{"A", "B", "C"}, []string{"B", "A"})

	t.Run("set equality ignores order", func(t *testing.T) {
		assert.True(t, Evaluate(&q, models.CheckboxAnswer("A", "B")))
		assert.True(t, Evaluate(&q, models.CheckboxAnswer("B", "A")))
	})

	t.Run("subset is incorrect", func(t *testing.T) {
		assert.False(t, Evaluate(&q, models.CheckboxAnswer("A")))
	})

	t.Run("superset is incorrect", func(t *testing.T) {
		assert.False(t, Evaluate(&q, models.CheckboxAnswer("A", "B", "C")))
	})

	t.Run("duplicate selections collapse", func(t *testing.T) {
		assert.True(t, Evaluate(&q, models.CheckboxAnswer("A", "B", "A")))
	})

	t.Run("empty selection is incorrect", func(t *testing.T) {
		assert.False(t, Evaluate(&q, models.CheckboxAnswer()))
	})
}

func TestEvaluate_ShortAnswer(t *testing.T) {
	q := shortAnswerQuestion("q1", "paris")

	t.Run("case folded and trimmed", func(t *testing.T) {
		assert.True(t, Evaluate(&q, models.TextAnswer("  Paris ")))
		assert.True(t, Evaluate(&q, models.TextAnswer("PARIS")))
	})

	t.Run("different text is incorrect", func(t *testing.T) {
		assert.False(t, Evaluate(&q, models.TextAnswer("London")))
	})

	t.Run("interior whitespace is preserved", func(t *testing.T) {
		assert.False(t, Evaluate(&q, models.TextAnswer("pa ris")))
	})
}

func TestEvaluate_FillInBlank(t *testing.T) {
	q := models.Question{
		ID:   "q1",
		Type: models.FillInBlank,
		Text: "the capital of France is ____",
		Content: models.MarshalContent(models.ShortAnswerContent{
			CorrectAnswer: "Paris",
		}),
	}

	// graded exactly like short_answer
	assert.True(t, Evaluate(&q, models.TextAnswer(" paris ")))
	assert.False(t, Evaluate(&q, models.TextAnswer("Lyon")))
}

func TestEvaluate_Essay(t *testing.T) {
	q := models.Question{
		ID:      "q1",
		Type:    models.Essay,
		Text:    "discuss",
		Content: models.MarshalContent(models.EssayContent{}),
	}

	// essays are never auto-evaluated
	assert.False(t, Evaluate(&q, models.TextAnswer("a thoughtful response")))
}

func TestEvaluate_MixMatch(t *testing.T) {
	q := models.Question{
		ID:   "q1",
		Type: models.MixMatch,
		Text: "match capitals",
		Content: models.MarshalContent(models.MixMatchContent{
			Pairs: []models.MatchPair{
				{Left: "France", Right: "Paris"},
				{Left: "Italy", Right: "Rome"},
			},
		}),
	}

	t.Run("all pairs matched is correct", func(t *testing.T) {
		assert.True(t, Evaluate(&q, models.MatchAnswer(map[string]string{
			"France": "Paris",
			"Italy":  "Rome",
		})))
	})

	t.Run("one wrong pair is incorrect", func(t *testing.T) {
		assert.False(t, Evaluate(&q, models.MatchAnswer(map[string]string{
			"France": "Rome",
			"Italy":  "Paris",
		})))
	})

	t.Run("missing pair is incorrect", func(t *testing.T) {
		assert.False(t, Evaluate(&q, models.MatchAnswer(map[string]string{
			"France": "Paris",
		})))
	})
}

func TestEvaluate_MalformedAnswerNeverPanics(t *testing.T) {
	q := checkboxQuestion("q1", []string{"A", "B"}, []string{"A"})

	// a string where an array is expected decodes to nothing and is wrong
	assert.False(t, Evaluate(&q, models.TextAnswer("A")))
	assert.False(t, Evaluate(&q, models.AnswerValue(`{broken`)))
	assert.False(t, Evaluate(nil, models.TextAnswer("A")))
}

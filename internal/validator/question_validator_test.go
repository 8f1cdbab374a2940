package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orvit/classroom-service/internal/models"
)

func TestValidateContent_MultipleChoice(t *testing.T) {
	v := NewQuestionValidator()

	t.Run("valid", func(t *testing.T) {
		content := models.MarshalContent(models.MultipleChoiceContent{
			Choices:       []string{"A", "B", "C"},
			CorrectAnswer: "B",
		})
		assert.NoError(t, v.ValidateContent(models.MultipleChoice, content))
	})

	t.Run("correct answer not among choices", func(t *testing.T) {
		content := models.MarshalContent(models.MultipleChoiceContent{
			Choices:       []string{"A", "B"},
			CorrectAnswer: "Z",
		})
		assert.Error(t, v.ValidateContent(models.MultipleChoice, content))
	})

	t.Run("too few choices", func(t *testing.T) {
		content := models.MarshalContent(models.MultipleChoiceContent{
			Choices:       []string{"A"},
			CorrectAnswer: "A",
		})
		assert.Error(t, v.ValidateContent(models.MultipleChoice, content))
	})
}

func TestValidateContent_Checkbox(t *testing.T) {
	v := NewQuestionValidator()

	t.Run("correct answers must be subset of choices", func(t *testing.T) {
		content := models.MarshalContent(models.CheckboxContent{
			Choices:        []string{"A", "B"},
			CorrectAnswers: []string{"A", "C"},
		})
		assert.Error(t, v.ValidateContent(models.Checkbox, content))
	})

	t.Run("valid", func(t *testing.T) {
		content := models.MarshalContent(models.CheckboxContent{
			Choices:        []string{"A", "B", "C"},
			CorrectAnswers: []string{"A", "C"},
		})
		assert.NoError(t, v.ValidateContent(models.Checkbox, content))
	})
}

func TestValidateContent_MixMatch(t *testing.T) {
	v := NewQuestionValidator()

	t.Run("duplicate left values rejected", func(t *testing.T) {
		content := models.MarshalContent(models.MixMatchContent{
			Pairs: []models.MatchPair{
				{Left: "France", Right: "Paris"},
				{Left: "France", Right: "Lyon"},
			},
		})
		assert.Error(t, v.ValidateContent(models.MixMatch, content))
	})

	t.Run("valid", func(t *testing.T) {
		content := models.MarshalContent(models.MixMatchContent{
			Pairs: []models.MatchPair{
				{Left: "France", Right: "Paris"},
				{Left: "Italy", Right: "Rome"},
			},
		})
		assert.NoError(t, v.ValidateContent(models.MixMatch, content))
	})
}

func TestValidateQuestion_ContentByType(t *testing.T) {
	v := NewQuestionValidator()

	t.Run("valid authored question", func(t *testing.T) {
		q := models.Question{
			ID:   "q1",
			Type: models.MultipleChoice,
			Text: "capital of France",
			Content: models.MarshalContent(models.MultipleChoiceContent{
				Choices:       []string{"Paris", "London"},
				CorrectAnswer: "Paris",
			}),
		}
		assert.NoError(t, v.ValidateQuestion(&q))
	})

	t.Run("content must match the declared type", func(t *testing.T) {
		q := models.Question{
			ID:      "q2",
			Type:    models.MultipleChoice,
			Text:    "broken",
			Content: models.MarshalContent(models.ShortAnswerContent{CorrectAnswer: "x"}),
		}
		assert.Error(t, v.ValidateQuestion(&q))
	})
}

func TestValidateBatch_DuplicateIDs(t *testing.T) {
	v := NewQuestionValidator()

	questions := []models.Question{
		{
			ID:   "q1",
			Type: models.ShortAnswer,
			Text: "first",
			Content: models.MarshalContent(models.ShortAnswerContent{
				CorrectAnswer: "yes",
			}),
		},
		{
			ID:   "q1",
			Type: models.ShortAnswer,
			Text: "second",
			Content: models.MarshalContent(models.ShortAnswerContent{
				CorrectAnswer: "no",
			}),
		},
	}

	err := v.ValidateBatch(questions)
	assert.ErrorContains(t, err, "duplicate question id")
}

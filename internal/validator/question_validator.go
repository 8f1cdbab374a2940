package validator

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/orvit/classroom-service/internal/models"
)

// QuestionValidator handles question-specific validation
type QuestionValidator struct{}

// NewQuestionValidator creates a new question validator
func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidateQuestion validates a complete authored question.
func (v *QuestionValidator) ValidateQuestion(question *models.Question) error {
	if question.ID == "" {
		return fmt.Errorf("question id is required")
	}
	if question.Text == "" {
		return fmt.Errorf("question text is required")
	}
	return v.ValidateContent(question.Type, question.Content)
}

// ValidateBatch validates the full question list of a test or assignment.
// Question ids must be unique within the document; the evaluator and the
// session controller key everything by id.
func (v *QuestionValidator) ValidateBatch(questions []models.Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("question list cannot be empty")
	}

	seen := make(map[string]bool, len(questions))
	for i := range questions {
		q := &questions[i]
		if err := v.ValidateQuestion(q); err != nil {
			return fmt.Errorf("validation failed for question %d: %w", i+1, err)
		}
		if seen[q.ID] {
			return fmt.Errorf("duplicate question id %q", q.ID)
		}
		seen[q.ID] = true
	}

	return nil
}

// ValidateContent validates the content payload against the question type.
func (v *QuestionValidator) ValidateContent(questionType models.QuestionType, content datatypes.JSON) error {
	if len(content) == 0 {
		return fmt.Errorf("content cannot be empty")
	}

	switch questionType {
	case models.MultipleChoice:
		return v.validateMultipleChoiceContent(content)
	case models.Checkbox:
		return v.validateCheckboxContent(content)
	case models.ShortAnswer, models.FillInBlank:
		return v.validateShortAnswerContent(content)
	case models.Essay:
		return nil
	case models.MixMatch:
		return v.validateMixMatchContent(content)
	default:
		return fmt.Errorf("unsupported question type: %s", questionType)
	}
}

func (v *QuestionValidator) validateMultipleChoiceContent(content datatypes.JSON) error {
	var c models.MultipleChoiceContent
	if err := json.Unmarshal(content, &c); err != nil {
		return fmt.Errorf("invalid multiple choice content: %w", err)
	}

	if len(c.Choices) < 2 {
		return fmt.Errorf("must have at least 2 choices")
	}
	if len(c.Choices) > 10 {
		return fmt.Errorf("cannot have more than 10 choices")
	}
	if c.CorrectAnswer == "" {
		return fmt.Errorf("correct answer is required")
	}
	if !containsString(c.Choices, c.CorrectAnswer) {
		return fmt.Errorf("correct answer must be one of the choices")
	}

	return nil
}

func (v *QuestionValidator) validateCheckboxContent(content datatypes.JSON) error {
	var c models.CheckboxContent
	if err := json.Unmarshal(content, &c); err != nil {
		return fmt.Errorf("invalid checkbox content: %w", err)
	}

	if len(c.Choices) < 2 {
		return fmt.Errorf("must have at least 2 choices")
	}
	if len(c.CorrectAnswers) == 0 {
		return fmt.Errorf("must have at least 1 correct answer")
	}
	for _, answer := range c.CorrectAnswers {
		if !containsString(c.Choices, answer) {
			return fmt.Errorf("correct answer %q must be one of the choices", answer)
		}
	}

	return nil
}

func (v *QuestionValidator) validateShortAnswerContent(content datatypes.JSON) error {
	var c models.ShortAnswerContent
	if err := json.Unmarshal(content, &c); err != nil {
		return fmt.Errorf("invalid short answer content: %w", err)
	}

	if c.CorrectAnswer == "" {
		return fmt.Errorf("correct answer is required")
	}
	for _, kw := range c.SimilarKeywords {
		if kw.Keyword == "" {
			return fmt.Errorf("similar keyword text cannot be empty")
		}
	}

	return nil
}

func (v *QuestionValidator) validateMixMatchContent(content datatypes.JSON) error {
	var c models.MixMatchContent
	if err := json.Unmarshal(content, &c); err != nil {
		return fmt.Errorf("invalid mix match content: %w", err)
	}

	if len(c.Pairs) < 2 {
		return fmt.Errorf("must have at least 2 match pairs")
	}
	seen := make(map[string]bool, len(c.Pairs))
	for _, pair := range c.Pairs {
		if pair.Left == "" || pair.Right == "" {
			return fmt.Errorf("match pair sides cannot be empty")
		}
		if seen[pair.Left] {
			return fmt.Errorf("duplicate left value %q", pair.Left)
		}
		seen[pair.Left] = true
	}

	return nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

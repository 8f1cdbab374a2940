package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	Checkbox       QuestionType = "checkbox"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
	MixMatch       QuestionType = "mix_match"

	// FillInBlank is accepted by the evaluator (graded like short_answer)
	// but is not offered by the question editor.
	FillInBlank QuestionType = "fill_in_the_blank"
)

// AuthorableQuestionTypes are the types the editor offers when building a
// test or assignment.
var AuthorableQuestionTypes = []QuestionType{
	MultipleChoice,
	Checkbox,
	ShortAnswer,
	Essay,
	MixMatch,
}

// Question is one authored question inside a test or assignment. Questions
// live embedded in the owning document's JSON column, not in their own table;
// a submission binds to a frozen snapshot of them at attempt start.
//
// Content holds exactly one variant struct matching Type. Fields of the
// other variants are never present.
type Question struct {
	ID   string       `json:"id" validate:"required"`
	Type QuestionType `json:"question_type" validate:"required,question_type"`
	Text string       `json:"question_text" validate:"required"`

	// Optional media shown with the prompt, never evaluated.
	ImageURL *string `json:"image_url,omitempty"`
	VideoURL *string `json:"video_url,omitempty"`

	Content datatypes.JSON `json:"content" validate:"required"`
}

// IsAutoGradable reports whether correctness can be determined without
// teacher review. Essay answers always require manual marking.
func (q *Question) IsAutoGradable() bool {
	return q.Type != Essay
}

type MatchPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type SimilarKeyword struct {
	Keyword string `json:"keyword"`
	Credit  string `json:"credit"` // percentage string as authored, e.g. "50"
}

type MultipleChoiceContent struct {
	Choices       []string `json:"choices"`
	CorrectAnswer string   `json:"correct_answer"`
}

type CheckboxContent struct {
	Choices        []string `json:"choices"`
	CorrectAnswers []string `json:"correct_answers"`
}

type ShortAnswerContent struct {
	CorrectAnswer string `json:"correct_answer"`

	// Authored partial-credit keywords. Editable but never consulted at
	// grading time; kept so authored data round-trips losslessly.
	SimilarKeywords []SimilarKeyword `json:"similar_keywords,omitempty"`
}

type EssayContent struct {
	// Guidance shown to the student, if any.
	ExpectedLength *int `json:"expected_length,omitempty"`
}

type MixMatchContent struct {
	Pairs []MatchPair `json:"match_pairs"`
}

// DecodeContent unmarshals the content payload into the variant struct for
// the question's type.
func (q *Question) DecodeContent() (interface{}, error) {
	switch q.Type {
	case MultipleChoice:
		var c MultipleChoiceContent
		if err := json.Unmarshal(q.Content, &c); err != nil {
			return nil, fmt.Errorf("invalid multiple choice content: %w", err)
		}
		return &c, nil
	case Checkbox:
		var c CheckboxContent
		if err := json.Unmarshal(q.Content, &c); err != nil {
			return nil, fmt.Errorf("invalid checkbox content: %w", err)
		}
		return &c, nil
	case ShortAnswer, FillInBlank:
		var c ShortAnswerContent
		if err := json.Unmarshal(q.Content, &c); err != nil {
			return nil, fmt.Errorf("invalid short answer content: %w", err)
		}
		return &c, nil
	case Essay:
		var c EssayContent
		if err := json.Unmarshal(q.Content, &c); err != nil {
			return nil, fmt.Errorf("invalid essay content: %w", err)
		}
		return &c, nil
	case MixMatch:
		var c MixMatchContent
		if err := json.Unmarshal(q.Content, &c); err != nil {
			return nil, fmt.Errorf("invalid mix match content: %w", err)
		}
		return &c, nil
	default:
		return nil, fmt.Errorf("unsupported question type: %s", q.Type)
	}
}

// MarshalContent is a convenience for authoring flows and tests.
func MarshalContent(content interface{}) datatypes.JSON {
	data, err := json.Marshal(content)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

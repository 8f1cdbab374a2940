package models

import "encoding/json"

// AnswerValue is a student's answer to one question as raw JSON. The wire
// shape depends on the question type:
//
//	multiple_choice, short_answer, fill_in_the_blank, essay: string
//	checkbox: array of strings
//	mix_match: object mapping left value -> selected right value
//
// The evaluator decodes the value per question type; anything that fails to
// decode is simply an incorrect answer, never an error.
type AnswerValue json.RawMessage

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if len(v) == 0 {
		return []byte("null"), nil
	}
	return v, nil
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	*v = append((*v)[0:0], data...)
	return nil
}

// IsEmpty reports whether no answer was recorded.
func (v AnswerValue) IsEmpty() bool {
	if len(v) == 0 {
		return true
	}
	s := string(v)
	return s == "null" || s == `""` || s == "[]" || s == "{}"
}

// TextAnswer builds the AnswerValue for single-string answer shapes.
func TextAnswer(s string) AnswerValue {
	data, _ := json.Marshal(s)
	return AnswerValue(data)
}

// CheckboxAnswer builds the AnswerValue for the checkbox answer shape.
func CheckboxAnswer(choices ...string) AnswerValue {
	data, _ := json.Marshal(choices)
	return AnswerValue(data)
}

// MatchAnswer builds the AnswerValue for the mix_match answer shape.
func MatchAnswer(pairs map[string]string) AnswerValue {
	data, _ := json.Marshal(pairs)
	return AnswerValue(data)
}

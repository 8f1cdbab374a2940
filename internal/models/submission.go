package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// SubmissionKind discriminates what a submission was taken against.
type SubmissionKind string

const (
	SubmissionTest       SubmissionKind = "test"
	SubmissionAssignment SubmissionKind = "assignment"
)

// EndReason records how an in-progress session reached completion.
type EndReason string

const (
	EndReasonManual  EndReason = "manual"
	EndReasonTimeout EndReason = "timeout"
)

// SubmissionAnswer is one graded (or, while in progress, merely recorded)
// answer inside a submission.
type SubmissionAnswer struct {
	QuestionID       string      `json:"question_id"`
	Answer           AnswerValue `json:"answer"`
	IsCorrect        bool        `json:"is_correct"`
	TimeSpentSeconds int         `json:"time_spent_seconds"`
}

// EssayMark is a teacher's manual mark on a single essay answer of a
// completed submission. Marks never feed back into the auto-graded score.
type EssayMark struct {
	QuestionID string    `json:"question_id"`
	Points     float64   `json:"points"`
	Feedback   *string   `json:"feedback,omitempty"`
	GradedBy   string    `json:"graded_by"`
	GradedAt   time.Time `json:"graded_at"`
}

// Submission is one attempt at a test or assignment. A row is created at
// session start (IsComplete=false) and finalized exactly once at submit
// time; after IsComplete flips to true the record is immutable from the
// student's side.
//
// QuestionSnapshot freezes the question set, in session order, at attempt
// start. Resume and grading read the snapshot, never the live question set,
// so a teacher edit mid-attempt cannot corrupt the answer mapping.
type Submission struct {
	ID       string         `json:"id" gorm:"primaryKey;size:36"`
	Kind     SubmissionKind `json:"kind" gorm:"not null;size:16;index:idx_submission_target"`
	TargetID string         `json:"target_id" gorm:"not null;size:36;index:idx_submission_target"`
	RoomID   string         `json:"room_id" gorm:"not null;size:36;index"`

	StudentID   string `json:"student_id" gorm:"not null;size:255;index:idx_submission_target"`
	StudentName string `json:"student_name" gorm:"size:100"`

	AttemptNumber int `json:"attempt_number" gorm:"not null;default:1"`

	QuestionSnapshot datatypes.JSON `json:"question_snapshot" gorm:"type:jsonb"` // []Question, session order
	Answers          datatypes.JSON `json:"answers" gorm:"type:jsonb"`           // []SubmissionAnswer
	EssayMarks       datatypes.JSON `json:"essay_marks,omitempty" gorm:"type:jsonb"`

	Score            int `json:"score" gorm:"default:0"`
	TotalQuestions   int `json:"total_questions" gorm:"default:0"`
	TotalTimeSeconds int `json:"total_time_seconds" gorm:"default:0"`

	IsComplete bool       `json:"is_complete" gorm:"default:false;index"`
	EndReason  *EndReason `json:"end_reason,omitempty" gorm:"size:16"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Student User `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

func (Submission) TableName() string {
	return "submissions"
}

// SnapshotQuestions decodes the frozen question set in session order.
func (s *Submission) SnapshotQuestions() ([]Question, error) {
	if len(s.QuestionSnapshot) == 0 {
		return nil, nil
	}
	var questions []Question
	if err := json.Unmarshal(s.QuestionSnapshot, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// AnswerList decodes the recorded answers.
func (s *Submission) AnswerList() ([]SubmissionAnswer, error) {
	if len(s.Answers) == 0 {
		return nil, nil
	}
	var answers []SubmissionAnswer
	if err := json.Unmarshal(s.Answers, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// EssayMarkList decodes any manual essay marks.
func (s *Submission) EssayMarkList() ([]EssayMark, error) {
	if len(s.EssayMarks) == 0 {
		return nil, nil
	}
	var marks []EssayMark
	if err := json.Unmarshal(s.EssayMarks, &marks); err != nil {
		return nil, err
	}
	return marks, nil
}

package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Test is a single-attempt assessment with optional time limit and access
// code. Questions are embedded as a JSON document; editing them after
// publish abandons any in-progress sessions, which keep their own snapshot.
type Test struct {
	ID     string `json:"id" gorm:"primaryKey;size:36"`
	RoomID string `json:"room_id" gorm:"not null;size:36;index"`

	Title       string  `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	Description *string `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`

	Questions datatypes.JSON `json:"questions" gorm:"type:jsonb"` // []Question

	// Session behavior
	RandomizeQuestions bool   `json:"randomize_questions" gorm:"default:false"`
	SaveProgress       bool   `json:"save_progress" gorm:"default:true"`
	RequireAccessCode  bool   `json:"require_access_code" gorm:"default:false"`
	AccessCode         string `json:"access_code" gorm:"size:50"`
	TimeLimitMinutes   *int   `json:"time_limit_minutes" validate:"omitempty,min=1,max=300"`

	// Result visibility
	ShowScoreToStudent bool `json:"show_score_to_student" gorm:"default:true"`

	IsPublished bool `json:"is_published" gorm:"default:false;index"`

	CreatedBy string         `json:"created_by" gorm:"not null;size:255;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Room Room `json:"room,omitempty" gorm:"foreignKey:RoomID"`
}

func (Test) TableName() string {
	return "tests"
}

// QuestionList decodes the embedded question document.
func (t *Test) QuestionList() ([]Question, error) {
	if len(t.Questions) == 0 {
		return nil, nil
	}
	var questions []Question
	if err := json.Unmarshal(t.Questions, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// HasTimeLimit reports whether a countdown applies to sessions of this test.
func (t *Test) HasTimeLimit() bool {
	return t.TimeLimitMinutes != nil && *t.TimeLimitMinutes > 0
}

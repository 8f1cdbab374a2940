package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Assignment is a multi-question-type activity supporting repeated attempts
// up to MaxAttempts. Essay questions require manual marking and never count
// toward the auto-graded score.
type Assignment struct {
	ID     string `json:"id" gorm:"primaryKey;size:36"`
	RoomID string `json:"room_id" gorm:"not null;size:36;index"`

	Title        string  `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	Instructions *string `json:"instructions" gorm:"type:text" validate:"omitempty,max=2000"`

	Questions datatypes.JSON `json:"questions" gorm:"type:jsonb"` // []Question

	MaxAttempts int        `json:"max_attempts" gorm:"default:1" validate:"min=1,max=10"`
	DueDate     *time.Time `json:"due_date"`

	IsPublished        bool `json:"is_published" gorm:"default:false;index"`
	ShowScoreToStudent bool `json:"show_score_to_student" gorm:"default:true"`

	CreatedBy string         `json:"created_by" gorm:"not null;size:255;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Room Room `json:"room,omitempty" gorm:"foreignKey:RoomID"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// QuestionList decodes the embedded question document.
func (a *Assignment) QuestionList() ([]Question, error) {
	if len(a.Questions) == 0 {
		return nil, nil
	}
	var questions []Question
	if err := json.Unmarshal(a.Questions, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// AttemptLimit returns the configured ceiling, defaulting to a single
// attempt when unset.
func (a *Assignment) AttemptLimit() int {
	if a.MaxAttempts < 1 {
		return 1
	}
	return a.MaxAttempts
}

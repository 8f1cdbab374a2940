package models

import (
	"time"

	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationAnnouncement        NotificationType = "announcement"
	NotificationTestPublished       NotificationType = "test_published"
	NotificationAssignmentPublished NotificationType = "assignment_published"
	NotificationSubmissionGraded    NotificationType = "submission_graded"
)

// Notification is one per-student inbox row, fanned out when content is
// published in a room the student belongs to.
type Notification struct {
	ID     string           `json:"id" gorm:"primaryKey;size:36"`
	UserID string           `json:"user_id" gorm:"not null;size:255;index"`
	Type   NotificationType `json:"type" gorm:"not null;size:32"`

	RoomID   string `json:"room_id" gorm:"size:36;index"`
	RoomName string `json:"room_name" gorm:"size:200"`

	// ContentID points at the announcement, test or assignment that
	// triggered the notification.
	ContentID string `json:"content_id" gorm:"size:36"`

	Title   string `json:"title" gorm:"not null;size:200"`
	Message string `json:"message" gorm:"type:text"`

	IsRead bool       `json:"is_read" gorm:"default:false;index"`
	ReadAt *time.Time `json:"read_at"`

	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Notification) TableName() string {
	return "notifications"
}

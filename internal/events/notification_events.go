package events

import (
	"time"
)

// EventType represents different types of notification events
type EventType string

const (
	// Room content events
	EventTestPublished       EventType = "test.published"
	EventAssignmentPublished EventType = "assignment.published"
	EventAnnouncementPosted  EventType = "announcement.posted"

	// Submission events
	EventSubmissionCompleted EventType = "submission.completed"
	EventSubmissionGraded    EventType = "submission.graded"

	// System events
	EventBulkNotification EventType = "system.bulk_notification"
)

// NotificationEvent is the base event structure for all notification events
type NotificationEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Room content event payloads

type TestPublishedEvent struct {
	TestID     string   `json:"test_id"`
	TestTitle  string   `json:"test_title"`
	RoomID     string   `json:"room_id"`
	RoomName   string   `json:"room_name"`
	StudentIDs []string `json:"student_ids"`
	CreatorID  string   `json:"creator_id"`
	TimeLimit  *int     `json:"time_limit,omitempty"` // minutes
}

type AssignmentPublishedEvent struct {
	AssignmentID    string     `json:"assignment_id"`
	AssignmentTitle string     `json:"assignment_title"`
	RoomID          string     `json:"room_id"`
	RoomName        string     `json:"room_name"`
	StudentIDs      []string   `json:"student_ids"`
	CreatorID       string     `json:"creator_id"`
	MaxAttempts     int        `json:"max_attempts"`
	DueDate         *time.Time `json:"due_date,omitempty"`
}

type AnnouncementPostedEvent struct {
	AnnouncementID string   `json:"announcement_id"`
	Title          string   `json:"title"`
	RoomID         string   `json:"room_id"`
	RoomName       string   `json:"room_name"`
	StudentIDs     []string `json:"student_ids"`
	AuthorID       string   `json:"author_id"`
}

// Submission event payloads

type SubmissionCompletedEvent struct {
	SubmissionID   string    `json:"submission_id"`
	Kind           string    `json:"kind"` // test or assignment
	TargetID       string    `json:"target_id"`
	TargetTitle    string    `json:"target_title"`
	RoomID         string    `json:"room_id"`
	StudentID      string    `json:"student_id"`
	AttemptNumber  int       `json:"attempt_number"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	EndReason      string    `json:"end_reason"`
	CompletedAt    time.Time `json:"completed_at"`
}

type SubmissionGradedEvent struct {
	SubmissionID string    `json:"submission_id"`
	Kind         string    `json:"kind"`
	TargetID     string    `json:"target_id"`
	StudentID    string    `json:"student_id"`
	GraderID     string    `json:"grader_id"`
	GradedAt     time.Time `json:"graded_at"`
}

// BulkNotificationEvent carries an arbitrary notification to many users.
type BulkNotificationEvent struct {
	RecipientIDs []string `json:"recipient_ids"`
	Title        string   `json:"title"`
	Message      string   `json:"message"`
	RoomID       string   `json:"room_id,omitempty"`
}

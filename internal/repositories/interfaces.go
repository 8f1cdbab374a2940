package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/orvit/classroom-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type TestFilters struct {
	RoomID      *string `json:"room_id"`
	CreatedBy   *string `json:"created_by"`
	IsPublished *bool   `json:"is_published"`
	Limit       int     `json:"limit"`
	Offset      int     `json:"offset"`
	SortBy      string  `json:"sort_by"`    // "created_at", "title"
	SortOrder   string  `json:"sort_order"` // "asc", "desc"
}

type AssignmentFilters struct {
	RoomID      *string    `json:"room_id"`
	CreatedBy   *string    `json:"created_by"`
	IsPublished *bool      `json:"is_published"`
	DueBefore   *time.Time `json:"due_before"`
	Limit       int        `json:"limit"`
	Offset      int        `json:"offset"`
	SortBy      string     `json:"sort_by"`
	SortOrder   string     `json:"sort_order"`
}

type SubmissionFilters struct {
	Kind       *models.SubmissionKind `json:"kind"`
	TargetID   *string                `json:"target_id"`
	RoomID     *string                `json:"room_id"`
	StudentID  *string                `json:"student_id"`
	IsComplete *bool                  `json:"is_complete"`
	Limit      int                    `json:"limit"`
	Offset     int                    `json:"offset"`
	SortBy     string                 `json:"sort_by"`
	SortOrder  string                 `json:"sort_order"`
}

type NotificationFilters struct {
	UserID    *string `json:"user_id"`
	IsRead    *bool   `json:"is_read"`
	RoomID    *string `json:"room_id"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
	SortOrder string  `json:"sort_order"`
}

// ===== SHARED STATISTICS STRUCTS =====

// SubmissionStats summarizes completed submissions of one test or
// assignment for the teacher-facing results view.
type SubmissionStats struct {
	TotalSubmissions int     `json:"total_submissions"`
	AverageScore     float64 `json:"average_score"`
	HighestScore     int     `json:"highest_score"`
	LowestScore      int     `json:"lowest_score"`
	AverageTimeSpent int     `json:"average_time_spent"`
}

// ===== REPOSITORY INTERFACES =====

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
}

type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	GetByID(ctx context.Context, id string) (*models.Room, error)
	GetByStudentCode(ctx context.Context, code string) (*models.Room, error)
	GetByTeacherCode(ctx context.Context, code string) (*models.Room, error)
	Update(ctx context.Context, room *models.Room) error
	Delete(ctx context.Context, id string) error
	GetByOwner(ctx context.Context, ownerID string) ([]*models.Room, error)

	// Membership management
	AddMembership(ctx context.Context, membership *models.RoomMembership) error
	RemoveMembership(ctx context.Context, roomID, userID string) error
	GetMembership(ctx context.Context, roomID, userID string) (*models.RoomMembership, error)
	GetMemberships(ctx context.Context, roomID string) ([]*models.RoomMembership, error)
	GetMembershipsByUser(ctx context.Context, userID string) ([]*models.RoomMembership, error)
}

type TestRepository interface {
	Create(ctx context.Context, test *models.Test) error
	GetByID(ctx context.Context, id string) (*models.Test, error)
	Update(ctx context.Context, test *models.Test) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filters TestFilters) ([]*models.Test, int64, error)
	GetByRoom(ctx context.Context, roomID string) ([]*models.Test, error)
}

type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filters AssignmentFilters) ([]*models.Assignment, int64, error)
	GetByRoom(ctx context.Context, roomID string) ([]*models.Assignment, error)
}

type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	Update(ctx context.Context, submission *models.Submission) error
	List(ctx context.Context, filters SubmissionFilters) ([]*models.Submission, int64, error)

	// Attempt tracking
	GetByStudentAndTarget(ctx context.Context, studentID string, kind models.SubmissionKind, targetID string) ([]*models.Submission, error)
	GetInProgress(ctx context.Context, studentID string, kind models.SubmissionKind, targetID string) (*models.Submission, error)
	CountCompleted(ctx context.Context, studentID string, kind models.SubmissionKind, targetID string) (int, error)

	// Results
	GetByTarget(ctx context.Context, kind models.SubmissionKind, targetID string) ([]*models.Submission, error)
	GetStats(ctx context.Context, kind models.SubmissionKind, targetID string) (*SubmissionStats, error)
}

type AnnouncementRepository interface {
	Create(ctx context.Context, announcement *models.Announcement) error
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
	Update(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
	GetByRoom(ctx context.Context, roomID string) ([]*models.Announcement, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	CreateBatch(ctx context.Context, notifications []*models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	List(ctx context.Context, filters NotificationFilters) ([]*models.Notification, int64, error)
	MarkRead(ctx context.Context, id string, readAt time.Time) error
	MarkAllRead(ctx context.Context, userID string, readAt time.Time) error
	CountUnread(ctx context.Context, userID string) (int64, error)
}

// Repository aggregates all entity repositories behind one handle.
type Repository interface {
	User() UserRepository
	Room() RoomRepository
	Test() TestRepository
	Assignment() AssignmentRepository
	Submission() SubmissionRepository
	Announcement() AnnouncementRepository
	Notification() NotificationRepository

	// Transaction runs fn against a transactional view of the repository.
	Transaction(ctx context.Context, fn func(Repository) error) error
}

// IsNotFoundError checks if error represents a "record not found" condition
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

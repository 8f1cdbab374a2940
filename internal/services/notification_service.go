package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/orvit/classroom-service/internal/events"
	"github.com/orvit/classroom-service/internal/models"
	"github.com/orvit/classroom-service/internal/repositories"
)

// NotificationService fans out per-student inbox rows when room content is
// published and mirrors each fan-out onto the event bus for downstream
// consumers (email, push).
type NotificationService interface {
	// Fan-out on publish
	NotifyTestPublished(ctx context.Context, room *models.Room, test *models.Test) error
	NotifyAssignmentPublished(ctx context.Context, room *models.Room, assignment *models.Assignment) error
	NotifyAnnouncementPosted(ctx context.Context, room *models.Room, announcement *models.Announcement) error
	NotifySubmissionGraded(ctx context.Context, submission *models.Submission, graderID string) error

	// Inbox management
	ListForUser(ctx context.Context, userID string, filters repositories.NotificationFilters) ([]*models.Notification, int64, error)
	MarkRead(ctx context.Context, notificationID, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
	CountUnread(ctx context.Context, userID string) (int64, error)
}

type notificationService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewNotificationService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger) NotificationService {
	return &notificationService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// studentIDs returns the ids of all student members of the room.
func (s *notificationService) studentIDs(ctx context.Context, roomID string) ([]string, error) {
	memberships, err := s.repo.Room().GetMemberships(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room memberships: %w", err)
	}
	return memberIDsByRole(memberships, models.RoleStudent), nil
}

// fanOut inserts one inbox row per recipient in a single batch.
func (s *notificationService) fanOut(ctx context.Context, recipientIDs []string, template models.Notification) error {
	if len(recipientIDs) == 0 {
		return nil
	}
	notifications := make([]*models.Notification, 0, len(recipientIDs))
	for _, userID := range recipientIDs {
		n := template
		n.ID = uuid.NewString()
		n.UserID = userID
		n.CreatedAt = s.now()
		notifications = append(notifications, &n)
	}
	if err := s.repo.Notification().CreateBatch(ctx, notifications); err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}
	return nil
}

// publishEvent sends the event to the bus. Event delivery is best effort;
// the inbox row is the source of truth.
func (s *notificationService) publishEvent(ctx context.Context, eventType events.EventType, data interface{}) {
	event := &events.NotificationEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: s.now(),
		Source:    "classroom-service",
		Version:   "1.0",
		Data:      data,
	}
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish notification event",
			"event_type", eventType,
			"error", err)
	}
}

func (s *notificationService) NotifyTestPublished(ctx context.Context, room *models.Room, test *models.Test) error {
	students, err := s.studentIDs(ctx, room.ID)
	if err != nil {
		return err
	}

	s.logger.Info("Fanning out test published notifications",
		"test_id", test.ID,
		"room_id", room.ID,
		"recipients", len(students))

	err = s.fanOut(ctx, students, models.Notification{
		Type:      models.NotificationTestPublished,
		RoomID:    room.ID,
		RoomName:  room.Name,
		ContentID: test.ID,
		Title:     "New test available",
		Message:   fmt.Sprintf("A new test '%s' was posted in %s", test.Title, room.Name),
	})
	if err != nil {
		return err
	}

	s.publishEvent(ctx, events.EventTestPublished, events.TestPublishedEvent{
		TestID:     test.ID,
		TestTitle:  test.Title,
		RoomID:     room.ID,
		RoomName:   room.Name,
		StudentIDs: students,
		CreatorID:  test.CreatedBy,
		TimeLimit:  test.TimeLimitMinutes,
	})
	return nil
}

func (s *notificationService) NotifyAssignmentPublished(ctx context.Context, room *models.Room, assignment *models.Assignment) error {
	students, err := s.studentIDs(ctx, room.ID)
	if err != nil {
		return err
	}

	s.logger.Info("Fanning out assignment published notifications",
		"assignment_id", assignment.ID,
		"room_id", room.ID,
		"recipients", len(students))

	err = s.fanOut(ctx, students, models.Notification{
		Type:      models.NotificationAssignmentPublished,
		RoomID:    room.ID,
		RoomName:  room.Name,
		ContentID: assignment.ID,
		Title:     "New assignment available",
		Message:   fmt.Sprintf("A new assignment '%s' was posted in %s", assignment.Title, room.Name),
	})
	if err != nil {
		return err
	}

	s.publishEvent(ctx, events.EventAssignmentPublished, events.AssignmentPublishedEvent{
		AssignmentID:    assignment.ID,
		AssignmentTitle: assignment.Title,
		RoomID:          room.ID,
		RoomName:        room.Name,
		StudentIDs:      students,
		CreatorID:       assignment.CreatedBy,
		MaxAttempts:     assignment.AttemptLimit(),
		DueDate:         assignment.DueDate,
	})
	return nil
}

func (s *notificationService) NotifyAnnouncementPosted(ctx context.Context, room *models.Room, announcement *models.Announcement) error {
	students, err := s.studentIDs(ctx, room.ID)
	if err != nil {
		return err
	}

	err = s.fanOut(ctx, students, models.Notification{
		Type:      models.NotificationAnnouncement,
		RoomID:    room.ID,
		RoomName:  room.Name,
		ContentID: announcement.ID,
		Title:     announcement.Title,
		Message:   fmt.Sprintf("%s posted an announcement in %s", announcement.AuthorName, room.Name),
	})
	if err != nil {
		return err
	}

	s.publishEvent(ctx, events.EventAnnouncementPosted, events.AnnouncementPostedEvent{
		AnnouncementID: announcement.ID,
		Title:          announcement.Title,
		RoomID:         room.ID,
		RoomName:       room.Name,
		StudentIDs:     students,
		AuthorID:       announcement.AuthorID,
	})
	return nil
}

func (s *notificationService) NotifySubmissionGraded(ctx context.Context, submission *models.Submission, graderID string) error {
	room, err := s.repo.Room().GetByID(ctx, submission.RoomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to get room: %w", err)
	}

	err = s.fanOut(ctx, []string{submission.StudentID}, models.Notification{
		Type:      models.NotificationSubmissionGraded,
		RoomID:    room.ID,
		RoomName:  room.Name,
		ContentID: submission.ID,
		Title:     "Your work has been graded",
		Message:   fmt.Sprintf("Your submission in %s has been graded", room.Name),
	})
	if err != nil {
		return err
	}

	s.publishEvent(ctx, events.EventSubmissionGraded, events.SubmissionGradedEvent{
		SubmissionID: submission.ID,
		Kind:         string(submission.Kind),
		TargetID:     submission.TargetID,
		StudentID:    submission.StudentID,
		GraderID:     graderID,
		GradedAt:     s.now(),
	})
	return nil
}

func (s *notificationService) ListForUser(ctx context.Context, userID string, filters repositories.NotificationFilters) ([]*models.Notification, int64, error) {
	filters.UserID = &userID
	return s.repo.Notification().List(ctx, filters)
}

func (s *notificationService) MarkRead(ctx context.Context, notificationID, userID string) error {
	notification, err := s.repo.Notification().GetByID(ctx, notificationID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to get notification: %w", err)
	}
	if notification.UserID != userID {
		return NewPermissionError(userID, notificationID, "notification", "mark read", "not the recipient")
	}
	if notification.IsRead {
		return nil
	}
	return s.repo.Notification().MarkRead(ctx, notificationID, s.now())
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.repo.Notification().MarkAllRead(ctx, userID, s.now())
}

func (s *notificationService) CountUnread(ctx context.Context, userID string) (int64, error) {
	return s.repo.Notification().CountUnread(ctx, userID)
}

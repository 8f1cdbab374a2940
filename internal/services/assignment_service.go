package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/orvit/classroom-service/internal/cache"
	"github.com/orvit/classroom-service/internal/models"
	"github.com/orvit/classroom-service/internal/repositories"
	"github.com/orvit/classroom-service/internal/validator"
)

// AssignmentService manages assignment authoring and publishing.
type AssignmentService interface {
	Create(ctx context.Context, req *CreateAssignmentRequest, creatorID string) (*models.Assignment, error)
	GetByID(ctx context.Context, assignmentID, userID string) (*models.Assignment, error)
	Update(ctx context.Context, assignmentID string, req *UpdateAssignmentRequest, userID string) (*models.Assignment, error)
	Delete(ctx context.Context, assignmentID, userID string) error
	ListByRoom(ctx context.Context, roomID, userID string) ([]*models.Assignment, error)

	Publish(ctx context.Context, assignmentID, userID string) (*models.Assignment, error)
	Unpublish(ctx context.Context, assignmentID, userID string) (*models.Assignment, error)
}

type CreateAssignmentRequest struct {
	RoomID       string  `json:"room_id" validate:"required"`
	Title        string  `json:"title" validate:"required,min=1,max=200"`
	Instructions *string `json:"instructions" validate:"omitempty,max=2000"`

	Questions []models.Question `json:"questions" validate:"omitempty,dive"`

	MaxAttempts        int        `json:"max_attempts" validate:"omitempty,min=1,max=10"`
	DueDate            *time.Time `json:"due_date"`
	ShowScoreToStudent *bool      `json:"show_score_to_student"`
}

type UpdateAssignmentRequest struct {
	Title        *string `json:"title" validate:"omitempty,min=1,max=200"`
	Instructions *string `json:"instructions" validate:"omitempty,max=2000"`

	Questions *[]models.Question `json:"questions" validate:"omitempty,dive"`

	MaxAttempts        *int       `json:"max_attempts" validate:"omitempty,min=1,max=10"`
	DueDate            *time.Time `json:"due_date"`
	ClearDue           bool       `json:"clear_due"`
	ShowScoreToStudent *bool      `json:"show_score_to_student"`
}

type assignmentService struct {
	repo          repositories.Repository
	rooms         RoomService
	notifications NotificationService
	cache         cache.Service
	logger        *slog.Logger
	validator     *validator.Validator
}

func NewAssignmentService(
	repo repositories.Repository,
	rooms RoomService,
	notifications NotificationService,
	cacheService cache.Service,
	logger *slog.Logger,
	v *validator.Validator,
) AssignmentService {
	return &assignmentService{
		repo:          repo,
		rooms:         rooms,
		notifications: notifications,
		cache:         cacheService,
		logger:        logger,
		validator:     v,
	}
}

const assignmentCacheTTL = 5 * time.Minute

func assignmentCacheKey(assignmentID string) string {
	return "assignment:" + assignmentID
}

func (s *assignmentService) Create(ctx context.Context, req *CreateAssignmentRequest, creatorID string) (*models.Assignment, error) {
	s.logger.Info("Creating assignment", "room_id", req.RoomID, "creator_id", creatorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	// Drafts may start empty; publishing enforces a non-empty question set.
	if len(req.Questions) > 0 {
		if err := s.validator.Question().ValidateBatch(req.Questions); err != nil {
			return nil, err
		}
	}

	room, err := s.repo.Room().GetByID(ctx, req.RoomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if !s.rooms.IsTeacher(ctx, room, creatorID) {
		return nil, NewPermissionError(creatorID, room.ID, "assignment", "create", "not a teacher of this room")
	}

	questions, err := encodeQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	assignment := &models.Assignment{
		ID:                 uuid.NewString(),
		RoomID:             req.RoomID,
		Title:              req.Title,
		Instructions:       req.Instructions,
		Questions:          questions,
		MaxAttempts:        maxAttempts,
		DueDate:            req.DueDate,
		ShowScoreToStudent: true,
		CreatedBy:          creatorID,
	}
	if req.ShowScoreToStudent != nil {
		assignment.ShowScoreToStudent = *req.ShowScoreToStudent
	}

	if err := s.repo.Assignment().Create(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	s.logger.Info("Assignment created", "assignment_id", assignment.ID, "room_id", assignment.RoomID)
	return assignment, nil
}

func (s *assignmentService) GetByID(ctx context.Context, assignmentID, userID string) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := s.cache.Get(ctx, assignmentCacheKey(assignmentID), &assignment); err == nil {
		return s.restrictAssignmentView(ctx, &assignment, userID)
	}

	loaded, err := s.repo.Assignment().GetByID(ctx, assignmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	if err := s.cache.Set(ctx, assignmentCacheKey(assignmentID), loaded, assignmentCacheTTL); err != nil {
		s.logger.Warn("Failed to cache assignment", "assignment_id", assignmentID, "error", err)
	}
	return s.restrictAssignmentView(ctx, loaded, userID)
}

func (s *assignmentService) restrictAssignmentView(ctx context.Context, assignment *models.Assignment, userID string) (*models.Assignment, error) {
	room, err := s.repo.Room().GetByID(ctx, assignment.RoomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	if s.rooms.IsTeacher(ctx, room, userID) {
		return assignment, nil
	}

	member, err := s.rooms.IsMember(ctx, assignment.RoomID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, NewPermissionError(userID, assignment.ID, "assignment", "view", "not a member of the room")
	}
	if !assignment.IsPublished {
		return nil, ErrAssignmentNotPublished
	}
	return studentAssignmentView(assignment)
}

// studentAssignmentView copies the assignment with question content stripped
// of correct answers.
func studentAssignmentView(assignment *models.Assignment) (*models.Assignment, error) {
	sanitized := *assignment
	questions, err := sanitizeQuestionSet(assignment.Questions)
	if err != nil {
		return nil, fmt.Errorf("assignment %s: %w", assignment.ID, err)
	}
	sanitized.Questions = questions
	return &sanitized, nil
}

func (s *assignmentService) getOwnedAssignment(ctx context.Context, assignmentID, userID, action string) (*models.Assignment, error) {
	assignment, err := s.repo.Assignment().GetByID(ctx, assignmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	room, err := s.repo.Room().GetByID(ctx, assignment.RoomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if !s.rooms.IsTeacher(ctx, room, userID) {
		return nil, NewPermissionError(userID, assignmentID, "assignment", action, "not a teacher of this room")
	}
	return assignment, nil
}

func (s *assignmentService) Update(ctx context.Context, assignmentID string, req *UpdateAssignmentRequest, userID string) (*models.Assignment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	assignment, err := s.getOwnedAssignment(ctx, assignmentID, userID, "update")
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		assignment.Title = *req.Title
	}
	if req.Instructions != nil {
		assignment.Instructions = req.Instructions
	}
	if req.Questions != nil {
		if len(*req.Questions) > 0 {
			if err := s.validator.Question().ValidateBatch(*req.Questions); err != nil {
				return nil, err
			}
		}
		questions, err := encodeQuestions(*req.Questions)
		if err != nil {
			return nil, err
		}
		assignment.Questions = questions
	}
	if req.MaxAttempts != nil {
		assignment.MaxAttempts = *req.MaxAttempts
	}
	if req.ClearDue {
		assignment.DueDate = nil
	} else if req.DueDate != nil {
		assignment.DueDate = req.DueDate
	}
	if req.ShowScoreToStudent != nil {
		assignment.ShowScoreToStudent = *req.ShowScoreToStudent
	}

	if err := s.repo.Assignment().Update(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}
	s.invalidate(ctx, assignmentID)
	return assignment, nil
}

func (s *assignmentService) Delete(ctx context.Context, assignmentID, userID string) error {
	if _, err := s.getOwnedAssignment(ctx, assignmentID, userID, "delete"); err != nil {
		return err
	}
	if err := s.repo.Assignment().Delete(ctx, assignmentID); err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	s.invalidate(ctx, assignmentID)
	s.logger.Info("Assignment deleted", "assignment_id", assignmentID, "user_id", userID)
	return nil
}

func (s *assignmentService) ListByRoom(ctx context.Context, roomID, userID string) ([]*models.Assignment, error) {
	room, err := s.repo.Room().GetByID(ctx, roomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	isTeacher := s.rooms.IsTeacher(ctx, room, userID)
	if !isTeacher {
		member, err := s.rooms.IsMember(ctx, roomID, userID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, NewPermissionError(userID, roomID, "room", "list assignments", "not a member")
		}
	}

	assignments, err := s.repo.Assignment().GetByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	if isTeacher {
		return assignments, nil
	}

	visible := make([]*models.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if !a.IsPublished {
			continue
		}
		sanitized, err := studentAssignmentView(a)
		if err != nil {
			return nil, err
		}
		visible = append(visible, sanitized)
	}
	return visible, nil
}

func (s *assignmentService) Publish(ctx context.Context, assignmentID, userID string) (*models.Assignment, error) {
	assignment, err := s.getOwnedAssignment(ctx, assignmentID, userID, "publish")
	if err != nil {
		return nil, err
	}
	if assignment.IsPublished {
		return assignment, nil
	}

	questions, err := assignment.QuestionList()
	if err != nil {
		return nil, fmt.Errorf("failed to decode questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, NewBusinessRuleError("assignment_publish_empty",
			"an assignment must have at least one question before publishing", nil)
	}

	assignment.IsPublished = true
	if err := s.repo.Assignment().Update(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to publish assignment: %w", err)
	}
	s.invalidate(ctx, assignmentID)

	room, err := s.repo.Room().GetByID(ctx, assignment.RoomID)
	if err == nil {
		if err := s.notifications.NotifyAssignmentPublished(ctx, room, assignment); err != nil {
			s.logger.Error("Failed to notify assignment published", "assignment_id", assignmentID, "error", err)
		}
	}

	s.logger.Info("Assignment published", "assignment_id", assignmentID, "room_id", assignment.RoomID)
	return assignment, nil
}

func (s *assignmentService) Unpublish(ctx context.Context, assignmentID, userID string) (*models.Assignment, error) {
	assignment, err := s.getOwnedAssignment(ctx, assignmentID, userID, "unpublish")
	if err != nil {
		return nil, err
	}
	if !assignment.IsPublished {
		return assignment, nil
	}
	assignment.IsPublished = false
	if err := s.repo.Assignment().Update(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to unpublish assignment: %w", err)
	}
	s.invalidate(ctx, assignmentID)
	return assignment, nil
}

func (s *assignmentService) invalidate(ctx context.Context, assignmentID string) {
	if err := s.cache.Delete(ctx, assignmentCacheKey(assignmentID)); err != nil {
		s.logger.Warn("Failed to invalidate assignment cache", "assignment_id", assignmentID, "error", err)
	}
}

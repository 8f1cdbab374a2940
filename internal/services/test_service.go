package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/orvit/classroom-service/internal/cache"
	"github.com/orvit/classroom-service/internal/models"
	"github.com/orvit/classroom-service/internal/repositories"
	"github.com/orvit/classroom-service/internal/validator"
)

// TestService manages test authoring and publishing. Session flow lives in
// SessionService.
type TestService interface {
	Create(ctx context.Context, req *CreateTestRequest, creatorID string) (*models.Test, error)
	GetByID(ctx context.Context, testID, userID string) (*models.Test, error)
	Update(ctx context.Context, testID string, req *UpdateTestRequest, userID string) (*models.Test, error)
	Delete(ctx context.Context, testID, userID string) error
	ListByRoom(ctx context.Context, roomID, userID string) ([]*models.Test, error)

	// Publish makes the test visible to students and fans out notifications.
	Publish(ctx context.Context, testID, userID string) (*models.Test, error)
	Unpublish(ctx context.Context, testID, userID string) (*models.Test, error)

	// ImportQuestions replaces the question set from an exported JSON document.
	ImportQuestions(ctx context.Context, testID string, questionsJSON []byte, userID string) (*models.Test, error)
}

type CreateTestRequest struct {
	RoomID      string  `json:"room_id" validate:"required"`
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`

	Questions []models.Question `json:"questions" validate:"omitempty,dive"`

	RandomizeQuestions bool   `json:"randomize_questions"`
	SaveProgress       *bool  `json:"save_progress"`
	RequireAccessCode  bool   `json:"require_access_code"`
	AccessCode         string `json:"access_code" validate:"omitempty,max=50"`
	TimeLimitMinutes   *int   `json:"time_limit_minutes" validate:"omitempty,min=1,max=300"`
	ShowScoreToStudent *bool  `json:"show_score_to_student"`
}

type UpdateTestRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`

	Questions *[]models.Question `json:"questions" validate:"omitempty,dive"`

	RandomizeQuestions *bool   `json:"randomize_questions"`
	SaveProgress       *bool   `json:"save_progress"`
	RequireAccessCode  *bool   `json:"require_access_code"`
	AccessCode         *string `json:"access_code" validate:"omitempty,max=50"`
	TimeLimitMinutes   *int    `json:"time_limit_minutes" validate:"omitempty,min=1,max=300"`
	ShowScoreToStudent *bool   `json:"show_score_to_student"`
}

type testService struct {
	repo          repositories.Repository
	rooms         RoomService
	notifications NotificationService
	cache         cache.Service
	logger        *slog.Logger
	validator     *validator.Validator
}

func NewTestService(
	repo repositories.Repository,
	rooms RoomService,
	notifications NotificationService,
	cacheService cache.Service,
	logger *slog.Logger,
	v *validator.Validator,
) TestService {
	return &testService{
		repo:          repo,
		rooms:         rooms,
		notifications: notifications,
		cache:         cacheService,
		logger:        logger,
		validator:     v,
	}
}

const testCacheTTL = 5 * time.Minute

func testCacheKey(testID string) string {
	return "test:" + testID
}

func encodeQuestions(questions []models.Question) (datatypes.JSON, error) {
	if questions == nil {
		questions = []models.Question{}
	}
	data, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode questions: %w", err)
	}
	return datatypes.JSON(data), nil
}

func (s *testService) Create(ctx context.Context, req *CreateTestRequest, creatorID string) (*models.Test, error) {
	s.logger.Info("Creating test", "room_id", req.RoomID, "creator_id", creatorID)

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
		return nil, NewPermissionError(creatorID, room.ID, "test", "create", "not a teacher of this room")
	}

	questions, err := encodeQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	test := &models.Test{
		ID:                 uuid.NewString(),
		RoomID:             req.RoomID,
		Title:              req.Title,
		Description:        req.Description,
		Questions:          questions,
		RandomizeQuestions: req.RandomizeQuestions,
		SaveProgress:       true,
		RequireAccessCode:  req.RequireAccessCode,
		AccessCode:         req.AccessCode,
		TimeLimitMinutes:   req.TimeLimitMinutes,
		ShowScoreToStudent: true,
		CreatedBy:          creatorID,
	}
	if req.SaveProgress != nil {
		test.SaveProgress = *req.SaveProgress
	}
	if req.ShowScoreToStudent != nil {
		test.ShowScoreToStudent = *req.ShowScoreToStudent
	}

	if err := s.repo.Test().Create(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to create test: %w", err)
	}

	s.logger.Info("Test created", "test_id", test.ID, "room_id", test.RoomID)
	return test, nil
}

func (s *testService) GetByID(ctx context.Context, testID, userID string) (*models.Test, error) {
	var test models.Test
	if err := s.cache.Get(ctx, testCacheKey(testID), &test); err == nil {
		return s.restrictTestView(ctx, &test, userID)
	}

	loaded, err := s.repo.Test().GetByID(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	if err := s.cache.Set(ctx, testCacheKey(testID), loaded, testCacheTTL); err != nil {
		s.logger.Warn("Failed to cache test", "test_id", testID, "error", err)
	}
	return s.restrictTestView(ctx, loaded, userID)
}

// restrictTestView enforces visibility: students only see published tests of
// rooms they belong to, never the access code, and never the grading keys
// inside the question content.
func (s *testService) restrictTestView(ctx context.Context, test *models.Test, userID string) (*models.Test, error) {
	room, err := s.repo.Room().GetByID(ctx, test.RoomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	if s.rooms.IsTeacher(ctx, room, userID) {
		return test, nil
	}

	member, err := s.rooms.IsMember(ctx, test.RoomID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, NewPermissionError(userID, test.ID, "test", "view", "not a member of the room")
	}
	if !test.IsPublished {
		return nil, ErrTestNotPublished
	}

	return studentTestView(test)
}

// studentTestView copies the test without the access code and with question
// content stripped of correct answers.
func studentTestView(test *models.Test) (*models.Test, error) {
	sanitized := *test
	sanitized.AccessCode = ""
	questions, err := sanitizeQuestionSet(test.Questions)
	if err != nil {
		return nil, fmt.Errorf("test %s: %w", test.ID, err)
	}
	sanitized.Questions = questions
	return &sanitized, nil
}

func (s *testService) getOwnedTest(ctx context.Context, testID, userID, action string) (*models.Test, error) {
	test, err := s.repo.Test().GetByID(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	room, err := s.repo.Room().GetByID(ctx, test.RoomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if !s.rooms.IsTeacher(ctx, room, userID) {
		return nil, NewPermissionError(userID, testID, "test", action, "not a teacher of this room")
	}
	return test, nil
}

func (s *testService) Update(ctx context.Context, testID string, req *UpdateTestRequest, userID string) (*models.Test, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	test, err := s.getOwnedTest(ctx, testID, userID, "update")
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		test.Title = *req.Title
	}
	if req.Description != nil {
		test.Description = req.Description
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
		test.Questions = questions
	}
	if req.RandomizeQuestions != nil {
		test.RandomizeQuestions = *req.RandomizeQuestions
	}
	if req.SaveProgress != nil {
		test.SaveProgress = *req.SaveProgress
	}
	if req.RequireAccessCode != nil {
		test.RequireAccessCode = *req.RequireAccessCode
	}
	if req.AccessCode != nil {
		test.AccessCode = *req.AccessCode
	}
	if req.TimeLimitMinutes != nil {
		test.TimeLimitMinutes = req.TimeLimitMinutes
	}
	if req.ShowScoreToStudent != nil {
		test.ShowScoreToStudent = *req.ShowScoreToStudent
	}

	if err := s.repo.Test().Update(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to update test: %w", err)
	}
	s.invalidate(ctx, testID)
	return test, nil
}

func (s *testService) Delete(ctx context.Context, testID, userID string) error {
	if _, err := s.getOwnedTest(ctx, testID, userID, "delete"); err != nil {
		return err
	}
	if err := s.repo.Test().Delete(ctx, testID); err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}
	s.invalidate(ctx, testID)
	s.logger.Info("Test deleted", "test_id", testID, "user_id", userID)
	return nil
}

func (s *testService) ListByRoom(ctx context.Context, roomID, userID string) ([]*models.Test, error) {
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
			return nil, NewPermissionError(userID, roomID, "room", "list tests", "not a member")
		}
	}

	tests, err := s.repo.Test().GetByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}

	if isTeacher {
		return tests, nil
	}

	// Students see only published tests, never access codes or answer keys.
	visible := make([]*models.Test, 0, len(tests))
	for _, t := range tests {
		if !t.IsPublished {
			continue
		}
		sanitized, err := studentTestView(t)
		if err != nil {
			return nil, err
		}
		visible = append(visible, sanitized)
	}
	return visible, nil
}

func (s *testService) Publish(ctx context.Context, testID, userID string) (*models.Test, error) {
	test, err := s.getOwnedTest(ctx, testID, userID, "publish")
	if err != nil {
		return nil, err
	}
	if test.IsPublished {
		return test, nil
	}

	questions, err := test.QuestionList()
	if err != nil {
		return nil, fmt.Errorf("failed to decode questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, NewBusinessRuleError("test_publish_empty",
			"a test must have at least one question before publishing", nil)
	}

	test.IsPublished = true
	if err := s.repo.Test().Update(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to publish test: %w", err)
	}
	s.invalidate(ctx, testID)

	room, err := s.repo.Room().GetByID(ctx, test.RoomID)
	if err == nil {
		if err := s.notifications.NotifyTestPublished(ctx, room, test); err != nil {
			s.logger.Error("Failed to notify test published", "test_id", testID, "error", err)
		}
	}

	s.logger.Info("Test published", "test_id", testID, "room_id", test.RoomID)
	return test, nil
}

func (s *testService) Unpublish(ctx context.Context, testID, userID string) (*models.Test, error) {
	test, err := s.getOwnedTest(ctx, testID, userID, "unpublish")
	if err != nil {
		return nil, err
	}
	if !test.IsPublished {
		return test, nil
	}
	test.IsPublished = false
	if err := s.repo.Test().Update(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to unpublish test: %w", err)
	}
	s.invalidate(ctx, testID)
	return test, nil
}

func (s *testService) ImportQuestions(ctx context.Context, testID string, questionsJSON []byte, userID string) (*models.Test, error) {
	test, err := s.getOwnedTest(ctx, testID, userID, "import questions")
	if err != nil {
		return nil, err
	}

	var questions []models.Question
	if err := json.Unmarshal(questionsJSON, &questions); err != nil {
		return nil, NewValidationError("questions", "invalid question document", nil)
	}
	// Imported questions get fresh ids so repeated imports never collide.
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.NewString()
		}
	}
	if err := s.validator.Question().ValidateBatch(questions); err != nil {
		return nil, err
	}

	encoded, err := encodeQuestions(questions)
	if err != nil {
		return nil, err
	}
	test.Questions = encoded

	if err := s.repo.Test().Update(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to import questions: %w", err)
	}
	s.invalidate(ctx, testID)

	s.logger.Info("Questions imported", "test_id", testID, "count", len(questions))
	return test, nil
}

func (s *testService) invalidate(ctx context.Context, testID string) {
	if err := s.cache.Delete(ctx, testCacheKey(testID)); err != nil {
		s.logger.Warn("Failed to invalidate test cache", "test_id", testID, "error", err)
	}
}

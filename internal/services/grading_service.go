package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/orvit/classroom-service/internal/models"
	"github.com/orvit/classroom-service/internal/repositories"
	"github.com/orvit/classroom-service/internal/validator"
)

// GradingService handles the manual marking teachers apply to essay answers
// of completed submissions. Marks are stored beside the auto-graded result
// and never change the auto-graded score.
type GradingService interface {
	GradeEssay(ctx context.Context, submissionID string, req *GradeEssayRequest, graderID string) (*models.Submission, error)
	ListPendingEssays(ctx context.Context, kind models.SubmissionKind, targetID, teacherID string) ([]*PendingEssay, error)
}

type GradeEssayRequest struct {
	QuestionID string  `json:"question_id" validate:"required"`
	Points     float64 `json:"points" validate:"min=0,max=100"`
	Feedback   *string `json:"feedback" validate:"omitempty,max=2000"`
}

// PendingEssay is one ungraded essay answer awaiting teacher review.
type PendingEssay struct {
	SubmissionID string             `json:"submission_id"`
	StudentID    string             `json:"student_id"`
	StudentName  string             `json:"student_name"`
	QuestionID   string             `json:"question_id"`
	QuestionText string             `json:"question_text"`
	Answer       models.AnswerValue `json:"answer"`
}

type gradingService struct {
	repo          repositories.Repository
	rooms         RoomService
	notifications NotificationService
	logger        *slog.Logger
	validator     *validator.Validator
	now           func() time.Time
}

func NewGradingService(
	repo repositories.Repository,
	rooms RoomService,
	notifications NotificationService,
	logger *slog.Logger,
	v *validator.Validator,
) GradingService {
	return &gradingService{
		repo:          repo,
		rooms:         rooms,
		notifications: notifications,
		logger:        logger,
		validator:     v,
		now:           time.Now,
	}
}

func (s *gradingService) GradeEssay(ctx context.Context, submissionID string, req *GradeEssayRequest, graderID string) (*models.Submission, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.Points < 0 {
		return nil, ErrEssayGradingInvalidPoints
	}

	submission, err := s.repo.Submission().GetByID(ctx, submissionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if !submission.IsComplete {
		return nil, ErrSubmissionNotComplete
	}

	room, err := s.repo.Room().GetByID(ctx, submission.RoomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if !s.rooms.IsTeacher(ctx, room, graderID) {
		return nil, NewPermissionError(graderID, submissionID, "submission", "grade", "not a teacher of this room")
	}

	snapshot, err := submission.SnapshotQuestions()
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	var question *models.Question
	for i := range snapshot {
		if snapshot[i].ID == req.QuestionID {
			question = &snapshot[i]
			break
		}
	}
	if question == nil {
		return nil, ErrSessionQuestionNotFound
	}
	if question.Type != models.Essay {
		return nil, ErrEssayGradingNotApplicable
	}

	marks, err := submission.EssayMarkList()
	if err != nil {
		return nil, fmt.Errorf("failed to decode essay marks: %w", err)
	}

	// Regrading the same question replaces the previous mark.
	mark := models.EssayMark{
		QuestionID: req.QuestionID,
		Points:     req.Points,
		Feedback:   req.Feedback,
		GradedBy:   graderID,
		GradedAt:   s.now(),
	}
	replaced := false
	for i := range marks {
		if marks[i].QuestionID == req.QuestionID {
			marks[i] = mark
			replaced = true
			break
		}
	}
	if !replaced {
		marks = append(marks, mark)
	}

	data, err := json.Marshal(marks)
	if err != nil {
		return nil, fmt.Errorf("failed to encode essay marks: %w", err)
	}
	submission.EssayMarks = datatypes.JSON(data)

	if err := s.repo.Submission().Update(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to save essay mark: %w", err)
	}

	s.logger.Info("Essay graded",
		"submission_id", submissionID,
		"question_id", req.QuestionID,
		"grader_id", graderID)

	if err := s.notifications.NotifySubmissionGraded(ctx, submission, graderID); err != nil {
		s.logger.Error("Failed to notify submission graded",
			"submission_id", submissionID,
			"error", err)
	}
	return submission, nil
}

func (s *gradingService) ListPendingEssays(ctx context.Context, kind models.SubmissionKind, targetID, teacherID string) ([]*PendingEssay, error) {
	submissions, err := s.repo.Submission().GetByTarget(ctx, kind, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	if len(submissions) == 0 {
		return []*PendingEssay{}, nil
	}

	room, err := s.repo.Room().GetByID(ctx, submissions[0].RoomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if !s.rooms.IsTeacher(ctx, room, teacherID) {
		return nil, NewPermissionError(teacherID, targetID, string(kind), "list pending essays", "not a teacher of this room")
	}

	var pending []*PendingEssay
	for _, sub := range submissions {
		if !sub.IsComplete {
			continue
		}
		snapshot, err := sub.SnapshotQuestions()
		if err != nil {
			return nil, fmt.Errorf("failed to decode snapshot of %s: %w", sub.ID, err)
		}
		answers, err := sub.AnswerList()
		if err != nil {
			return nil, fmt.Errorf("failed to decode answers of %s: %w", sub.ID, err)
		}
		marks, err := sub.EssayMarkList()
		if err != nil {
			return nil, fmt.Errorf("failed to decode essay marks of %s: %w", sub.ID, err)
		}

		graded := make(map[string]bool, len(marks))
		for _, m := range marks {
			graded[m.QuestionID] = true
		}
		answerByQuestion := make(map[string]models.AnswerValue, len(answers))
		for _, a := range answers {
			answerByQuestion[a.QuestionID] = a.Answer
		}

		for i := range snapshot {
			q := &snapshot[i]
			if q.Type != models.Essay || graded[q.ID] {
				continue
			}
			pending = append(pending, &PendingEssay{
				SubmissionID: sub.ID,
				StudentID:    sub.StudentID,
				StudentName:  sub.StudentName,
				QuestionID:   q.ID,
				QuestionText: q.Text,
				Answer:       answerByQuestion[q.ID],
			})
		}
	}
	if pending == nil {
		pending = []*PendingEssay{}
	}
	return pending, nil
}

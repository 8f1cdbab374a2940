package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/orvit/classroom-service/internal/cache"
	"github.com/orvit/classroom-service/internal/events"
	"github.com/orvit/classroom-service/internal/grading"
	"github.com/orvit/classroom-service/internal/models"
	"github.com/orvit/classroom-service/internal/repositories"
	"github.com/orvit/classroom-service/internal/validator"
)

// SessionService drives a student's attempt from start to submit. A session
// is an incomplete Submission row carrying the frozen question snapshot;
// submit grades the snapshot against the recorded answers exactly once.
type SessionService interface {
	// Start begins a new attempt or resumes the in-progress one when the
	// target allows it. The returned view never includes correct answers.
	Start(ctx context.Context, req *StartSessionRequest, student *models.User) (*SessionView, error)

	// SaveAnswer records one answer into the in-progress session.
	SaveAnswer(ctx context.Context, sessionID string, req *SaveAnswerRequest, studentID string) error

	// Submit finalizes the session. Repeated submits of a completed session
	// return the already-recorded result unchanged.
	Submit(ctx context.Context, sessionID string, req *SubmitSessionRequest, studentID string) (*models.Submission, error)

	GetSession(ctx context.Context, sessionID, studentID string) (*SessionView, error)
	TimeRemaining(ctx context.Context, sessionID, studentID string) (*int, error)

	// AttemptSummary reports completed attempts and whether another may start.
	AttemptSummary(ctx context.Context, kind models.SubmissionKind, targetID, studentID string) (*AttemptSummary, error)
}

type StartSessionRequest struct {
	Kind       models.SubmissionKind `json:"kind" validate:"required,oneof=test assignment"`
	TargetID   string                `json:"target_id" validate:"required"`
	AccessCode string                `json:"access_code"`
}

type SaveAnswerRequest struct {
	QuestionID       string             `json:"question_id" validate:"required"`
	Answer           models.AnswerValue `json:"answer"`
	TimeSpentSeconds int                `json:"time_spent_seconds" validate:"min=0"`
}

type SubmitSessionRequest struct {
	// Final answers keyed by question id. Questions absent here fall back to
	// the answers saved during the session.
	Answers   map[string]models.AnswerValue `json:"answers"`
	TimeSpent map[string]int                `json:"time_spent"`
}

// SessionQuestion is a student-facing question with grading keys stripped.
type SessionQuestion struct {
	ID       string              `json:"id"`
	Type     models.QuestionType `json:"question_type"`
	Text     string              `json:"question_text"`
	ImageURL *string             `json:"image_url,omitempty"`
	VideoURL *string             `json:"video_url,omitempty"`
	Content  json.RawMessage     `json:"content"`
}

type SessionView struct {
	SessionID     string                `json:"session_id"`
	Kind          models.SubmissionKind `json:"kind"`
	TargetID      string                `json:"target_id"`
	Title         string                `json:"title"`
	AttemptNumber int                   `json:"attempt_number"`

	Questions []models.SubmissionAnswer `json:"saved_answers"`
	Snapshot  []SessionQuestion         `json:"questions"`

	StartedAt            time.Time `json:"started_at"`
	TimeRemainingSeconds *int      `json:"time_remaining_seconds,omitempty"`
	Resumed              bool      `json:"resumed"`
}

type AttemptSummary struct {
	CompletedAttempts int  `json:"completed_attempts"`
	MaxAttempts       int  `json:"max_attempts"`
	CanStart          bool `json:"can_start"`
	BestScore         *int `json:"best_score,omitempty"`
	HasInProgress     bool `json:"has_in_progress"`
}

type sessionService struct {
	repo      repositories.Repository
	rooms     RoomService
	cache     cache.Service
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator

	// injected for timer tests
	now func() time.Time
}

func NewSessionService(
	repo repositories.Repository,
	rooms RoomService,
	cacheService cache.Service,
	publisher events.EventPublisher,
	logger *slog.Logger,
	v *validator.Validator,
) SessionService {
	return &sessionService{
		repo:      repo,
		rooms:     rooms,
		cache:     cacheService,
		publisher: publisher,
		logger:    logger,
		validator: v,
		now:       time.Now,
	}
}

const submitLockTTL = 10 * time.Second

func submitLockKey(sessionID string) string {
	return "submit_lock:" + sessionID
}

// sessionTarget is the common shape of a test or assignment a session runs
// against.
type sessionTarget struct {
	title            string
	roomID           string
	questions        []models.Question
	randomize        bool
	saveProgress     bool
	timeLimitMinutes *int
	maxAttempts      int
}

func (s *sessionService) loadTarget(ctx context.Context, kind models.SubmissionKind, targetID, accessCode string) (*sessionTarget, error) {
	switch kind {
	case models.SubmissionTest:
		test, err := s.repo.Test().GetByID(ctx, targetID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrTestNotFound
			}
			return nil, fmt.Errorf("failed to get test: %w", err)
		}
		if !test.IsPublished {
			return nil, ErrTestNotPublished
		}
		// Exact comparison, matching what the teacher typed in the editor.
		if test.RequireAccessCode && test.AccessCode != accessCode {
			return nil, ErrInvalidAccessCode
		}
		questions, err := test.QuestionList()
		if err != nil {
			return nil, fmt.Errorf("failed to decode questions: %w", err)
		}
		return &sessionTarget{
			title:            test.Title,
			roomID:           test.RoomID,
			questions:        questions,
			randomize:        test.RandomizeQuestions,
			saveProgress:     test.SaveProgress,
			timeLimitMinutes: test.TimeLimitMinutes,
			maxAttempts:      1,
		}, nil

	case models.SubmissionAssignment:
		assignment, err := s.repo.Assignment().GetByID(ctx, targetID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrAssignmentNotFound
			}
			return nil, fmt.Errorf("failed to get assignment: %w", err)
		}
		if !assignment.IsPublished {
			return nil, ErrAssignmentNotPublished
		}
		if !withinDue(assignment.DueDate, s.now()) {
			return nil, ErrAssignmentPastDue
		}
		questions, err := assignment.QuestionList()
		if err != nil {
			return nil, fmt.Errorf("failed to decode questions: %w", err)
		}
		return &sessionTarget{
			title:        assignment.Title,
			roomID:       assignment.RoomID,
			questions:    questions,
			saveProgress: true,
			maxAttempts:  assignment.AttemptLimit(),
		}, nil

	default:
		return nil, NewValidationError("kind", "unknown submission kind", kind)
	}
}

func (s *sessionService) Start(ctx context.Context, req *StartSessionRequest, student *models.User) (*SessionView, error) {
	s.logger.Info("Starting session",
		"kind", req.Kind,
		"target_id", req.TargetID,
		"student_id", student.ID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	target, err := s.loadTarget(ctx, req.Kind, req.TargetID, req.AccessCode)
	if err != nil {
		return nil, err
	}

	member, err := s.rooms.IsMember(ctx, target.roomID, student.ID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, NewPermissionError(student.ID, req.TargetID, string(req.Kind), "start", "not a member of the room")
	}

	// A completed test attempt is absorbing: no restart, ever.
	completed, err := s.repo.Submission().CountCompleted(ctx, student.ID, req.Kind, req.TargetID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	if req.Kind == models.SubmissionTest && completed > 0 {
		return nil, ErrTestAlreadyCompleted
	}
	if completed >= target.maxAttempts {
		return nil, ErrAttemptLimitReached
	}

	// Resume an in-progress session when progress saving applies.
	inProgress, err := s.repo.Submission().GetInProgress(ctx, student.ID, req.Kind, req.TargetID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check in-progress session: %w", err)
	}
	if inProgress != nil {
		if expired, view, err := s.expireIfNeeded(ctx, inProgress, target); err != nil {
			return nil, err
		} else if !expired {
			if target.saveProgress {
				s.logger.Info("Resuming session", "session_id", inProgress.ID)
				view.Resumed = true
				return view, nil
			}
			// Progress saving is off: the abandoned session restarts from
			// scratch with a fresh snapshot.
			return s.restartSession(ctx, inProgress, target)
		}
		// Expired sessions were just auto-submitted; fall through to the
		// attempt ceiling check against the new count.
		completed++
		if req.Kind == models.SubmissionTest || completed >= target.maxAttempts {
			return nil, ErrSessionExpired
		}
	}

	if len(target.questions) == 0 {
		return nil, NewBusinessRuleError("session_no_questions",
			"cannot start a session with no questions", nil)
	}

	snapshot := s.snapshotQuestions(target)
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	session := &models.Submission{
		ID:               uuid.NewString(),
		Kind:             req.Kind,
		TargetID:         req.TargetID,
		RoomID:           target.roomID,
		StudentID:        student.ID,
		StudentName:      student.DisplayName(),
		AttemptNumber:    completed + 1,
		QuestionSnapshot: datatypes.JSON(snapshotJSON),
		Answers:          datatypes.JSON("[]"),
		StartedAt:        s.now(),
	}

	if err := s.repo.Submission().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("Session started",
		"session_id", session.ID,
		"attempt_number", session.AttemptNumber,
		"questions", len(snapshot))

	return s.buildView(session, target, false)
}

// snapshotQuestions freezes the question order for the whole session. The
// shuffle happens exactly once; resume replays the stored order.
func (s *sessionService) snapshotQuestions(target *sessionTarget) []models.Question {
	snapshot := make([]models.Question, len(target.questions))
	copy(snapshot, target.questions)
	if target.randomize {
		rand.Shuffle(len(snapshot), func(i, j int) {
			snapshot[i], snapshot[j] = snapshot[j], snapshot[i]
		})
	}
	return snapshot
}

func (s *sessionService) restartSession(ctx context.Context, session *models.Submission, target *sessionTarget) (*SessionView, error) {
	snapshot := s.snapshotQuestions(target)
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	session.QuestionSnapshot = datatypes.JSON(snapshotJSON)
	session.Answers = datatypes.JSON("[]")
	session.StartedAt = s.now()

	if err := s.repo.Submission().Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to restart session: %w", err)
	}
	s.logger.Info("Session restarted", "session_id", session.ID)
	return s.buildView(session, target, false)
}

// expireIfNeeded auto-submits the session when its time limit has run out.
// Returns the session view when the session is still live.
func (s *sessionService) expireIfNeeded(ctx context.Context, session *models.Submission, target *sessionTarget) (bool, *SessionView, error) {
	if remaining := s.remainingSeconds(session, target); remaining != nil && *remaining <= 0 {
		s.logger.Info("Session expired, auto-submitting", "session_id", session.ID)
		if _, err := s.finalize(ctx, session, nil, nil, models.EndReasonTimeout); err != nil {
			return false, nil, fmt.Errorf("failed to auto-submit expired session: %w", err)
		}
		return true, nil, nil
	}
	view, err := s.buildView(session, target, false)
	if err != nil {
		return false, nil, err
	}
	return false, view, nil
}

func (s *sessionService) remainingSeconds(session *models.Submission, target *sessionTarget) *int {
	if target.timeLimitMinutes == nil || *target.timeLimitMinutes <= 0 {
		return nil
	}
	deadline := session.StartedAt.Add(time.Duration(*target.timeLimitMinutes) * time.Minute)
	remaining := int(deadline.Sub(s.now()).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

func (s *sessionService) buildView(session *models.Submission, target *sessionTarget, resumed bool) (*SessionView, error) {
	snapshot, err := session.SnapshotQuestions()
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	sanitized := make([]SessionQuestion, 0, len(snapshot))
	for i := range snapshot {
		q, err := sanitizeQuestion(&snapshot[i])
		if err != nil {
			return nil, err
		}
		sanitized = append(sanitized, q)
	}

	answers, err := session.AnswerList()
	if err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}

	return &SessionView{
		SessionID:            session.ID,
		Kind:                 session.Kind,
		TargetID:             session.TargetID,
		Title:                target.title,
		AttemptNumber:        session.AttemptNumber,
		Questions:            answers,
		Snapshot:             sanitized,
		StartedAt:            session.StartedAt,
		TimeRemainingSeconds: s.remainingSeconds(session, target),
		Resumed:              resumed,
	}, nil
}

// sanitizeQuestion strips grading keys from the content before it reaches a
// student. Match pairs come back as two independent lists so the pairing is
// not recoverable from the payload.
func sanitizeQuestion(q *models.Question) (SessionQuestion, error) {
	out := SessionQuestion{
		ID:       q.ID,
		Type:     q.Type,
		Text:     q.Text,
		ImageURL: q.ImageURL,
		VideoURL: q.VideoURL,
	}

	content, err := q.DecodeContent()
	if err != nil {
		return out, fmt.Errorf("question %s: %w", q.ID, err)
	}

	var sanitized interface{}
	switch c := content.(type) {
	case *models.MultipleChoiceContent:
		sanitized = map[string]interface{}{"choices": c.Choices}
	case *models.CheckboxContent:
		sanitized = map[string]interface{}{"choices": c.Choices}
	case *models.ShortAnswerContent:
		sanitized = map[string]interface{}{}
	case *models.EssayContent:
		sanitized = c
	case *models.MixMatchContent:
		lefts := make([]string, 0, len(c.Pairs))
		rights := make([]string, 0, len(c.Pairs))
		for _, p := range c.Pairs {
			lefts = append(lefts, p.Left)
			rights = append(rights, p.Right)
		}
		rand.Shuffle(len(rights), func(i, j int) {
			rights[i], rights[j] = rights[j], rights[i]
		})
		sanitized = map[string]interface{}{"lefts": lefts, "rights": rights}
	default:
		sanitized = map[string]interface{}{}
	}

	data, err := json.Marshal(sanitized)
	if err != nil {
		return out, fmt.Errorf("question %s: %w", q.ID, err)
	}
	out.Content = data
	return out, nil
}

// sanitizeQuestionSet strips grading keys from an encoded question document
// so a student-facing test, assignment or submission view never carries the
// answer key.
func sanitizeQuestionSet(encoded datatypes.JSON) (datatypes.JSON, error) {
	if len(encoded) == 0 {
		return encoded, nil
	}
	var questions []models.Question
	if err := json.Unmarshal(encoded, &questions); err != nil {
		return nil, fmt.Errorf("failed to decode questions: %w", err)
	}
	for i := range questions {
		sq, err := sanitizeQuestion(&questions[i])
		if err != nil {
			return nil, err
		}
		questions[i].Content = datatypes.JSON(sq.Content)
	}
	data, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode questions: %w", err)
	}
	return datatypes.JSON(data), nil
}

func (s *sessionService) getOwnedSession(ctx context.Context, sessionID, studentID string) (*models.Submission, error) {
	session, err := s.repo.Submission().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.StudentID != studentID {
		return nil, NewPermissionError(studentID, sessionID, "session", "access", "not owned by student")
	}
	return session, nil
}

func (s *sessionService) targetFor(ctx context.Context, session *models.Submission) (*sessionTarget, error) {
	switch session.Kind {
	case models.SubmissionTest:
		test, err := s.repo.Test().GetByID(ctx, session.TargetID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrTestNotFound
			}
			return nil, fmt.Errorf("failed to get test: %w", err)
		}
		return &sessionTarget{
			title:            test.Title,
			roomID:           test.RoomID,
			randomize:        test.RandomizeQuestions,
			saveProgress:     test.SaveProgress,
			timeLimitMinutes: test.TimeLimitMinutes,
			maxAttempts:      1,
		}, nil
	case models.SubmissionAssignment:
		assignment, err := s.repo.Assignment().GetByID(ctx, session.TargetID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrAssignmentNotFound
			}
			return nil, fmt.Errorf("failed to get assignment: %w", err)
		}
		return &sessionTarget{
			title:        assignment.Title,
			roomID:       assignment.RoomID,
			saveProgress: true,
			maxAttempts:  assignment.AttemptLimit(),
		}, nil
	default:
		return nil, NewValidationError("kind", "unknown submission kind", session.Kind)
	}
}

func (s *sessionService) SaveAnswer(ctx context.Context, sessionID string, req *SaveAnswerRequest, studentID string) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	session, err := s.getOwnedSession(ctx, sessionID, studentID)
	if err != nil {
		return err
	}
	if session.IsComplete {
		return ErrSubmissionAlreadyComplete
	}

	target, err := s.targetFor(ctx, session)
	if err != nil {
		return err
	}
	if remaining := s.remainingSeconds(session, target); remaining != nil && *remaining <= 0 {
		if _, err := s.finalize(ctx, session, nil, nil, models.EndReasonTimeout); err != nil {
			return fmt.Errorf("failed to auto-submit expired session: %w", err)
		}
		return ErrSessionExpired
	}

	snapshot, err := session.SnapshotQuestions()
	if err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	known := false
	for i := range snapshot {
		if snapshot[i].ID == req.QuestionID {
			known = true
			break
		}
	}
	if !known {
		return ErrSessionQuestionNotFound
	}

	answers, err := session.AnswerList()
	if err != nil {
		return fmt.Errorf("failed to decode answers: %w", err)
	}

	updated := false
	for i := range answers {
		if answers[i].QuestionID == req.QuestionID {
			answers[i].Answer = req.Answer
			answers[i].TimeSpentSeconds += req.TimeSpentSeconds
			updated = true
			break
		}
	}
	if !updated {
		answers = append(answers, models.SubmissionAnswer{
			QuestionID:       req.QuestionID,
			Answer:           req.Answer,
			TimeSpentSeconds: req.TimeSpentSeconds,
		})
	}

	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}
	session.Answers = datatypes.JSON(data)

	if err := s.repo.Submission().Update(ctx, session); err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}
	return nil
}

func (s *sessionService) Submit(ctx context.Context, sessionID string, req *SubmitSessionRequest, studentID string) (*models.Submission, error) {
	session, err := s.getOwnedSession(ctx, sessionID, studentID)
	if err != nil {
		return nil, err
	}

	// Double-click safety: the first submit wins, repeats of a completed
	// session return the recorded result.
	if session.IsComplete {
		return submittedView(session)
	}

	acquired, err := s.cache.AcquireLock(ctx, submitLockKey(sessionID), submitLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire submit lock: %w", err)
	}
	if !acquired {
		return nil, ErrSubmitInProgress
	}
	defer func() {
		if err := s.cache.ReleaseLock(ctx, submitLockKey(sessionID)); err != nil {
			s.logger.Warn("Failed to release submit lock", "session_id", sessionID, "error", err)
		}
	}()

	// Re-read under the lock in case a concurrent submit won the race.
	session, err = s.getOwnedSession(ctx, sessionID, studentID)
	if err != nil {
		return nil, err
	}
	if session.IsComplete {
		return submittedView(session)
	}

	target, err := s.targetFor(ctx, session)
	if err != nil {
		return nil, err
	}

	endReason := models.EndReasonManual
	if remaining := s.remainingSeconds(session, target); remaining != nil && *remaining <= 0 {
		endReason = models.EndReasonTimeout
	}

	submitted, err := s.finalize(ctx, session, req.Answers, req.TimeSpent, endReason)
	if err != nil {
		return nil, err
	}
	return submittedView(submitted)
}

// submittedView copies a finalized submission for the submitting student.
// The snapshot loses its grading keys; score visibility is handled by the
// results views.
func submittedView(sub *models.Submission) (*models.Submission, error) {
	view := *sub
	snapshot, err := sanitizeQuestionSet(view.QuestionSnapshot)
	if err != nil {
		return nil, fmt.Errorf("submission %s: %w", sub.ID, err)
	}
	view.QuestionSnapshot = snapshot
	return &view, nil
}

// finalize grades the snapshot and flips the session to complete. Submitted
// answers overlay the ones saved during the session.
func (s *sessionService) finalize(
	ctx context.Context,
	session *models.Submission,
	submitted map[string]models.AnswerValue,
	timeSpent map[string]int,
	endReason models.EndReason,
) (*models.Submission, error) {
	snapshot, err := session.SnapshotQuestions()
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	saved, err := session.AnswerList()
	if err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}

	answers := make(map[string]models.AnswerValue, len(snapshot))
	times := make(map[string]int, len(snapshot))
	for _, a := range saved {
		answers[a.QuestionID] = a.Answer
		times[a.QuestionID] = a.TimeSpentSeconds
	}
	for qid, a := range submitted {
		answers[qid] = a
	}
	for qid, t := range timeSpent {
		times[qid] = t
	}

	result := grading.Grade(snapshot, answers, times)

	answersJSON, err := json.Marshal(result.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode graded answers: %w", err)
	}

	totalTime := 0
	for _, a := range result.Answers {
		totalTime += a.TimeSpentSeconds
	}

	now := s.now()
	session.Answers = datatypes.JSON(answersJSON)
	session.Score = result.Score
	session.TotalQuestions = result.TotalQuestions
	session.TotalTimeSeconds = totalTime
	session.IsComplete = true
	session.EndReason = &endReason
	session.CompletedAt = &now

	if err := s.repo.Submission().Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to finalize session: %w", err)
	}

	s.logger.Info("Session submitted",
		"session_id", session.ID,
		"score", session.Score,
		"total", session.TotalQuestions,
		"end_reason", endReason)

	s.publishCompleted(ctx, session)
	return session, nil
}

func (s *sessionService) publishCompleted(ctx context.Context, session *models.Submission) {
	event := &events.NotificationEvent{
		ID:        uuid.NewString(),
		Type:      events.EventSubmissionCompleted,
		Timestamp: s.now(),
		Source:    "classroom-service",
		Version:   "1.0",
		Data: events.SubmissionCompletedEvent{
			SubmissionID:   session.ID,
			Kind:           string(session.Kind),
			TargetID:       session.TargetID,
			RoomID:         session.RoomID,
			StudentID:      session.StudentID,
			AttemptNumber:  session.AttemptNumber,
			Score:          session.Score,
			TotalQuestions: session.TotalQuestions,
			EndReason:      string(*session.EndReason),
			CompletedAt:    *session.CompletedAt,
		},
	}
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish submission completed event",
			"session_id", session.ID,
			"error", err)
	}
}

func (s *sessionService) GetSession(ctx context.Context, sessionID, studentID string) (*SessionView, error) {
	session, err := s.getOwnedSession(ctx, sessionID, studentID)
	if err != nil {
		return nil, err
	}
	if session.IsComplete {
		return nil, ErrSubmissionAlreadyComplete
	}
	target, err := s.targetFor(ctx, session)
	if err != nil {
		return nil, err
	}
	expired, view, err := s.expireIfNeeded(ctx, session, target)
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, ErrSessionExpired
	}
	view.Resumed = true
	return view, nil
}

func (s *sessionService) TimeRemaining(ctx context.Context, sessionID, studentID string) (*int, error) {
	session, err := s.getOwnedSession(ctx, sessionID, studentID)
	if err != nil {
		return nil, err
	}
	if session.IsComplete {
		return nil, ErrSubmissionAlreadyComplete
	}
	target, err := s.targetFor(ctx, session)
	if err != nil {
		return nil, err
	}
	return s.remainingSeconds(session, target), nil
}

func (s *sessionService) AttemptSummary(ctx context.Context, kind models.SubmissionKind, targetID, studentID string) (*AttemptSummary, error) {
	submissions, err := s.repo.Submission().GetByStudentAndTarget(ctx, studentID, kind, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	maxAttempts := 1
	if kind == models.SubmissionAssignment {
		assignment, err := s.repo.Assignment().GetByID(ctx, targetID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrAssignmentNotFound
			}
			return nil, fmt.Errorf("failed to get assignment: %w", err)
		}
		maxAttempts = assignment.AttemptLimit()
	}

	summary := &AttemptSummary{MaxAttempts: maxAttempts}
	for _, sub := range submissions {
		if sub.IsComplete {
			summary.CompletedAttempts++
		} else {
			summary.HasInProgress = true
		}
	}
	if best := grading.BestScore(submissions); best >= 0 {
		summary.BestScore = &best
	}
	summary.CanStart = summary.CompletedAttempts < maxAttempts
	return summary, nil
}

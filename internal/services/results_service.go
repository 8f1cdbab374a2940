package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"

	"github.com/orvit/classroom-service/internal/grading"
	"github.com/orvit/classroom-service/internal/models"
	"github.com/orvit/classroom-service/internal/repositories"
)

// ResultsService exposes graded outcomes: the teacher's per-target results
// table with summary statistics, the student's own attempt history, and the
// spreadsheet export.
type ResultsService interface {
	// Teacher views
	GetTargetResults(ctx context.Context, kind models.SubmissionKind, targetID, teacherID string) (*TargetResults, error)
	ExportTargetResults(ctx context.Context, kind models.SubmissionKind, targetID, teacherID string) ([]byte, error)

	// Student views
	GetMySubmissions(ctx context.Context, kind models.SubmissionKind, targetID, studentID string) ([]*StudentResult, error)
	GetSubmission(ctx context.Context, submissionID, userID string) (*models.Submission, error)
}

// TargetResults is the teacher-facing results table for one test or
// assignment.
type TargetResults struct {
	Kind        models.SubmissionKind         `json:"kind"`
	TargetID    string                        `json:"target_id"`
	Stats       *repositories.SubmissionStats `json:"stats"`
	Questions   []*QuestionStat               `json:"questions"`
	Submissions []*models.Submission          `json:"submissions"`
}

// QuestionStat aggregates one question's outcomes across all completed
// submissions. Essays count answers but never correctness.
type QuestionStat struct {
	QuestionID   string              `json:"question_id"`
	QuestionText string              `json:"question_text"`
	Type         models.QuestionType `json:"type"`
	Answered     int                 `json:"answered"`
	Correct      int                 `json:"correct"`
	CorrectRate  float64             `json:"correct_rate"`
}

// StudentResult is one completed attempt as shown to its owner. Score fields
// are nil when the test hides scores from students.
type StudentResult struct {
	SubmissionID     string           `json:"submission_id"`
	AttemptNumber    int              `json:"attempt_number"`
	Score            *int             `json:"score,omitempty"`
	TotalQuestions   *int             `json:"total_questions,omitempty"`
	BestScore        *int             `json:"best_score,omitempty"`
	TotalTimeSeconds int              `json:"total_time_seconds"`
	EndReason        models.EndReason `json:"end_reason"`
	CompletedAt      string           `json:"completed_at"`
}

type resultsService struct {
	repo   repositories.Repository
	rooms  RoomService
	logger *slog.Logger
}

func NewResultsService(repo repositories.Repository, rooms RoomService, logger *slog.Logger) ResultsService {
	return &resultsService{
		repo:   repo,
		rooms:  rooms,
		logger: logger,
	}
}

func (s *resultsService) roomForTarget(ctx context.Context, kind models.SubmissionKind, targetID string) (*models.Room, error) {
	var roomID string
	switch kind {
	case models.SubmissionTest:
		test, err := s.repo.Test().GetByID(ctx, targetID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrTestNotFound
			}
			return nil, fmt.Errorf("failed to get test: %w", err)
		}
		roomID = test.RoomID
	case models.SubmissionAssignment:
		assignment, err := s.repo.Assignment().GetByID(ctx, targetID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrAssignmentNotFound
			}
			return nil, fmt.Errorf("failed to get assignment: %w", err)
		}
		roomID = assignment.RoomID
	default:
		return nil, NewValidationError("kind", "unknown submission kind", kind)
	}

	room, err := s.repo.Room().GetByID(ctx, roomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

func (s *resultsService) GetTargetResults(ctx context.Context, kind models.SubmissionKind, targetID, teacherID string) (*TargetResults, error) {
	room, err := s.roomForTarget(ctx, kind, targetID)
	if err != nil {
		return nil, err
	}
	if !s.rooms.IsTeacher(ctx, room, teacherID) {
		return nil, NewPermissionError(teacherID, targetID, string(kind), "view results", "not a teacher of this room")
	}

	submissions, err := s.repo.Submission().GetByTarget(ctx, kind, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	completed := make([]*models.Submission, 0, len(submissions))
	for _, sub := range submissions {
		if sub.IsComplete {
			completed = append(completed, sub)
		}
	}

	stats, err := s.repo.Submission().GetStats(ctx, kind, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	return &TargetResults{
		Kind:        kind,
		TargetID:    targetID,
		Stats:       stats,
		Questions:   s.questionStats(completed),
		Submissions: completed,
	}, nil
}

// questionStats walks completed submissions and aggregates per-question
// correct rates. Question identity comes from each submission's snapshot so
// later edits to the live question set do not skew the numbers.
func (s *resultsService) questionStats(submissions []*models.Submission) []*QuestionStat {
	order := make([]string, 0)
	byID := make(map[string]*QuestionStat)

	for _, sub := range submissions {
		questions, err := sub.SnapshotQuestions()
		if err != nil {
			s.logger.Warn("Skipping submission with bad snapshot", "submission_id", sub.ID, "error", err)
			continue
		}
		answers, err := sub.AnswerList()
		if err != nil {
			s.logger.Warn("Skipping submission with bad answers", "submission_id", sub.ID, "error", err)
			continue
		}
		answered := make(map[string]models.SubmissionAnswer, len(answers))
		for _, a := range answers {
			answered[a.QuestionID] = a
		}

		for _, q := range questions {
			stat, ok := byID[q.ID]
			if !ok {
				stat = &QuestionStat{QuestionID: q.ID, QuestionText: q.Text, Type: q.Type}
				byID[q.ID] = stat
				order = append(order, q.ID)
			}
			a, ok := answered[q.ID]
			if !ok || a.Answer.IsEmpty() {
				continue
			}
			stat.Answered++
			if q.Type != models.Essay && a.IsCorrect {
				stat.Correct++
			}
		}
	}

	stats := make([]*QuestionStat, 0, len(order))
	for _, id := range order {
		stat := byID[id]
		if stat.Answered > 0 && stat.Type != models.Essay {
			stat.CorrectRate = float64(stat.Correct) / float64(stat.Answered)
		}
		stats = append(stats, stat)
	}
	return stats
}

func (s *resultsService) ExportTargetResults(ctx context.Context, kind models.SubmissionKind, targetID, teacherID string) ([]byte, error) {
	results, err := s.GetTargetResults(ctx, kind, targetID, teacherID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheetName := "Results"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Student ID", "Student Name", "Attempt", "Score", "Total Questions",
		"Percentage", "End Reason", "Started At", "Completed At", "Time Spent (minutes)",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, sub := range results.Submissions {
		percentage := 0.0
		if sub.TotalQuestions > 0 {
			percentage = float64(sub.Score) / float64(sub.TotalQuestions) * 100
		}
		endReason := ""
		if sub.EndReason != nil {
			endReason = string(*sub.EndReason)
		}
		completedAt := ""
		if sub.CompletedAt != nil {
			completedAt = sub.CompletedAt.Format("2006-01-02 15:04:05")
		}

		row := []interface{}{
			sub.StudentID,
			sub.StudentName,
			sub.AttemptNumber,
			sub.Score,
			sub.TotalQuestions,
			fmt.Sprintf("%.1f%%", percentage),
			endReason,
			sub.StartedAt.Format("2006-01-02 15:04:05"),
			completedAt,
			sub.TotalTimeSeconds / 60,
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Results exported",
		"kind", kind,
		"target_id", targetID,
		"rows", len(results.Submissions))

	return buf.Bytes(), nil
}

func (s *resultsService) GetMySubmissions(ctx context.Context, kind models.SubmissionKind, targetID, studentID string) ([]*StudentResult, error) {
	submissions, err := s.repo.Submission().GetByStudentAndTarget(ctx, studentID, kind, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	showScore, err := s.showScoreToStudent(ctx, kind, targetID)
	if err != nil {
		return nil, err
	}

	best := grading.BestScore(submissions)

	results := make([]*StudentResult, 0, len(submissions))
	for _, sub := range submissions {
		if !sub.IsComplete {
			continue
		}
		result := &StudentResult{
			SubmissionID:     sub.ID,
			AttemptNumber:    sub.AttemptNumber,
			TotalTimeSeconds: sub.TotalTimeSeconds,
		}
		if sub.EndReason != nil {
			result.EndReason = *sub.EndReason
		}
		if sub.CompletedAt != nil {
			result.CompletedAt = sub.CompletedAt.Format("2006-01-02 15:04:05")
		}
		if showScore {
			score := sub.Score
			total := sub.TotalQuestions
			result.Score = &score
			result.TotalQuestions = &total
			if best >= 0 {
				b := best
				result.BestScore = &b
			}
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *resultsService) GetSubmission(ctx context.Context, submissionID, userID string) (*models.Submission, error) {
	submission, err := s.repo.Submission().GetByID(ctx, submissionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	if submission.StudentID == userID {
		if !submission.IsComplete {
			return nil, ErrSubmissionNotComplete
		}
		return s.studentSubmissionView(ctx, submission)
	}

	room, err := s.repo.Room().GetByID(ctx, submission.RoomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if !s.rooms.IsTeacher(ctx, room, userID) {
		return nil, ErrSubmissionAccessDenied
	}
	return submission, nil
}

// showScoreToStudent reports whether the target exposes scores to students.
func (s *resultsService) showScoreToStudent(ctx context.Context, kind models.SubmissionKind, targetID string) (bool, error) {
	switch kind {
	case models.SubmissionTest:
		test, err := s.repo.Test().GetByID(ctx, targetID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return false, ErrTestNotFound
			}
			return false, fmt.Errorf("failed to get test: %w", err)
		}
		return test.ShowScoreToStudent, nil
	case models.SubmissionAssignment:
		assignment, err := s.repo.Assignment().GetByID(ctx, targetID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return false, ErrAssignmentNotFound
			}
			return false, fmt.Errorf("failed to get assignment: %w", err)
		}
		return assignment.ShowScoreToStudent, nil
	default:
		return false, NewValidationError("kind", "unknown submission kind", kind)
	}
}

// studentSubmissionView copies a completed submission for its owner. The
// snapshot loses its grading keys (the student may still have attempts
// left), and when the target hides scores the score fields and per-answer
// correctness read as zero values.
func (s *resultsService) studentSubmissionView(ctx context.Context, submission *models.Submission) (*models.Submission, error) {
	view := *submission

	snapshot, err := sanitizeQuestionSet(view.QuestionSnapshot)
	if err != nil {
		return nil, fmt.Errorf("submission %s: %w", submission.ID, err)
	}
	view.QuestionSnapshot = snapshot

	showScore, err := s.showScoreToStudent(ctx, submission.Kind, submission.TargetID)
	if err != nil {
		return nil, err
	}
	if !showScore {
		view.Score = 0
		view.TotalQuestions = 0
		answers, err := view.AnswerList()
		if err != nil {
			return nil, fmt.Errorf("submission %s: %w", submission.ID, err)
		}
		for i := range answers {
			answers[i].IsCorrect = false
		}
		encoded, err := json.Marshal(answers)
		if err != nil {
			return nil, fmt.Errorf("submission %s: %w", submission.ID, err)
		}
		view.Answers = datatypes.JSON(encoded)
	}
	return &view, nil
}

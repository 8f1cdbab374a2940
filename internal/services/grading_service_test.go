package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orvit/classroom-service/internal/models"
)

func completeAssignmentAttempt(t *testing.T, env *testEnv, student *models.User, assignmentID string, answers map[string]models.AnswerValue) *models.Submission {
	t.Helper()
	ctx := context.Background()
	view, err := env.sessions.Start(ctx, &StartSessionRequest{
		Kind:     models.SubmissionAssignment,
		TargetID: assignmentID,
	}, student)
	require.NoError(t, err)
	submission, err := env.sessions.Submit(ctx, view.SessionID, &SubmitSessionRequest{Answers: answers}, student.ID)
	require.NoError(t, err)
	return submission
}

func TestGradingService_GradeEssay(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	room, teacher, student := seedRoom(t, env)

	assignment := &models.Assignment{
		ID:     "asg-essay",
		RoomID: room.ID,
		Title:  "Reflection",
		Questions: questionsJSON(t,
			mcQuestion("q1", "Paris", "Paris", "London"),
			essayQuestion("q2"),
		),
		MaxAttempts: 1,
		IsPublished: true,
		CreatedBy:   teacher.ID,
	}
	require.NoError(t, env.repo.Assignment().Create(ctx, assignment))

	submission := completeAssignmentAttempt(t, env, student, assignment.ID, map[string]models.AnswerValue{
		"q1": models.TextAnswer("Paris"),
		"q2": models.TextAnswer("My long reflection on the topic."),
	})

	t.Run("pending list surfaces ungraded essays", func(t *testing.T) {
		pending, err := env.grading.ListPendingEssays(ctx, models.SubmissionAssignment, assignment.ID, teacher.ID)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "q2", pending[0].QuestionID)
		assert.Equal(t, student.ID, pending[0].StudentID)
	})

	t.Run("mark is stored without touching the auto score", func(t *testing.T) {
		feedback := "Well argued."
		graded, err := env.grading.GradeEssay(ctx, submission.ID, &GradeEssayRequest{
			QuestionID: "q2",
			Points:     8,
			Feedback:   &feedback,
		}, teacher.ID)
		require.NoError(t, err)

		assert.Equal(t, submission.Score, graded.Score)
		assert.Equal(t, submission.TotalQuestions, graded.TotalQuestions)

		marks, err := graded.EssayMarkList()
		require.NoError(t, err)
		require.Len(t, marks, 1)
		assert.Equal(t, 8.0, marks[0].Points)
		assert.Equal(t, teacher.ID, marks[0].GradedBy)

		// The student gets a graded notification.
		count, err := env.notifications.CountUnread(ctx, student.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, int64(1))
	})

	t.Run("regrading replaces the mark", func(t *testing.T) {
		graded, err := env.grading.GradeEssay(ctx, submission.ID, &GradeEssayRequest{
			QuestionID: "q2",
			Points:     5,
		}, teacher.ID)
		require.NoError(t, err)

		marks, err := graded.EssayMarkList()
		require.NoError(t, err)
		require.Len(t, marks, 1)
		assert.Equal(t, 5.0, marks[0].Points)

		pending, err := env.grading.ListPendingEssays(ctx, models.SubmissionAssignment, assignment.ID, teacher.ID)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("non-essay question is rejected", func(t *testing.T) {
		_, err := env.grading.GradeEssay(ctx, submission.ID, &GradeEssayRequest{
			QuestionID: "q1",
			Points:     1,
		}, teacher.ID)
		assert.ErrorIs(t, err, ErrEssayGradingNotApplicable)
	})

	t.Run("students cannot grade", func(t *testing.T) {
		_, err := env.grading.GradeEssay(ctx, submission.ID, &GradeEssayRequest{
			QuestionID: "q2",
			Points:     10,
		}, student.ID)
		var pe *PermissionError
		assert.ErrorAs(t, err, &pe)
	})
}

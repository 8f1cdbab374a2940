package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/orvit/classroom-service/internal/events"
	"github.com/orvit/classroom-service/internal/models"
)

func mcQuestion(id, correct string, choices ...string) models.Question {
	return models.Question{
		ID:   id,
		Type: models.MultipleChoice,
		Text: "pick one",
		Content: models.MarshalContent(models.MultipleChoiceContent{
			Choices:       choices,
			CorrectAnswer: correct,
		}),
	}
}

func essayQuestion(id string) models.Question {
	return models.Question{
		ID:      id,
		Type:    models.Essay,
		Text:    "write freely",
		Content: models.MarshalContent(models.EssayContent{}),
	}
}

func questionsJSON(t *testing.T, questions ...models.Question) datatypes.JSON {
	t.Helper()
	data, err := json.Marshal(questions)
	require.NoError(t, err)
	return datatypes.JSON(data)
}

// seedRoom creates a room with one teacher and one enrolled student.
func seedRoom(t *testing.T, env *testEnv) (*models.Room, *models.User, *models.User) {
	t.Helper()
	teacher := env.addUser(t, "teacher-1", models.RoleTeacher)
	student := env.addUser(t, "student-1", models.RoleStudent)

	room := &models.Room{
		ID:          "room-1",
		Name:        "Biology 101",
		StudentCode: "STUD01",
		TeacherCode: "TEAC01",
		OwnerID:     teacher.ID,
	}
	require.NoError(t, env.repo.Room().Create(context.Background(), room))
	env.addMember(t, room.ID, teacher, models.RoleTeacher)
	env.addMember(t, room.ID, student, models.RoleStudent)
	return room, teacher, student
}

func seedTest(t *testing.T, env *testEnv, room *models.Room, teacher *models.User, mutate func(*models.Test)) *models.Test {
	t.Helper()
	test := &models.Test{
		ID:     "test-1",
		RoomID: room.ID,
		Title:  "Cell structure quiz",
		Questions: questionsJSON(t,
			mcQuestion("q1", "Paris", "Paris", "London"),
			mcQuestion("q2", "Blue", "Blue", "Red"),
			mcQuestion("q3", "Seven", "Seven", "Nine"),
		),
		SaveProgress:       true,
		ShowScoreToStudent: true,
		IsPublished:        true,
		CreatedBy:          teacher.ID,
	}
	if mutate != nil {
		mutate(test)
	}
	require.NoError(t, env.repo.Test().Create(context.Background(), test))
	return test
}

func TestSessionService_StartTest(t *testing.T) {
	ctx := context.Background()

	t.Run("creates session with sanitized snapshot", func(t *testing.T) {
		env := newTestEnv(t)
		room, teacher, student := seedRoom(t, env)
		test := seedTest(t, env, room, teacher, nil)

		view, err := env.sessions.Start(ctx, &StartSessionRequest{
			Kind:     models.SubmissionTest,
			TargetID: test.ID,
		}, student)
		require.NoError(t, err)

		assert.Equal(t, 1, view.AttemptNumber)
		assert.False(t, view.Resumed)
		assert.Len(t, view.Snapshot, 3)
		assert.Nil(t, view.TimeRemainingSeconds)

		// Correct answers must not leak into the student payload.
		for _, q := range view.Snapshot {
			assert.NotContains(t, string(q.Content), "correct_answer")
			assert.NotContains(t, string(q.Content), "Paris")
		}
	})

	t.Run("unpublished test is not startable", func(t *testing.T) {
		env := newTestEnv(t)
		room, teacher, student := seedRoom(t, env)
		test := seedTest(t, env, room, teacher, func(tt *models.Test) { tt.IsPublished = false })

		_, err := env.sessions.Start(ctx, &StartSessionRequest{
			Kind:     models.SubmissionTest,
			TargetID: test.ID,
		}, student)
		assert.ErrorIs(t, err, ErrTestNotPublished)
	})

	t.Run("non-member cannot start", func(t *testing.T) {
		env := newTestEnv(t)
		room, teacher, _ := seedRoom(t, env)
		test := seedTest(t, env, room, teacher, nil)
		outsider := env.addUser(t, "outsider", models.RoleStudent)

		_, err := env.sessions.Start(ctx, &StartSessionRequest{
			Kind:     models.SubmissionTest,
			TargetID: test.ID,
		}, outsider)
		var pe *PermissionError
		assert.ErrorAs(t, err, &pe)
	})

	t.Run("access code gate matches exactly", func(t *testing.T) {
		env := newTestEnv(t)
		room, teacher, student := seedRoom(t, env)
		test := seedTest(t, env, room, teacher, func(tt *models.Test) {
			tt.RequireAccessCode = true
			tt.AccessCode = "Secret1"
		})

		_, err := env.sessions.Start(ctx, &StartSessionRequest{
			Kind:       models.SubmissionTest,
			TargetID:   test.ID,
			AccessCode: "secret1",
		}, student)
		assert.ErrorIs(t, err, ErrInvalidAccessCode)

		_, err = env.sessions.Start(ctx, &StartSessionRequest{
			Kind:       models.SubmissionTest,
			TargetID:   test.ID,
			AccessCode: "Secret1",
		}, student)
		assert.NoError(t, err)
	})
}

func TestSessionService_ShuffleOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	room, teacher, student := seedRoom(t, env)

	questions := make([]models.Question, 0, 12)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		questions = append(questions, mcQuestion("q-"+id, "yes", "yes", "no"))
	}
	test := seedTest(t, env, room, teacher, func(tt *models.Test) {
		tt.Questions = questionsJSON(t, questions...)
		tt.RandomizeQuestions = true
	})

	view, err := env.sessions.Start(ctx, &StartSessionRequest{
		Kind:     models.SubmissionTest,
		TargetID: test.ID,
	}, student)
	require.NoError(t, err)

	order := make([]string, 0, len(view.Snapshot))
	for _, q := range view.Snapshot {
		order = append(order, q.ID)
	}

	// The shuffled order is frozen at start: every later read replays it.
	for i := 0; i < 3; i++ {
		resumed, err := env.sessions.GetSession(ctx, view.SessionID, student.ID)
		require.NoError(t, err)
		got := make([]string, 0, len(resumed.Snapshot))
		for _, q := range resumed.Snapshot {
			got = append(got, q.ID)
		}
		assert.Equal(t, order, got)
	}

	// Resuming through Start must not reshuffle either.
	again, err := env.sessions.Start(ctx, &StartSessionRequest{
		Kind:     models.SubmissionTest,
		TargetID: test.ID,
	}, student)
	require.NoError(t, err)
	assert.True(t, again.Resumed)
	got := make([]string, 0, len(again.Snapshot))
	for _, q := range again.Snapshot {
		got = append(got, q.ID)
	}
	assert.Equal(t, order, got)
}

func TestSessionService_SaveAndResume(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	room, teacher, student := seedRoom(t, env)
	test := seedTest(t, env, room, teacher, nil)

	view, err := env.sessions.Start(ctx, &StartSessionRequest{
		Kind:     models.SubmissionTest,
		TargetID: test.ID,
	}, student)
	require.NoError(t, err)

	err = env.sessions.SaveAnswer(ctx, view.SessionID, &SaveAnswerRequest{
		QuestionID:       "q1",
		Answer:           models.TextAnswer("Paris"),
		TimeSpentSeconds: 30,
	}, student.ID)
	require.NoError(t, err)

	t.Run("unknown question is rejected", func(t *testing.T) {
		err := env.sessions.SaveAnswer(ctx, view.SessionID, &SaveAnswerRequest{
			QuestionID: "not-in-session",
			Answer:     models.TextAnswer("x"),
		}, student.ID)
		assert.ErrorIs(t, err, ErrSessionQuestionNotFound)
	})

	t.Run("resume returns saved answers", func(t *testing.T) {
		resumed, err := env.sessions.Start(ctx, &StartSessionRequest{
			Kind:     models.SubmissionTest,
			TargetID: test.ID,
		}, student)
		require.NoError(t, err)
		assert.True(t, resumed.Resumed)
		require.Len(t, resumed.Questions, 1)
		assert.Equal(t, "q1", resumed.Questions[0].QuestionID)
		assert.Equal(t, 30, resumed.Questions[0].TimeSpentSeconds)
	})

	t.Run("repeated saves accumulate time and replace the answer", func(t *testing.T) {
		err := env.sessions.SaveAnswer(ctx, view.SessionID, &SaveAnswerRequest{
			QuestionID:       "q1",
			Answer:           models.TextAnswer("London"),
			TimeSpentSeconds: 15,
		}, student.ID)
		require.NoError(t, err)

		resumed, err := env.sessions.GetSession(ctx, view.SessionID, student.ID)
		require.NoError(t, err)
		require.Len(t, resumed.Questions, 1)
		assert.Equal(t, models.TextAnswer("London"), resumed.Questions[0].Answer)
		assert.Equal(t, 45, resumed.Questions[0].TimeSpentSeconds)
	})

	t.Run("submit falls back to saved answers", func(t *testing.T) {
		err := env.sessions.SaveAnswer(ctx, view.SessionID, &SaveAnswerRequest{
			QuestionID: "q1",
			Answer:     models.TextAnswer("Paris"),
		}, student.ID)
		require.NoError(t, err)

		submission, err := env.sessions.Submit(ctx, view.SessionID, &SubmitSessionRequest{
			Answers: map[string]models.AnswerValue{
				"q2": models.TextAnswer("Blue"),
			},
		}, student.ID)
		require.NoError(t, err)

		assert.True(t, submission.IsComplete)
		assert.Equal(t, 2, submission.Score)
		assert.Equal(t, 3, submission.TotalQuestions)
		require.NotNil(t, submission.EndReason)
		assert.Equal(t, models.EndReasonManual, *submission.EndReason)
	})
}

func TestSessionService_SubmitIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	room, teacher, student := seedRoom(t, env)
	test := seedTest(t, env, room, teacher, nil)

	view, err := env.sessions.Start(ctx, &StartSessionRequest{
		Kind:     models.SubmissionTest,
		TargetID: test.ID,
	}, student)
	require.NoError(t, err)

	first, err := env.sessions.Submit(ctx, view.SessionID, &SubmitSessionRequest{
		Answers: map[string]models.AnswerValue{
			"q1": models.TextAnswer("Paris"),
			"q2": models.TextAnswer("Blue"),
			"q3": models.TextAnswer("Seven"),
		},
	}, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Score)

	// A repeat submit, even with different answers, returns the recorded
	// result unchanged.
	second, err := env.sessions.Submit(ctx, view.SessionID, &SubmitSessionRequest{
		Answers: map[string]models.AnswerValue{
			"q1": models.TextAnswer("London"),
		},
	}, student.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.CompletedAt.Unix(), second.CompletedAt.Unix())

	// Exactly one completion event was published.
	count := 0
	for _, e := range env.publisher.GetPublishedEvents() {
		if e.Type == events.EventSubmissionCompleted {
			count++
		}
	}
	assert.Equal(t, 1, count)

	t.Run("completed test cannot restart", func(t *testing.T) {
		_, err := env.sessions.Start(ctx, &StartSessionRequest{
			Kind:     models.SubmissionTest,
			TargetID: test.ID,
		}, student)
		assert.ErrorIs(t, err, ErrTestAlreadyCompleted)
	})
}

func TestSessionService_AssignmentAttempts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	room, teacher, student := seedRoom(t, env)

	assignment := &models.Assignment{
		ID:     "asg-1",
		RoomID: room.ID,
		Title:  "Essay practice",
		Questions: questionsJSON(t,
			mcQuestion("q1", "Paris", "Paris", "London"),
			essayQuestion("q2"),
		),
		MaxAttempts: 2,
		IsPublished: true,
		CreatedBy:   teacher.ID,
	}
	require.NoError(t, env.repo.Assignment().Create(ctx, assignment))

	start := func() (*SessionView, error) {
		return env.sessions.Start(ctx, &StartSessionRequest{
			Kind:     models.SubmissionAssignment,
			TargetID: assignment.ID,
		}, student)
	}

	// Attempt 1: wrong answer.
	view, err := start()
	require.NoError(t, err)
	assert.Equal(t, 1, view.AttemptNumber)

	sub1, err := env.sessions.Submit(ctx, view.SessionID, &SubmitSessionRequest{
		Answers: map[string]models.AnswerValue{"q1": models.TextAnswer("London")},
	}, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, sub1.Score)
	// The essay neither scores nor counts toward the total.
	assert.Equal(t, 1, sub1.TotalQuestions)

	// Attempt 2: correct answer.
	view, err = start()
	require.NoError(t, err)
	assert.Equal(t, 2, view.AttemptNumber)

	sub2, err := env.sessions.Submit(ctx, view.SessionID, &SubmitSessionRequest{
		Answers: map[string]models.AnswerValue{"q1": models.TextAnswer("Paris")},
	}, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sub2.Score)

	// Attempt 3 is over the ceiling.
	_, err = start()
	assert.ErrorIs(t, err, ErrAttemptLimitReached)

	summary, err := env.sessions.AttemptSummary(ctx, models.SubmissionAssignment, assignment.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.CompletedAttempts)
	assert.Equal(t, 2, summary.MaxAttempts)
	assert.False(t, summary.CanStart)
	require.NotNil(t, summary.BestScore)
	assert.Equal(t, 1, *summary.BestScore)
}

func TestSessionService_Timer(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	room, teacher, student := seedRoom(t, env)
	test := seedTest(t, env, room, teacher, func(tt *models.Test) {
		limit := 10
		tt.TimeLimitMinutes = &limit
	})

	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	current := started
	env.setClock(func() time.Time { return current })

	view, err := env.sessions.Start(ctx, &StartSessionRequest{
		Kind:     models.SubmissionTest,
		TargetID: test.ID,
	}, student)
	require.NoError(t, err)
	require.NotNil(t, view.TimeRemainingSeconds)
	assert.Equal(t, 600, *view.TimeRemainingSeconds)

	err = env.sessions.SaveAnswer(ctx, view.SessionID, &SaveAnswerRequest{
		QuestionID: "q1",
		Answer:     models.TextAnswer("Paris"),
	}, student.ID)
	require.NoError(t, err)

	t.Run("remaining time follows the clock", func(t *testing.T) {
		current = started.Add(4 * time.Minute)
		remaining, err := env.sessions.TimeRemaining(ctx, view.SessionID, student.ID)
		require.NoError(t, err)
		require.NotNil(t, remaining)
		assert.Equal(t, 360, *remaining)
	})

	t.Run("expiry auto-submits with saved answers", func(t *testing.T) {
		current = started.Add(11 * time.Minute)

		err := env.sessions.SaveAnswer(ctx, view.SessionID, &SaveAnswerRequest{
			QuestionID: "q2",
			Answer:     models.TextAnswer("Blue"),
		}, student.ID)
		assert.ErrorIs(t, err, ErrSessionExpired)

		submission, err := env.repo.Submission().GetByID(ctx, view.SessionID)
		require.NoError(t, err)
		assert.True(t, submission.IsComplete)
		require.NotNil(t, submission.EndReason)
		assert.Equal(t, models.EndReasonTimeout, *submission.EndReason)
		// Only the answer saved before expiry counts.
		assert.Equal(t, 1, submission.Score)
	})
}

func TestSessionService_SubmitAfterDeadlineIsTimeout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	room, teacher, student := seedRoom(t, env)
	test := seedTest(t, env, room, teacher, func(tt *models.Test) {
		limit := 5
		tt.TimeLimitMinutes = &limit
	})

	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	current := started
	env.setClock(func() time.Time { return current })

	view, err := env.sessions.Start(ctx, &StartSessionRequest{
		Kind:     models.SubmissionTest,
		TargetID: test.ID,
	}, student)
	require.NoError(t, err)

	current = started.Add(6 * time.Minute)
	submission, err := env.sessions.Submit(ctx, view.SessionID, &SubmitSessionRequest{
		Answers: map[string]models.AnswerValue{"q1": models.TextAnswer("Paris")},
	}, student.ID)
	require.NoError(t, err)
	require.NotNil(t, submission.EndReason)
	assert.Equal(t, models.EndReasonTimeout, *submission.EndReason)
}

func TestSessionService_MixMatchSanitization(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	room, teacher, student := seedRoom(t, env)

	match := models.Question{
		ID:   "m1",
		Type: models.MixMatch,
		Text: "match terms",
		Content: models.MarshalContent(models.MixMatchContent{
			Pairs: []models.MatchPair{
				{Left: "H2O", Right: "Water"},
				{Left: "NaCl", Right: "Salt"},
				{Left: "CO2", Right: "Carbon dioxide"},
			},
		}),
	}
	test := seedTest(t, env, room, teacher, func(tt *models.Test) {
		tt.Questions = questionsJSON(t, match)
	})

	view, err := env.sessions.Start(ctx, &StartSessionRequest{
		Kind:     models.SubmissionTest,
		TargetID: test.ID,
	}, student)
	require.NoError(t, err)
	require.Len(t, view.Snapshot, 1)

	var content struct {
		Lefts  []string `json:"lefts"`
		Rights []string `json:"rights"`
	}
	require.NoError(t, json.Unmarshal(view.Snapshot[0].Content, &content))
	assert.Equal(t, []string{"H2O", "NaCl", "CO2"}, content.Lefts)
	assert.ElementsMatch(t, []string{"Water", "Salt", "Carbon dioxide"}, content.Rights)
	assert.False(t, strings.Contains(string(view.Snapshot[0].Content), "match_pairs"))

	submission, err := env.sessions.Submit(ctx, view.SessionID, &SubmitSessionRequest{
		Answers: map[string]models.AnswerValue{
			"m1": models.MatchAnswer(map[string]string{
				"H2O":  "Water",
				"NaCl": "Salt",
				"CO2":  "Carbon dioxide",
			}),
		},
	}, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, submission.Score)
}

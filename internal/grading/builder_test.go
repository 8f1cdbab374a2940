package grading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orvit/classroom-service/internal/models"
)

func TestGrade_EssaysExcludedFromScoreAndTotal(t *testing.T) {
	// 5 questions: 3 multiple choice (all answered correctly), 2 essays
	questions := []models.Question{
		multipleChoiceQuestion("q1", "A", "A", "B"),
		multipleChoiceQuestion("q2", "B", "A", "B"),
		{ID: "q3", Type: models.Essay, Text: "discuss", Content: models.MarshalContent(models.EssayContent{})},
		multipleChoiceQuestion("q4", "A", "A", "B"),
		{ID: "q5", Type: models.Essay, Text: "elaborate", Content: models.MarshalContent(models.EssayContent{})},
	}
	answers := map[string]models.AnswerValue{
		"q1": models.TextAnswer("A"),
		"q2": models.TextAnswer("B"),
		"q3": models.TextAnswer("my essay"),
		"q4": models.TextAnswer("A"),
		"q5": models.TextAnswer("my other essay"),
	}

	result := Grade(questions, answers, nil)

	assert.Equal(t, 3, result.Score)
	assert.Equal(t, 3, result.TotalQuestions)
	require.Len(t, result.Answers, 5)

	// essay answers are carried for manual marking, never marked correct
	assert.False(t, result.Answers[2].IsCorrect)
	assert.Equal(t, models.TextAnswer("my essay"), result.Answers[2].Answer)
}

func TestGrade_PreservesSessionOrderAndTiming(t *testing.T) {
	questions := []models.Question{
		multipleChoiceQuestion("q2", "A", "A", "B"),
		multipleChoiceQuestion("q1", "B", "A", "B"),
	}
	answers := map[string]models.AnswerValue{
		"q1": models.TextAnswer("B"),
		"q2": models.TextAnswer("B"),
	}
	timeSpent := map[string]int{"q1": 42, "q2": 7}

	result := Grade(questions, answers, timeSpent)

	require.Len(t, result.Answers, 2)
	// answers follow the shuffled session order, keyed by question id
	assert.Equal(t, "q2", result.Answers[0].QuestionID)
	assert.Equal(t, 7, result.Answers[0].TimeSpentSeconds)
	assert.False(t, result.Answers[0].IsCorrect)
	assert.Equal(t, "q1", result.Answers[1].QuestionID)
	assert.Equal(t, 42, result.Answers[1].TimeSpentSeconds)
	assert.True(t, result.Answers[1].IsCorrect)
	assert.Equal(t, 1, result.Score)
	assert.Equal(t, 2, result.TotalQuestions)
}

func TestGrade_UnansweredQuestionsAreIncorrect(t *testing.T) {
	questions := []models.Question{
		multipleChoiceQuestion("q1", "A", "A", "B"),
		shortAnswerQuestion("q2", "paris"),
	}

	result := Grade(questions, nil, nil)

	assert.Equal(t, 0, result.Score)
	assert.Equal(t, 2, result.TotalQuestions)
	require.Len(t, result.Answers, 2)
	assert.False(t, result.Answers[0].IsCorrect)
}

func TestBestScore(t *testing.T) {
	now := time.Now()
	subs := []*models.Submission{
		{Score: 3, IsComplete: true, CompletedAt: &now},
		{Score: 7, IsComplete: true, CompletedAt: &now},
		{Score: 9, IsComplete: false}, // in progress, ignored
	}

	assert.Equal(t, 7, BestScore(subs))
	assert.Equal(t, -1, BestScore(nil))
	assert.Equal(t, -1, BestScore([]*models.Submission{{Score: 5}}))
}

package grading

import "github.com/orvit/classroom-service/internal/models"

// Result is the graded outcome of one attempt: the per-question verdicts in
// session order plus the score over auto-gradable questions only.
type Result struct {
	Answers        []models.SubmissionAnswer
	Score          int
	TotalQuestions int
}

// Grade evaluates every question in the given (possibly shuffled) session
// order against the recorded answers and per-question time totals, both
// keyed by question id. Essay questions are carried in the answer list for
// later manual marking but appear in neither the score nor the total.
func Grade(questions []models.Question, answers map[string]models.AnswerValue, timeSpent map[string]int) Result {
	result := Result{
		Answers: make([]models.SubmissionAnswer, 0, len(questions)),
	}

	for i := range questions {
		q := &questions[i]
		answer := answers[q.ID]
		correct := false
		if q.IsAutoGradable() {
			correct = Evaluate(q, answer)
			result.TotalQuestions++
			if correct {
				result.Score++
			}
		}
		result.Answers = append(result.Answers, models.SubmissionAnswer{
			QuestionID:       q.ID,
			Answer:           answer,
			IsCorrect:        correct,
			TimeSpentSeconds: timeSpent[q.ID],
		})
	}

	return result
}

// BestScore returns the highest score across completed submissions, for
// display on student-facing attempt listings. Returns -1 when there is no
// completed submission yet.
func BestScore(submissions []*models.Submission) int {
	best := -1
	for _, s := range submissions {
		if s == nil || !s.IsComplete {
			continue
		}
		if s.Score > best {
			best = s.Score
		}
	}
	return best
}

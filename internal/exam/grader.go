package exam

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"studyhall/internal/model"
	"studyhall/internal/store"
)

// Grader scores exam submissions and maintains attempt history.
type Grader struct {
	store *store.Store
}

func NewGrader(st *store.Store) *Grader {
	return &Grader{store: st}
}

// Submit grades one answer set against the stored exam, records the attempt,
// and reports the result. Answers are keyed by question index; values are the
// answer letter or text for choice and short-answer questions, a bool (or its
// string form) for true/false. Improved is true exactly when this attempt's
// percentage strictly exceeds the best recorded before it; the first attempt
// always improves on the undefined prior best.
func (g *Grader) Submit(examID string, answers map[int]any) (model.ExamResult, error) {
	exam, err := g.store.GetExam(examID)
	if err != nil {
		return model.ExamResult{}, err
	}

	priorBest, hadPrior, err := g.store.BestScore(examID)
	if err != nil {
		return model.ExamResult{}, err
	}

	score := 0
	results := make([]model.QuestionResult, 0, len(exam.Questions))
	for idx, question := range exam.Questions {
		result := gradeQuestion(idx, question, answers[idx])
		if result.Correct {
			score++
		}
		results = append(results, result)
	}

	total := len(exam.Questions)
	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(score) / float64(total) * 100))
	}

	attempt := model.ExamAttempt{
		Timestamp:  time.Now(),
		Score:      score,
		Total:      total,
		Percentage: percentage,
	}
	if err := g.store.InsertAttempt(examID, attempt); err != nil {
		return model.ExamResult{}, fmt.Errorf("recording attempt: %w", err)
	}

	best := percentage
	if hadPrior && priorBest > best {
		best = priorBest
	}

	return model.ExamResult{
		Score:         score,
		Total:         total,
		Percentage:    percentage,
		Results:       results,
		BestScore:     best,
		AttemptNumber: exam.AttemptCount + 1,
		Improved:      !hadPrior || percentage > priorBest,
	}, nil
}

func gradeQuestion(idx int, question model.ExamQuestion, answer any) model.QuestionResult {
	result := model.QuestionResult{QuestionIndex: idx, UserAnswer: answer}
	switch q := question.(type) {
	case model.MultipleChoice:
		result.CorrectAnswer = q.CorrectAnswer
		result.Explanation = q.Explanation
		if s, ok := answer.(string); ok {
			result.Correct = strings.EqualFold(strings.TrimSpace(s), q.CorrectAnswer)
		}
	case model.TrueFalse:
		result.CorrectAnswer = q.CorrectAnswer
		result.Explanation = q.Explanation
		switch v := answer.(type) {
		case bool:
			result.Correct = v == q.CorrectAnswer
		case string:
			result.Correct = strings.EqualFold(strings.TrimSpace(v), strconv.FormatBool(q.CorrectAnswer))
		}
	case model.ShortAnswer:
		result.CorrectAnswer = q.SampleAnswer
		result.KeyPoints = q.KeyPoints
		if s, ok := answer.(string); ok {
			result.Correct = gradeShortAnswer(s, q)
		}
	}
	return result
}

// gradeShortAnswer applies the lenient free-text heuristics: the response
// must be at least 10 characters, then passes if it mentions at least 30% of
// the key points, or if at least 20% of the sample answer's words appear in
// it.
func gradeShortAnswer(answer string, q model.ShortAnswer) bool {
	user := strings.ToLower(strings.TrimSpace(answer))
	sample := strings.ToLower(strings.TrimSpace(q.SampleAnswer))
	if len(user) < 10 || sample == "" {
		return false
	}

	points := splitKeyPoints(q.KeyPoints)
	if len(points) > 0 {
		matches := 0
		for _, point := range points {
			if strings.Contains(user, strings.ToLower(point)) {
				matches++
			}
		}
		if float64(matches) >= float64(len(points))*0.3 {
			return true
		}
	}

	sampleWords := wordSet(sample)
	userWords := wordSet(user)
	overlap := 0
	for w := range sampleWords {
		if userWords[w] {
			overlap++
		}
	}
	return float64(overlap) >= float64(len(sampleWords))*0.2
}

// splitKeyPoints breaks a key-points string on the first separator found,
// dropping fragments too short to be meaningful.
func splitKeyPoints(keyPoints string) []string {
	var parts []string
	for _, sep := range []string{",", ";", "•", "-"} {
		if strings.Contains(keyPoints, sep) {
			parts = strings.Split(keyPoints, sep)
			break
		}
	}
	var points []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); len(p) > 3 {
			points = append(points, p)
		}
	}
	return points
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

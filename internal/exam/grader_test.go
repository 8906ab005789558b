package exam

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"studyhall/internal/model"
	"studyhall/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGradeQuestionVariants(t *testing.T) {
	mc := model.MultipleChoice{
		Question:      "Pick one",
		Options:       map[string]string{"A": "a", "B": "b", "C": "c", "D": "d"},
		CorrectAnswer: "B",
		Explanation:   "because",
	}
	tf := model.TrueFalse{Question: "Statement", CorrectAnswer: true}
	sa := model.ShortAnswer{
		Question:     "Explain photosynthesis",
		SampleAnswer: "Plants convert light energy into chemical energy stored as glucose using carbon dioxide and water",
		KeyPoints:    "light energy, glucose, carbon dioxide",
	}

	tests := []struct {
		name     string
		question model.ExamQuestion
		answer   any
		correct  bool
	}{
		{"mc exact", mc, "B", true},
		{"mc lowercase", mc, "b", true},
		{"mc wrong", mc, "C", false},
		{"mc missing", mc, nil, false},
		{"tf bool", tf, true, true},
		{"tf bool wrong", tf, false, false},
		{"tf string", tf, "TRUE", true},
		{"tf string wrong", tf, "false", false},
		{"sa too short", sa, "plants", false},
		{"sa key points", sa, "it captures light energy and stores it as glucose for later", true},
		{"sa word overlap", sa, "plants convert light energy into chemical energy stored as glucose", true},
		{"sa unrelated", sa, "mitochondria are the powerhouse of the cell, obviously", false},
		{"sa wrong type", sa, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := gradeQuestion(0, tt.question, tt.answer)
			if result.Correct != tt.correct {
				t.Errorf("correct = %v, want %v", result.Correct, tt.correct)
			}
		})
	}
}

func TestGradeQuestionBreakdownFields(t *testing.T) {
	sa := model.ShortAnswer{Question: "q", SampleAnswer: "the sample answer text here", KeyPoints: "alpha, beta"}
	result := gradeQuestion(3, sa, "some answer")
	if result.QuestionIndex != 3 {
		t.Errorf("index = %d", result.QuestionIndex)
	}
	if result.CorrectAnswer != sa.SampleAnswer {
		t.Errorf("short answer breakdown should expose the sample answer, got %v", result.CorrectAnswer)
	}
	if result.KeyPoints != "alpha, beta" {
		t.Errorf("key points = %q", result.KeyPoints)
	}
}

func insertMCExam(t *testing.T, s *store.Store, id string, questions int) {
	t.Helper()
	var list model.QuestionList
	for i := 0; i < questions; i++ {
		list = append(list, model.MultipleChoice{
			Question:      fmt.Sprintf("Question %d", i),
			Options:       map[string]string{"A": "right", "B": "wrong", "C": "wrong", "D": "wrong"},
			CorrectAnswer: "A",
		})
	}
	err := s.InsertExam(model.Exam{
		ID: id, Title: id, Course: "BIO101", ExamType: "practice",
		QuestionCount: questions, CreatedAt: time.Now(), Questions: list,
	})
	if err != nil {
		t.Fatalf("insert exam: %v", err)
	}
}

// answersWithCorrect returns an answer map with the first n answers right
// out of total.
func answersWithCorrect(n, total int) map[int]any {
	answers := make(map[int]any, total)
	for i := 0; i < total; i++ {
		if i < n {
			answers[i] = "A"
		} else {
			answers[i] = "B"
		}
	}
	return answers
}

func TestSubmitScoring(t *testing.T) {
	s := newTestStore(t)
	insertMCExam(t, s, "exam-3q", 3)
	grader := NewGrader(s)

	result, err := grader.Submit("exam-3q", map[int]any{0: "A", 1: "B", 2: "a"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 2 || result.Total != 3 || result.Percentage != 67 {
		t.Errorf("got %d/%d (%d%%), want 2/3 (67%%)", result.Score, result.Total, result.Percentage)
	}
	if len(result.Results) != 3 {
		t.Fatalf("breakdown has %d entries, want 3", len(result.Results))
	}
	if result.Results[1].Correct {
		t.Error("question 1 should be wrong")
	}
	if result.AttemptNumber != 1 || !result.Improved || result.BestScore != 67 {
		t.Errorf("first attempt fields: %+v", result)
	}
}

func TestSubmitBestScoreAndImproved(t *testing.T) {
	s := newTestStore(t)
	insertMCExam(t, s, "exam-20q", 20)
	grader := NewGrader(s)

	// Percentages 60, 75, 50, 90.
	corrects := []int{12, 15, 10, 18}
	wantBest := []int{60, 75, 75, 90}
	wantImproved := []bool{true, true, false, true}

	for i, n := range corrects {
		result, err := grader.Submit("exam-20q", answersWithCorrect(n, 20))
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if result.BestScore != wantBest[i] {
			t.Errorf("attempt %d: best = %d, want %d", i+1, result.BestScore, wantBest[i])
		}
		if result.Improved != wantImproved[i] {
			t.Errorf("attempt %d: improved = %v, want %v", i+1, result.Improved, wantImproved[i])
		}
		if result.AttemptNumber != i+1 {
			t.Errorf("attempt %d: number = %d", i+1, result.AttemptNumber)
		}
	}
}

func TestSubmitMissingExam(t *testing.T) {
	s := newTestStore(t)
	if _, err := NewGrader(s).Submit("nope", nil); err != store.ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

package exam

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"studyhall/internal/model"
)

// fakeSource produces deterministic questions and records the counts asked
// for each type.
type fakeSource struct {
	asked map[model.QuestionType]int
	fail  bool
}

func (f *fakeSource) GenerateQuestions(_ context.Context, _ string, qtype model.QuestionType, count int) (model.QuestionList, error) {
	if f.fail {
		return nil, fmt.Errorf("provider unavailable")
	}
	if f.asked == nil {
		f.asked = make(map[model.QuestionType]int)
	}
	f.asked[qtype] = count
	var list model.QuestionList
	for i := 0; i < count; i++ {
		switch qtype {
		case model.QuestionMultipleChoice:
			list = append(list, model.MultipleChoice{
				Question:      fmt.Sprintf("mc %d", i),
				Options:       map[string]string{"A": "1", "B": "2", "C": "3", "D": "4"},
				CorrectAnswer: "A",
			})
		case model.QuestionTrueFalse:
			list = append(list, model.TrueFalse{Question: fmt.Sprintf("tf %d", i), CorrectAnswer: true})
		default:
			list = append(list, model.ShortAnswer{Question: fmt.Sprintf("sa %d", i), SampleAnswer: "sample"})
		}
	}
	return list, nil
}

func TestGenerateExam(t *testing.T) {
	s := newTestStore(t)
	a, err := s.InsertDocument("CS202", "trees.pdf", 10, "", "Binary trees branch twice per node.")
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.InsertDocument("CS202", "graphs.pdf", 12, "", "Graphs generalize trees with cycles.")
	if err != nil {
		t.Fatal(err)
	}

	source := &fakeSource{}
	exam, err := NewGenerator(s).Generate(context.Background(), source, model.GenerateExamRequest{
		DocumentIDs: []int64{a, b},
		QuestionTypes: []model.QuestionTypeCount{
			{Type: model.QuestionMultipleChoice, Count: 5},
			{Type: model.QuestionTrueFalse, Count: 5},
			{Type: model.QuestionShortAnswer, Count: 0},
		},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if exam.QuestionCount != 10 || len(exam.Questions) != 10 {
		t.Errorf("question_count = %d, len(questions) = %d, want 10", exam.QuestionCount, len(exam.Questions))
	}
	if _, asked := source.asked[model.QuestionShortAnswer]; asked {
		t.Error("zero-count type should not reach the provider")
	}
	if exam.Course != "CS202" {
		t.Errorf("course = %q", exam.Course)
	}
	if !strings.HasPrefix(exam.ID, "CS202_exam_") {
		t.Errorf("id = %q, want CS202_exam_ prefix", exam.ID)
	}
	if exam.Title != "CS202 Exam (2 documents)" {
		t.Errorf("title = %q", exam.Title)
	}
	if exam.BestScore != nil || exam.AttemptCount != 0 {
		t.Errorf("fresh exam has aggregates: %+v", exam)
	}

	// The exam must also be persisted.
	stored, err := s.GetExam(exam.ID)
	if err != nil {
		t.Fatalf("stored exam: %v", err)
	}
	if len(stored.Questions) != 10 {
		t.Errorf("stored questions = %d, want 10", len(stored.Questions))
	}
}

func TestGenerateSingleDocumentTitle(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.InsertDocument("BIO101", "cells.pdf", 3, "", "Cells.")
	exam, err := NewGenerator(s).Generate(context.Background(), &fakeSource{}, model.GenerateExamRequest{
		DocumentIDs:   []int64{id},
		QuestionTypes: []model.QuestionTypeCount{{Type: model.QuestionTrueFalse, Count: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if exam.Title != "BIO101 - cells.pdf" {
		t.Errorf("title = %q", exam.Title)
	}
}

func TestGenerateSkipsUnknownDocumentIDs(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.InsertDocument("BIO101", "cells.pdf", 3, "", "Cells divide.")
	exam, err := NewGenerator(s).Generate(context.Background(), &fakeSource{}, model.GenerateExamRequest{
		DocumentIDs:   []int64{id, 9999},
		QuestionTypes: []model.QuestionTypeCount{{Type: model.QuestionTrueFalse, Count: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(exam.DocumentIDs) != 1 || exam.DocumentIDs[0] != id {
		t.Errorf("document_ids = %v, want [%d]", exam.DocumentIDs, id)
	}
}

func TestGenerateByCourse(t *testing.T) {
	s := newTestStore(t)
	s.InsertDocument("BIO101", "cells.pdf", 3, "", "Cells divide.")
	exam, err := NewGenerator(s).Generate(context.Background(), &fakeSource{}, model.GenerateExamRequest{
		Course:        "BIO101",
		QuestionTypes: []model.QuestionTypeCount{{Type: model.QuestionMultipleChoice, Count: 3}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if exam.QuestionCount != 3 {
		t.Errorf("question_count = %d", exam.QuestionCount)
	}
}

func TestGenerateValidation(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.InsertDocument("BIO101", "cells.pdf", 3, "", "Cells.")
	g := NewGenerator(s)

	tests := []struct {
		name string
		req  model.GenerateExamRequest
	}{
		{"no documents or course", model.GenerateExamRequest{
			QuestionTypes: []model.QuestionTypeCount{{Type: model.QuestionTrueFalse, Count: 2}},
		}},
		{"unknown document ids", model.GenerateExamRequest{
			DocumentIDs:   []int64{999},
			QuestionTypes: []model.QuestionTypeCount{{Type: model.QuestionTrueFalse, Count: 2}},
		}},
		{"no enabled types", model.GenerateExamRequest{
			DocumentIDs:   []int64{id},
			QuestionTypes: []model.QuestionTypeCount{{Type: model.QuestionTrueFalse, Count: 0}},
		}},
		{"empty course", model.GenerateExamRequest{
			Course:        "PHYS999",
			QuestionTypes: []model.QuestionTypeCount{{Type: model.QuestionTrueFalse, Count: 2}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := g.Generate(context.Background(), &fakeSource{}, tt.req); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGenerateProviderFailure(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.InsertDocument("BIO101", "cells.pdf", 3, "", "Cells.")
	_, err := NewGenerator(s).Generate(context.Background(), &fakeSource{fail: true}, model.GenerateExamRequest{
		DocumentIDs:   []int64{id},
		QuestionTypes: []model.QuestionTypeCount{{Type: model.QuestionMultipleChoice, Count: 2}},
	})
	if err == nil || !strings.Contains(err.Error(), "provider unavailable") {
		t.Errorf("err = %v, want provider failure surfaced", err)
	}
}

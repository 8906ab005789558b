// Package exam turns study documents into practice exams and grades
// submitted attempts.
package exam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"studyhall/internal/model"
	"studyhall/internal/store"
)

// Source text beyond this is truncated before prompting to keep requests
// inside model context windows.
const maxSourceChars = 15000

// QuestionSource produces exam questions of one type from source text.
// Satisfied by *llm.Client.
type QuestionSource interface {
	GenerateQuestions(ctx context.Context, text string, qtype model.QuestionType, count int) (model.QuestionList, error)
}

// Generator assembles and persists practice exams.
type Generator struct {
	store *store.Store
}

func NewGenerator(st *store.Store) *Generator {
	return &Generator{store: st}
}

// Generate builds an exam from the requested documents and question-type
// counts, persists it, and returns it with empty attempt aggregates.
func (g *Generator) Generate(ctx context.Context, source QuestionSource, req model.GenerateExamRequest) (model.Exam, error) {
	docs, err := g.resolveDocuments(req)
	if err != nil {
		return model.Exam{}, err
	}

	ids := make([]int64, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	text, err := g.store.CombinedText(ids)
	if err != nil {
		return model.Exam{}, fmt.Errorf("loading document text: %w", err)
	}
	if text == "" {
		return model.Exam{}, fmt.Errorf("selected documents contain no extractable text")
	}
	if len(text) > maxSourceChars {
		slog.Debug("truncating source text", "chars", len(text), "limit", maxSourceChars)
		text = text[:maxSourceChars]
	}

	enabled := make([]model.QuestionTypeCount, 0, len(req.QuestionTypes))
	for _, qt := range req.QuestionTypes {
		if qt.Count > 0 {
			enabled = append(enabled, qt)
		}
	}
	if len(enabled) == 0 {
		return model.Exam{}, fmt.Errorf("at least one question type must be requested")
	}

	// One LLM call per enabled type; the slots keep requested type order
	// stable in the assembled exam.
	slots := make([]model.QuestionList, len(enabled))
	eg, gctx := errgroup.WithContext(ctx)
	for i, qt := range enabled {
		eg.Go(func() error {
			questions, err := source.GenerateQuestions(gctx, text, qt.Type, qt.Count)
			if err != nil {
				return err
			}
			slots[i] = questions
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return model.Exam{}, fmt.Errorf("generating questions: %w", err)
	}

	var questions model.QuestionList
	for _, slot := range slots {
		questions = append(questions, slot...)
	}
	if len(questions) == 0 {
		return model.Exam{}, fmt.Errorf("no questions could be generated from the selected documents")
	}

	course := docs[0].Course
	now := time.Now()
	exam := model.Exam{
		ID:            examID(course, now),
		Title:         examTitle(course, docs),
		Course:        course,
		ExamType:      "practice",
		QuestionCount: len(questions),
		CreatedAt:     now,
		Questions:     questions,
		DocumentIDs:   ids,
	}
	if err := g.store.InsertExam(exam); err != nil {
		return model.Exam{}, fmt.Errorf("saving exam: %w", err)
	}
	return exam, nil
}

func (g *Generator) resolveDocuments(req model.GenerateExamRequest) ([]model.Document, error) {
	if len(req.DocumentIDs) > 0 {
		docs := make([]model.Document, 0, len(req.DocumentIDs))
		for _, id := range req.DocumentIDs {
			doc, err := g.store.GetDocument(id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
		if len(docs) == 0 {
			return nil, fmt.Errorf("no documents found for the given ids")
		}
		return docs, nil
	}
	if req.Course != "" {
		docs, err := g.store.ListDocuments(req.Course)
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return nil, fmt.Errorf("no documents found for course %s", req.Course)
		}
		return docs, nil
	}
	return nil, fmt.Errorf("must specify either document_ids or course")
}

func examID(course string, now time.Time) string {
	return fmt.Sprintf("%s_exam_%s_%s", course, now.Format("20060102_150405"), uuid.NewString()[:8])
}

func examTitle(course string, docs []model.Document) string {
	if len(docs) == 1 {
		return fmt.Sprintf("%s - %s", course, docs[0].Filename)
	}
	return fmt.Sprintf("%s Exam (%d documents)", course, len(docs))
}

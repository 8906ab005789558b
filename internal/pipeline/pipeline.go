// Package pipeline runs the server-side document processing sequence:
// save upload, extract text, store the document, summarize, generate
// flashcards. Progress is reported through a caller-supplied emitter in the
// order the stages run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"studyhall/internal/extract"
	"studyhall/internal/llm/prompts"
	"studyhall/internal/model"
	"studyhall/internal/store"
)

// ContentGenerator is the LLM surface the pipeline needs. Satisfied by
// *llm.Client.
type ContentGenerator interface {
	Summarize(ctx context.Context, text, length string) (string, error)
	GenerateFlashcards(ctx context.Context, text string, perDifficulty int) ([]model.Flashcard, error)
}

// Request is one upload to process.
type Request struct {
	Filename           string
	Course             string
	Data               []byte
	CardsPerDifficulty int
}

// Pipeline processes uploads against a store.
type Pipeline struct {
	store *store.Store
	log   *slog.Logger

	// Extract turns a saved upload into text. Defaults to extract.PDF,
	// replaceable in tests.
	Extract func(path string) (extract.Result, error)
}

func New(st *store.Store, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{store: st, log: log, Extract: extract.PDF}
}

// Run processes one upload end to end, emitting progress events as stages
// advance. On success the stored Document is returned after a final
// complete/100 event. On failure the error describes the failing stage; no
// partial success is reported.
func (p *Pipeline) Run(ctx context.Context, gen ContentGenerator, req Request, emit func(model.ProgressEvent)) (model.Document, error) {
	course := strings.ToUpper(strings.TrimSpace(req.Course))
	if course == "" {
		course = "GENERAL"
	}
	if req.CardsPerDifficulty <= 0 {
		req.CardsPerDifficulty = 5
	}

	progress := func(stage model.Stage, pct int, message string) {
		emit(model.ProgressEvent{Stage: stage, Progress: pct, Message: message})
	}

	progress(model.StageUploading, 10, "Uploading file...")
	path, cleanup, err := p.saveUpload(req)
	if err != nil {
		return model.Document{}, fmt.Errorf("saving upload: %w", err)
	}
	defer cleanup()
	progress(model.StageUploading, 20, "File uploaded successfully")

	progress(model.StageExtracting, 25, "Extracting text from PDF...")
	result, err := p.Extract(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("PDF extraction failed: %w", err)
	}
	progress(model.StageExtracting, 40, fmt.Sprintf("Extracted %d pages", result.PageCount))

	if ctx.Err() != nil {
		return model.Document{}, ctx.Err()
	}

	// A file already in the library short-circuits to the existing record.
	if existingID, found, err := p.store.DocumentIDByHash(result.SHA256); err != nil {
		return model.Document{}, err
	} else if found {
		p.log.Info("duplicate upload detected", "filename", req.Filename, "document_id", existingID)
		doc, err := p.store.GetDocument(existingID)
		if err != nil {
			return model.Document{}, err
		}
		progress(model.StageComplete, 100, "Document already processed")
		return doc, nil
	}

	progress(model.StageStoring, 45, "Creating DB records...")
	docID, err := p.store.InsertDocument(course, req.Filename, result.PageCount, result.SHA256, result.Text)
	if err != nil {
		return model.Document{}, fmt.Errorf("storing document: %w", err)
	}
	progress(model.StageStoring, 50, fmt.Sprintf("Document saved (ID %d)", docID))

	progress(model.StageSummarizing, 55, "Generating AI summary...")
	summary, err := gen.Summarize(ctx, result.Text, prompts.LengthDetailed)
	if err != nil {
		return model.Document{}, fmt.Errorf("summary generation failed: %w", err)
	}
	if err := p.store.InsertSummary(docID, summary); err != nil {
		return model.Document{}, fmt.Errorf("storing summary: %w", err)
	}
	progress(model.StageSummarizing, 70, "Summary generated successfully")

	progress(model.StageFlashcards, 75, "Creating flashcards...")
	cards, err := gen.GenerateFlashcards(ctx, result.Text, req.CardsPerDifficulty)
	if err != nil {
		return model.Document{}, fmt.Errorf("flashcard generation failed: %w", err)
	}
	progress(model.StageFlashcards, 90, fmt.Sprintf("Generated %d flashcards", len(cards)))
	if err := p.store.InsertFlashcards(docID, cards); err != nil {
		return model.Document{}, fmt.Errorf("storing flashcards: %w", err)
	}
	progress(model.StageFlashcards, 99, fmt.Sprintf("Saved %d flashcards", len(cards)))

	doc, err := p.store.GetDocument(docID)
	if err != nil {
		return model.Document{}, err
	}
	progress(model.StageComplete, 100, "Processing complete!")
	return doc, nil
}

func (p *Pipeline) saveUpload(req Request) (string, func(), error) {
	dir, err := os.MkdirTemp("", "studyhall-upload-*")
	if err != nil {
		return "", nil, err
	}
	path := filepath.Join(dir, filepath.Base(req.Filename))
	if err := os.WriteFile(path, req.Data, 0o644); err != nil {
		os.RemoveAll(dir)
		return "", nil, err
	}
	return path, func() { os.RemoveAll(dir) }, nil
}

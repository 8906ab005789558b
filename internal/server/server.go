// Package server exposes the study assistant HTTP API: document upload with
// streamed progress, course and flashcard browsing, exam generation and
// grading, and the chat assistant.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"studyhall/internal/exam"
	"studyhall/internal/llm"
	"studyhall/internal/model"
	"studyhall/internal/pipeline"
	"studyhall/internal/prefs"
	"studyhall/internal/store"
)

// Provider selection headers. A request carrying these overrides the stored
// preferences for that request only.
const (
	headerProvider = "X-AI-Provider"
	headerModel    = "X-OpenAI-Model"
	headerAPIKey   = "X-OpenAI-API-Key"
)

// LLM is the generation surface handlers need. Satisfied by *llm.Client.
type LLM interface {
	Summarize(ctx context.Context, text, length string) (string, error)
	GenerateFlashcards(ctx context.Context, text string, perDifficulty int) ([]model.Flashcard, error)
	GenerateQuestions(ctx context.Context, text string, qtype model.QuestionType, count int) (model.QuestionList, error)
	Chat(ctx context.Context, question, material string) (string, error)
	Model() string
}

// Server holds shared dependencies for HTTP handlers.
type Server struct {
	store  *store.Store
	prefs  *prefs.Store
	pipe   *pipeline.Pipeline
	gen    *exam.Generator
	grader *exam.Grader
	log    *slog.Logger

	// newLLM builds a client for one request's provider context.
	newLLM func(model.ProviderContext) (LLM, error)
}

func New(st *store.Store, pf *prefs.Store, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		store:  st,
		prefs:  pf,
		pipe:   pipeline.New(st, log),
		gen:    exam.NewGenerator(st),
		grader: exam.NewGrader(st),
		log:    log,
		newLLM: func(pc model.ProviderContext) (LLM, error) { return llm.New(pc) },
	}
}

// Routes registers all HTTP routes.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)

		r.Get("/courses", s.handleListCourses)
		r.Post("/courses", s.handleCreateCourse)
		r.Delete("/courses/{code}", s.handleDeleteCourse)
		r.Get("/courses/{code}/documents", s.handleCourseDocuments)

		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{id}/summary", s.handleGetSummary)
		r.Delete("/documents/{id}", s.handleDeleteDocument)

		r.Get("/flashcards", s.handleListFlashcards)
		r.Patch("/flashcards/{id}", s.handleUpdateFlashcard)

		r.Post("/exams/generate", s.handleGenerateExam)
		r.Get("/exams", s.handleListExams)
		r.Get("/exams/{examID}", s.handleGetExam)
		r.Get("/exams/{examID}/attempts", s.handleListAttempts)
		r.Post("/exams/{examID}/submit", s.handleSubmitExam)
		r.Delete("/exams/{examID}/attempts", s.handleResetAttempts)
		r.Delete("/exams/{examID}", s.handleDeleteExam)

		r.Post("/chat", s.handleChat)
		r.Get("/statistics", s.handleStatistics)
		r.Get("/health", s.handleHealth)
	})
}

// providerContext resolves the AI backend for one request: stored preferences
// first, then per-request header overrides.
func (s *Server) providerContext(r *http.Request) model.ProviderContext {
	pc := s.prefs.ProviderContext()
	if v := r.Header.Get(headerProvider); v != "" {
		pc.Provider = model.Provider(strings.ToLower(strings.TrimSpace(v)))
	}
	if v := r.Header.Get(headerModel); v != "" {
		pc.Model = v
	}
	if v := r.Header.Get(headerAPIKey); v != "" {
		pc.APIKey = v
	}
	return pc
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "healthy",
		"ai_provider": string(s.prefs.ProviderContext().Provider),
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// storeError maps storage errors to HTTP responses.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.log.Error("storage error", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func idParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"studyhall/internal/model"
	"studyhall/internal/store"
)

func (s *Server) handleGenerateExam(w http.ResponseWriter, r *http.Request) {
	var req model.GenerateExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	gen, err := s.newLLM(s.providerContext(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	exam, err := s.gen.Generate(r.Context(), gen, req)
	if err != nil {
		s.log.Error("exam generation failed", "course", req.Course, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

func (s *Server) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := s.store.ListExams()
	if err != nil {
		s.storeError(w, err)
		return
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	writeJSON(w, http.StatusOK, exams)
}

func (s *Server) handleGetExam(w http.ResponseWriter, r *http.Request) {
	exam, err := s.store.GetExam(chi.URLParam(r, "examID"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")
	if _, err := s.store.GetExam(examID); err != nil {
		s.storeError(w, err)
		return
	}
	attempts, err := s.store.ListAttempts(examID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if attempts == nil {
		attempts = []model.ExamAttempt{}
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (s *Server) handleSubmitExam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers map[string]any `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// JSON object keys are strings; grading wants question indexes.
	answers := make(map[int]any, len(req.Answers))
	for k, v := range req.Answers {
		idx, err := strconv.Atoi(k)
		if err != nil {
			writeError(w, http.StatusBadRequest, "answer keys must be question indexes")
			return
		}
		answers[idx] = v
	}

	result, err := s.grader.Submit(chi.URLParam(r, "examID"), answers)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "exam not found")
		return
	}
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleResetAttempts(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")
	if err := s.store.ResetAttempts(examID); err != nil {
		s.storeError(w, err)
		return
	}
	exam, err := s.store.GetExam(examID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

func (s *Server) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteExam(chi.URLParam(r, "examID")); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Exam deleted"})
}

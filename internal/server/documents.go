package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"studyhall/internal/model"
	"studyhall/internal/store"
)

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.store.ListCourses()
	if err != nil {
		s.storeError(w, err)
		return
	}
	if courses == nil {
		courses = []model.Course{}
	}
	writeJSON(w, http.StatusOK, courses)
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		writeError(w, http.StatusBadRequest, "course code is required")
		return
	}

	existing, err := s.store.ListCourses()
	if err != nil {
		s.storeError(w, err)
		return
	}
	for _, c := range existing {
		if c.Code == code {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("course %s already exists", code))
			return
		}
	}

	if _, err := s.store.EnsureCourse(code, req.Name); err != nil {
		s.storeError(w, err)
		return
	}
	name := req.Name
	if name == "" {
		name = code
	}
	writeJSON(w, http.StatusCreated, model.Course{Code: code, Name: name})
}

func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := s.store.DeleteCourse(code); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Course %s deleted", code),
	})
}

func (s *Server) handleCourseDocuments(w http.ResponseWriter, r *http.Request) {
	s.writeDocuments(w, chi.URLParam(r, "code"))
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	s.writeDocuments(w, r.URL.Query().Get("course"))
}

func (s *Server) writeDocuments(w http.ResponseWriter, course string) {
	docs, err := s.store.ListDocuments(course)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}
	summary, err := s.store.GetSummary(id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.SummaryView{
		Summary:   summary.Content,
		KeyPoints: extractKeyPoints(summary.Content),
	})
}

// extractKeyPoints pulls up to five bullet lines out of a summary.
func extractKeyPoints(content string) []string {
	var points []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") || strings.HasPrefix(line, "*") {
			point := strings.TrimSpace(strings.TrimLeft(line, "-•* "))
			if point != "" {
				points = append(points, point)
			}
		}
		if len(points) == 5 {
			break
		}
	}
	return points
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}
	if err := s.store.DeleteDocument(id); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Document deleted"})
}

func (s *Server) handleListFlashcards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.FlashcardFilter{
		Course:     q.Get("course"),
		Difficulty: model.Difficulty(q.Get("difficulty")),
	}
	if v := q.Get("mastered"); v != "" {
		mastered, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid mastered filter")
			return
		}
		filter.Mastered = &mastered
	}
	cards, err := s.store.ListFlashcards(filter)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if cards == nil {
		cards = []model.Flashcard{}
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleUpdateFlashcard(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid flashcard id")
		return
	}
	var req struct {
		Mastered *bool `json:"mastered"`
		Reviewed bool  `json:"reviewed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	card, err := s.store.UpdateFlashcard(id, req.Mastered, req.Reviewed)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "flashcard not found")
		return
	}
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"studyhall/internal/model"
)

// handleChat answers a study question grounded in the stored materials. The
// prompt context describes the library (courses, recent documents, flashcard
// progress) plus the document the student is viewing, if any.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	gen, err := s.newLLM(s.providerContext(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = time.Now().Format("20060102_150405")
	}

	recent, err := s.store.ListDocuments("")
	if err != nil {
		s.storeError(w, err)
		return
	}
	if len(recent) > 5 {
		recent = recent[:5]
	}

	material, err := s.buildChatMaterial(req, recent)
	if err != nil {
		s.storeError(w, err)
		return
	}

	reply, err := gen.Chat(r.Context(), req.Message, material)
	if err != nil {
		s.log.Error("chat failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, model.ChatResponse{
		Message:        reply,
		Sources:        chatSources(reply, recent),
		Suggestions:    followUpSuggestions(req.Message, req.Context),
		ConversationID: conversationID,
	})
}

func (s *Server) buildChatMaterial(req model.ChatRequest, recent []model.Document) (string, error) {
	courses, err := s.store.ListCourses()
	if err != nil {
		return "", err
	}
	stats, err := s.store.Stats()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("COURSES:\n")
	if len(courses) == 0 {
		sb.WriteString("No courses yet\n")
	}
	for _, c := range courses {
		fmt.Fprintf(&sb, "%s (%d documents)\n", c.Code, c.DocumentCount)
	}

	sb.WriteString("\nRECENT DOCUMENTS:\n")
	if len(recent) == 0 {
		sb.WriteString("No documents yet\n")
	}
	for _, d := range recent {
		fmt.Fprintf(&sb, "%s (%s)\n", d.Filename, d.Course)
	}

	fmt.Fprintf(&sb, "\nFLASHCARDS:\nTotal: %d\nMastered: %d\nTo Review: %d\n",
		stats.TotalFlashcards, stats.MasteredFlashcards, stats.UnmasteredFlashcards)

	// The document the student is currently viewing, when the client says so.
	if id, ok := contextDocumentID(req.Context); ok {
		if doc, err := s.store.GetDocument(id); err == nil {
			fmt.Fprintf(&sb, "\nCURRENT CONTEXT:\nThe student is viewing %s (%s)\n", doc.Filename, doc.Course)
			if summary, err := s.store.GetSummary(id); err == nil {
				fmt.Fprintf(&sb, "Summary:\n%s\n", summary.Content)
			}
		}
	}

	msg := strings.ToLower(req.Message)
	if strings.Contains(msg, "quiz me") {
		sb.WriteString("\nThe student wants to be quizzed. Create a quiz question based on their materials.\n")
	}
	if strings.Contains(msg, "study plan") {
		sb.WriteString("\nThe student wants a study plan. Create a structured plan based on their materials.\n")
	}
	if strings.Contains(msg, "eli5") || strings.Contains(msg, "explain like") {
		sb.WriteString("\nThe student wants a simple explanation. Use analogies and simple language.\n")
	}

	return sb.String(), nil
}

// contextDocumentID extracts a document_id from the free-form chat context.
// JSON numbers arrive as float64.
func contextDocumentID(ctx map[string]any) (int64, bool) {
	v, ok := ctx["document_id"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

// chatSources lists recent documents the reply mentions by filename or
// course code, capped at three.
func chatSources(reply string, recent []model.Document) []model.ChatSource {
	lower := strings.ToLower(reply)
	sources := []model.ChatSource{}
	for _, d := range recent {
		if strings.Contains(lower, strings.ToLower(d.Filename)) ||
			strings.Contains(lower, strings.ToLower(d.Course)) {
			sources = append(sources, model.ChatSource{
				Type:   "document",
				ID:     d.ID,
				Name:   d.Filename,
				Course: d.Course,
			})
			if len(sources) == 3 {
				break
			}
		}
	}
	return sources
}

func followUpSuggestions(message string, ctx map[string]any) []string {
	var suggestions []string
	if _, ok := ctx["document_id"]; ok {
		suggestions = append(suggestions,
			"Summarize this document",
			"Quiz me on this topic",
			"What are the key points?")
	}
	msg := strings.ToLower(message)
	if strings.Contains(msg, "what") {
		suggestions = append(suggestions,
			"Can you explain that in simpler terms?",
			"Show me related flashcards")
	}
	if strings.Contains(msg, "how") {
		suggestions = append(suggestions,
			"Can you give me an example?",
			"Create a practice question about this")
	}
	if len(suggestions) == 0 {
		suggestions = []string{
			"Quiz me on this topic",
			"What should I study next?",
			"Create a study plan",
		}
	}
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions
}

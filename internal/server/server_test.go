package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"studyhall/internal/extract"
	"studyhall/internal/model"
	"studyhall/internal/prefs"
	"studyhall/internal/store"
)

type fakeLLM struct {
	model     string
	chatSeen  string
	cardsSeen int
}

func (f *fakeLLM) Summarize(ctx context.Context, text, length string) (string, error) {
	return "Overview of the material.\n- first point\n- second point", nil
}

func (f *fakeLLM) GenerateFlashcards(ctx context.Context, text string, perDifficulty int) ([]model.Flashcard, error) {
	f.cardsSeen = perDifficulty
	var cards []model.Flashcard
	for _, d := range model.Difficulties {
		cards = append(cards, model.Flashcard{Question: "q", Answer: "a", Difficulty: d})
	}
	return cards, nil
}

func (f *fakeLLM) GenerateQuestions(ctx context.Context, text string, qtype model.QuestionType, count int) (model.QuestionList, error) {
	var qs model.QuestionList
	for i := 0; i < count; i++ {
		qs = append(qs, model.MultipleChoice{
			Question:      fmt.Sprintf("question %d", i),
			Options:       map[string]string{"A": "right", "B": "wrong", "C": "wrong", "D": "wrong"},
			CorrectAnswer: "A",
			Explanation:   "because",
		})
	}
	return qs, nil
}

func (f *fakeLLM) Chat(ctx context.Context, question, material string) (string, error) {
	f.chatSeen = material
	return "You should review notes.pdf again.", nil
}

func (f *fakeLLM) Model() string {
	if f.model == "" {
		return "test-model"
	}
	return f.model
}

func newTestServer(t *testing.T) (*httptest.Server, *Server, *fakeLLM) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	pf, err := prefs.New(filepath.Join(dir, "prefs.yaml"))
	if err != nil {
		t.Fatalf("opening prefs: %v", err)
	}

	fake := &fakeLLM{}
	srv := New(st, pf, slog.New(slog.DiscardHandler))
	srv.newLLM = func(model.ProviderContext) (LLM, error) { return fake, nil }
	srv.pipe.Extract = func(path string) (extract.Result, error) {
		return extract.Result{Text: "lecture notes", PageCount: 2, SHA256: extract.HashBytes([]byte(path))}, nil
	}

	r := chi.NewRouter()
	srv.Routes(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, srv, fake
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

// uploadPDF posts a fake PDF through the upload endpoint and returns the raw
// event stream body.
func uploadPDF(t *testing.T, ts *httptest.Server, filename, course string) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write([]byte("%PDF-1.4 " + filename))
	mw.WriteField("course", course)
	mw.Close()

	resp, err := http.Post(ts.URL+"/api/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	return string(body)
}

func TestUploadStreamsProgressAndResult(t *testing.T) {
	ts, _, _ := newTestServer(t)

	body := uploadPDF(t, ts, "notes.pdf", "cs101")

	if !strings.Contains(body, `"stage":"uploading"`) {
		t.Errorf("stream missing uploading stage: %s", body)
	}
	if !strings.Contains(body, `"stage":"complete"`) {
		t.Errorf("stream missing complete stage: %s", body)
	}

	// Last record is the terminal result.
	records := strings.Split(strings.TrimSpace(body), "\n\n")
	last := strings.TrimPrefix(records[len(records)-1], "data: ")
	var result struct {
		Status    string `json:"status"`
		ModelUsed string `json:"ai_model_used"`
		model.Document
	}
	if err := json.Unmarshal([]byte(last), &result); err != nil {
		t.Fatalf("decoding terminal record %q: %v", last, err)
	}
	if result.Status != "success" {
		t.Errorf("status = %q", result.Status)
	}
	if result.Course != "CS101" {
		t.Errorf("course = %q, want CS101", result.Course)
	}
	if result.ModelUsed != "test-model" {
		t.Errorf("ai_model_used = %q", result.ModelUsed)
	}
	if result.FlashcardCount != len(model.Difficulties) {
		t.Errorf("flashcard count = %d", result.FlashcardCount)
	}
}

func TestUploadCardsPerDifficulty(t *testing.T) {
	ts, _, fake := newTestServer(t)

	post := func(fields map[string]string) *http.Response {
		t.Helper()
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, _ := mw.CreateFormFile("file", "notes.pdf")
		fw.Write([]byte("%PDF-1.4"))
		for k, v := range fields {
			mw.WriteField(k, v)
		}
		mw.Close()
		resp, err := http.Post(ts.URL+"/api/upload", mw.FormDataContentType(), &buf)
		if err != nil {
			t.Fatalf("upload: %v", err)
		}
		return resp
	}

	resp := post(map[string]string{"course": "CS101", "cards_per_difficulty": "2"})
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if fake.cardsSeen != 2 {
		t.Errorf("cards per difficulty = %d, want 2", fake.cardsSeen)
	}

	// Omitting the field falls back to the pipeline default.
	uploadPDF(t, ts, "other.pdf", "CS101")
	if fake.cardsSeen != 5 {
		t.Errorf("default cards per difficulty = %d, want 5", fake.cardsSeen)
	}

	resp = post(map[string]string{"course": "CS101", "cards_per_difficulty": "many"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid value status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	ts, _, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "notes.txt")
	fw.Write([]byte("plain text"))
	mw.Close()

	resp, err := http.Post(ts.URL+"/api/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var e struct {
		Error string `json:"error"`
	}
	decodeInto(t, resp, &e)
	if !strings.Contains(e.Error, "PDF") {
		t.Errorf("error = %q", e.Error)
	}
}

func TestCoursesAndDocuments(t *testing.T) {
	ts, _, _ := newTestServer(t)
	uploadPDF(t, ts, "alpha.pdf", "BIO101")
	uploadPDF(t, ts, "beta.pdf", "BIO101")

	resp, err := http.Get(ts.URL + "/api/courses")
	if err != nil {
		t.Fatalf("GET courses: %v", err)
	}
	var courses []model.Course
	decodeInto(t, resp, &courses)
	if len(courses) != 1 || courses[0].Code != "BIO101" {
		t.Fatalf("courses = %+v", courses)
	}
	if courses[0].DocumentCount != 2 {
		t.Errorf("document count = %d, want 2", courses[0].DocumentCount)
	}

	resp, err = http.Get(ts.URL + "/api/courses/BIO101/documents")
	if err != nil {
		t.Fatalf("GET course documents: %v", err)
	}
	var docs []model.Document
	decodeInto(t, resp, &docs)
	if len(docs) != 2 {
		t.Fatalf("documents = %+v", docs)
	}

	// Summary carries extracted key points.
	resp, err = http.Get(fmt.Sprintf("%s/api/documents/%d/summary", ts.URL, docs[0].ID))
	if err != nil {
		t.Fatalf("GET summary: %v", err)
	}
	var view model.SummaryView
	decodeInto(t, resp, &view)
	if len(view.KeyPoints) != 2 {
		t.Errorf("key points = %+v", view.KeyPoints)
	}
}

func TestCreateCourseRejectsDuplicate(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/courses", map[string]string{"code": "math201", "name": "Calculus"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var course model.Course
	decodeInto(t, resp, &course)
	if course.Code != "MATH201" {
		t.Errorf("code = %q, want MATH201", course.Code)
	}

	resp = postJSON(t, ts.URL+"/api/courses", map[string]string{"code": "MATH201"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate status = %d, want 400", resp.StatusCode)
	}
}

func TestFlashcardFilterAndPatch(t *testing.T) {
	ts, _, _ := newTestServer(t)
	uploadPDF(t, ts, "gamma.pdf", "CHEM101")

	resp, err := http.Get(ts.URL + "/api/flashcards?difficulty=easy")
	if err != nil {
		t.Fatalf("GET flashcards: %v", err)
	}
	var cards []model.Flashcard
	decodeInto(t, resp, &cards)
	if len(cards) != 1 {
		t.Fatalf("easy cards = %+v", cards)
	}

	patch, _ := json.Marshal(map[string]any{"mastered": true, "reviewed": true})
	req, _ := http.NewRequest(http.MethodPatch,
		fmt.Sprintf("%s/api/flashcards/%d", ts.URL, cards[0].ID), bytes.NewReader(patch))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH flashcard: %v", err)
	}
	var updated model.Flashcard
	decodeInto(t, resp, &updated)
	if !updated.Mastered || updated.TimesReviewed != 1 {
		t.Errorf("updated = %+v", updated)
	}
}

func TestExamLifecycle(t *testing.T) {
	ts, _, _ := newTestServer(t)
	uploadPDF(t, ts, "delta.pdf", "CS202")

	var docs []model.Document
	resp, err := http.Get(ts.URL + "/api/documents?course=CS202")
	if err != nil {
		t.Fatalf("GET documents: %v", err)
	}
	decodeInto(t, resp, &docs)

	resp = postJSON(t, ts.URL+"/api/exams/generate", model.GenerateExamRequest{
		DocumentIDs:   []int64{docs[0].ID},
		QuestionTypes: []model.QuestionTypeCount{{Type: model.QuestionMultipleChoice, Count: 4}},
	})
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("generate status = %d: %s", resp.StatusCode, body)
	}
	var generated model.Exam
	decodeInto(t, resp, &generated)
	if generated.QuestionCount != 4 {
		t.Fatalf("question count = %d", generated.QuestionCount)
	}
	if !strings.HasPrefix(generated.ID, "CS202_exam_") {
		t.Errorf("exam id = %q", generated.ID)
	}

	// Submit with 3 of 4 correct.
	answers := map[string]any{"0": "A", "1": "A", "2": "A", "3": "B"}
	resp = postJSON(t, ts.URL+"/api/exams/"+generated.ID+"/submit", map[string]any{"answers": answers})
	var result model.ExamResult
	decodeInto(t, resp, &result)
	if result.Score != 3 || result.Percentage != 75 {
		t.Errorf("result = %+v", result)
	}
	if !result.Improved || result.AttemptNumber != 1 {
		t.Errorf("first attempt fields = %+v", result)
	}

	resp, err = http.Get(ts.URL + "/api/exams/" + generated.ID + "/attempts")
	if err != nil {
		t.Fatalf("GET attempts: %v", err)
	}
	var attempts []model.ExamAttempt
	decodeInto(t, resp, &attempts)
	if len(attempts) != 1 {
		t.Fatalf("attempts = %+v", attempts)
	}

	// Reset clears the aggregates in one shot.
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/exams/"+generated.ID+"/attempts", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE attempts: %v", err)
	}
	var afterReset model.Exam
	decodeInto(t, resp, &afterReset)
	if afterReset.AttemptCount != 0 || afterReset.BestScore != nil || afterReset.Completed {
		t.Errorf("after reset = %+v", afterReset)
	}

	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/exams/"+generated.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE exam: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/exams/" + generated.ID)
	if err != nil {
		t.Fatalf("GET deleted exam: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted exam status = %d, want 404", resp.StatusCode)
	}
}

func TestChatBuildsMaterialAndSuggestions(t *testing.T) {
	ts, _, fake := newTestServer(t)
	uploadPDF(t, ts, "notes.pdf", "CS101")

	resp := postJSON(t, ts.URL+"/api/chat", model.ChatRequest{Message: "What is a graph?"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d", resp.StatusCode)
	}
	var chat model.ChatResponse
	decodeInto(t, resp, &chat)
	if chat.ConversationID == "" {
		t.Error("missing conversation id")
	}
	// The reply mentions notes.pdf, so it surfaces as a source.
	if len(chat.Sources) != 1 || chat.Sources[0].Name != "notes.pdf" {
		t.Errorf("sources = %+v", chat.Sources)
	}
	if len(chat.Suggestions) == 0 || len(chat.Suggestions) > 3 {
		t.Errorf("suggestions = %+v", chat.Suggestions)
	}
	if !strings.Contains(fake.chatSeen, "CS101 (1 documents)") {
		t.Errorf("chat material missing course line:\n%s", fake.chatSeen)
	}
	if !strings.Contains(fake.chatSeen, "notes.pdf (CS101)") {
		t.Errorf("chat material missing document line:\n%s", fake.chatSeen)
	}
}

func TestStatisticsAndHealth(t *testing.T) {
	ts, _, _ := newTestServer(t)
	uploadPDF(t, ts, "eta.pdf", "CS101")

	resp, err := http.Get(ts.URL + "/api/statistics")
	if err != nil {
		t.Fatalf("GET statistics: %v", err)
	}
	var stats model.Statistics
	decodeInto(t, resp, &stats)
	if stats.TotalDocuments != 1 || stats.TotalCourses != 1 {
		t.Errorf("stats = %+v", stats)
	}

	resp, err = http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	var health map[string]string
	decodeInto(t, resp, &health)
	if health["status"] != "healthy" {
		t.Errorf("health = %+v", health)
	}
}

package model

import "time"

// Provider identifies which AI backend handles a request.
type Provider string

const (
	// ProviderOpenAI routes requests to the OpenAI API.
	ProviderOpenAI Provider = "openai"
	// ProviderLlama routes requests to a local OpenAI-compatible llama server.
	ProviderLlama Provider = "llama"
)

// DefaultOpenAIModel is used when no model preference is stored.
const DefaultOpenAIModel = "gpt-4o-mini"

// ProviderContext is the AI backend selection attached to each outbound call.
// It is resolved from the preference store at call time, never cached.
type ProviderContext struct {
	Provider Provider
	Model    string
	APIKey   string
}

// Stage is one named phase of the upload processing pipeline.
type Stage string

const (
	StageUploading   Stage = "uploading"
	StageExtracting  Stage = "extracting"
	StageStoring     Stage = "storing"
	StageSummarizing Stage = "summarizing"
	StageFlashcards  Stage = "generating_flashcards"
	StageComplete    Stage = "complete"
	StageError       Stage = "error"
)

// ProgressEvent is one observation of pipeline advancement. Ephemeral,
// never persisted.
type ProgressEvent struct {
	Stage    Stage  `json:"stage"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

// Course groups documents under a short code such as BIO101.
type Course struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	DocumentCount  int    `json:"document_count"`
	FlashcardCount int    `json:"flashcard_count"`
}

// Document is the durable artifact of a successful upload pipeline run.
type Document struct {
	ID             int64     `json:"id"`
	Filename       string    `json:"filename"`
	Course         string    `json:"course"`
	PageCount      *int      `json:"page_count,omitempty"`
	UploadedAt     time.Time `json:"uploaded_at"`
	FlashcardCount int       `json:"flashcard_count"`
	HasSummary     bool      `json:"has_summary"`
}

// Difficulty represents flashcard difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists all levels in generation order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Flashcard is a question/answer pair generated from a document.
type Flashcard struct {
	ID            int64      `json:"id"`
	DocumentID    int64      `json:"document_id"`
	Question      string     `json:"question"`
	Answer        string     `json:"answer"`
	Difficulty    Difficulty `json:"difficulty"`
	Mastered      bool       `json:"mastered"`
	TimesReviewed int        `json:"times_reviewed"`
}

// Summary is the stored AI summary of a document.
type Summary struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"document_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// SummaryView is the summary content plus derived display fields.
type SummaryView struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

// Exam is a generated practice exam with its attempt aggregates.
// BestScore, AttemptCount, AverageScore, LastAttempt and Completed are
// derived from submitted attempts and cleared together by a reset.
type Exam struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Course        string       `json:"course"`
	ExamType      string       `json:"exam_type"`
	QuestionCount int          `json:"question_count"`
	CreatedAt     time.Time    `json:"created_at"`
	Questions     QuestionList `json:"questions,omitempty"`
	DocumentIDs   []int64      `json:"document_ids,omitempty"`

	BestScore    *int       `json:"best_score"`
	AttemptCount int        `json:"attempt_count"`
	AverageScore *int       `json:"average_score"`
	LastAttempt  *time.Time `json:"last_attempt"`
	Completed    bool       `json:"completed"`
}

// ExamAttempt is one recorded submission of an exam.
type ExamAttempt struct {
	Timestamp  time.Time `json:"timestamp"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	Percentage int       `json:"percentage"`
}

// QuestionTypeCount is one enabled question type with its requested count.
type QuestionTypeCount struct {
	Type  QuestionType `json:"type"`
	Count int          `json:"count"`
}

// GenerateExamRequest is the body of POST /api/exams/generate.
type GenerateExamRequest struct {
	Course        string              `json:"course,omitempty"`
	DocumentIDs   []int64             `json:"document_ids"`
	QuestionTypes []QuestionTypeCount `json:"question_types"`
}

// QuestionResult is the per-question breakdown of a graded submission.
type QuestionResult struct {
	QuestionIndex int    `json:"question_index"`
	Correct       bool   `json:"correct"`
	UserAnswer    any    `json:"user_answer"`
	CorrectAnswer any    `json:"correct_answer"`
	Explanation   string `json:"explanation"`
	KeyPoints     string `json:"key_points,omitempty"`
}

// ExamResult is the response to an exam submission. Improved is true exactly
// when this submission's percentage strictly exceeds the best score known
// before it; a first attempt always counts as an improvement.
type ExamResult struct {
	Score         int              `json:"score"`
	Total         int              `json:"total"`
	Percentage    int              `json:"percentage"`
	Results       []QuestionResult `json:"results"`
	BestScore     int              `json:"best_score"`
	AttemptNumber int              `json:"attempt_number"`
	Improved      bool             `json:"improved"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message        string         `json:"message"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Context        map[string]any `json:"context,omitempty"`
}

// ChatSource is a study material referenced by a chat answer.
type ChatSource struct {
	Type   string `json:"type"`
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Course string `json:"course"`
}

// ChatResponse is the assistant's reply with sources and follow-up
// suggestions.
type ChatResponse struct {
	Message        string       `json:"message"`
	Sources        []ChatSource `json:"sources"`
	Suggestions    []string     `json:"suggestions"`
	ConversationID string       `json:"conversation_id"`
}

// Statistics summarizes the stored study material.
type Statistics struct {
	TotalCourses         int `json:"total_courses"`
	TotalDocuments       int `json:"total_documents"`
	TotalSummaries       int `json:"total_summaries"`
	TotalFlashcards      int `json:"total_flashcards"`
	MasteredFlashcards   int `json:"mastered_flashcards"`
	UnmasteredFlashcards int `json:"unmastered_flashcards"`
}

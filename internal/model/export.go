package model

import "time"

// ExamHistoryExport is the top-level JSON structure for exam history export.
type ExamHistoryExport struct {
	ExportedAt time.Time    `json:"exported_at"`
	Course     string       `json:"course,omitempty"`
	Exams      []ExamExport `json:"exams"`
}

// ExamExport holds one exam and its full attempt history for export.
type ExamExport struct {
	ExamID        string          `json:"exam_id"`
	Title         string          `json:"title"`
	Course        string          `json:"course"`
	ExamType      string          `json:"exam_type"`
	QuestionCount int             `json:"question_count"`
	CreatedAt     time.Time       `json:"created_at"`
	BestScore     *int            `json:"best_score,omitempty"`
	AverageScore  *int            `json:"average_score,omitempty"`
	Attempts      []AttemptExport `json:"attempts"`
}

// AttemptExport holds one graded attempt for export.
type AttemptExport struct {
	Timestamp  time.Time `json:"timestamp"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	Percentage int       `json:"percentage"`
}

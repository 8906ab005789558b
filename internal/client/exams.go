package client

import (
	"context"

	"studyhall/internal/model"
)

// RequestedTotal is the sum of enabled per-type counts, exposed for display.
// The backend may still produce fewer questions than requested.
func RequestedTotal(req model.GenerateExamRequest) int {
	total := 0
	for _, qt := range req.QuestionTypes {
		total += qt.Count
	}
	return total
}

// GenerateExam validates the configuration locally, then asks the backend to
// synthesize an exam. Validation failures never reach the network.
func (c *Client) GenerateExam(ctx context.Context, req model.GenerateExamRequest) (model.Exam, error) {
	if len(req.DocumentIDs) == 0 {
		return model.Exam{}, ErrNoDocuments
	}
	enabled := 0
	for _, qt := range req.QuestionTypes {
		if qt.Count > 0 {
			enabled++
		}
	}
	if enabled == 0 {
		return model.Exam{}, ErrNoQuestionTypes
	}

	var exam model.Exam
	err := c.postJSON(ctx, "/api/exams/generate", req, &exam)
	return exam, err
}

// ListExams fetches all exams with their current attempt aggregates.
func (c *Client) ListExams(ctx context.Context) ([]model.Exam, error) {
	var exams []model.Exam
	err := c.getJSON(ctx, "/api/exams", &exams)
	return exams, err
}

// GetExam fetches one exam including its question sequence.
func (c *Client) GetExam(ctx context.Context, examID string) (model.Exam, error) {
	var exam model.Exam
	err := c.getJSON(ctx, "/api/exams/"+examID, &exam)
	return exam, err
}

// SubmitExam grades one attempt. Keys of answers are question indexes.
func (c *Client) SubmitExam(ctx context.Context, examID string, answers map[int]any) (model.ExamResult, error) {
	body := struct {
		Answers map[int]any `json:"answers"`
	}{Answers: answers}
	var result model.ExamResult
	err := c.postJSON(ctx, "/api/exams/"+examID+"/submit", body, &result)
	return result, err
}

// ResetAttempts clears an exam's attempt history. The returned Exam carries
// all aggregate fields cleared together; callers replace their cached copy
// with it in one assignment.
func (c *Client) ResetAttempts(ctx context.Context, examID string) (model.Exam, error) {
	var exam model.Exam
	err := c.delete(ctx, "/api/exams/"+examID+"/attempts", &exam)
	return exam, err
}

// DeleteExam removes an exam permanently.
func (c *Client) DeleteExam(ctx context.Context, examID string) error {
	return c.delete(ctx, "/api/exams/"+examID, nil)
}

package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"studyhall/internal/model"
)

// InsertExam persists a freshly generated exam. Questions and source
// document ids are stored as JSON columns; the question list is immutable
// after this point.
func (s *Store) InsertExam(exam model.Exam) error {
	questions, err := json.Marshal(exam.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	docIDs, err := json.Marshal(exam.DocumentIDs)
	if err != nil {
		return fmt.Errorf("encode document ids: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO exams (id, title, course, exam_type, question_count, questions, document_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		exam.ID, exam.Title, exam.Course, exam.ExamType, exam.QuestionCount,
		string(questions), string(docIDs), exam.CreatedAt,
	)
	return err
}

func scanExam(row interface{ Scan(...any) error }) (model.Exam, error) {
	var e model.Exam
	var questions, docIDs string
	err := row.Scan(&e.ID, &e.Title, &e.Course, &e.ExamType, &e.QuestionCount,
		&questions, &docIDs, &e.CreatedAt)
	if err != nil {
		return model.Exam{}, err
	}
	if err := json.Unmarshal([]byte(questions), &e.Questions); err != nil {
		return model.Exam{}, fmt.Errorf("decode questions for exam %s: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(docIDs), &e.DocumentIDs); err != nil {
		return model.Exam{}, fmt.Errorf("decode document ids for exam %s: %w", e.ID, err)
	}
	return e, nil
}

// GetExam returns one exam with its questions and attempt aggregates.
func (s *Store) GetExam(id string) (model.Exam, error) {
	row := s.db.QueryRow(`
		SELECT id, title, course, exam_type, question_count, questions, document_ids, created_at
		FROM exams WHERE id = ?`, id)
	exam, err := scanExam(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Exam{}, ErrNotFound
	}
	if err != nil {
		return model.Exam{}, err
	}
	if err := s.fillAggregates(&exam); err != nil {
		return model.Exam{}, err
	}
	return exam, nil
}

// ListExams returns all exams with aggregates, newest first.
func (s *Store) ListExams() ([]model.Exam, error) {
	rows, err := s.db.Query(`
		SELECT id, title, course, exam_type, question_count, questions, document_ids, created_at
		FROM exams ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []model.Exam
	for rows.Next() {
		exam, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, exam)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range exams {
		if err := s.fillAggregates(&exams[i]); err != nil {
			return nil, err
		}
	}
	return exams, nil
}

// fillAggregates derives the attempt aggregate fields from exam_attempts.
// All five fields are set together from one query, so callers never see a
// partially cleared or partially updated aggregate.
func (s *Store) fillAggregates(exam *model.Exam) error {
	var count int
	var best, avg sql.NullFloat64
	err := s.db.QueryRow(`
		SELECT COUNT(*), MAX(percentage), AVG(percentage)
		FROM exam_attempts WHERE exam_id = ?`, exam.ID,
	).Scan(&count, &best, &avg)
	if err != nil {
		return err
	}
	exam.AttemptCount = count
	exam.Completed = count > 0
	exam.BestScore = nil
	exam.AverageScore = nil
	exam.LastAttempt = nil
	if best.Valid {
		b := int(best.Float64)
		exam.BestScore = &b
	}
	if avg.Valid {
		a := int(math.Round(avg.Float64))
		exam.AverageScore = &a
	}
	if count > 0 {
		// MAX(timestamp) strips the column's declared type, so the sqlite
		// driver hands the value back as a raw string rather than a
		// time.Time. Read the newest row's column directly instead.
		var last time.Time
		err := s.db.QueryRow(`
			SELECT timestamp FROM exam_attempts
			WHERE exam_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1`, exam.ID,
		).Scan(&last)
		if err != nil {
			return err
		}
		exam.LastAttempt = &last
	}
	return nil
}

// InsertAttempt records one graded submission.
func (s *Store) InsertAttempt(examID string, attempt model.ExamAttempt) error {
	_, err := s.db.Exec(`
		INSERT INTO exam_attempts (exam_id, timestamp, score, total, percentage)
		VALUES (?, ?, ?, ?, ?)`,
		examID, attempt.Timestamp, attempt.Score, attempt.Total, attempt.Percentage,
	)
	return err
}

// ListAttempts returns all attempts for an exam, most recent first.
func (s *Store) ListAttempts(examID string) ([]model.ExamAttempt, error) {
	rows, err := s.db.Query(`
		SELECT timestamp, score, total, percentage
		FROM exam_attempts WHERE exam_id = ? ORDER BY timestamp DESC, id DESC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var attempts []model.ExamAttempt
	for rows.Next() {
		var a model.ExamAttempt
		if err := rows.Scan(&a.Timestamp, &a.Score, &a.Total, &a.Percentage); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// BestScore returns the highest attempt percentage for an exam, or false
// when no attempts exist.
func (s *Store) BestScore(examID string) (int, bool, error) {
	var best sql.NullFloat64
	err := s.db.QueryRow(
		`SELECT MAX(percentage) FROM exam_attempts WHERE exam_id = ?`, examID,
	).Scan(&best)
	if err != nil {
		return 0, false, err
	}
	if !best.Valid {
		return 0, false, nil
	}
	return int(best.Float64), true, nil
}

// ResetAttempts deletes all attempt history for an exam. One statement, so
// every aggregate derived from the table clears at once. Resetting an exam
// with no attempts is a no-op, not an error.
func (s *Store) ResetAttempts(examID string) error {
	if _, err := s.GetExam(examID); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM exam_attempts WHERE exam_id = ?`, examID)
	return err
}

// DeleteExam removes an exam and its attempt history.
func (s *Store) DeleteExam(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM exam_attempts WHERE exam_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM exams WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ExportHistory assembles the full exam history for export, optionally
// filtered by course code.
func (s *Store) ExportHistory(course string) (model.ExamHistoryExport, error) {
	exams, err := s.ListExams()
	if err != nil {
		return model.ExamHistoryExport{}, err
	}
	export := model.ExamHistoryExport{ExportedAt: time.Now(), Course: course}
	for _, exam := range exams {
		if course != "" && exam.Course != course {
			continue
		}
		attempts, err := s.ListAttempts(exam.ID)
		if err != nil {
			return model.ExamHistoryExport{}, err
		}
		entry := model.ExamExport{
			ExamID:        exam.ID,
			Title:         exam.Title,
			Course:        exam.Course,
			ExamType:      exam.ExamType,
			QuestionCount: exam.QuestionCount,
			CreatedAt:     exam.CreatedAt,
			BestScore:     exam.BestScore,
			AverageScore:  exam.AverageScore,
		}
		for _, a := range attempts {
			entry.Attempts = append(entry.Attempts, model.AttemptExport{
				Timestamp:  a.Timestamp,
				Score:      a.Score,
				Total:      a.Total,
				Percentage: a.Percentage,
			})
		}
		export.Exams = append(export.Exams, entry)
	}
	return export, nil
}

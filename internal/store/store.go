// Package store persists courses, documents, study artifacts, and exams in
// a local sqlite database.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"studyhall/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS courses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		course_id INTEGER NOT NULL,
		filename TEXT NOT NULL,
		page_count INTEGER,
		content TEXT NOT NULL DEFAULT '',
		uploaded_at DATETIME NOT NULL,
		FOREIGN KEY (course_id) REFERENCES courses(id)
	);

	CREATE TABLE IF NOT EXISTS document_hashes (
		hash TEXT PRIMARY KEY,
		document_id INTEGER NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id)
	);

	CREATE TABLE IF NOT EXISTS summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id INTEGER NOT NULL UNIQUE,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id)
	);

	CREATE TABLE IF NOT EXISTS flashcards (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id INTEGER NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		mastered INTEGER NOT NULL DEFAULT 0,
		times_reviewed INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (document_id) REFERENCES documents(id)
	);

	CREATE TABLE IF NOT EXISTS exams (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		course TEXT NOT NULL,
		exam_type TEXT NOT NULL DEFAULT 'practice',
		question_count INTEGER NOT NULL,
		questions TEXT NOT NULL,
		document_ids TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exam_attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		score INTEGER NOT NULL,
		total INTEGER NOT NULL,
		percentage INTEGER NOT NULL,
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// EnsureCourse returns the id of the course with the given code, creating it
// if needed.
func (s *Store) EnsureCourse(code, name string) (int64, error) {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM courses WHERE code = ?`, code).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	res, err := s.db.Exec(
		`INSERT INTO courses (code, name, created_at) VALUES (?, ?, ?)`,
		code, name, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListCourses returns all courses with their document and flashcard counts.
func (s *Store) ListCourses() ([]model.Course, error) {
	rows, err := s.db.Query(`
		SELECT c.code, c.name,
			(SELECT COUNT(*) FROM documents d WHERE d.course_id = c.id),
			(SELECT COUNT(*) FROM flashcards f
			 JOIN documents d ON d.id = f.document_id
			 WHERE d.course_id = c.id)
		FROM courses c ORDER BY c.code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.Code, &c.Name, &c.DocumentCount, &c.FlashcardCount); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// DeleteCourse removes a course and everything hanging off it.
func (s *Store) DeleteCourse(code string) error {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM courses WHERE code = ?`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, stmt := range []string{
		`DELETE FROM flashcards WHERE document_id IN (SELECT id FROM documents WHERE course_id = ?)`,
		`DELETE FROM summaries WHERE document_id IN (SELECT id FROM documents WHERE course_id = ?)`,
		`DELETE FROM document_hashes WHERE document_id IN (SELECT id FROM documents WHERE course_id = ?)`,
		`DELETE FROM documents WHERE course_id = ?`,
		`DELETE FROM courses WHERE id = ?`,
	} {
		if _, err := tx.Exec(stmt, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// InsertDocument stores a document under a course (created on demand) along
// with its extracted text, and records the content hash for duplicate
// detection.
func (s *Store) InsertDocument(courseCode, filename string, pageCount int, hash, content string) (int64, error) {
	courseID, err := s.EnsureCourse(courseCode, "")
	if err != nil {
		return 0, err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	res, err := tx.Exec(
		`INSERT INTO documents (course_id, filename, page_count, content, uploaded_at) VALUES (?, ?, ?, ?, ?)`,
		courseID, filename, pageCount, content, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if hash != "" {
		if _, err := tx.Exec(
			`INSERT INTO document_hashes (hash, document_id) VALUES (?, ?)`, hash, id,
		); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

const documentColumns = `
	d.id, d.filename, c.code, d.page_count, d.uploaded_at,
	(SELECT COUNT(*) FROM flashcards f WHERE f.document_id = d.id),
	EXISTS (SELECT 1 FROM summaries sm WHERE sm.document_id = d.id)`

func scanDocument(row interface{ Scan(...any) error }) (model.Document, error) {
	var d model.Document
	err := row.Scan(&d.ID, &d.Filename, &d.Course, &d.PageCount, &d.UploadedAt,
		&d.FlashcardCount, &d.HasSummary)
	return d, err
}

// GetDocument returns one document with derived fields.
func (s *Store) GetDocument(id int64) (model.Document, error) {
	row := s.db.QueryRow(`
		SELECT `+documentColumns+`
		FROM documents d JOIN courses c ON c.id = d.course_id
		WHERE d.id = ?`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, ErrNotFound
	}
	return d, err
}

// ListDocuments returns all documents, newest first. course filters by
// course code when non-empty.
func (s *Store) ListDocuments(course string) ([]model.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents d JOIN courses c ON c.id = d.course_id`
	var args []any
	if course != "" {
		query += ` WHERE c.code = ?`
		args = append(args, course)
	}
	query += ` ORDER BY d.uploaded_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document and its summary, flashcards, and hash.
func (s *Store) DeleteDocument(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, table := range []string{"flashcards", "summaries", "document_hashes"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE document_id = ?`, id); err != nil {
			return err
		}
	}
	res, err := tx.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// DocumentIDByHash reports whether a document with this content hash exists.
func (s *Store) DocumentIDByHash(hash string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRow(`SELECT document_id FROM document_hashes WHERE hash = ?`, hash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// CombinedText concatenates the stored extracted text of the given
// documents, each section headed by its filename. Unknown ids are skipped.
func (s *Store) CombinedText(ids []int64) (string, error) {
	var sb strings.Builder
	for _, id := range ids {
		var filename, content string
		err := s.db.QueryRow(`SELECT filename, content FROM documents WHERE id = ?`, id).
			Scan(&filename, &content)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return "", err
		}
		if content == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n\n--- %s ---\n\n%s", filename, content)
	}
	return strings.TrimSpace(sb.String()), nil
}

// InsertSummary stores the summary for a document, replacing any prior one.
func (s *Store) InsertSummary(documentID int64, content string) error {
	_, err := s.db.Exec(`
		INSERT INTO summaries (document_id, content, created_at) VALUES (?, ?, ?)
		ON CONFLICT (document_id) DO UPDATE SET content = excluded.content, created_at = excluded.created_at`,
		documentID, content, time.Now(),
	)
	return err
}

// GetSummary returns the stored summary for a document.
func (s *Store) GetSummary(documentID int64) (model.Summary, error) {
	var sm model.Summary
	err := s.db.QueryRow(
		`SELECT id, document_id, content, created_at FROM summaries WHERE document_id = ?`,
		documentID,
	).Scan(&sm.ID, &sm.DocumentID, &sm.Content, &sm.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Summary{}, ErrNotFound
	}
	return sm, err
}

// InsertFlashcards stores a batch of generated cards for a document.
func (s *Store) InsertFlashcards(documentID int64, cards []model.Flashcard) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(
		`INSERT INTO flashcards (document_id, question, answer, difficulty) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, card := range cards {
		if _, err := stmt.Exec(documentID, card.Question, card.Answer, card.Difficulty); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// FlashcardFilter narrows ListFlashcards. Zero value means no filtering.
type FlashcardFilter struct {
	Course     string
	Difficulty model.Difficulty
	Mastered   *bool
}

// ListFlashcards returns flashcards matching the filter.
func (s *Store) ListFlashcards(filter FlashcardFilter) ([]model.Flashcard, error) {
	query := `
		SELECT f.id, f.document_id, f.question, f.answer, f.difficulty, f.mastered, f.times_reviewed
		FROM flashcards f
		JOIN documents d ON d.id = f.document_id
		JOIN courses c ON c.id = d.course_id
		WHERE 1=1`
	var args []any
	if filter.Course != "" {
		query += ` AND c.code = ?`
		args = append(args, filter.Course)
	}
	if filter.Difficulty != "" {
		query += ` AND f.difficulty = ?`
		args = append(args, filter.Difficulty)
	}
	if filter.Mastered != nil {
		query += ` AND f.mastered = ?`
		args = append(args, *filter.Mastered)
	}
	query += ` ORDER BY f.id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cards []model.Flashcard
	for rows.Next() {
		var f model.Flashcard
		if err := rows.Scan(&f.ID, &f.DocumentID, &f.Question, &f.Answer,
			&f.Difficulty, &f.Mastered, &f.TimesReviewed); err != nil {
			return nil, err
		}
		cards = append(cards, f)
	}
	return cards, rows.Err()
}

// UpdateFlashcard applies a mastery change and/or a review to one card.
func (s *Store) UpdateFlashcard(id int64, mastered *bool, reviewed bool) (model.Flashcard, error) {
	if mastered != nil {
		if _, err := s.db.Exec(`UPDATE flashcards SET mastered = ? WHERE id = ?`, *mastered, id); err != nil {
			return model.Flashcard{}, err
		}
	}
	if reviewed {
		if _, err := s.db.Exec(`UPDATE flashcards SET times_reviewed = times_reviewed + 1 WHERE id = ?`, id); err != nil {
			return model.Flashcard{}, err
		}
	}
	var f model.Flashcard
	err := s.db.QueryRow(`
		SELECT id, document_id, question, answer, difficulty, mastered, times_reviewed
		FROM flashcards WHERE id = ?`, id,
	).Scan(&f.ID, &f.DocumentID, &f.Question, &f.Answer, &f.Difficulty, &f.Mastered, &f.TimesReviewed)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Flashcard{}, ErrNotFound
	}
	return f, err
}

// Stats returns overall library counts.
func (s *Store) Stats() (model.Statistics, error) {
	var st model.Statistics
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM courses),
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM summaries),
			(SELECT COUNT(*) FROM flashcards),
			(SELECT COUNT(*) FROM flashcards WHERE mastered = 1)`,
	).Scan(&st.TotalCourses, &st.TotalDocuments, &st.TotalSummaries,
		&st.TotalFlashcards, &st.MasteredFlashcards)
	if err != nil {
		return model.Statistics{}, err
	}
	st.UnmasteredFlashcards = st.TotalFlashcards - st.MasteredFlashcards
	return st, nil
}

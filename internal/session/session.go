// Package session is the exam attempt state machine: an explicit
// Idle -> InProgress -> Submitted lifecycle over one selected exam, with
// typed answer collection and aggregate bookkeeping after submit and reset.
package session

import (
	"context"
	"errors"
	"fmt"

	"studyhall/internal/model"
)

// State is the attempt lifecycle position.
type State int

const (
	// Idle means no exam is selected.
	Idle State = iota
	// InProgress means an exam is active and answers are accumulating.
	InProgress
	// Submitted means results for the active exam have been received.
	Submitted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InProgress:
		return "in_progress"
	case Submitted:
		return "submitted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrNoActiveExam is returned by operations that need a selected exam.
	ErrNoActiveExam = errors.New("no active exam")
	// ErrExamActive is returned when an operation requires the Idle state.
	ErrExamActive = errors.New("an exam is active")
	// ErrNotInProgress is returned when answering or submitting outside an
	// attempt.
	ErrNotInProgress = errors.New("no attempt in progress")
	// ErrIncomplete is returned by Submit while any question lacks an answer.
	ErrIncomplete = errors.New("every question must be answered before submitting")
)

// ExamAPI is the backend surface the session needs. Satisfied by
// *client.Client.
type ExamAPI interface {
	GetExam(ctx context.Context, examID string) (model.Exam, error)
	SubmitExam(ctx context.Context, examID string, answers map[int]any) (model.ExamResult, error)
	ResetAttempts(ctx context.Context, examID string) (model.Exam, error)
	DeleteExam(ctx context.Context, examID string) error
}

// Session tracks one exam attempt at a time. Not safe for concurrent use;
// callers drive it from a single goroutine.
type Session struct {
	api     ExamAPI
	state   State
	exam    model.Exam
	answers map[int]any
	result  *model.ExamResult
}

func New(api ExamAPI) *Session {
	return &Session{api: api}
}

func (s *Session) State() State { return s.state }

// Exam returns the selected exam. ok is false in Idle.
func (s *Session) Exam() (model.Exam, bool) {
	return s.exam, s.state != Idle
}

// Result returns the graded result of the last submission, if any.
func (s *Session) Result() (model.ExamResult, bool) {
	if s.result == nil {
		return model.ExamResult{}, false
	}
	return *s.result, true
}

// Start begins an attempt on exam, clearing any prior answers and result.
// Valid from Idle or Submitted.
func (s *Session) Start(exam model.Exam) error {
	if s.state == InProgress {
		return fmt.Errorf("starting %s: %w", exam.ID, ErrExamActive)
	}
	s.exam = exam
	s.answers = make(map[int]any, len(exam.Questions))
	s.result = nil
	s.state = InProgress
	return nil
}

// Answer records the answer for one question, replacing any earlier value.
// The value's type must match the question variant: string for multiple
// choice and short answer, bool for true/false. A mismatched type panics,
// since it can only come from a caller bug, never from user input.
func (s *Session) Answer(index int, value any) error {
	if s.state != InProgress {
		return ErrNotInProgress
	}
	if index < 0 || index >= len(s.exam.Questions) {
		return fmt.Errorf("question index %d out of range [0,%d)", index, len(s.exam.Questions))
	}
	checkAnswerShape(index, s.exam.Questions[index], value)
	s.answers[index] = value
	return nil
}

func checkAnswerShape(index int, question model.ExamQuestion, value any) {
	switch question.(type) {
	case model.MultipleChoice, model.ShortAnswer:
		if _, ok := value.(string); !ok {
			panic(fmt.Sprintf("question %d (%s) takes a string answer, got %T", index, question.Type(), value))
		}
	case model.TrueFalse:
		if _, ok := value.(bool); !ok {
			panic(fmt.Sprintf("question %d (true_false) takes a bool answer, got %T", index, value))
		}
	}
}

// Answered reports how many questions have answers.
func (s *Session) Answered() int { return len(s.answers) }

// Submit grades the attempt. Incomplete submissions are rejected locally
// before any network call. On success the session moves to Submitted and the
// cached exam is refreshed from the backend so its aggregates are current.
func (s *Session) Submit(ctx context.Context) (model.ExamResult, error) {
	if s.state != InProgress {
		return model.ExamResult{}, ErrNotInProgress
	}
	if len(s.answers) < len(s.exam.Questions) {
		return model.ExamResult{}, fmt.Errorf("%w (%d of %d answered)",
			ErrIncomplete, len(s.answers), len(s.exam.Questions))
	}

	result, err := s.api.SubmitExam(ctx, s.exam.ID, s.answers)
	if err != nil {
		return model.ExamResult{}, err
	}

	// Refresh the cached exam so every aggregate field, including average
	// score and last attempt time, reflects the new attempt. When the
	// refresh fails the fields derivable from the result are still updated.
	if refreshed, err := s.api.GetExam(ctx, s.exam.ID); err == nil {
		refreshed.Questions = s.exam.Questions
		s.exam = refreshed
	} else {
		updated := s.exam
		updated.BestScore = &result.BestScore
		updated.AttemptCount = result.AttemptNumber
		updated.Completed = true
		s.exam = updated
	}

	s.result = &result
	s.state = Submitted
	return result, nil
}

// Retake starts a fresh attempt on the same exam, discarding the previous
// answers and result. Valid only from Submitted.
func (s *Session) Retake() error {
	if s.state != Submitted {
		return fmt.Errorf("retake: %w", ErrNotInProgress)
	}
	s.answers = make(map[int]any, len(s.exam.Questions))
	s.result = nil
	s.state = InProgress
	return nil
}

// Close abandons the session back to Idle. Persisted attempt history is
// untouched.
func (s *Session) Close() {
	s.exam = model.Exam{}
	s.answers = nil
	s.result = nil
	s.state = Idle
}

// Reset clears the selected exam's attempt history on the backend. The
// cached exam is replaced wholesale with the cleared copy, so aggregate
// fields are never visible half-cleared. Valid whenever an exam is selected.
func (s *Session) Reset(ctx context.Context) (model.Exam, error) {
	if s.state == Idle {
		return model.Exam{}, ErrNoActiveExam
	}
	cleared, err := s.api.ResetAttempts(ctx, s.exam.ID)
	if err != nil {
		return model.Exam{}, err
	}
	cleared.Questions = s.exam.Questions
	s.exam = cleared
	return cleared, nil
}

// Delete removes an exam permanently. Only allowed from Idle, so an active
// attempt can never have its exam deleted out from under it.
func (s *Session) Delete(ctx context.Context, examID string) error {
	if s.state != Idle {
		return ErrExamActive
	}
	return s.api.DeleteExam(ctx, examID)
}

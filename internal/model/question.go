package model

import (
	"encoding/json"
	"fmt"
)

// QuestionType tags an exam question variant.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
)

// QuestionTypes lists all variants in canonical order.
var QuestionTypes = []QuestionType{QuestionMultipleChoice, QuestionTrueFalse, QuestionShortAnswer}

// ExamQuestion is one question of a generated exam. The variant set is
// closed: MultipleChoice, TrueFalse and ShortAnswer. Questions are immutable
// once an exam is generated.
type ExamQuestion interface {
	Type() QuestionType
	Prompt() string
}

// MultipleChoice offers lettered options with exactly one correct letter.
type MultipleChoice struct {
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correct_answer"`
	Explanation   string            `json:"explanation"`
}

func (q MultipleChoice) Type() QuestionType { return QuestionMultipleChoice }
func (q MultipleChoice) Prompt() string     { return q.Question }

// TrueFalse is a statement to evaluate; the answer domain is boolean.
type TrueFalse struct {
	Question      string `json:"question"`
	CorrectAnswer bool   `json:"correct_answer"`
	Explanation   string `json:"explanation"`
}

func (q TrueFalse) Type() QuestionType { return QuestionTrueFalse }
func (q TrueFalse) Prompt() string     { return q.Question }

// ShortAnswer expects a free-text response judged against a sample answer
// and its key points.
type ShortAnswer struct {
	Question     string `json:"question"`
	SampleAnswer string `json:"sample_answer"`
	KeyPoints    string `json:"key_points"`
}

func (q ShortAnswer) Type() QuestionType { return QuestionShortAnswer }
func (q ShortAnswer) Prompt() string     { return q.Question }

// QuestionList marshals a question sequence with a "type" tag per element so
// each variant carries only its own fields on the wire.
type QuestionList []ExamQuestion

type questionEnvelope struct {
	Type          QuestionType      `json:"type"`
	Question      string            `json:"question"`
	Options       map[string]string `json:"options,omitempty"`
	CorrectAnswer json.RawMessage   `json:"correct_answer,omitempty"`
	Explanation   string            `json:"explanation,omitempty"`
	SampleAnswer  string            `json:"sample_answer,omitempty"`
	KeyPoints     string            `json:"key_points,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (l QuestionList) MarshalJSON() ([]byte, error) {
	envelopes := make([]questionEnvelope, 0, len(l))
	for _, q := range l {
		env := questionEnvelope{Type: q.Type(), Question: q.Prompt()}
		switch v := q.(type) {
		case MultipleChoice:
			env.Options = v.Options
			env.Explanation = v.Explanation
			raw, err := json.Marshal(v.CorrectAnswer)
			if err != nil {
				return nil, err
			}
			env.CorrectAnswer = raw
		case TrueFalse:
			env.Explanation = v.Explanation
			raw, err := json.Marshal(v.CorrectAnswer)
			if err != nil {
				return nil, err
			}
			env.CorrectAnswer = raw
		case ShortAnswer:
			env.SampleAnswer = v.SampleAnswer
			env.KeyPoints = v.KeyPoints
		default:
			return nil, fmt.Errorf("unknown question variant %T", q)
		}
		envelopes = append(envelopes, env)
	}
	return json.Marshal(envelopes)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *QuestionList) UnmarshalJSON(data []byte) error {
	var envelopes []questionEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return err
	}
	out := make(QuestionList, 0, len(envelopes))
	for _, env := range envelopes {
		switch env.Type {
		case QuestionMultipleChoice:
			q := MultipleChoice{
				Question:    env.Question,
				Options:     env.Options,
				Explanation: env.Explanation,
			}
			if len(env.CorrectAnswer) > 0 {
				if err := json.Unmarshal(env.CorrectAnswer, &q.CorrectAnswer); err != nil {
					return fmt.Errorf("multiple_choice correct_answer: %w", err)
				}
			}
			out = append(out, q)
		case QuestionTrueFalse:
			q := TrueFalse{Question: env.Question, Explanation: env.Explanation}
			if len(env.CorrectAnswer) > 0 {
				if err := json.Unmarshal(env.CorrectAnswer, &q.CorrectAnswer); err != nil {
					return fmt.Errorf("true_false correct_answer: %w", err)
				}
			}
			out = append(out, q)
		case QuestionShortAnswer:
			out = append(out, ShortAnswer{
				Question:     env.Question,
				SampleAnswer: env.SampleAnswer,
				KeyPoints:    env.KeyPoints,
			})
		default:
			return fmt.Errorf("unknown question type %q", env.Type)
		}
	}
	*l = out
	return nil
}

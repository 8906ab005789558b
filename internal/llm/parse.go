package llm

import (
	"regexp"
	"strings"

	"studyhall/internal/model"
)

var (
	questionSplit = regexp.MustCompile(`\n\s*Q:\s*`)
	answerSplit   = regexp.MustCompile(`\n\s*A:\s*`)
	optionLine    = regexp.MustCompile(`^[A-D]\)`)
)

// sections splits a model response into per-question blocks. A leading
// newline is prepended so a response starting directly with "Q:" still
// splits.
func sections(text string) []string {
	parts := questionSplit.Split("\n"+text, -1)
	if len(parts) < 2 {
		return nil
	}
	return parts[1:]
}

// parseFlashcards extracts Q:/A: pairs from a model response. Blocks
// missing either side are dropped.
func parseFlashcards(text string) []model.Flashcard {
	var cards []model.Flashcard
	for _, sec := range sections(text) {
		parts := answerSplit.Split(sec, 2)
		if len(parts) != 2 {
			continue
		}
		question := strings.TrimSpace(parts[0])
		answer := strings.TrimSpace(questionSplit.Split("\n"+parts[1], 2)[0])
		if question != "" && answer != "" {
			cards = append(cards, model.Flashcard{Question: question, Answer: answer})
		}
	}
	return cards
}

// parseMultipleChoice extracts questions in the Q:/A)-D)/CORRECT:/EXPLANATION:
// format. A block qualifies only with all four options and a correct letter.
func parseMultipleChoice(text string) model.QuestionList {
	var out model.QuestionList
	for _, sec := range sections(text) {
		lines := strings.Split(strings.TrimSpace(sec), "\n")
		q := model.MultipleChoice{
			Question: strings.TrimSpace(lines[0]),
			Options:  make(map[string]string),
		}
		for _, line := range lines[1:] {
			line = strings.TrimSpace(line)
			switch {
			case optionLine.MatchString(line):
				q.Options[line[:1]] = strings.TrimSpace(line[2:])
			case strings.HasPrefix(line, "CORRECT:"):
				v := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(line, "CORRECT:")))
				if v != "" {
					q.CorrectAnswer = v[:1]
				}
			case strings.HasPrefix(line, "EXPLANATION:"):
				q.Explanation = strings.TrimSpace(strings.TrimPrefix(line, "EXPLANATION:"))
			}
		}
		if q.Question != "" && len(q.Options) == 4 && q.CorrectAnswer != "" {
			out = append(out, q)
		}
	}
	return out
}

// parseTrueFalse extracts statements in the Q:/ANSWER:/EXPLANATION: format.
func parseTrueFalse(text string) model.QuestionList {
	var out model.QuestionList
	for _, sec := range sections(text) {
		lines := strings.Split(strings.TrimSpace(sec), "\n")
		q := model.TrueFalse{Question: strings.TrimSpace(lines[0])}
		answered := false
		for _, line := range lines[1:] {
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "ANSWER:"):
				v := strings.ToUpper(strings.TrimPrefix(line, "ANSWER:"))
				q.CorrectAnswer = strings.Contains(v, "TRUE")
				answered = true
			case strings.HasPrefix(line, "EXPLANATION:"):
				q.Explanation = strings.TrimSpace(strings.TrimPrefix(line, "EXPLANATION:"))
			}
		}
		if q.Question != "" && answered {
			out = append(out, q)
		}
	}
	return out
}

// parseShortAnswer extracts questions in the Q:/SAMPLE_ANSWER:/KEY_POINTS:
// format. A sample answer is required; key points are optional.
func parseShortAnswer(text string) model.QuestionList {
	var out model.QuestionList
	for _, sec := range sections(text) {
		lines := strings.Split(strings.TrimSpace(sec), "\n")
		q := model.ShortAnswer{Question: strings.TrimSpace(lines[0])}
		for _, line := range lines[1:] {
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "SAMPLE_ANSWER:"):
				q.SampleAnswer = strings.TrimSpace(strings.TrimPrefix(line, "SAMPLE_ANSWER:"))
			case strings.HasPrefix(line, "KEY_POINTS:"):
				q.KeyPoints = strings.TrimSpace(strings.TrimPrefix(line, "KEY_POINTS:"))
			}
		}
		if q.Question != "" && q.SampleAnswer != "" {
			out = append(out, q)
		}
	}
	return out
}

// Package prompts builds the instruction text sent to the language model.
// The question and flashcard prompts pin an exact line-oriented output format
// that the parsers in the llm package rely on.
package prompts

import (
	"fmt"
	"strings"

	"studyhall/internal/model"
)

// Summary lengths.
const (
	LengthShort    = "short"
	LengthMedium   = "medium"
	LengthDetailed = "detailed"
)

const avoidVisuals = `Important: the input material may contain figures, tables, or code snippets that are not visible to the student.
Do NOT create content that depends on such visual or code-based material.
If necessary, skip those parts and focus only on explainable text concepts.`

// SummarySystem is the system prompt for summary generation.
func SummarySystem() string {
	return `You are an expert educational assistant who creates clear, accurate, and structured summaries of study material.

Guidelines:
- Summarize only from the text. Ignore any content describing images, figures, charts, or code snippets.
- Never reference visuals or code (e.g., "as shown in the figure").
- Focus on core ideas, relationships between concepts, definitions, and explanations.
- Organize the summary logically with headings, bullet points, or paragraphs.
- The summary should be comprehensive enough that a student could understand the material without the original document.

` + avoidVisuals
}

// Summary builds the user prompt for one summary request.
func Summary(text, length string) string {
	var instruction string
	switch length {
	case LengthShort:
		instruction = "Create a concise summary in 3-5 bullet points that capture only the main textual ideas and themes."
	case LengthMedium:
		instruction = "Write a well-structured summary of 2-3 paragraphs covering the main concepts, definitions, and relationships between ideas."
	default:
		instruction = `Create a comprehensive, detailed summary suitable for in-depth studying.
Include all major concepts, key definitions and terminology, examples that can be understood from text alone, and important processes or reasoning described in the material.
Organize the summary into clearly labeled sections.`
	}
	return fmt.Sprintf("%s\n\nLecture Notes:\n%s\n\nSummary:", instruction, text)
}

// FlashcardSystem is the system prompt for flashcard generation.
func FlashcardSystem() string {
	return `You are an expert educational assistant creating flashcards to help students study effectively.

Guidelines:
- Base all flashcards only on the textual content provided.
- Make each question clear, specific, and self-contained.
- Keep answers concise but complete.
- Each flashcard should be unique and test a distinct concept.

` + avoidVisuals
}

// Flashcards builds the user prompt for one difficulty level.
func Flashcards(text string, difficulty model.Difficulty, count int) string {
	var focus string
	switch difficulty {
	case model.DifficultyEasy:
		focus = "Focus on fundamental definitions, terms, and straightforward recall questions."
	case model.DifficultyMedium:
		focus = `Focus on conceptual understanding and reasoning.
Include "why" or "how" questions that connect multiple ideas.`
	case model.DifficultyHard:
		focus = `Focus on application, synthesis, and higher-order thinking.
Create questions that require combining multiple concepts or reasoning about implications.`
	}
	upper := strings.ToUpper(string(difficulty))
	return fmt.Sprintf(`Create exactly %d %s difficulty flashcards from these lecture notes.
%s

Format each flashcard EXACTLY like this:
Q: [Clear, specific question]
A: [Concise, accurate answer]

Leave one blank line between flashcards.

Lecture Notes:
%s

%s Flashcards:`, count, upper, focus, text, upper)
}

// QuestionSystem is the system prompt shared by all exam question types.
func QuestionSystem() string {
	return `You are an expert educational content creator generating exam questions for students.

Guidelines:
- Use only textual content. Ignore diagrams, figures, tables, or code snippets.
- Each question should be conceptually rich and test understanding, not trivial facts.
- Avoid obvious cues like "always", "never", or "all of the above".
- Keep questions concise, factual, and unambiguous.

` + avoidVisuals
}

// MultipleChoice builds the user prompt for multiple choice generation.
func MultipleChoice(text string, count int) string {
	return fmt.Sprintf(`Create exactly %d multiple choice questions from this material.

Format EXACTLY like this for each question:
Q: [Clear question text]
A) [Option A]
B) [Option B]
C) [Option C]
D) [Option D]
CORRECT: [Letter of correct answer]
EXPLANATION: [Brief explanation why this is correct]

Leave one blank line between questions.

Study Material:
%s

Multiple Choice Questions:`, count, text)
}

// TrueFalse builds the user prompt for true/false generation.
func TrueFalse(text string, count int) string {
	return fmt.Sprintf(`Create exactly %d true/false questions from this material.

Format EXACTLY like this for each question:
Q: [Statement to evaluate]
ANSWER: [TRUE or FALSE]
EXPLANATION: [Brief explanation]

Leave one blank line between questions.

Study Material:
%s

True/False Questions:`, count, text)
}

// ShortAnswer builds the user prompt for short answer generation.
func ShortAnswer(text string, count int) string {
	return fmt.Sprintf(`Create exactly %d short answer questions from this material.

Format EXACTLY like this for each question:
Q: [Question requiring 2-4 sentence answer]
SAMPLE_ANSWER: [Example of a good answer]
KEY_POINTS: [Main points that should be included]

Leave one blank line between questions.

Study Material:
%s

Short Answer Questions:`, count, text)
}

// ChatSystem is the system prompt for the study assistant conversation.
func ChatSystem() string {
	return `You are a helpful study assistant. Answer the student's question using the provided course material.
If the material does not cover the question, say so and answer from general knowledge, noting the distinction.
Keep answers clear, accurate, and suitable for studying.`
}

// Chat builds the user prompt for one assistant question, with any retrieved
// course material prepended as context.
func Chat(question, material string) string {
	if strings.TrimSpace(material) == "" {
		return question
	}
	return fmt.Sprintf("Course Material:\n%s\n\nQuestion: %s", material, question)
}

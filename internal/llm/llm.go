// Package llm generates summaries, flashcards, and exam questions through an
// OpenAI-compatible chat completion API. The llama provider targets a local
// Ollama server through its OpenAI-compatible endpoint.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"studyhall/internal/llm/prompts"
	"studyhall/internal/model"
)

const (
	ollamaBaseURL     = "http://localhost:11434/v1"
	defaultLlamaModel = "llama3.2:3b"
	maxReplyTokens    = 2000
)

// Client wraps an OpenAI-compatible API client for one provider selection.
// Clients are cheap to construct; build one per request so mid-session
// provider changes take effect immediately.
type Client struct {
	api      *openai.Client
	model    string
	provider model.Provider
}

// New builds a client for the given provider context. For the openai
// provider the credential is checked for basic shape before any call, so a
// missing key fails with a setup hint instead of an opaque API error.
func New(pc model.ProviderContext) (*Client, error) {
	switch pc.Provider {
	case model.ProviderLlama:
		config := openai.DefaultConfig("ollama")
		config.BaseURL = ollamaBaseURL
		return &Client{
			api:      openai.NewClientWithConfig(config),
			model:    defaultLlamaModel,
			provider: model.ProviderLlama,
		}, nil
	default:
		if len(pc.APIKey) < 20 {
			return nil, fmt.Errorf("OpenAI API key is missing or invalid: set it in settings, or switch the provider to llama if Ollama is installed")
		}
		if !strings.HasPrefix(pc.APIKey, "sk-") {
			return nil, fmt.Errorf("OpenAI API key format is invalid: keys start with sk-")
		}
		name := pc.Model
		if name == "" {
			name = model.DefaultOpenAIModel
		}
		return &Client{
			api:      openai.NewClientWithConfig(openai.DefaultConfig(pc.APIKey)),
			model:    name,
			provider: model.ProviderOpenAI,
		}, nil
	}
}

// Model returns the model name requests are sent with.
func (c *Client) Model() string { return c.model }

// Ping verifies the provider is reachable with the configured credential.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		if c.provider == model.ProviderLlama {
			return fmt.Errorf("Ollama is not running: start it with 'ollama serve' or switch to OpenAI in settings")
		}
		return fmt.Errorf("checking OpenAI availability: %w", err)
	}
	return nil
}

// generate runs one chat completion and returns the trimmed reply text.
func (c *Client) generate(ctx context.Context, system, prompt string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   maxReplyTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s API call: %w", c.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", c.provider)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Summarize produces a summary of text at the requested length
// (prompts.LengthShort, LengthMedium, or LengthDetailed).
func (c *Client) Summarize(ctx context.Context, text, length string) (string, error) {
	out, err := c.generate(ctx, prompts.SummarySystem(), prompts.Summary(text, length))
	if err != nil {
		return "", fmt.Errorf("generating summary: %w", err)
	}
	return out, nil
}

// GenerateFlashcards produces up to perDifficulty cards for each difficulty
// level, concurrently. A failed difficulty is logged and skipped; an error is
// returned only when every level fails to yield cards.
func (c *Client) GenerateFlashcards(ctx context.Context, text string, perDifficulty int) ([]model.Flashcard, error) {
	byLevel := make([][]model.Flashcard, len(model.Difficulties))
	errs := make([]error, len(model.Difficulties))

	var wg sync.WaitGroup
	for i, difficulty := range model.Difficulties {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reply, err := c.generate(ctx, prompts.FlashcardSystem(), prompts.Flashcards(text, difficulty, perDifficulty))
			if err != nil {
				errs[i] = err
				return
			}
			cards := parseFlashcards(reply)
			if len(cards) > perDifficulty {
				cards = cards[:perDifficulty]
			}
			for j := range cards {
				cards[j].Difficulty = difficulty
			}
			byLevel[i] = cards
		}()
	}
	wg.Wait()

	var all []model.Flashcard
	for i, cards := range byLevel {
		if errs[i] != nil {
			slog.Warn("flashcard generation failed for difficulty",
				"difficulty", model.Difficulties[i], "error", errs[i])
			continue
		}
		all = append(all, cards...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("generating flashcards: no cards produced")
	}
	return all, nil
}

// GenerateQuestions produces up to count exam questions of one type.
func (c *Client) GenerateQuestions(ctx context.Context, text string, qtype model.QuestionType, count int) (model.QuestionList, error) {
	var prompt string
	var parse func(string) model.QuestionList
	switch qtype {
	case model.QuestionMultipleChoice:
		prompt, parse = prompts.MultipleChoice(text, count), parseMultipleChoice
	case model.QuestionTrueFalse:
		prompt, parse = prompts.TrueFalse(text, count), parseTrueFalse
	case model.QuestionShortAnswer:
		prompt, parse = prompts.ShortAnswer(text, count), parseShortAnswer
	default:
		return nil, fmt.Errorf("unknown question type %q", qtype)
	}

	reply, err := c.generate(ctx, prompts.QuestionSystem(), prompt)
	if err != nil {
		return nil, fmt.Errorf("generating %s questions: %w", qtype, err)
	}
	qs := parse(reply)
	if len(qs) > count {
		qs = qs[:count]
	}
	return qs, nil
}

// Chat answers a student question grounded in the supplied course material.
func (c *Client) Chat(ctx context.Context, question, material string) (string, error) {
	out, err := c.generate(ctx, prompts.ChatSystem(), prompts.Chat(question, material))
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	return out, nil
}

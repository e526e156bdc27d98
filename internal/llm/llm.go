// Package llm wraps the external language model behind a one-method
// interface so the extraction pipeline can be exercised without network
// access.
package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"procure/internal/config"
)

// Completer sends a prompt to a language model and returns its raw text
// reply. Implementations do not retry and do not interpret the reply; parse
// failures are the caller's concern.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const systemPrompt = "You are a helpful procurement assistant."

// OpenAIClient is the production Completer.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewOpenAIClient(cfg config.Config) (*OpenAIClient, error) {
	if err := cfg.Require("OPENAI_API_KEY", cfg.OpenAIAPIKey); err != nil {
		return nil, err
	}
	return &OpenAIClient{
		client:      openai.NewClient(cfg.OpenAIAPIKey),
		model:       cfg.OpenAIModel,
		temperature: float32(cfg.OpenAITemperature),
		maxTokens:   cfg.OpenAIMaxTokens,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("language model returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Package llm provides generation adapters implementing ports.GenerationService.
package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/entities"
	"github.com/BenLus/Github-Repo-Chatbot/internal/retry"
)

const (
	// DefaultOpenAIModel is used when no chat model is configured.
	DefaultOpenAIModel = "gpt-4o-mini"

	defaultTemperature = 0.7
	defaultMaxTokens   = 1000
)

// OpenAIAdapter generates answers with the OpenAI chat completion API.
type OpenAIAdapter struct {
	client *openai.Client
	model  string
	policy retry.Policy
}

// NewOpenAIAdapter creates an adapter. baseURL overrides the API endpoint
// (used by tests); empty means the public API.
func NewOpenAIAdapter(apiKey, baseURL, model string) *OpenAIAdapter {
	if model == "" {
		model = DefaultOpenAIModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		policy: retry.DefaultPolicy(),
	}
}

// Generate produces a completion for the given prompts.
func (a *OpenAIAdapter) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var rsp openai.ChatCompletionResponse
	err := a.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		rsp, err = a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: a.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			Temperature: defaultTemperature,
			MaxTokens:   defaultMaxTokens,
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", entities.ErrGeneration, err)
	}
	if len(rsp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", entities.ErrGeneration)
	}
	return rsp.Choices[0].Message.Content, nil
}

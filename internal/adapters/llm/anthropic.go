package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/entities"
	"github.com/BenLus/Github-Repo-Chatbot/internal/retry"
)

// DefaultAnthropicModel is used when no chat model is configured.
const DefaultAnthropicModel = string(anthropic.ModelClaudeSonnet4_0)

const anthropicMaxTokens = 1024

// AnthropicAdapter generates answers with the Anthropic Messages API.
type AnthropicAdapter struct {
	client anthropic.Client
	model  string
	policy retry.Policy
}

// NewAnthropicAdapter creates an adapter authenticated with apiKey.
func NewAnthropicAdapter(apiKey, model string) *AnthropicAdapter {
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicAdapter{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		policy: retry.DefaultPolicy(),
	}
}

// Generate produces a completion for the given prompts.
func (a *AnthropicAdapter) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var msg *anthropic.Message
	err := a.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		msg, err = a.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(a.model),
			MaxTokens: anthropicMaxTokens,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			},
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", entities.ErrGeneration, err)
	}

	var out string
	for _, block := range msg.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	if out == "" {
		return "", fmt.Errorf("%w: empty completion", entities.ErrGeneration)
	}
	return out, nil
}

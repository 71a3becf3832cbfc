package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 1024

// AnthropicBackend completes prompts with the Anthropic Messages API.
type AnthropicBackend struct {
	model  string
	client anthropic.Client
}

func NewAnthropicBackend(apiKey, model string) (*AnthropicBackend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ANTHROPIC_API_KEY is required for the anthropic provider")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("anthropic model is required")
	}
	return &AnthropicBackend{
		model: model,
		client: anthropic.NewClient(
			anthropicopt.WithAPIKey(apiKey),
			anthropicopt.WithMaxRetries(0),
		),
	}, nil
}

func (b *AnthropicBackend) Provider() string { return "anthropic" }

func (b *AnthropicBackend) Complete(ctx context.Context, messages []Message) (Message, error) {
	system, conversation := splitSystem(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: anthropicMaxTokens,
		Messages:  toAnthropicMessages(conversation),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := b.client.Messages.New(ctx, params)
	if err != nil {
		be := &BackendError{Provider: b.Provider(), Err: err}
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			be.StatusCode = apiErr.StatusCode
		}
		return Message{}, be
	}

	var content strings.Builder
	for _, block := range message.Content {
		content.WriteString(block.Text)
	}
	if strings.TrimSpace(content.String()) == "" {
		return Message{}, &BackendError{Provider: b.Provider(), Err: fmt.Errorf("empty response content")}
	}
	return Message{Role: RoleAI, Content: content.String()}, nil
}

func toAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleHuman:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAI:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}

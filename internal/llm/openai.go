package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIBackend talks to OpenAI or any OpenAI-compatible endpoint (Groq, Ollama).
type OpenAIBackend struct {
	provider string
	model    string
	client   openai.Client
}

// OpenAIConfig configures an OpenAI-compatible backend.
type OpenAIConfig struct {
	Provider   string
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

func NewOpenAIBackend(cfg OpenAIConfig) (*OpenAIBackend, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%s model is required", cfg.Provider)
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}

	// Retries belong to the caller, so the SDK default of two is disabled.
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	} else {
		// Ollama ignores the key but the SDK always sends an Authorization header.
		opts = append(opts, option.WithAPIKey(provider))
	}
	if u := strings.TrimSpace(cfg.BaseURL); u != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(u, "/")+"/"))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAIBackend{
		provider: provider,
		model:    cfg.Model,
		client:   openai.NewClient(opts...),
	}, nil
}

func (b *OpenAIBackend) Provider() string { return b.provider }

func (b *OpenAIBackend) Complete(ctx context.Context, messages []Message) (Message, error) {
	completion, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(b.model),
		Messages: toOpenAIMessages(messages),
	})
	if err != nil {
		be := &BackendError{Provider: b.provider, Err: err}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			be.StatusCode = apiErr.StatusCode
		}
		return Message{}, be
	}
	if len(completion.Choices) == 0 {
		return Message{}, &BackendError{Provider: b.provider, Err: errors.New("no response choices returned")}
	}

	content := completion.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return Message{}, &BackendError{Provider: b.provider, Err: errors.New("empty response content")}
	}
	return Message{Role: RoleAI, Content: content}, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleHuman:
			out = append(out, openai.UserMessage(m.Content))
		case RoleAI:
			out = append(out, openai.AssistantMessage(m.Content))
		}
	}
	return out
}

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Config selects and configures a model backend.
type Config struct {
	Provider string
	Timeout  time.Duration

	GroqAPIKey  string
	GroqModel   string
	GroqBaseURL string

	OllamaBaseURL string
	OllamaModel   string

	OpenAIAPIKey string
	OpenAIModel  string

	AnthropicAPIKey string
	AnthropicModel  string

	GeminiAPIKey string
	GeminiModel  string

	AzureEndpoint   string
	AzureAPIKey     string
	AzureDeployment string

	HTTPURL string
}

// NewBackend builds the configured backend. "auto" prefers Groq when a key
// is present and falls back to a local Ollama server.
func NewBackend(cfg Config) (Backend, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "auto"
	}
	if provider == "auto" {
		if strings.TrimSpace(cfg.GroqAPIKey) != "" {
			provider = "groq"
		} else {
			provider = "ollama"
		}
	}

	var (
		backend Backend
		err     error
	)
	switch provider {
	case "groq":
		if strings.TrimSpace(cfg.GroqAPIKey) == "" {
			return nil, fmt.Errorf("GROQ_API_KEY is required for the groq provider")
		}
		backend, err = NewOpenAIBackend(OpenAIConfig{
			Provider: "groq",
			APIKey:   cfg.GroqAPIKey,
			BaseURL:  cfg.GroqBaseURL,
			Model:    cfg.GroqModel,
		})
	case "ollama":
		backend, err = NewOpenAIBackend(OpenAIConfig{
			Provider: "ollama",
			BaseURL:  cfg.OllamaBaseURL,
			Model:    cfg.OllamaModel,
		})
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		backend, err = NewOpenAIBackend(OpenAIConfig{
			Provider: "openai",
			APIKey:   cfg.OpenAIAPIKey,
			Model:    cfg.OpenAIModel,
		})
	case "anthropic":
		backend, err = NewAnthropicBackend(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	case "gemini":
		backend, err = NewGeminiBackend(cfg.GeminiAPIKey, cfg.GeminiModel)
	case "azure":
		backend, err = NewAzureOpenAIBackend(cfg.AzureEndpoint, cfg.AzureAPIKey, cfg.AzureDeployment)
	case "http":
		backend, err = NewHTTPBackend(cfg.HTTPURL)
	case "mock":
		backend = NewMockBackend()
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Timeout > 0 {
		backend = WithTimeout(backend, cfg.Timeout)
	}
	return backend, nil
}

type timeoutBackend struct {
	next    Backend
	timeout time.Duration
}

// WithTimeout bounds every Complete call on next.
func WithTimeout(next Backend, timeout time.Duration) Backend {
	return &timeoutBackend{next: next, timeout: timeout}
}

func (b *timeoutBackend) Provider() string { return b.next.Provider() }

func (b *timeoutBackend) Complete(ctx context.Context, messages []Message) (Message, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	msg, err := b.next.Complete(ctx, messages)
	if err != nil {
		return Message{}, AsBackendError(b.next.Provider(), err)
	}
	return msg, nil
}

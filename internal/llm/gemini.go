package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// GeminiBackend completes prompts with Google Gemini. The SDK client is
// created on first use so a bad key only fails turns, not startup.
type GeminiBackend struct {
	apiKey     string
	model      string
	httpClient *http.Client

	mu     sync.Mutex
	client *genai.Client
}

func NewGeminiBackend(apiKey, model string) (*GeminiBackend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is required for the gemini provider")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("gemini model is required")
	}
	return &GeminiBackend{apiKey: apiKey, model: model}, nil
}

func (b *GeminiBackend) Provider() string { return "gemini" }

func (b *GeminiBackend) clientFor(ctx context.Context) (*genai.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil {
		return b.client, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:  b.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if b.httpClient != nil {
		cfg.HTTPClient = b.httpClient
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	b.client = client
	return client, nil
}

func (b *GeminiBackend) Complete(ctx context.Context, messages []Message) (Message, error) {
	client, err := b.clientFor(ctx)
	if err != nil {
		return Message{}, &BackendError{Provider: b.Provider(), Err: err}
	}

	system, conversation := splitSystem(messages)
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	result, err := client.Models.GenerateContent(ctx, b.model, toGeminiContents(conversation), cfg)
	if err != nil {
		be := &BackendError{Provider: b.Provider(), Err: err}
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			be.StatusCode = apiErr.Code
		}
		return Message{}, be
	}

	var content strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text == "" || part.Thought {
				continue
			}
			content.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(content.String()) == "" {
		return Message{}, &BackendError{Provider: b.Provider(), Err: errors.New("empty response content")}
	}
	return Message{Role: RoleAI, Content: content.String()}, nil
}

func toGeminiContents(messages []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		var role genai.Role
		switch m.Role {
		case RoleHuman:
			role = genai.RoleUser
		case RoleAI:
			role = genai.RoleModel
		default:
			continue
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}

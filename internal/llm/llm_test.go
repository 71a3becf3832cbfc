package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var interviewPrompt = []Message{
	{Role: RoleSystem, Content: "You are an interviewer."},
	{Role: RoleSystem, Content: "Job Description: Go engineer"},
	{Role: RoleHuman, Content: "Hello"},
	{Role: RoleAI, Content: "Welcome. Tell me about yourself."},
	{Role: RoleHuman, Content: "I build services."},
}

func TestOpenAIBackendCompletesAndMapsRoles(t *testing.T) {
	var gotRoles []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %q, want suffix /chat/completions", r.URL.Path)
		}
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Model != "llama-test" {
			t.Errorf("model = %q, want llama-test", body.Model)
		}
		for _, m := range body.Messages {
			gotRoles = append(gotRoles, m.Role)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "llama-test",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "What did you build last?"}}]
		}`))
	}))
	defer srv.Close()

	b, err := NewOpenAIBackend(OpenAIConfig{Provider: "groq", APIKey: "k", BaseURL: srv.URL, Model: "llama-test"})
	if err != nil {
		t.Fatalf("NewOpenAIBackend() error = %v", err)
	}
	msg, err := b.Complete(context.Background(), interviewPrompt)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if msg.Role != RoleAI || msg.Content != "What did you build last?" {
		t.Fatalf("Complete() = %+v", msg)
	}
	want := []string{"system", "system", "user", "assistant", "user"}
	if strings.Join(gotRoles, ",") != strings.Join(want, ",") {
		t.Fatalf("roles = %v, want %v", gotRoles, want)
	}
}

func TestOpenAIBackendSurfacesStatusWithoutRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit_exceeded"}}`))
	}))
	defer srv.Close()

	b, err := NewOpenAIBackend(OpenAIConfig{Provider: "groq", APIKey: "k", BaseURL: srv.URL, Model: "m"})
	if err != nil {
		t.Fatalf("NewOpenAIBackend() error = %v", err)
	}
	_, err = b.Complete(context.Background(), interviewPrompt)
	if !errors.Is(err, ErrBackend) {
		t.Fatalf("Complete() error = %v, want ErrBackend", err)
	}
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("Complete() error is %T, want *BackendError", err)
	}
	if be.StatusCode != http.StatusTooManyRequests || !be.Retryable() {
		t.Fatalf("BackendError = %+v, retryable=%v", be, be.Retryable())
	}
	if calls != 1 {
		t.Fatalf("upstream calls = %d, want 1", calls)
	}
}

func TestHTTPBackendParsesJSONAndText(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{name: "json text", contentType: "application/json", body: `{"text":"Next question."}`, want: "Next question."},
		{name: "json content", contentType: "application/json", body: `{"content":"Go on."}`, want: "Go on."},
		{name: "plain", contentType: "text/plain", body: "  Why Go?  ", want: "Why Go?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req httpCompletionRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("decode: %v", err)
				}
				if len(req.Messages) != len(interviewPrompt) {
					t.Errorf("messages = %d, want %d", len(req.Messages), len(interviewPrompt))
				}
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			b, err := NewHTTPBackend(srv.URL)
			if err != nil {
				t.Fatalf("NewHTTPBackend() error = %v", err)
			}
			msg, err := b.Complete(context.Background(), interviewPrompt)
			if err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if msg.Content != tt.want {
				t.Fatalf("Content = %q, want %q", msg.Content, tt.want)
			}
		})
	}
}

func TestHTTPBackendNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	b, _ := NewHTTPBackend(srv.URL)
	_, err := b.Complete(context.Background(), interviewPrompt)
	var be *BackendError
	if !errors.As(err, &be) || be.StatusCode != http.StatusBadGateway {
		t.Fatalf("Complete() error = %v, want BackendError with 502", err)
	}
	if !be.Retryable() {
		t.Fatalf("502 should be retryable")
	}
}

func TestMockBackendEchoesLastHumanTurn(t *testing.T) {
	msg, err := NewMockBackend().Complete(context.Background(), interviewPrompt)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !strings.Contains(msg.Content, "I build services.") {
		t.Fatalf("Content = %q", msg.Content)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMockBackend().Complete(ctx, interviewPrompt); !errors.Is(err, context.Canceled) {
		t.Fatalf("Complete() on canceled ctx error = %v", err)
	}
}

type slowBackend struct{}

func (slowBackend) Provider() string { return "slow" }

func (slowBackend) Complete(ctx context.Context, _ []Message) (Message, error) {
	<-ctx.Done()
	return Message{}, ctx.Err()
}

func TestWithTimeoutWrapsDeadlineAsBackendError(t *testing.T) {
	b := WithTimeout(slowBackend{}, 10*time.Millisecond)
	_, err := b.Complete(context.Background(), nil)
	if !errors.Is(err, ErrBackend) {
		t.Fatalf("error = %v, want ErrBackend", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want wrapped DeadlineExceeded", err)
	}
}

func TestNewBackendSelection(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		provider string
		wantErr  bool
	}{
		{name: "auto with groq key", cfg: Config{GroqAPIKey: "k", GroqModel: "m", GroqBaseURL: "http://groq.test"}, provider: "groq"},
		{name: "auto without key", cfg: Config{OllamaBaseURL: "http://localhost:11434/v1", OllamaModel: "llama3.1"}, provider: "ollama"},
		{name: "mock", cfg: Config{Provider: "mock"}, provider: "mock"},
		{name: "groq missing key", cfg: Config{Provider: "groq", GroqModel: "m"}, wantErr: true},
		{name: "http missing url", cfg: Config{Provider: "http"}, wantErr: true},
		{name: "anthropic missing key", cfg: Config{Provider: "anthropic", AnthropicModel: "m"}, wantErr: true},
		{name: "gemini", cfg: Config{Provider: "gemini", GeminiAPIKey: "k", GeminiModel: "gemini-2.0-flash"}, provider: "gemini"},
		{name: "unknown", cfg: Config{Provider: "carrier-pigeon"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBackend(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NewBackend() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBackend() error = %v", err)
			}
			if b.Provider() != tt.provider {
				t.Fatalf("Provider() = %q, want %q", b.Provider(), tt.provider)
			}
		})
	}
}

func TestSplitSystemJoinsInstructions(t *testing.T) {
	system, rest := splitSystem(interviewPrompt)
	if system != "You are an interviewer.\n\nJob Description: Go engineer" {
		t.Fatalf("system = %q", system)
	}
	if len(rest) != 3 || rest[0].Role != RoleHuman {
		t.Fatalf("rest = %+v", rest)
	}
}

func TestToAzureMessagesKeepsOrder(t *testing.T) {
	out := toAzureMessages(interviewPrompt)
	if len(out) != len(interviewPrompt) {
		t.Fatalf("len = %d, want %d", len(out), len(interviewPrompt))
	}
}

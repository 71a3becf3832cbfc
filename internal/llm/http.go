package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPBackend posts the rendered prompt to a generic JSON endpoint.
//
// Request body: {"messages":[{"role":"system","content":"..."}, ...]}.
// The reply may be plain text or a JSON object carrying the text under
// one of "text", "content", "output" or "message".
type HTTPBackend struct {
	url    string
	client *http.Client
}

func NewHTTPBackend(url string) (*HTTPBackend, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("LLM_HTTP_URL is required for the http provider")
	}
	return &HTTPBackend{
		url: url,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

func (b *HTTPBackend) Provider() string { return "http" }

type httpCompletionRequest struct {
	Messages []Message `json:"messages"`
}

func (b *HTTPBackend) Complete(ctx context.Context, messages []Message) (Message, error) {
	payload, err := json.Marshal(httpCompletionRequest{Messages: messages})
	if err != nil {
		return Message{}, &BackendError{Provider: b.Provider(), Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(payload))
	if err != nil {
		return Message{}, &BackendError{Provider: b.Provider(), Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := b.client.Do(req)
	if err != nil {
		return Message{}, &BackendError{Provider: b.Provider(), Err: fmt.Errorf("send request: %w", err)}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Message{}, &BackendError{
			Provider:   b.Provider(),
			StatusCode: res.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(body))),
		}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Message{}, &BackendError{Provider: b.Provider(), Err: fmt.Errorf("read response: %w", err)}
	}

	text := strings.TrimSpace(string(body))
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		text = strings.TrimSpace(extractText(obj))
	}
	if text == "" {
		return Message{}, &BackendError{Provider: b.Provider(), Err: errors.New("empty response content")}
	}
	return Message{Role: RoleAI, Content: text}, nil
}

func extractText(obj map[string]any) string {
	for _, k := range []string{"text", "content", "output", "message"} {
		if v, ok := obj[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

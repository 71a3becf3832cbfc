// Package llm adapts chat-completion providers to a single prompt-in,
// message-out backend used by the interview chain.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ent0n29/interviewer/internal/reliability"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
)

// Message is one entry of a rendered prompt or a model reply.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Backend completes a fully rendered message sequence with a single reply.
type Backend interface {
	Provider() string
	Complete(ctx context.Context, messages []Message) (Message, error)
}

// ErrBackend matches every failure reported by a model backend.
var ErrBackend = errors.New("model backend error")

// BackendError wraps a provider failure. StatusCode is the upstream HTTP status when known.
type BackendError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s backend (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s backend: %v", e.Provider, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool { return target == ErrBackend }

// Retryable hints to callers whether resubmitting the turn may succeed.
func (e *BackendError) Retryable() bool {
	if e.StatusCode > 0 {
		return reliability.IsRetryableHTTPStatus(e.StatusCode)
	}
	return reliability.IsRetryableError(e.Err)
}

// AsBackendError wraps err for provider unless it already is a BackendError.
func AsBackendError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Provider: provider, Err: err}
}

// splitSystem folds system messages into one instruction block for providers
// that take system text separately from the conversation.
func splitSystem(messages []Message) (string, []Message) {
	var (
		system string
		rest   = make([]Message, 0, len(messages))
	)
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockBackend returns deterministic replies for local runs and tests.
type MockBackend struct{}

func NewMockBackend() *MockBackend { return &MockBackend{} }

func (b *MockBackend) Provider() string { return "mock" }

func (b *MockBackend) Complete(ctx context.Context, messages []Message) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	default:
	}
	return Message{Role: RoleAI, Content: buildMockReply(messages)}, nil
}

func buildMockReply(messages []Message) string {
	var last string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleHuman {
			last = strings.TrimSpace(messages[i].Content)
			break
		}
	}
	if last == "" {
		return "Thanks. Could you walk me through your most recent role?"
	}
	return fmt.Sprintf("I heard you: %s\nCan you go deeper on the impact of that work?", last)
}

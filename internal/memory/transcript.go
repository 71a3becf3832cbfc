package memory

import (
	"context"
	"fmt"
	"time"
)

// Transcript exposes the per-interview history operations used during a turn.
type Transcript struct {
	store Store
	limit int
}

// NewTranscript wraps store. limit bounds how many records Messages returns; 0 means all.
func NewTranscript(store Store, limit int) *Transcript {
	if limit < 0 {
		limit = 0
	}
	return &Transcript{store: store, limit: limit}
}

// AppendSystemMessage records a system directive in interviewID's history.
func AppendSystemMessage(ctx context.Context, store Store, interviewID, text string) error {
	return store.Append(ctx, TurnRecord{
		InterviewID: interviewID,
		Role:        RoleSystem,
		Content:     text,
	})
}

func (t *Transcript) AppendSystemMessage(ctx context.Context, interviewID, text string) error {
	return AppendSystemMessage(ctx, t.store, interviewID, text)
}

// AppendExchange records the candidate input followed by the interviewer reply.
func (t *Transcript) AppendExchange(ctx context.Context, interviewID, input, reply string) error {
	now := time.Now().UTC()
	if err := t.store.Append(ctx, TurnRecord{
		InterviewID: interviewID,
		Role:        RoleHuman,
		Content:     input,
		CreatedAt:   now,
	}); err != nil {
		return fmt.Errorf("record candidate turn: %w", err)
	}
	if err := t.store.Append(ctx, TurnRecord{
		InterviewID: interviewID,
		Role:        RoleAI,
		Content:     reply,
		CreatedAt:   now,
	}); err != nil {
		return fmt.Errorf("record interviewer turn: %w", err)
	}
	return nil
}

// Full returns the whole transcript regardless of the configured limit.
func (t *Transcript) Full(ctx context.Context, interviewID string) ([]TurnRecord, error) {
	return t.store.History(ctx, interviewID, 0)
}

// Messages returns the most recent records in chronological order.
func (t *Transcript) Messages(ctx context.Context, interviewID string) ([]TurnRecord, error) {
	return t.store.History(ctx, interviewID, t.limit)
}

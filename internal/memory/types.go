package memory

import (
	"context"
	"time"
)

// Role identifies who produced a transcript entry.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
)

// TurnRecord stores a single system directive, candidate answer, or interviewer message.
type TurnRecord struct {
	ID          string    `json:"id"`
	InterviewID string    `json:"interview_id"`
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists and retrieves interview transcripts.
type Store interface {
	Append(ctx context.Context, record TurnRecord) error
	// History returns the newest limit records in chronological order; limit <= 0 returns all.
	History(ctx context.Context, interviewID string, limit int) ([]TurnRecord, error)
	Close() error
}

package session

import (
	"context"
	"errors"
	"time"
)

// Status is the externally controlled activity flag of an interview.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Tier is the escalation level derived from the elapsed share of the budget.
type Tier string

const (
	TierNone   Tier = "none"
	TierWarn80 Tier = "warn_80"
	TierWarn90 Tier = "warn_90"
)

// ErrInterviewEnded is returned once the budget is spent or the interview was deactivated.
var ErrInterviewEnded = errors.New("interview has ended")

// EndedMessage is the candidate-facing text for ErrInterviewEnded.
const EndedMessage = "Interview has ended. Thank you for your time and responses."

const (
	wrapUpDirective = "Interview is 80 percent complete. This will be second to the last question. " +
		"Ask about the final questions, experiences and wrap up."
	finalDirective = "Interview is 90 percent complete. This will be the last response from the interviewer. " +
		"Mention that your feedback will be shared with you soon and thank the candidate for their time."
)

// Directive returns the system instruction injected into history for the tier.
func (t Tier) Directive() string {
	switch t {
	case TierWarn90:
		return finalDirective
	case TierWarn80:
		return wrapUpDirective
	default:
		return ""
	}
}

// Store holds per-interview start times and status flags.
type Store interface {
	// StartTime returns the stored start time, or false when none was set yet.
	StartTime(ctx context.Context, interviewID string) (time.Time, bool, error)
	// SetStartTimeIfAbsent stores t unless a start time already exists and
	// returns whichever value is stored afterwards.
	SetStartTimeIfAbsent(ctx context.Context, interviewID string, t time.Time) (time.Time, error)
	// Status reports StatusActive for interviews that were never deactivated.
	Status(ctx context.Context, interviewID string) (Status, error)
	Deactivate(ctx context.Context, interviewID string) error
	Close() error
}

// HistoryWriter receives escalation directives.
type HistoryWriter interface {
	AppendSystemMessage(ctx context.Context, interviewID, text string) error
}

// GuardResult describes a turn that was allowed to proceed.
type GuardResult struct {
	Elapsed   time.Duration `json:"elapsed"`
	Remaining time.Duration `json:"remaining"`
	Tier      Tier          `json:"tier"`
	Injected  bool          `json:"injected"`
}

// Snapshot is a read-only view of an interview clock.
type Snapshot struct {
	InterviewID string        `json:"interview_id"`
	Elapsed     time.Duration `json:"elapsed"`
	Remaining   time.Duration `json:"remaining"`
	Budget      time.Duration `json:"budget"`
	Tier        Tier          `json:"tier"`
	Ended       bool          `json:"ended"`
}

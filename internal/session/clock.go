package session

import (
	"context"
	"fmt"
	"time"
)

// Clock enforces the interview time budget and its escalation policy.
type Clock struct {
	store   Store
	history HistoryWriter
	budget  time.Duration
	now     func() time.Time
}

func NewClock(store Store, history HistoryWriter, budget time.Duration) *Clock {
	if budget <= 0 {
		budget = 30 * time.Minute
	}
	return &Clock{
		store:   store,
		history: history,
		budget:  budget,
		now:     time.Now,
	}
}

// SetNowFunc overrides the time source.
func (c *Clock) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	c.now = now
}

func (c *Clock) Budget() time.Duration { return c.budget }

// Elapsed returns the time since the interview's first elapsed query. The first
// query establishes the start time; concurrent first queries agree on the value
// the store kept.
func (c *Clock) Elapsed(ctx context.Context, interviewID string) (time.Duration, error) {
	now := c.now()
	start, ok, err := c.store.StartTime(ctx, interviewID)
	if err != nil {
		return 0, fmt.Errorf("read start time: %w", err)
	}
	if !ok {
		start, err = c.store.SetStartTimeIfAbsent(ctx, interviewID, now)
		if err != nil {
			return 0, fmt.Errorf("init start time: %w", err)
		}
	}

	elapsed := now.Sub(start)
	if elapsed < 0 {
		// A concurrent initializer may have stored a start slightly after our now.
		elapsed = 0
	}
	return elapsed, nil
}

// HasEnded reports whether the interview was deactivated or ran out of budget.
// Deactivation takes precedence over remaining time.
func (c *Clock) HasEnded(ctx context.Context, elapsed time.Duration, interviewID string) (bool, error) {
	status, err := c.store.Status(ctx, interviewID)
	if err != nil {
		return false, fmt.Errorf("read status: %w", err)
	}
	if status == StatusInactive {
		return true, nil
	}
	return elapsed >= c.budget, nil
}

// Tier maps elapsed time to an escalation tier, checking the higher tier first.
func (c *Clock) Tier(elapsed time.Duration) Tier {
	switch {
	case elapsed*10 >= c.budget*9:
		return TierWarn90
	case elapsed*10 >= c.budget*8:
		return TierWarn80
	default:
		return TierNone
	}
}

// Guard runs the per-turn check. It fails with ErrInterviewEnded when the turn
// must be rejected, and otherwise injects the tier's directive into history.
// The directive is injected on every qualifying call.
func (c *Clock) Guard(ctx context.Context, interviewID string) (GuardResult, error) {
	elapsed, err := c.Elapsed(ctx, interviewID)
	if err != nil {
		return GuardResult{}, err
	}
	ended, err := c.HasEnded(ctx, elapsed, interviewID)
	if err != nil {
		return GuardResult{}, err
	}
	if ended {
		return GuardResult{Elapsed: elapsed}, ErrInterviewEnded
	}

	res := GuardResult{
		Elapsed:   elapsed,
		Remaining: c.budget - elapsed,
		Tier:      c.Tier(elapsed),
	}
	if directive := res.Tier.Directive(); directive != "" {
		if err := c.history.AppendSystemMessage(ctx, interviewID, directive); err != nil {
			return GuardResult{}, fmt.Errorf("inject %s directive: %w", res.Tier, err)
		}
		res.Injected = true
	}
	return res, nil
}

// Snapshot reports the clock state without injecting anything. Like every
// elapsed query it starts the clock when it was not started yet.
func (c *Clock) Snapshot(ctx context.Context, interviewID string) (Snapshot, error) {
	elapsed, err := c.Elapsed(ctx, interviewID)
	if err != nil {
		return Snapshot{}, err
	}
	ended, err := c.HasEnded(ctx, elapsed, interviewID)
	if err != nil {
		return Snapshot{}, err
	}
	remaining := c.budget - elapsed
	if remaining < 0 || ended {
		remaining = 0
	}
	return Snapshot{
		InterviewID: interviewID,
		Elapsed:     elapsed,
		Remaining:   remaining,
		Budget:      c.budget,
		Tier:        c.Tier(elapsed),
		Ended:       ended,
	}, nil
}

// Deactivate ends the interview permanently.
func (c *Clock) Deactivate(ctx context.Context, interviewID string) error {
	if err := c.store.Deactivate(ctx, interviewID); err != nil {
		return fmt.Errorf("deactivate: %w", err)
	}
	return nil
}

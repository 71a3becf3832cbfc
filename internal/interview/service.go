// Package interview runs candidate turns through the time guard and the
// per-interview prompt chain.
package interview

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ent0n29/interviewer/internal/llm"
	"github.com/ent0n29/interviewer/internal/logging"
	"github.com/ent0n29/interviewer/internal/memory"
	"github.com/ent0n29/interviewer/internal/observability"
	"github.com/ent0n29/interviewer/internal/policy"
	"github.com/ent0n29/interviewer/internal/prompt"
	"github.com/ent0n29/interviewer/internal/session"
)

// ErrNotFound reports an interview id this process never started.
var ErrNotFound = errors.New("interview not found")

const inputPreviewRunes = 80

// Started describes a newly created interview.
type Started struct {
	InterviewID string
	Budget      time.Duration
	CreatedAt   time.Time
}

// Reply is the interviewer's answer to one candidate turn.
type Reply struct {
	InterviewID string
	Message     llm.Message
	Tier        session.Tier
	Elapsed     time.Duration
	Remaining   time.Duration
}

// Service owns interview lifecycle and turn handling.
type Service struct {
	clock      *session.Clock
	chains     *prompt.Cache
	builder    prompt.Builder
	transcript *memory.Transcript
	metrics    *observability.Metrics
	logger     *log.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

func NewService(
	clock *session.Clock,
	chains *prompt.Cache,
	builder prompt.Builder,
	transcript *memory.Transcript,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		clock:      clock,
		chains:     chains,
		builder:    builder,
		transcript: transcript,
		metrics:    metrics,
		logger:     logging.WithPrefix("interview"),
		active:     make(map[string]struct{}),
	}
}

// Start builds and caches the prompt for a new interview. The clock starts
// on the first turn or clock query, not here.
func (s *Service) Start(ctx context.Context, jobDescription, resume string) (Started, error) {
	if err := ctx.Err(); err != nil {
		return Started{}, err
	}
	spec, err := s.builder.Build(jobDescription, resume)
	if err != nil {
		return Started{}, err
	}

	id := uuid.NewString()
	s.chains.GetOrCreate(id, spec)

	s.mu.Lock()
	s.active[id] = struct{}{}
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.ActiveInterviews.Inc()
		s.metrics.InterviewEvents.WithLabelValues("started").Inc()
	}

	s.logger.Info("interview started",
		"interview_id", id,
		"budget", s.clock.Budget(),
		"jd_chars", len(jobDescription),
		"resume_chars", len(resume),
	)
	return Started{InterviewID: id, Budget: s.clock.Budget(), CreatedAt: time.Now().UTC()}, nil
}

// Exists reports whether id names an interview started by this process.
func (s *Service) Exists(id string) bool {
	_, ok := s.chains.Get(id)
	return ok
}

// HandleTurn guards the interview clock, renders the prompt with the current
// transcript and returns the interviewer reply. Nothing reaches the backend
// once the interview has ended.
func (s *Service) HandleTurn(ctx context.Context, id, input string) (Reply, error) {
	chain, ok := s.chains.Get(id)
	if !ok {
		return Reply{}, ErrNotFound
	}
	if strings.TrimSpace(input) == "" {
		s.countTurn("invalid")
		return Reply{}, fmt.Errorf("%w: input is required", prompt.ErrInvalidInput)
	}

	guard, err := s.clock.Guard(ctx, id)
	if err != nil {
		if errors.Is(err, session.ErrInterviewEnded) {
			s.countTurn("ended")
			s.markEnded(id, "expired")
			s.logger.Info("turn rejected, interview ended", "interview_id", id, "elapsed", guard.Elapsed)
		}
		return Reply{}, err
	}
	if guard.Injected && s.metrics != nil {
		s.metrics.Escalations.WithLabelValues(string(guard.Tier)).Inc()
	}

	records, err := s.transcript.Messages(ctx, id)
	if err != nil {
		return Reply{}, fmt.Errorf("load history: %w", err)
	}

	started := time.Now()
	msg, err := chain.Invoke(ctx, toMessages(records), input)
	if s.metrics != nil {
		s.metrics.ObserveModelLatency(chain.Provider(), time.Since(started))
	}
	if err != nil {
		s.recordBackendError(chain.Provider(), err)
		s.logger.Warn("model invocation failed", "interview_id", id, "provider", chain.Provider(), "err", err)
		return Reply{}, err
	}

	if err := s.transcript.AppendExchange(ctx, id, input, msg.Content); err != nil {
		return Reply{}, fmt.Errorf("record exchange: %w", err)
	}
	s.countTurn("ok")

	s.logger.Debug("turn handled",
		"interview_id", id,
		"tier", guard.Tier,
		"elapsed", guard.Elapsed.Round(time.Second),
		"input", policy.LogPreview(input, inputPreviewRunes),
	)
	return Reply{
		InterviewID: id,
		Message:     msg,
		Tier:        guard.Tier,
		Elapsed:     guard.Elapsed,
		Remaining:   guard.Remaining,
	}, nil
}

// End deactivates the interview. Ending twice is not an error.
func (s *Service) End(ctx context.Context, id string) error {
	if !s.Exists(id) {
		return ErrNotFound
	}
	if err := s.clock.Deactivate(ctx, id); err != nil {
		return err
	}
	s.markEnded(id, "ended")
	s.logger.Info("interview ended", "interview_id", id)
	return nil
}

// Clock returns the interview's clock state.
func (s *Service) Clock(ctx context.Context, id string) (session.Snapshot, error) {
	if !s.Exists(id) {
		return session.Snapshot{}, ErrNotFound
	}
	return s.clock.Snapshot(ctx, id)
}

// History returns the full transcript, including injected directives.
func (s *Service) History(ctx context.Context, id string) ([]memory.TurnRecord, error) {
	if !s.Exists(id) {
		return nil, ErrNotFound
	}
	return s.transcript.Full(ctx, id)
}

func (s *Service) markEnded(id, event string) {
	s.mu.Lock()
	_, wasActive := s.active[id]
	delete(s.active, id)
	s.mu.Unlock()
	if wasActive && s.metrics != nil {
		s.metrics.ActiveInterviews.Dec()
		s.metrics.InterviewEvents.WithLabelValues(event).Inc()
	}
}

func (s *Service) countTurn(outcome string) {
	if s.metrics != nil {
		s.metrics.Turns.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) recordBackendError(provider string, err error) {
	s.countTurn("backend_error")
	if s.metrics == nil {
		return
	}
	code := "unknown"
	var be *llm.BackendError
	if errors.As(err, &be) && be.StatusCode > 0 {
		code = strconv.Itoa(be.StatusCode)
	} else if errors.Is(err, context.DeadlineExceeded) {
		code = "timeout"
	}
	s.metrics.ProviderErrors.WithLabelValues(provider, code).Inc()
}

func toMessages(records []memory.TurnRecord) []llm.Message {
	out := make([]llm.Message, 0, len(records))
	for _, r := range records {
		var role llm.Role
		switch r.Role {
		case memory.RoleSystem:
			role = llm.RoleSystem
		case memory.RoleHuman:
			role = llm.RoleHuman
		case memory.RoleAI:
			role = llm.RoleAI
		default:
			continue
		}
		out = append(out, llm.Message{Role: role, Content: r.Content})
	}
	return out
}

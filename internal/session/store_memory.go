package session

import (
	"context"
	"sync"
	"time"
)

type clockState struct {
	startedAt time.Time
	started   bool
	status    Status
}

// MemoryStore keeps interview clocks in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	clocks map[string]*clockState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{clocks: make(map[string]*clockState)}
}

func (s *MemoryStore) StartTime(_ context.Context, interviewID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clocks[interviewID]
	if !ok || !c.started {
		return time.Time{}, false, nil
	}
	return c.startedAt, true, nil
}

func (s *MemoryStore) SetStartTimeIfAbsent(_ context.Context, interviewID string, t time.Time) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.clockLocked(interviewID)
	if !c.started {
		c.startedAt = t
		c.started = true
	}
	return c.startedAt, nil
}

func (s *MemoryStore) Status(_ context.Context, interviewID string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clocks[interviewID]
	if !ok {
		return StatusActive, nil
	}
	return c.status, nil
}

func (s *MemoryStore) Deactivate(_ context.Context, interviewID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clockLocked(interviewID).status = StatusInactive
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) clockLocked(interviewID string) *clockState {
	c, ok := s.clocks[interviewID]
	if !ok {
		c = &clockState{status: StatusActive}
		s.clocks[interviewID] = c
	}
	return c
}

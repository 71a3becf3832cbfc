package prompt

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ent0n29/interviewer/internal/llm"
)

// Chain binds one interview's Spec to the process-wide backend.
type Chain struct {
	spec    Spec
	backend llm.Backend
}

func NewChain(spec Spec, backend llm.Backend) *Chain {
	return &Chain{spec: spec, backend: backend}
}

func (c *Chain) Spec() Spec { return c.spec }

func (c *Chain) Provider() string { return c.backend.Provider() }

// Invoke renders the spec and submits it to the backend once. Backend
// failures always satisfy errors.Is(err, llm.ErrBackend).
func (c *Chain) Invoke(ctx context.Context, history []llm.Message, input string) (llm.Message, error) {
	if strings.TrimSpace(input) == "" {
		return llm.Message{}, fmt.Errorf("%w: input is required", ErrInvalidInput)
	}
	reply, err := c.backend.Complete(ctx, c.spec.Render(history, input))
	if err != nil {
		return llm.Message{}, llm.AsBackendError(c.backend.Provider(), err)
	}
	return reply, nil
}

// Cache holds one Chain per interview for the life of the process.
type Cache struct {
	backend llm.Backend

	mu     sync.RWMutex
	chains map[string]*Chain
}

func NewCache(backend llm.Backend) *Cache {
	return &Cache{backend: backend, chains: make(map[string]*Chain)}
}

// GetOrCreate returns the cached chain for id, creating it from spec on first use.
// A later spec for the same id is ignored.
func (c *Cache) GetOrCreate(id string, spec Spec) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	if chain, ok := c.chains[id]; ok {
		return chain
	}
	chain := NewChain(spec, c.backend)
	c.chains[id] = chain
	return chain
}

func (c *Cache) Get(id string) (*Chain, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	chain, ok := c.chains[id]
	return chain, ok
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chains)
}

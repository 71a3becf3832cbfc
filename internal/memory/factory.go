package memory

import (
	"context"
	"fmt"

	"github.com/ent0n29/interviewer/internal/storage"
)

// NewStore opens the transcript store for a storage config, falling back to
// in-memory when no location is configured.
func NewStore(ctx context.Context, cfg storage.Config) (Store, error) {
	cfg, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case storage.BackendMemory:
		return NewInMemoryStore(), nil
	case storage.BackendPostgres:
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	case storage.BackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case storage.BackendRedis:
		return NewRedisStore(ctx, cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unsupported history store backend %q", cfg.Backend)
	}
}

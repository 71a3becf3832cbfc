package session

import (
	"context"
	"fmt"

	"github.com/ent0n29/interviewer/internal/storage"
)

// NewStore opens the clock store for a resolved storage config.
func NewStore(ctx context.Context, cfg storage.Config) (Store, error) {
	cfg, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case storage.BackendMemory:
		return NewMemoryStore(), nil
	case storage.BackendPostgres:
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	case storage.BackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case storage.BackendRedis:
		return NewRedisStore(ctx, cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unsupported clock store backend %q", cfg.Backend)
	}
}

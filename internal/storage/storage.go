package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

// Backend names a persistence backend shared by the clock and history stores.
type Backend string

const (
	BackendAuto     Backend = "auto"
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
	BackendRedis    Backend = "redis"
)

// Config selects and locates the store backend.
type Config struct {
	Backend     Backend
	DatabaseURL string
	SQLitePath  string
	RedisURL    string
}

func ParseBackend(v string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(v))); b {
	case "", BackendAuto:
		return BackendAuto, nil
	case BackendMemory, BackendPostgres, BackendSQLite, BackendRedis:
		return b, nil
	default:
		return "", fmt.Errorf("unsupported store backend %q (expected auto|memory|postgres|sqlite|redis)", v)
	}
}

// Resolve replaces BackendAuto with a concrete backend and checks that the
// chosen backend has a location configured.
func (c Config) Resolve() (Config, error) {
	if c.Backend == "" || c.Backend == BackendAuto {
		switch {
		case strings.TrimSpace(c.DatabaseURL) != "":
			c.Backend = BackendPostgres
		case strings.TrimSpace(c.RedisURL) != "":
			c.Backend = BackendRedis
		case strings.TrimSpace(c.SQLitePath) != "":
			c.Backend = BackendSQLite
		default:
			c.Backend = BackendMemory
		}
		return c, nil
	}

	switch c.Backend {
	case BackendMemory:
	case BackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return Config{}, fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return Config{}, fmt.Errorf("REDIS_URL is required for the redis store")
		}
	default:
		return Config{}, fmt.Errorf("unsupported store backend %q", c.Backend)
	}
	return c, nil
}

func OpenPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

func OpenSQLite(dbPath string) (*sql.DB, error) {
	dbPath = strings.TrimSpace(dbPath)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite parent dir: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single writer keeps upserts serialized inside the process.
	db.SetMaxOpenConns(1)
	return db, nil
}

func OpenRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ent0n29/interviewer/internal/storage"
)

// PostgresStore persists interview clocks in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := storage.OpenPostgres(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := initClockSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initClockSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS interview_clocks (
			interview_id TEXT PRIMARY KEY,
			started_at TIMESTAMPTZ NULL,
			status TEXT NOT NULL DEFAULT 'active',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init clock schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) StartTime(ctx context.Context, interviewID string) (time.Time, bool, error) {
	var startedAt *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT started_at FROM interview_clocks WHERE interview_id=$1`,
		interviewID,
	).Scan(&startedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query start time: %w", err)
	}
	if startedAt == nil {
		return time.Time{}, false, nil
	}
	return startedAt.UTC(), true, nil
}

func (s *PostgresStore) SetStartTimeIfAbsent(ctx context.Context, interviewID string, t time.Time) (time.Time, error) {
	// The upsert keeps an existing start time, so racing writers all read back the first one.
	var startedAt time.Time
	err := s.pool.QueryRow(ctx,
		`INSERT INTO interview_clocks (interview_id, started_at)
		 VALUES ($1, $2)
		 ON CONFLICT (interview_id) DO UPDATE SET
			started_at = COALESCE(interview_clocks.started_at, EXCLUDED.started_at),
			updated_at = now()
		 RETURNING started_at`,
		interviewID,
		t.UTC(),
	).Scan(&startedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("upsert start time: %w", err)
	}
	return startedAt.UTC(), nil
}

func (s *PostgresStore) Status(ctx context.Context, interviewID string) (Status, error) {
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT status FROM interview_clocks WHERE interview_id=$1`,
		interviewID,
	).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return StatusActive, nil
	}
	if err != nil {
		return "", fmt.Errorf("query status: %w", err)
	}
	return Status(status), nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, interviewID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO interview_clocks (interview_id, status)
		 VALUES ($1, $2)
		 ON CONFLICT (interview_id) DO UPDATE SET status=EXCLUDED.status, updated_at=now()`,
		interviewID,
		string(StatusInactive),
	)
	if err != nil {
		return fmt.Errorf("deactivate interview: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

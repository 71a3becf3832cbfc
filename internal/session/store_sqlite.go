package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ent0n29/interviewer/internal/storage"
)

// SQLiteStore persists interview clocks in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := storage.OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	store, err := NewSQLiteStoreFromDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func NewSQLiteStoreFromDB(db *sql.DB) (*SQLiteStore, error) {
	store := &SQLiteStore{db: db}
	if err := store.migrate(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS interview_clocks (
			interview_id TEXT PRIMARY KEY,
			started_at_ns INTEGER NULL,
			status TEXT NOT NULL DEFAULT 'active'
		);`,
	}
	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("migrate sqlite clock schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) StartTime(ctx context.Context, interviewID string) (time.Time, bool, error) {
	var startedAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at_ns FROM interview_clocks WHERE interview_id = ?`,
		interviewID,
	).Scan(&startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query start time: %w", err)
	}
	if !startedAt.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(0, startedAt.Int64).UTC(), true, nil
}

func (s *SQLiteStore) SetStartTimeIfAbsent(ctx context.Context, interviewID string, t time.Time) (time.Time, error) {
	var startedAt int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO interview_clocks (interview_id, started_at_ns)
		 VALUES (?, ?)
		 ON CONFLICT(interview_id) DO UPDATE SET
			started_at_ns = COALESCE(interview_clocks.started_at_ns, excluded.started_at_ns)
		 RETURNING started_at_ns`,
		interviewID,
		t.UnixNano(),
	).Scan(&startedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("upsert start time: %w", err)
	}
	return time.Unix(0, startedAt).UTC(), nil
}

func (s *SQLiteStore) Status(ctx context.Context, interviewID string) (Status, error) {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM interview_clocks WHERE interview_id = ?`,
		interviewID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return StatusActive, nil
	}
	if err != nil {
		return "", fmt.Errorf("query status: %w", err)
	}
	return Status(status), nil
}

func (s *SQLiteStore) Deactivate(ctx context.Context, interviewID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interview_clocks (interview_id, status)
		 VALUES (?, ?)
		 ON CONFLICT(interview_id) DO UPDATE SET status = excluded.status`,
		interviewID,
		string(StatusInactive),
	)
	if err != nil {
		return fmt.Errorf("deactivate interview: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

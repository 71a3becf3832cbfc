package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ent0n29/interviewer/internal/storage"
)

const redisKeyPrefix = "interviewer:clock:"

// RedisStore keeps interview clocks in Redis. SETNX provides the atomic
// first-writer-wins start time.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	client, err := storage.OpenRedis(ctx, redisURL)
	if err != nil {
		return nil, err
	}
	return NewRedisStoreFromClient(client), nil
}

func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func startKey(interviewID string) string  { return redisKeyPrefix + interviewID + ":start" }
func statusKey(interviewID string) string { return redisKeyPrefix + interviewID + ":status" }

func (s *RedisStore) StartTime(ctx context.Context, interviewID string) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, startKey(interviewID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get start time: %w", err)
	}
	t, err := parseUnixNano(raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

func (s *RedisStore) SetStartTimeIfAbsent(ctx context.Context, interviewID string, t time.Time) (time.Time, error) {
	set, err := s.client.SetNX(ctx, startKey(interviewID), strconv.FormatInt(t.UnixNano(), 10), 0).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("setnx start time: %w", err)
	}
	if set {
		return time.Unix(0, t.UnixNano()).UTC(), nil
	}

	winner, ok, err := s.StartTime(ctx, interviewID)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, fmt.Errorf("start time for %s vanished after setnx", interviewID)
	}
	return winner, nil
}

func (s *RedisStore) Status(ctx context.Context, interviewID string) (Status, error) {
	raw, err := s.client.Get(ctx, statusKey(interviewID)).Result()
	if errors.Is(err, redis.Nil) {
		return StatusActive, nil
	}
	if err != nil {
		return "", fmt.Errorf("get status: %w", err)
	}
	return Status(raw), nil
}

func (s *RedisStore) Deactivate(ctx context.Context, interviewID string) error {
	if err := s.client.Set(ctx, statusKey(interviewID), string(StatusInactive), 0).Err(); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func parseUnixNano(raw string) (time.Time, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse start time %q: %w", raw, err)
	}
	return time.Unix(0, n).UTC(), nil
}

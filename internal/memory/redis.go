package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ent0n29/interviewer/internal/storage"
)

// RedisStore keeps each transcript as a Redis list of JSON records.
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

func historyKey(interviewID string) string {
	return "interviewer:history:" + interviewID
}

func (s *RedisStore) Append(ctx context.Context, record TurnRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := s.client.RPush(ctx, historyKey(record.InterviewID), payload).Err(); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *RedisStore) History(ctx context.Context, interviewID string, limit int) ([]TurnRecord, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	raw, err := s.client.LRange(ctx, historyKey(interviewID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	items := make([]TurnRecord, 0, len(raw))
	for _, entry := range raw {
		var r TurnRecord
		if err := json.Unmarshal([]byte(entry), &r); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		items = append(items, r)
	}
	return items, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

package out

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"outcomes/internal/modules/outcome/domain"
)

const DefaultRedisKey = "outcomes:pending"

// RedisStore keeps pending outcomes in a Redis list. Values are the canonical
// JSON encoding of the event so LREM can match them structurally.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(redisURL, key string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStoreWithClient(client, key), nil
}

func NewRedisStoreWithClient(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

type redisRow struct {
	Name            string   `json:"name"`
	Session         string   `json:"session"`
	NotificationIDs []string `json:"notification_ids"`
	Params          string   `json:"params"`
	Timestamp       int64    `json:"timestamp"`
}

func encodeRow(event domain.Event) (string, error) {
	ids := event.NotificationIDs
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(redisRow{
		Name:            event.Name,
		Session:         string(event.Session),
		NotificationIDs: ids,
		Params:          event.Params,
		Timestamp:       event.Timestamp,
	})
	if err != nil {
		return "", fmt.Errorf("encode outcome: %w", err)
	}
	return string(raw), nil
}

func (s *RedisStore) Append(ctx context.Context, event domain.Event) error {
	value, err := encodeRow(event)
	if err != nil {
		return err
	}
	if err := s.client.RPush(ctx, s.key, value).Err(); err != nil {
		return fmt.Errorf("rpush outcome: %w", err)
	}
	return nil
}

func (s *RedisStore) ListAll(ctx context.Context) ([]domain.Event, error) {
	values, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange outcomes: %w", err)
	}
	out := make([]domain.Event, 0, len(values))
	for _, value := range values {
		row := redisRow{}
		if err := json.Unmarshal([]byte(value), &row); err != nil {
			return nil, fmt.Errorf("decode outcome: %w", err)
		}
		ev, err := domain.RestoreEvent(row.Name, domain.SessionType(row.Session), row.NotificationIDs, row.Params, row.Timestamp)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *RedisStore) Remove(ctx context.Context, event domain.Event) error {
	value, err := encodeRow(event)
	if err != nil {
		return err
	}
	if err := s.client.LRem(ctx, s.key, 1, value).Err(); err != nil {
		return fmt.Errorf("lrem outcome: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("del outcomes: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github/itish2003/ragchat/models"
)

// RedisMemoryStore keeps the chat log as a Redis list of JSON entries, oldest at the head.
type RedisMemoryStore struct {
	client *redis.Client
	key    string
}

// NewRedisClient parses a redis:// URL, falling back to treating it as a bare address.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func NewRedisMemoryStore(client *redis.Client, key string) *RedisMemoryStore {
	return &RedisMemoryStore{client: client, key: key}
}

func (s *RedisMemoryStore) AppendEntry(ctx context.Context, entry models.ChatMemoryEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode chat entry: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, raw).Err(); err != nil {
		return fmt.Errorf("failed to append chat entry: %w", err)
	}
	return nil
}

func (s *RedisMemoryStore) SearchByKeyword(ctx context.Context, text string, limit int) ([]models.ChatMemoryEntry, error) {
	entries, err := s.load(ctx, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	return keywordMatchEntries(entries, text, limit), nil
}

func (s *RedisMemoryStore) SearchBySubstring(ctx context.Context, text string, limit int) ([]models.ChatMemoryEntry, error) {
	entries, err := s.load(ctx, 0, -1)
	if err != nil {
		return nil, err
	}
	return substringMatchEntries(entries, text, limit), nil
}

func (s *RedisMemoryStore) RecentEntries(ctx context.Context, limit int) ([]models.ChatMemoryEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.load(ctx, int64(-limit), -1)
}

func (s *RedisMemoryStore) load(ctx context.Context, start, stop int64) ([]models.ChatMemoryEntry, error) {
	raws, err := s.client.LRange(ctx, s.key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}
	entries := make([]models.ChatMemoryEntry, 0, len(raws))
	for _, raw := range raws {
		var e models.ChatMemoryEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// Store implements domain.Cache on Redis. Values are stored as JSON; decimal
// prices serialize as strings and timestamps as RFC 3339, so a round-trip
// rehydrates them without precision loss.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a Store backed by the given Client.
func NewStore(c *Client) *Store {
	return &Store{rdb: c.Underlying()}
}

// Set serializes value as JSON and stores it under key with the given TTL.
// A zero TTL stores the key without expiry.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis: marshal %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

// Get loads key into dst. It reports found=false when the key is missing or
// expired.
func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis: get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("redis: unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis: exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: delete %s: %w", key, err)
	}
	return nil
}

// Clear flushes the current database.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.rdb.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("redis: clear: %w", err)
	}
	return nil
}

// Stats returns the key count and the server's human-readable memory usage.
func (s *Store) Stats(ctx context.Context) (domain.CacheStats, error) {
	keys, err := s.rdb.DBSize(ctx).Result()
	if err != nil {
		return domain.CacheStats{}, fmt.Errorf("redis: dbsize: %w", err)
	}
	stats := domain.CacheStats{Keys: keys}

	info, err := s.rdb.Info(ctx, "memory").Result()
	if err != nil {
		return domain.CacheStats{}, fmt.Errorf("redis: info memory: %w", err)
	}
	for _, line := range strings.Split(info, "\r\n") {
		if v, ok := strings.CutPrefix(line, "used_memory_human:"); ok {
			stats.MemoryHuman = strings.TrimSpace(v)
			break
		}
	}
	return stats, nil
}

// Compile-time interface check.
var _ domain.Cache = (*Store)(nil)

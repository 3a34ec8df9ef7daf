// Package kv provides the durable progress map behind the tracker. The
// whole evidence-id map is written wholesale under one namespace key, so a
// restarted process recovers every in-flight item with a single read.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	progressKey = "lexato:pipeline:progress"

	// Entries older than this are stale leftovers from a dead process and
	// expire on their own.
	progressTTL = 48 * time.Hour
)

// RedisStore persists the progress map in redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redis at addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Load(ctx context.Context) (map[string]domain.PipelineProgress, error) {
	raw, err := s.client.Get(ctx, progressKey).Bytes()
	if err == redis.Nil {
		return map[string]domain.PipelineProgress{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load progress: %v", domain.ErrPersistence, err)
	}
	var entries map[string]domain.PipelineProgress
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode progress: %v", domain.ErrPersistence, err)
	}
	return entries, nil
}

func (s *RedisStore) Save(ctx context.Context, entries map[string]domain.PipelineProgress) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("%w: encode progress: %v", domain.ErrPersistence, err)
	}
	if err := s.client.Set(ctx, progressKey, raw, progressTTL).Err(); err != nil {
		return fmt.Errorf("%w: save progress: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context) error {
	if err := s.client.Del(ctx, progressKey).Err(); err != nil {
		return fmt.Errorf("%w: remove progress: %v", domain.ErrPersistence, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Package cache keeps computed admin stats in redis between refreshes
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/linesmerrill/urban-issue-api/models"
)

// StatsKey is the redis key the stats snapshot lives under
const StatsKey = "urban-issues:admin:stats"

// Client is the part of a redis client the cache uses
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Redis is a StatsCache backed by redis. Errors are logged and read as a miss.
type Redis struct {
	client Client
	ttl    time.Duration
}

// NewRedis returns a stats cache that expires entries after ttl
func NewRedis(client Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Connect opens a redis client and checks it responds
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Get returns the cached stats, false on a miss
func (c *Redis) Get(ctx context.Context) (*models.Stats, bool) {
	b, err := c.client.Get(ctx, StatsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		zap.S().Warnw("failed to read stats cache", "error", err)
		return nil, false
	}
	var stats models.Stats
	if err := json.Unmarshal(b, &stats); err != nil {
		zap.S().Warnw("discarding unreadable stats cache entry", "error", err)
		return nil, false
	}
	return &stats, true
}

// Set stores stats for the configured ttl
func (c *Redis) Set(ctx context.Context, stats *models.Stats) {
	b, err := json.Marshal(stats)
	if err != nil {
		zap.S().Errorw("failed to encode stats for cache", "error", err)
		return
	}
	if err := c.client.Set(ctx, StatsKey, b, c.ttl).Err(); err != nil {
		zap.S().Warnw("failed to write stats cache", "error", err)
	}
}

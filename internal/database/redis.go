package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisClient represents the Redis client
type RedisClient struct {
	*redis.Client
}

// NewRedisClient creates a new Redis client and pings it
func NewRedisClient(ctx context.Context, addr string, logger *zap.Logger) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     "", // no password set
		DB:           0,  // use default DB
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis", zap.String("addr", addr))
	return &RedisClient{client}, nil
}

// Close closes the Redis connection
func (rc *RedisClient) Close() error {
	return rc.Client.Close()
}

// SetJSON sets a JSON value in Redis with expiration
func (rc *RedisClient) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return rc.Set(ctx, key, jsonData, expiration).Err()
}

// GetJSON gets a JSON value from Redis. A missing key returns ErrCacheMiss.
func (rc *RedisClient) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := rc.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get from Redis: %w", err)
	}

	return json.Unmarshal([]byte(data), dest)
}

// Delete removes keys from Redis
func (rc *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return rc.Del(ctx, keys...).Err()
}

// RedisSearchCache stores route/date search candidates in Redis
type RedisSearchCache struct {
	client *RedisClient
	ttl    time.Duration
}

// NewRedisSearchCache creates a search cache on top of a Redis client
func NewRedisSearchCache(client *RedisClient, ttl time.Duration) *RedisSearchCache {
	return &RedisSearchCache{client: client, ttl: ttl}
}

// GetFlightIDs returns the cached flight ids of a route and date
func (c *RedisSearchCache) GetFlightIDs(ctx context.Context, key string) ([]string, error) {
	var ids []string
	if err := c.client.GetJSON(ctx, key, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SetFlightIDs caches the flight ids of a route and date
func (c *RedisSearchCache) SetFlightIDs(ctx context.Context, key string, ids []string) error {
	return c.client.SetJSON(ctx, key, ids, c.ttl)
}

// Invalidate drops cached entries
func (c *RedisSearchCache) Invalidate(ctx context.Context, keys ...string) error {
	return c.client.Delete(ctx, keys...)
}

// Close closes the underlying client
func (c *RedisSearchCache) Close() error {
	return c.client.Close()
}

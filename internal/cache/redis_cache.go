package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"craftstock/backend/internal/domain"
)

const costKeyPrefix = "craftstock:cost:component:"

type RedisCostCache struct {
	client *redis.Client
}

func NewRedisCostCache(addr string, password string, db int) *RedisCostCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCostCache{client: client}
}

// Client exposes the connection so the kiosk lock can share it.
func (c *RedisCostCache) Client() *redis.Client {
	return c.client
}

func (c *RedisCostCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCostCache) Close() error {
	return c.client.Close()
}

func costKey(componentID string) string {
	return costKeyPrefix + componentID
}

func (c *RedisCostCache) Get(ctx context.Context, componentID string) (*domain.ComponentCostBreakdown, bool, error) {
	val, err := c.client.Get(ctx, costKey(componentID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var resp domain.ComponentCostBreakdown
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return nil, false, err
	}
	return &resp, true, nil
}

func (c *RedisCostCache) Set(ctx context.Context, value *domain.ComponentCostBreakdown, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, costKey(value.ComponentID), payload, ttl).Err()
}

func (c *RedisCostCache) Invalidate(ctx context.Context, componentIDs ...string) error {
	if len(componentIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(componentIDs))
	for _, id := range componentIDs {
		keys = append(keys, costKey(id))
	}
	return c.client.Del(ctx, keys...).Err()
}

// Flush drops every cached breakdown. Keys are walked with SCAN so a large
// keyspace does not block the server.
func (c *RedisCostCache) Flush(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, costKeyPrefix+"*", 200).Iterator()
	batch := make([]string, 0, 200)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.client.Del(ctx, batch...).Err()
	}
	return nil
}

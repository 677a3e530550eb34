package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/actuallystonmai/site-content/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL = 10 * time.Minute
	latestKey  = "content:latest"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect parses a redis URL and checks the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Get the latest snapshot from cache; found is false on a miss
func (c *Cache) GetLatest(ctx context.Context) (*domain.Snapshot, bool, error) {
	val, err := c.client.Get(ctx, latestKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get latest snapshot from cache: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal snapshot %s: %w", latestKey, err)
	}
	snap.Content = snap.Content.Normalize()
	return &snap, true, nil
}

// Store the latest snapshot in cache
func (c *Cache) SetLatest(ctx context.Context, snap *domain.Snapshot) error {
	val, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := c.client.Set(ctx, latestKey, val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set latest snapshot in cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached snapshot: used after every insert
func (c *Cache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, latestKey).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", latestKey, err)
	}
	return nil
}

// Ping connectivity
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

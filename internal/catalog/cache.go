package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const productKeyPrefix = "catalog:product:v1:"

// Cache keeps JSON snapshots of active products in Redis. A nil Cache, or one
// without a client, is a permanent miss.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a product cache. A non-positive ttl defaults to one minute.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func productKey(id string) string {
	return productKeyPrefix + id
}

// Get returns the cached product and whether it was present.
func (c *Cache) Get(ctx context.Context, id string) (Product, bool, error) {
	if c == nil || c.client == nil || id == "" {
		return Product{}, false, nil
	}
	data, err := c.client.Get(ctx, productKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, fmt.Errorf("catalog cache get %s: %w", id, err)
	}
	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		// An undecodable entry is dropped so the next read refills it.
		_ = c.client.Del(ctx, productKey(id)).Err()
		return Product{}, false, fmt.Errorf("catalog cache decode %s: %w", id, err)
	}
	return p, true, nil
}

// Put stores p until the cache TTL elapses.
func (c *Cache) Put(ctx context.Context, p Product) error {
	if c == nil || c.client == nil || p.ID == "" {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, productKey(p.ID), data, c.ttl).Err()
}

// Drop removes the cached snapshots of ids.
func (c *Cache) Drop(ctx context.Context, ids ...string) error {
	if c == nil || c.client == nil || len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}
	return c.client.Del(ctx, keys...).Err()
}

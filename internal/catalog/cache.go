package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const priceKeyPrefix = "catalog:price:"

// Cache wraps Redis helpers for JSON payloads.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client yields a cache that always misses.
func NewCache(client redis.UniversalClient, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// PriceKey returns the cache key for a product or variant price lookup.
func PriceKey(productRef, variantRef string) string {
	return priceKeyPrefix + productRef + ":" + variantRef
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" || c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate drops the cached price of a product and all of its variants.
func (c *Cache) Invalidate(ctx context.Context, productRef string) error {
	if c == nil || c.client == nil {
		return nil
	}
	iter := c.client.Scan(ctx, 0, PriceKey(productRef, "*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

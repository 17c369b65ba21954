package cache

import (
	"context"
	"encoding/json"
	"time"

	"terastream/domain/model"

	"github.com/redis/go-redis/v9"
)

const shareKeyPrefix = "terastream:share:"

// ShareCache is the Redis-backed fast cache of canonical records.
type ShareCache struct {
	client *redis.Client
}

func NewShareCache(client *redis.Client) *ShareCache {
	return &ShareCache{client: client}
}

// Get returns the cached record for surl, or (nil, nil) on a miss.
func (c *ShareCache) Get(ctx context.Context, surl string) (*model.CanonicalRecord, error) {
	raw, err := c.client.Get(ctx, shareKeyPrefix+surl).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec model.CanonicalRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *ShareCache) Put(ctx context.Context, surl string, rec *model.CanonicalRecord, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, shareKeyPrefix+surl, raw, ttl).Err()
}

func (c *ShareCache) Delete(ctx context.Context, surl string) error {
	return c.client.Del(ctx, shareKeyPrefix+surl).Err()
}

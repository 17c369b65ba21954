package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const tokenKeyPrefix = "terastream:token:"

// TokenCache holds scraped page tokens keyed by (surl, caller fingerprint).
// Tokens live for minutes and are deleted eagerly on upstream auth failures.
type TokenCache struct {
	client *redis.Client
}

func NewTokenCache(client *redis.Client) *TokenCache {
	return &TokenCache{client: client}
}

func tokenKey(surl, fingerprint string) string {
	if fingerprint == "" {
		fingerprint = "anon"
	}
	return tokenKeyPrefix + surl + ":" + fingerprint
}

// Get returns the cached token, or ("", nil) on a miss.
func (c *TokenCache) Get(ctx context.Context, surl, fingerprint string) (string, error) {
	token, err := c.client.Get(ctx, tokenKey(surl, fingerprint)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (c *TokenCache) Put(ctx context.Context, surl, fingerprint, token string, ttl time.Duration) error {
	return c.client.Set(ctx, tokenKey(surl, fingerprint), token, ttl).Err()
}

func (c *TokenCache) Delete(ctx context.Context, surl, fingerprint string) error {
	return c.client.Del(ctx, tokenKey(surl, fingerprint)).Err()
}

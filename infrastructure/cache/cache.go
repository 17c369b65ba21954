package cache

import (
	"context"

	"terastream/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

// NewCache connects a Redis client. The error is returned rather than fatal:
// the service degrades to durable-store/live resolution without Redis.
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not reachable")
		return client, err
	}
	return client, nil
}

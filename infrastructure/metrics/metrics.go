package metrics

import (
	"context"
	"time"

	"terastream/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "terastream:metrics:"

// RedisMetrics implements repository.IMetrics on Redis counters. Every
// operation is fire-and-forget: failures are logged at debug level and never
// reach the request path.
type RedisMetrics struct {
	client *redis.Client
}

func NewRedisMetrics(client *redis.Client) *RedisMetrics {
	return &RedisMetrics{client: client}
}

func (m *RedisMetrics) incr(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := m.client.Incr(ctx, keyPrefix+key).Err(); err != nil {
		logger.GetLogger().WithField("key", key).WithField("error", err).Debug("metrics increment failed")
	}
}

func (m *RedisMetrics) IncRequest(mode string) { m.incr("req:" + mode) }

func (m *RedisMetrics) IncError(mode, kind string) { m.incr("err:" + mode + ":" + kind) }

func (m *RedisMetrics) IncCacheHit(tier string) { m.incr("cache_hit:" + tier) }

func (m *RedisMetrics) IncCacheMiss(tier string) { m.incr("cache_miss:" + tier) }

func (m *RedisMetrics) IncCacheOp(op string, ok bool) {
	if ok {
		m.incr("cache_op:" + op + ":ok")
	} else {
		m.incr("cache_op:" + op + ":fail")
	}
}

// ObserveLatency keeps a running sum and count per mode; the dashboard
// divides the two for an average response time.
func (m *RedisMetrics) ObserveLatency(mode string, d time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := m.client.IncrBy(ctx, keyPrefix+"latency_ms_sum:"+mode, d.Milliseconds()).Err(); err != nil {
		logger.GetLogger().WithField("mode", mode).WithField("error", err).Debug("latency sum failed")
		return
	}
	_ = m.client.Incr(ctx, keyPrefix+"latency_ms_count:"+mode).Err()
}

// NoopMetrics discards every observation. Used when Redis is unavailable and
// in unit tests.
type NoopMetrics struct{}

func (NoopMetrics) IncRequest(string)                    {}
func (NoopMetrics) IncError(string, string)              {}
func (NoopMetrics) IncCacheHit(string)                   {}
func (NoopMetrics) IncCacheMiss(string)                  {}
func (NoopMetrics) IncCacheOp(string, bool)              {}
func (NoopMetrics) ObserveLatency(string, time.Duration) {}

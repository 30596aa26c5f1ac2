package ratelimit

import (
	"context"
	"time"

	"github.com/kooshamoradpour/G5-TechStore/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisKeyPrefix = "techstore:ratelimit:"

// RedisLimiter counts requests per key in fixed windows shared by every
// replica. Redis failures let the request through.
type RedisLimiter struct {
	client  *redis.Client
	limit   int
	window  time.Duration
	timeout time.Duration
	logger  zerolog.Logger
}

func NewRedisLimiter(ctx context.Context, cfg config.RedisConfig, limit int, window time.Duration, logger zerolog.Logger) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return newRedisLimiter(client, limit, window, logger), nil
}

func newRedisLimiter(client *redis.Client, limit int, window time.Duration, logger zerolog.Logger) *RedisLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{
		client:  client,
		limit:   limit,
		window:  window,
		timeout: 250 * time.Millisecond,
		logger:  logger,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) Decision {
	if l.limit <= 0 {
		return Decision{Allowed: true}
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	redisKey := redisKeyPrefix + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		l.logger.Error().Err(err).Str("key", key).Msg("redis rate limiter unavailable")
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit}
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			l.logger.Error().Err(err).Str("key", key).Msg("redis rate limiter expire")
		}
	}
	retry, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil || retry <= 0 {
		retry = l.window
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:    int(count) <= l.limit,
		Limit:      l.limit,
		Remaining:  remaining,
		RetryAfter: retry,
	}
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

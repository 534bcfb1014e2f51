package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

type RateResult struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (RateResult, error)
}

// RedisLimiter is a fixed window counter (INCR + EXPIRE).
type RedisLimiter struct {
	client *redis.Client
	prefix string
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "crm:rl:"
	}
	return &RedisLimiter{client: client, prefix: prefix, max: int64(max), window: window, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (RateResult, error) {
	winStart := l.now().UTC().Truncate(l.window)
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return RateResult{}, fmt.Errorf("rate limit: %w", err)
	}

	return windowResult(incr.Val(), l.max, winStart.Add(l.window).Sub(l.now())), nil
}

// MemoryLimiter keeps the same fixed windows in process memory.
type MemoryLimiter struct {
	c      *gocache.Cache
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		c:      gocache.New(window, window),
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (RateResult, error) {
	winStart := l.now().UTC().Truncate(l.window)
	k := fmt.Sprintf("%s:%d", key, winStart.Unix())

	hits := int64(1)
	if err := l.c.Add(k, hits, l.window); err != nil {
		n, err := l.c.IncrementInt64(k, 1)
		if err != nil {
			return RateResult{}, fmt.Errorf("rate limit: %w", err)
		}
		hits = n
	}

	return windowResult(hits, l.max, winStart.Add(l.window).Sub(l.now())), nil
}

func windowResult(hits, max int64, untilReset time.Duration) RateResult {
	res := RateResult{Allowed: hits <= max, Remaining: max - hits}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = untilReset
		if res.RetryAfter <= 0 {
			res.RetryAfter = time.Second
		}
	}
	return res
}

package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fathima-sithara/realtime-service/internal/apperr"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed window counter shared by all instances.
type RedisLimiter struct {
	rdb    redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(r redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: r, prefix: prefix, limit: limit, window: window}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:ratelimit:%s", r.prefix, key)
	count, err := r.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		r.rdb.Expire(ctx, redisKey, r.window)
	}
	return count <= int64(r.limit), nil
}

// LocalLimiter keeps one token bucket per key in process.
type LocalLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	return &LocalLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(float64(limit) / window.Seconds()),
		burst:   limit,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = b
	}
	l.mu.Unlock()
	return b.Allow(), nil
}

// RateLimit limits authenticated callers by user id. A limiter error lets
// the request through.
func RateLimit(l Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := CurrentUser(c)
		if u == nil {
			return c.Next()
		}
		ok, err := l.Allow(c.UserContext(), u.ID)
		if err == nil && !ok {
			return apperr.ErrRateLimited
		}
		return c.Next()
	}
}

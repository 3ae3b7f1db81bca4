package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Limiter is the slice of the rate limiter the middleware needs; tests fake
// it without a redis instance.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed-window counter: INCR the key, set the expiry on
// the first hit of a window, reject once the count passes the limit.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := l.rdb.Incr(ctx, key).Result()

	if err != nil {
		return false, err
	}

	if n == 1 {
		// first hit opens the window
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return false, err
		}
	}

	return n <= int64(l.limit), nil
}

// AuthRateLimiter throttles credential endpoints per client IP. A limiter
// error fails open.
func AuthRateLimiter(l Limiter, onReject gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ratelimit:auth:" + c.ClientIP()

		ok, err := l.Allow(c.Request.Context(), key)

		if err != nil {
			c.Next()
			return
		}

		if !ok {
			onReject(c)
			c.Abort()
			return
		}

		c.Next()
	}
}

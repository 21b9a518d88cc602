package utils

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"revisitly-backend/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter counts requests per key in fixed Redis windows. A nil client
// disables limiting.
type RateLimiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
	prefix   string
}

func NewRateLimiter(client *redis.Client, prefix string, requests int, window time.Duration) *RateLimiter {
	if window < time.Second {
		window = time.Minute
	}
	return &RateLimiter{client: client, requests: requests, window: window, prefix: prefix}
}

// Allow reports whether one more request for key fits in the current window.
// Redis errors fail open.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	if rl == nil || rl.client == nil || rl.requests <= 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	k := rl.Key(key, time.Now())
	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l := logger.For("ratelimit")
		l.Warn().Err(err).Msg("rate limit check failed, allowing request")
		return true
	}
	return incr.Val() <= int64(rl.requests)
}

// Key hashes the caller key so raw client addresses never land in Redis.
func (rl *RateLimiter) Key(key string, now time.Time) string {
	sum := sha256.Sum256([]byte(key))
	bucket := now.Unix() / int64(rl.window.Seconds())
	return fmt.Sprintf("%s:%x:%d", rl.prefix, sum[:8], bucket)
}

// Middleware limits by client IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.Request.Context(), c.ClientIP()) {
			RespondWithError(c, http.StatusTooManyRequests, "Too many requests. Try again later.", CodeRateLimit)
			return
		}
		c.Next()
	}
}

package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LimitClass identifies an endpoint class with its own quota. Each actor key
// is tracked independently per class; exhausting one key never affects
// another.
type LimitClass string

const (
	ClassDecode   LimitClass = "decode"
	ClassTag      LimitClass = "tag"
	ClassValidate LimitClass = "validate"
)

// ClassConfig is the quota for one endpoint class.
type ClassConfig struct {
	MaxRequests int
	Window      time.Duration
}

// RateLimiter is a sliding-window request counter backed by Redis sorted
// sets. It is an injectable component, not a singleton, so tests construct
// isolated instances.
type RateLimiter struct {
	rdb     *redis.Client
	classes map[LimitClass]ClassConfig
}

func NewRateLimiter(rdb *redis.Client, classes map[LimitClass]ClassConfig) *RateLimiter {
	return &RateLimiter{rdb: rdb, classes: classes}
}

// Allow records a request for the key and reports whether it fits the
// class quota. Requests are timestamped members of a sorted set trimmed to
// the window, so counts reset naturally once the window has passed. The
// member is added before counting and removed again on rejection: under
// concurrency the limiter can only err on the side of rejecting, never of
// letting extra requests through.
func (rl *RateLimiter) Allow(ctx context.Context, key string, class LimitClass) (bool, int, error) {
	cfg, ok := rl.classes[class]
	if !ok {
		return true, 0, nil
	}

	redisKey := fmt.Sprintf("rate_limit:%s:%s", class, key)
	now := time.Now()
	windowStart := now.Add(-cfg.Window)
	member := fmt.Sprintf("%d-%s", now.UnixNano(), uuid.New().String()[:8])

	pipe := rl.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, cfg.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	count := int(countCmd.Val())
	if count > cfg.MaxRequests {
		rl.rdb.ZRem(ctx, redisKey, member)
		return false, 0, nil
	}

	return true, cfg.MaxRequests - count, nil
}

// ActorKey builds the limiter key from the client IP plus any token already
// resolved for the request.
func ActorKey(c *gin.Context) string {
	key := c.ClientIP()
	if token := c.GetString("token_id"); token != "" {
		key = key + ":" + token
	}
	return key
}

// Limit returns a middleware enforcing the quota of the given class.
func (rl *RateLimiter) Limit(class LimitClass) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := rl.classes[class]

		allowed, remaining, err := rl.Allow(c.Request.Context(), ActorKey(c), class)
		if err != nil {
			c.Error(err)
			c.AbortWithStatusJSON(500, gin.H{"error": "Rate limit check failed"})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		if !allowed {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
			c.AbortWithStatusJSON(429, gin.H{"error": "Rate limit exceeded"})
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Next()
	}
}

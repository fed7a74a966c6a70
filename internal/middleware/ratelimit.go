package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-assess/internal/config"
	"github.com/stemsi/exstem-assess/internal/response"
)

// RateLimiter is an in-process token bucket keyed by client IP. Each IP may
// spend burst requests at once and regains them evenly over window.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	burst   float64
	window  time.Duration
	now     func() time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter returns a limiter allowing burst requests per window for
// each IP. Idle buckets are swept until ctx is done.
func NewRateLimiter(ctx context.Context, burst int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		burst:   float64(burst),
		window:  window,
		now:     time.Now,
	}

	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.sweep()
			}
		}
	}()

	return rl
}

// Middleware rejects requests from an IP whose bucket is empty with 429 and
// a Retry-After hint in seconds.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.burst <= 0 {
			c.Next()
			return
		}
		if wait, ok := rl.take(c.ClientIP()); !ok {
			c.Header("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

// take spends one token for key, or reports how long until one is available.
func (rl *RateLimiter) take(key string) (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.burst, seen: now}
		rl.buckets[key] = b
	}

	perToken := rl.window / time.Duration(rl.burst)
	b.tokens = min(rl.burst, b.tokens+float64(now.Sub(b.seen))/float64(perToken))
	b.seen = now

	if b.tokens < 1 {
		return time.Duration((1 - b.tokens) * float64(perToken)), false
	}
	b.tokens--
	return 0, true
}

// sweep drops buckets idle for a full window; they would be full again.
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.seen) >= rl.window {
			delete(rl.buckets, key)
		}
	}
}

// WindowLimiter counts hits per key in fixed one minute windows kept in
// Redis, so the limit holds across server instances.
type WindowLimiter struct {
	rdb   *redis.Client
	limit int
}

// NewWindowLimiter allows perMinute hits per key. A non-positive perMinute
// disables limiting.
func NewWindowLimiter(rdb *redis.Client, perMinute int) *WindowLimiter {
	return &WindowLimiter{rdb: rdb, limit: perMinute}
}

// Allow records one hit on key and reports whether it is within the limit.
// An empty key always passes and Redis errors fail open.
func (l *WindowLimiter) Allow(ctx context.Context, key string) bool {
	if key == "" || l.limit <= 0 || l.rdb == nil {
		return true
	}

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return true
	}
	return incr.Val() <= int64(l.limit)
}

// Middleware limits requests bucketed by keyFn.
func (l *WindowLimiter) Middleware(keyFn func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.Request.Context(), keyFn(c)) {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

// StudentAutosaveKey buckets autosave requests by the student in the JWT.
func StudentAutosaveKey(c *gin.Context) string {
	claims := GetClaims(c)
	if claims == nil {
		return ""
	}
	return config.CacheKey.AutosaveRateKey(claims.UserID)
}

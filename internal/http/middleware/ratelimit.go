package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc maps a request to the identity whose bucket it draws from.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by tenant ("user:42") when Tenant() ran, and by
// client address ("ip:203.0.113.7") otherwise.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if id, ok := TenantFrom(c); ok {
			return "user:" + strconv.FormatInt(id, 10)
		}
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter is a process-local token-bucket limiter with one bucket per
// key. Buckets idle for longer than idleTTL are swept at most once per
// idleTTL, during a lookup. Safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn keyFunc
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	idleTTL   time.Duration
	lastSweep time.Time
}

// NewRateLimiter allows rps tokens per second per key with the given burst.
// A burst <= 0 is treated as 1.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		idleTTL: 10 * time.Minute,
	}
}

// NewPerMinuteLimiter allows perMin requests per minute per key. The burst
// equals perMin so a quiet tenant can spend its whole minute at once.
func NewPerMinuteLimiter(perMin int, keyFn keyFunc) *RateLimiter {
	if perMin <= 0 {
		perMin = 1
	}
	return NewRateLimiter(float64(perMin)/60.0, perMin, keyFn)
}

// limiter returns the bucket for key, creating it on first use.
func (rl *RateLimiter) limiter(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Sweep before touching key so a stale bucket for key is replaced too.
	if now.Sub(rl.lastSweep) >= rl.idleTTL {
		for k, b := range rl.buckets {
			if now.Sub(b.seen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[key] = b
	}
	b.seen = now
	return b.lim
}

// retryAfter is the whole number of seconds until lim holds one token again,
// never less than 1. A zero rate never refills, so clients are told a minute.
func (rl *RateLimiter) retryAfter(lim *rate.Limiter, now time.Time) int {
	if rl.rps <= 0 {
		return 60
	}
	missing := 1 - lim.TokensAt(now)
	// The epsilon keeps float error from rounding 10.000000000000002 up to 11.
	secs := math.Ceil(missing/float64(rl.rps) - 1e-9)
	if secs < 1 || math.IsNaN(secs) {
		return 1
	}
	return int(secs)
}

// IsRateBypass reports whether IdempotencyValidator found a stored reply for
// this request. Replays do not spend tokens.
func IsRateBypass(c *gin.Context) bool {
	return c.GetBool(ctxKeyRateBypass)
}

// Handler enforces the limit. A denied request gets 429 with Retry-After and
//
//	{"request_id": "...", "code": "rate_limited", "message": "rate limit exceeded"}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		key := rl.keyFn(c)
		now := rl.now()
		lim := rl.limiter(key, now)
		if lim.AllowN(now, 1) {
			c.Next()
			return
		}

		wait := rl.retryAfter(lim, now)
		LoggerFrom(c).Debug().
			Str("limit_key", key).
			Int("retry_after_s", wait).
			Msg("rate limited")

		c.Header("Retry-After", strconv.Itoa(wait))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}

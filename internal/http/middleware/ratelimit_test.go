package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newClockedLimiter(rl *RateLimiter) (*RateLimiter, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	rl.now = clk.now
	rl.lastSweep = clk.t
	return rl, clk
}

// limitedRouter mounts Tenant and rl in front of POST /api/v1/chatbot/query.
func limitedRouter(rl *RateLimiter, pre ...gin.HandlerFunc) func(user string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(pre...)
	r.Use(Tenant(), rl.Handler())
	r.POST("/api/v1/chatbot/query", func(c *gin.Context) { c.Status(http.StatusOK) })
	return func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chatbot/query", nil)
		req.Header.Set(HeaderUserID, user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}
}

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")

	if got := KeyByUserOrIP()(c); got != "ip:203.0.113.9" {
		t.Fatalf("anonymous key = %q", got)
	}
	c.Set(ctxKeyTenant, int64(123))
	if got := KeyByUserOrIP()(c); got != "user:123" {
		t.Fatalf("tenant key = %q", got)
	}
}

func TestNewPerMinuteLimiter(t *testing.T) {
	rl := NewPerMinuteLimiter(10, KeyByUserOrIP())
	if rl.burst != 10 || float64(rl.rps) != 10.0/60.0 {
		t.Fatalf("burst=%d rps=%v", rl.burst, rl.rps)
	}
	if got := NewPerMinuteLimiter(0, KeyByUserOrIP()); got.burst != 1 {
		t.Fatalf("perMin<=0 should become 1/min, burst=%d", got.burst)
	}
	if got := NewRateLimiter(2, 0, KeyByUserOrIP()); got.burst != 1 {
		t.Fatalf("burst<=0 should become 1, got %d", got.burst)
	}
}

func TestRateLimiter_TenantQuotaAndRefill(t *testing.T) {
	rl, clk := newClockedLimiter(NewPerMinuteLimiter(2, KeyByUserOrIP()))
	ask := limitedRouter(rl)

	for i := 0; i < 2; i++ {
		if w := ask("42"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status=%d", i+1, w.Code)
		}
	}
	w := ask("42")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status=%d", w.Code)
	}
	// 2/min refills one token every 30s.
	if got := w.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("Retry-After = %q, want 30", got)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body["code"] != "rate_limited" || body["message"] != "rate limit exceeded" {
		t.Fatalf("body = %v", body)
	}

	if w := ask("7"); w.Code != http.StatusOK {
		t.Fatalf("other tenant must have its own bucket, status=%d", w.Code)
	}

	clk.advance(20 * time.Second)
	w = ask("42")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "10" {
		t.Fatalf("after 20s: status=%d retry=%q", w.Code, w.Header().Get("Retry-After"))
	}

	clk.advance(10 * time.Second)
	if w := ask("42"); w.Code != http.StatusOK {
		t.Fatalf("token should have refilled, status=%d", w.Code)
	}
}

func TestRateLimiter_ZeroRateRetryAfter(t *testing.T) {
	rl, _ := newClockedLimiter(NewRateLimiter(0, 1, KeyByUserOrIP()))
	ask := limitedRouter(rl)

	ask("1")
	w := ask("1")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "60" {
		t.Fatalf("status=%d retry=%q", w.Code, w.Header().Get("Retry-After"))
	}
}

func TestRateLimiter_ReplayBypass(t *testing.T) {
	rl, _ := newClockedLimiter(NewPerMinuteLimiter(1, KeyByUserOrIP()))
	replay := func(c *gin.Context) { c.Set(ctxKeyRateBypass, true); c.Next() }
	ask := limitedRouter(rl, replay)

	for i := 0; i < 3; i++ {
		if w := ask("42"); w.Code != http.StatusOK {
			t.Fatalf("replay %d limited: %d", i+1, w.Code)
		}
	}
	if n := len(rl.buckets); n != 0 {
		t.Fatalf("replays must not create buckets, got %d", n)
	}
}

func TestIsRateBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if IsRateBypass(c) {
		t.Fatalf("unset must read false")
	}
	c.Set(ctxKeyRateBypass, "yes")
	if IsRateBypass(c) {
		t.Fatalf("non-bool must read false")
	}
	c.Set(ctxKeyRateBypass, true)
	if !IsRateBypass(c) {
		t.Fatalf("expected bypass")
	}
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	rl, clk := newClockedLimiter(NewPerMinuteLimiter(1, KeyByUserOrIP()))

	first := rl.limiter("user:1", clk.now())
	if again := rl.limiter("user:1", clk.now()); again != first {
		t.Fatalf("bucket must be reused")
	}

	clk.advance(5 * time.Minute)
	rl.limiter("user:2", clk.now())
	if len(rl.buckets) != 2 {
		t.Fatalf("no sweep before idle TTL, got %d buckets", len(rl.buckets))
	}

	clk.advance(6 * time.Minute) // user:1 idle 11m, user:2 idle 6m
	rl.limiter("user:3", clk.now())
	if _, ok := rl.buckets["user:1"]; ok {
		t.Fatalf("idle bucket should be swept")
	}
	if _, ok := rl.buckets["user:2"]; !ok {
		t.Fatalf("recent bucket must survive")
	}

	// A swept key starts with a fresh, full bucket.
	if rl.limiter("user:1", clk.now()) == first {
		t.Fatalf("expected a new bucket for a swept key")
	}
}

package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// secured runs one GET through SecurityHeaders; prep may mutate the request
// and pre may set headers before the middleware runs.
func secured(opt SecurityOptions, prep func(*http.Request), pre func(*gin.Context)) http.Header {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if pre != nil {
		r.Use(func(c *gin.Context) { pre(c); c.Next() })
	}
	r.Use(SecurityHeaders(opt))
	r.GET("/api/v1/finance", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/finance", nil)
	if prep != nil {
		prep(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	h := secured(SecurityOptions{}, nil, nil)

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Fatalf("%s = %q, want %q", k, got, v)
		}
	}
	for _, k := range []string{
		"Permissions-Policy", "X-Permitted-Cross-Domain-Policies",
		"Cache-Control", "Pragma", "Expires",
		"Strict-Transport-Security", "Access-Control-Expose-Headers",
	} {
		if got := h.Get(k); got != "" {
			t.Fatalf("unexpected %s=%q", k, got)
		}
	}
}

func TestSecurityHeaders_CacheModes(t *testing.T) {
	cases := []struct {
		name   string
		opt    SecurityOptions
		cc     string
		pragma string
	}{
		{"chatbot reply", SecurityOptions{NoStore: true}, "no-store", "no-cache"},
		{"listing", SecurityOptions{Revalidate: true}, "private, no-cache", ""},
		{"no-store wins", SecurityOptions{NoStore: true, Revalidate: true}, "no-store", "no-cache"},
		{"none", SecurityOptions{}, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := secured(tc.opt, nil, nil)
			if got := h.Get("Cache-Control"); got != tc.cc {
				t.Fatalf("Cache-Control = %q, want %q", got, tc.cc)
			}
			if got := h.Get("Pragma"); got != tc.pragma {
				t.Fatalf("Pragma = %q, want %q", got, tc.pragma)
			}
		})
	}
}

func TestSecurityHeaders_Policy(t *testing.T) {
	h := secured(SecurityOptions{EnablePolicy: true}, nil, nil)
	if h.Get("Permissions-Policy") == "" || h.Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Fatalf("policy headers missing: %#v", h)
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	viaTLS := func(r *http.Request) { r.TLS = &tls.ConnectionState{} }
	viaProxy := func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "HTTPS") }

	cases := []struct {
		name string
		opt  SecurityOptions
		prep func(*http.Request)
		want string
	}{
		{"tls", SecurityOptions{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour}, viaTLS, "max-age=86400; includeSubDomains; preload"},
		{"proxy", SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour}, viaProxy, "max-age=3600; includeSubDomains; preload"},
		{"default max age", SecurityOptions{EnableHSTS: true}, viaTLS, "max-age=15552000; includeSubDomains; preload"},
		{"plain http", SecurityOptions{EnableHSTS: true}, nil, ""},
		{"disabled", SecurityOptions{}, viaTLS, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := secured(tc.opt, tc.prep, nil)
			if got := h.Get("Strict-Transport-Security"); got != tc.want {
				t.Fatalf("HSTS = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSecurityHeaders_ExposeHeaders(t *testing.T) {
	withRID := func(existing string) func(*gin.Context) {
		return func(c *gin.Context) {
			c.Header(requestIDHeader, "rid-1")
			if existing != "" {
				c.Header("Access-Control-Expose-Headers", existing)
			}
		}
	}

	cases := []struct {
		name   string
		expose []string
		pre    func(*gin.Context)
		want   string
	}{
		{"request id only", nil, withRID(""), "X-Request-ID"},
		{"appends to existing", nil, withRID("Content-Length"), "Content-Length, X-Request-ID"},
		{"no duplicate", nil, withRID("x-request-id, Content-Length"), "x-request-id, Content-Length"},
		{"router set", []string{"Retry-After", "ETag", " ", "etag", "Idempotency-Replayed"}, withRID(""),
			"X-Request-ID, Retry-After, ETag, Idempotency-Replayed"},
		{"substring is not a match", []string{"ETag"}, withRID("X-ETag-Source"), "X-ETag-Source, X-Request-ID, ETag"},
		{"no request id", []string{"Retry-After"}, nil, "Retry-After"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := secured(SecurityOptions{ExposeHeaders: tc.expose}, nil, tc.pre)
			if got := h.Get("Access-Control-Expose-Headers"); got != tc.want {
				t.Fatalf("expose = %q, want %q", got, tc.want)
			}
		})
	}
}

package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// defaultHSTSMaxAge applies when EnableHSTS is set without a max age.
const defaultHSTSMaxAge = 180 * 24 * time.Hour

const exposeHeadersKey = "Access-Control-Expose-Headers"

// SecurityOptions configures SecurityHeaders.
//
// NoStore is for chatbot replies: Cache-Control: no-store plus the legacy
// Pragma and Expires pair. Revalidate is for per-tenant listings that carry
// an ETag: Cache-Control: private, no-cache. NoStore wins when both are set.
//
// HSTS is sent only on HTTPS requests, directly or via X-Forwarded-Proto.
// Enable it only when the hop between proxy and app is HTTPS too.
type SecurityOptions struct {
	EnableHSTS    bool
	HSTSMaxAge    time.Duration
	NoStore       bool
	Revalidate    bool
	EnablePolicy  bool     // Permissions-Policy and X-Permitted-Cross-Domain-Policies
	ExposeHeaders []string // readable by browsers, in addition to X-Request-ID
}

// header is one fixed response header.
type header struct{ key, value string }

// staticHeaders resolves the headers that do not depend on the request.
func (o SecurityOptions) staticHeaders() []header {
	hs := []header{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
	}
	if o.EnablePolicy {
		hs = append(hs,
			header{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
			header{"X-Permitted-Cross-Domain-Policies", "none"},
		)
	}
	switch {
	case o.NoStore:
		hs = append(hs,
			header{"Cache-Control", "no-store"},
			header{"Pragma", "no-cache"},
			header{"Expires", "0"},
		)
	case o.Revalidate:
		hs = append(hs, header{"Cache-Control", "private, no-cache"})
	}
	return hs
}

// SecurityHeaders hardens JSON API responses. No CSP is sent; the API serves
// no HTML apart from swagger, which is mounted outside these groups.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	fixed := opt.staticHeaders()

	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := fmt.Sprintf("max-age=%d; includeSubDomains; preload", int64(maxAge/time.Second))

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, f := range fixed {
			h.Set(f.key, f.value)
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		if h.Get(requestIDHeader) != "" {
			exposeHeader(h, requestIDHeader)
		}
		for _, name := range opt.ExposeHeaders {
			exposeHeader(h, name)
		}
		c.Next()
	}
}

// exposeHeader adds name to Access-Control-Expose-Headers unless an entry
// with the same name (any case) is already listed.
func exposeHeader(h http.Header, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	cur := h.Get(exposeHeadersKey)
	if cur == "" {
		h.Set(exposeHeadersKey, name)
		return
	}
	for _, v := range strings.Split(cur, ",") {
		if strings.EqualFold(strings.TrimSpace(v), name) {
			return
		}
	}
	h.Set(exposeHeadersKey, cur+", "+name)
}

func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

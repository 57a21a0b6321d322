// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access log. It scrubs obvious
// PII from request metadata before emitting a single structured line per
// request. Bodies are never logged: chatbot questions routinely carry
// amounts, names and counterparties.
//
// Usage:
//
//	r := gin.New()
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-Api-Key"},
//	}))
package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders specifies extra HTTP header names whose values are replaced
// with "[REDACTED]". Matching is case-insensitive and merged with the
// built-in set (Authorization, Cookie, Set-Cookie, X-User-ID,
// Idempotency-Key).
type RedactOptions struct {
	MaskHeaders []string
}

var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// 13-19 digits, optionally grouped by spaces or dashes.
	cardRE = regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`)
	// Aadhaar: 12 digits in groups of four. Runs after cards, whose first
	// twelve digits look the same.
	aadhaarRE = regexp.MustCompile(`\b\d{4}[ -]?\d{4}[ -]?\d{4}\b`)
	// PAN: five letters, four digits, one letter.
	panRE = regexp.MustCompile(`\b[A-Z]{5}\d{4}[A-Z]\b`)
	// Digits-only so hex segments of ids are never matched.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// redactions run in order, loosest last.
var redactions = []struct {
	re   *regexp.Regexp
	mask string
}{
	{uuidRE, "[REDACTED:id]"},
	{emailRE, "[REDACTED:email]"},
	{cardRE, "[REDACTED:card]"},
	{aadhaarRE, "[REDACTED:aadhaar]"},
	{panRE, "[REDACTED:pan]"},
	{phoneRE, "[REDACTED:phone]"},
}

func redact(s string) string {
	for _, r := range redactions {
		if s == "" {
			break
		}
		s = r.re.ReplaceAllString(s, r.mask)
	}
	return s
}

// RedactingLogger logs method, route, scrubbed query and headers, status,
// size, latency and, when known, the tenant. Level is INFO, WARN for 4xx
// other than 429, and ERROR for 5xx.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization":   {},
		"cookie":          {},
		"set-cookie":      {},
		"x-user-id":       {},
		"idempotency-key": {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		safeQuery := redact(c.Request.URL.RawQuery)

		headers := zerolog.Dict()
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				headers.Str(k, "[REDACTED]")
				continue
			}
			headers.Str(k, redact(strings.Join(vv, ", ")))
		}

		c.Next()

		status := c.Writer.Status()
		reqID := c.Writer.Header().Get(requestIDHeader)
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}

		level := zerolog.InfoLevel
		switch {
		case status >= 500:
			level = zerolog.ErrorLevel
		case status == http.StatusTooManyRequests:
			// Throttling is expected traffic shaping; it has its own counter.
			level = zerolog.InfoLevel
		case status >= 400:
			level = zerolog.WarnLevel
		}

		ev := log.WithLevel(level).
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Dict("headers", headers)
		if id, ok := TenantFrom(c); ok {
			ev = ev.Int64("tenant_id", id)
		}
		ev.Msg("http_request")
	}
}

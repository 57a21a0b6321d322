// Package middleware: idempotent retries.
//
// A client that retries a chatbot create with the same Idempotency-Key must
// not insert a second record. IdempotencyValidator validates the key, stashes
// it, and asks a lookup whether a reply for (tenant, route, key) is stored.
// The handler serves the stored reply; the rate limiter lets it through.
// Keys on safe methods (GET, HEAD, OPTIONS) are ignored: reads are never
// stored.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client's idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

const defaultIdemKeyMaxLen = 200

var defaultIdemKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the key validated by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// IsReplay reports whether a stored reply exists for this request.
func IsReplay(c *gin.Context) bool {
	return c.GetBool(ctxKeyIdemReplay)
}

// IdempotencyOptions configures key validation.
type IdempotencyOptions struct {
	// MaxLen caps the key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters; defaults to ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether an unexpired reply is stored for
// (userID, scope, key) at now. Errors are logged and treated as a miss.
type IdempotencyLookup func(ctx context.Context, userID int64, scope, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator returns the middleware. It must run after Tenant():
// without a tenant nothing is looked up. An invalid key is a 400; a missing
// key or a safe method is a no-op.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultIdemKeyMaxLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemKeyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if uid, ok := TenantFrom(c); ok && lookup != nil {
			exists, err := lookup(c.Request.Context(), uid, IdempotencyScope(c), key, time.Now().UTC())
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			}
			if exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}

func isSafeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

// IdempotencyScope is the scope under which replies for this request are
// stored: the matched route pattern, or the raw path when unmatched.
func IdempotencyScope(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

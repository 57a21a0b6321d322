// Package middleware holds the Gin middleware of the chatbot API.
//
// Request correlation and logging live here. RequestID() assigns the
// X-Request-ID, Logger() puts a zerolog.Logger carrying it on both the Gin
// context and the request context (services log with zerolog.Ctx(ctx)), and
// Recovery() turns panics into the standard JSON 500. The access log itself
// is RedactingLogger's job.
//
// Order: RequestID(), RedactingLogger(), Logger(), Recovery().
package middleware

import (
	"net/http"
	"regexp"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key under which the request ID is stored.
	requestIDKey = "requestID"
	// requestIDHeader is the HTTP header used to propagate the correlation ID.
	requestIDHeader = "X-Request-ID"
	// loggerKey holds the request-scoped *zerolog.Logger.
	loggerKey = "logger"
	// maxRequestIDLength bounds client-supplied correlation ids.
	maxRequestIDLength = 128
)

// Client ids end up in logs and response headers, so only a safe alphabet
// is echoed.
var requestIDRE = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

// RequestID reuses a well-formed incoming X-Request-ID (at most 128 bytes of
// [A-Za-z0-9._:-]) or generates a UUIDv4, then echoes it on the response and
// stores it in the Gin context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if len(rid) > maxRequestIDLength || !requestIDRE.MatchString(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger attaches the request-scoped logger and reports handler errors.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			// Fallback when route not matched / 404.
			path = c.Request.URL.Path
		}

		l := log.With().
			Str("request_id", c.GetString(requestIDKey)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		attachLogger(c, &l)

		c.Next()

		if len(c.Errors) > 0 {
			LoggerFrom(c).Error().
				Int("status", c.Writer.Status()).
				Strs("errors", c.Errors.Errors()).
				Msg("request failed")
		}
	}
}

// attachLogger stores l in the Gin context and in the request context.
func attachLogger(c *gin.Context, l *zerolog.Logger) {
	c.Set(loggerKey, l)
	if c.Request != nil {
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
	}
}

// Recovery turns a panic into a 500. The panic and stack are logged through
// the request-scoped logger, so tenant and request id come along.
//
// If nothing was written yet the body is
// { "request_id": "...", "code": "internal_error", "message": "internal server error" }.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			httpPanics.Inc()
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			rid := c.GetString(requestIDKey)
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger.
//
// If none was attached, the global logger is returned, so callers never need
// a nil check.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

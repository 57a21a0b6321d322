// Package handlers provides HTTP handler implementations for the public API.
//
// Every error leaves through fail() as an ErrorResponse with a stable code.
// Chatbot failures that are part of a normal conversation (rejected SQL,
// generator outage, missing amount) are not HTTP errors: they are 200
// replies with success=false, so clients render them as chat messages.
//
//	HTTP/1.1 401 Unauthorized
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "unauthorized",
//	  "message": "missing or invalid X-User-ID"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-arth-chatbot/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
}

// fail aborts the request with an ErrorResponse. 5xx responses are logged at
// error level together with the last error attached via c.Error; 4xx only at
// debug.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}

	lg := middleware.LoggerFrom(c)
	ev := lg.Debug()
	if status >= http.StatusInternalServerError {
		ev = lg.Error()
		if last := c.Errors.Last(); last != nil {
			ev = ev.Err(last.Err)
		}
	}
	ev.Int("status", status).Str("code", code).Msg("api error")

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for router-level fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

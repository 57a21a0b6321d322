// Package middleware: tenant identification.
//
// Authentication happens upstream of this service. The gateway forwards the
// authenticated user's numeric id in X-User-ID; Tenant() parses it once and
// every downstream component reads it with TenantFrom.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderUserID carries the authenticated tenant id.
const HeaderUserID = "X-User-ID"

const ctxKeyTenant = "tenant.id"

// Tenant requires a positive integer X-User-ID header. Requests without one
// are rejected with 401. The tenant id is added to the request-scoped logger.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
		id, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "missing or invalid " + HeaderUserID,
			})
			return
		}
		c.Set(ctxKeyTenant, id)

		l := LoggerFrom(c).With().Int64("tenant_id", id).Logger()
		attachLogger(c, &l)

		c.Next()
	}
}

// TenantFrom returns the tenant id stored by Tenant().
func TenantFrom(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxKeyTenant)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}

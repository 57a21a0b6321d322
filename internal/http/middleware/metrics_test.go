package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func serve(r http.Handler, method, path string) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w.Code
}

func TestMetrics_CountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/finance/:id", func(c *gin.Context) { c.String(http.StatusOK, "hello") })
	r.GET("/statusonly", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	base := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/finance/:id", "200"))
	base404 := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedRoute, "404"))

	serve(r, http.MethodGet, "/finance/1")
	serve(r, http.MethodGet, "/finance/2")
	if code := serve(r, http.MethodGet, "/statusonly"); code != http.StatusNoContent {
		t.Fatalf("GET /statusonly -> %d", code)
	}
	if code := serve(r, http.MethodGet, "/users/42/secret"); code != http.StatusNotFound {
		t.Fatalf("GET unmatched -> %d", code)
	}

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/finance/:id", "200")); got != base+2 {
		t.Fatalf("route counter = %v; want %v", got, base+2)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedRoute, "404")); got != base404+1 {
		t.Fatalf("unmatched counter = %v; want %v", got, base404+1)
	}
	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inFlight)
	}
}

func TestMetrics_CountsThrottled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	rl := NewRateLimiter(0.0001, 1, func(*gin.Context) string { return "k" })
	r.POST("/chatbot/query", rl.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })

	base := testutil.ToFloat64(httpThrottled.WithLabelValues("/chatbot/query"))
	if code := serve(r, http.MethodPost, "/chatbot/query"); code != http.StatusOK {
		t.Fatalf("first = %d", code)
	}
	if code := serve(r, http.MethodPost, "/chatbot/query"); code != http.StatusTooManyRequests {
		t.Fatalf("second = %d", code)
	}
	if got := testutil.ToFloat64(httpThrottled.WithLabelValues("/chatbot/query")); got != base+1 {
		t.Fatalf("throttled = %v; want %v", got, base+1)
	}
}

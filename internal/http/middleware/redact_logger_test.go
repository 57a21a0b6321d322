package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedact(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"paging survives", "page=2&page_size=20", "page=2&page_size=20"},
		{"email", "to=a.b+tag@example.com", "to=[REDACTED:email]"},
		{"uuid", "key=123e4567-e89b-12d3-a456-426614174000", "key=[REDACTED:id]"},
		{"card", "card=4111 1111 1111 1111&x=1", "card=[REDACTED:card]&x=1"},
		{"aadhaar", "uid=2345-6789-0123", "uid=[REDACTED:aadhaar]"},
		{"pan", "pan=ABCDE1234F", "pan=[REDACTED:pan]"},
		{"phone", "call 555-123-4567", "call [REDACTED:phone]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := redact(tc.in); got != tc.want {
				t.Fatalf("redact(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRedactingLogger_ScrubsRequestMetadata(t *testing.T) {
	buf := captureLogger(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{MaskHeaders: []string{" X-Api-Key "}}))
	api := r.Group("/api/v1", Tenant())
	api.GET("/finance", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/finance?page=1&email=a@b.com&key=123e4567-e89b-12d3-a456-426614174000", nil)
	req.Header.Set(requestIDHeader, "rid-7")
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "sid=topsecret")
	req.Header.Set("X-Api-Key", "shhh")
	req.Header.Set(HeaderUserID, "42")
	req.Header.Set(HeaderIdempotencyKey, "k-1")
	req.Header.Set("X-Note", "pan ABCDE1234F phone 555-123-4567")
	r.ServeHTTP(httptest.NewRecorder(), req)

	lines := logLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("want one access line, got %s", buf.String())
	}
	l := lines[0]
	if l["message"] != "http_request" || l["level"] != "info" || l["path"] != "/api/v1/finance" ||
		l["request_id"] != "rid-7" || l["tenant_id"] != float64(42) || l["status"] != float64(200) {
		t.Fatalf("access line: %v", l)
	}
	if q := l["query"]; q != "page=1&email=[REDACTED:email]&key=[REDACTED:id]" {
		t.Fatalf("query = %v", q)
	}

	headers, _ := l["headers"].(map[string]any)
	for _, h := range []string{"Authorization", "Cookie", "X-Api-Key", "X-User-Id", "Idempotency-Key"} {
		if headers[h] != "[REDACTED]" {
			t.Fatalf("%s must be masked, got %v", h, headers[h])
		}
	}
	if headers["X-Note"] != "pan [REDACTED:pan] phone [REDACTED:phone]" {
		t.Fatalf("X-Note = %v", headers["X-Note"])
	}
	if strings.Contains(buf.String(), "topsecret") || strings.Contains(buf.String(), "ABCDE1234F") {
		t.Fatalf("secret leaked: %s", buf.String())
	}
}

func TestRedactingLogger_Levels(t *testing.T) {
	cases := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "info"},
		{http.StatusBadRequest, "warn"},
		{http.StatusUnauthorized, "warn"},
		{http.StatusTooManyRequests, "info"},
		{http.StatusInternalServerError, "error"},
		{http.StatusBadGateway, "error"},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			buf := captureLogger(t)
			gin.SetMode(gin.TestMode)
			r := gin.New()
			r.Use(RedactingLogger(RedactOptions{}))
			r.GET("/x", func(c *gin.Context) { c.Status(tc.status) })

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.Header.Set(requestIDHeader, "rid-in")
			r.ServeHTTP(httptest.NewRecorder(), req)

			l := logLines(t, buf)[0]
			if l["level"] != tc.level {
				t.Fatalf("level = %v, want %s", l["level"], tc.level)
			}
			// Without RequestID the incoming header is used.
			if l["request_id"] != "rid-in" {
				t.Fatalf("request_id = %v", l["request_id"])
			}
			if _, ok := l["tenant_id"]; ok {
				t.Fatalf("no tenant outside the API group")
			}
		})
	}
}

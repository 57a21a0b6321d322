package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestTenant_RejectsMissingOrInvalidHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(Tenant())
	r.GET("/me", func(c *gin.Context) {
		t.Fatalf("handler must not run")
	})

	for _, v := range []string{"", "abc", "0", "-3", "1.5", "99999999999999999999"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if v != "" {
			req.Header.Set(HeaderUserID, v)
		}
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%q: expected 401, got %d", v, w.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%q: invalid json: %v", v, err)
		}
		if body["code"] != "unauthorized" || body["request_id"] == "" {
			t.Fatalf("%q: unexpected body %v", v, body)
		}
	}
}

func TestTenant_SetsIDAndEnrichesLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger())
	r.Use(Tenant())
	r.GET("/me", func(c *gin.Context) {
		id, ok := TenantFrom(c)
		if !ok || id != 42 {
			t.Fatalf("TenantFrom = %d, %v", id, ok)
		}
		zerolog.Ctx(c.Request.Context()).Info().Msg("hello")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(HeaderUserID, " 42 ")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	out := buf.String()
	if !strings.Contains(out, `"tenant_id":42`) || !strings.Contains(out, `"request_id"`) {
		t.Fatalf("expected tenant-scoped log, got:\n%s", out)
	}
}

func TestTenantFrom_MissingOrWrongType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if _, ok := TenantFrom(c); ok {
		t.Fatalf("expected no tenant")
	}
	c.Set(ctxKeyTenant, "42")
	if _, ok := TenantFrom(c); ok {
		t.Fatalf("string tenant must be ignored")
	}
}

package config

import (
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	os.Unsetenv("PORT")
	os.Exit(m.Run())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("defaults must be valid: %v", err)
	}
	if cfg.Port != "8080" || cfg.APIBasePath != "/api/v1" || cfg.DBPath != "arth.db" || !cfg.GzipEnabled {
		t.Fatalf("server defaults: %+v", cfg)
	}
	if cfg.SQLGen != (SQLGenConfig{BaseURL: "http://localhost:8000", Timeout: 30 * time.Second, Dialect: "sqlite"}) {
		t.Fatalf("sqlgen defaults: %+v", cfg.SQLGen)
	}
	if cfg.Chatbot != (ChatbotConfig{RatePerMin: 10, MaxQueryLen: 500}) {
		t.Fatalf("chatbot defaults: %+v", cfg.Chatbot)
	}
	if cfg.Query != (QueryConfig{DefaultLimit: 100, MaxLimit: 1000, Timeout: 10 * time.Second}) {
		t.Fatalf("query defaults: %+v", cfg.Query)
	}
	if cfg.IdempotencyTTL != 24*time.Hour || cfg.OTEL.Enabled || cfg.OTEL.SampleRatio != 1 {
		t.Fatalf("ttl/otel defaults: %+v", cfg)
	}
	if cfg.CORS.AllowedOrigins != nil {
		t.Fatalf("no origins by default, got %#v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	env := map[string]string{
		"PORT":                        "8088",
		"READ_TIMEOUT":                "2s",
		"MAX_HEADER_BYTES":            "8192",
		"GIN_MODE":                    "weird",
		"LOG_LEVEL":                   "WARNING",
		"LOG_PRETTY":                  "yes",
		"SWAGGER_ENABLED":             "on",
		"GZIP_ENABLED":                "off",
		"API_BASE_PATH":               "api/v1/",
		"SQLGEN_BASE_URL":             "http://sqlgen:8000/",
		"SQLGEN_TIMEOUT":              "5s",
		"SQLGEN_DIALECT":              " MySQL ",
		"CHATBOT_RATE_PER_MIN":        "20",
		"CHATBOT_MAX_QUERY_LEN":       "300",
		"QUERY_DEFAULT_LIMIT":         "50",
		"QUERY_MAX_LIMIT":             "500",
		"QUERY_TIMEOUT":               "3s",
		"RATE_RPS":                    " 2.5 ",
		"CORS_ALLOWED_ORIGINS":        " https://a.com , , http://b ",
		"ENABLE_HSTS":                 "TRUE",
		"HSTS_MAX_AGE":                "24h",
		"IDEMPOTENCY_TTL":             "48h",
		"OTEL_ENABLED":                "1",
		"OTEL_EXPORTER_OTLP_INSECURE": "0",
		"OTEL_TRACES_SAMPLER_ARG":     "0.75",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8088" || cfg.ReadTimeout != 2*time.Second || cfg.MaxHeaderBytes != 8192 || cfg.GinMode != "release" {
		t.Fatalf("server: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.GzipEnabled || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("logging/docs: %+v", cfg)
	}
	if cfg.SQLGen != (SQLGenConfig{BaseURL: "http://sqlgen:8000", Timeout: 5 * time.Second, Dialect: "mysql"}) {
		t.Fatalf("sqlgen: %+v", cfg.SQLGen)
	}
	if cfg.Chatbot != (ChatbotConfig{RatePerMin: 20, MaxQueryLen: 300}) {
		t.Fatalf("chatbot: %+v", cfg.Chatbot)
	}
	if cfg.Query != (QueryConfig{DefaultLimit: 50, MaxLimit: 500, Timeout: 3 * time.Second}) {
		t.Fatalf("query: %+v", cfg.Query)
	}
	if cfg.RateRPS != 2.5 {
		t.Fatalf("rate rps: %v", cfg.RateRPS)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("origins: %#v", cfg.CORS.AllowedOrigins)
	}
	if cfg.Security != (SecurityConfig{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour}) {
		t.Fatalf("security: %+v", cfg.Security)
	}
	if cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("ttl: %v", cfg.IdempotencyTTL)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Insecure || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel: %+v", cfg.OTEL)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		key, val, want string
	}{
		{"LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"PORT", "   ", "PORT must not be empty"},
		{"READ_TIMEOUT", "0s", "timeouts must be positive"},
		{"MAX_HEADER_BYTES", "0", "MAX_HEADER_BYTES"},
		{"DB_PATH", "   ", "DB_PATH must not be empty"},
		{"SQLGEN_BASE_URL", "sqlgen:8000", "SQLGEN_BASE_URL"},
		{"SQLGEN_TIMEOUT", "0s", "SQLGEN_TIMEOUT"},
		{"SQLGEN_DIALECT", "oracle", "SQLGEN_DIALECT"},
		{"CHATBOT_RATE_PER_MIN", "0", "CHATBOT_RATE_PER_MIN"},
		{"CHATBOT_MAX_QUERY_LEN", "2", "CHATBOT_MAX_QUERY_LEN"},
		{"QUERY_MAX_LIMIT", "0", "QUERY_MAX_LIMIT must be > 0"},
		{"QUERY_DEFAULT_LIMIT", "2000", "must not exceed"},
		{"QUERY_TIMEOUT", "-1s", "QUERY_TIMEOUT"},
		{"RATE_RPS", "-1", "RATE_RPS"},
		{"RATE_BURST", "0", "RATE_BURST"},
		{"HSTS_MAX_AGE", "-1s", "HSTS_MAX_AGE"},
		{"IDEMPOTENCY_TTL", "0s", "IDEMPOTENCY_TTL"},
		{"OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG"},

		// Set but unparsable values are errors, not silent defaults.
		{"RATE_RPS", "fast", `RATE_RPS="fast"`},
		{"RATE_BURST", "nope", `RATE_BURST="nope"`},
		{"QUERY_TIMEOUT", "soon", `QUERY_TIMEOUT="soon"`},
		{"GZIP_ENABLED", "maybe", `GZIP_ENABLED="maybe": not a boolean`},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.val, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	t.Setenv("RATE_BURST", "x")
	t.Setenv("SQLGEN_DIALECT", "oracle")
	t.Setenv("IDEMPOTENCY_TTL", "0s")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"RATE_BURST", "SQLGEN_DIALECT", "IDEMPOTENCY_TTL"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("missing %s in %v", want, err)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config must validate: %v", err)
	}
	cfg.Query.MaxLimit = 10
	cfg.Query.DefaultLimit = 20
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "must not exceed") {
		t.Fatalf("want default>max error, got %v", err)
	}
}

func TestMustLoad(t *testing.T) {
	if cfg := MustLoad(); cfg.APIBasePath == "" {
		t.Fatalf("empty config from MustLoad")
	}

	t.Setenv("LOG_LEVEL", "verbose")
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !strings.Contains(err.Error(), "LOG_LEVEL") {
			t.Fatalf("MustLoad should panic with the load error, got %v", r)
		}
	}()
	_ = MustLoad()
}

func TestEnv_Readers(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	t.Setenv("X_BLANK", "  ")
	t.Setenv("X_INT", "42")
	t.Setenv("X_FLOAT", "3.14")
	t.Setenv("X_DUR", "150ms")

	var e env
	if e.str("X_EMPTY", "d") != "d" || e.integer("X_BLANK", 7) != 7 {
		t.Fatalf("empty values must fall back to defaults")
	}
	if e.integer("X_INT", 0) != 42 || e.float("X_FLOAT", 0) != 3.14 || e.duration("X_DUR", 0) != 150*time.Millisecond {
		t.Fatalf("typed parse failed")
	}
	if len(e.errs) != 0 {
		t.Fatalf("unexpected errors: %v", e.errs)
	}

	for _, v := range []string{"1", "TRUE", " yes ", "Y", "On"} {
		t.Setenv("X_BOOL", v)
		if !e.boolean("X_BOOL", false) {
			t.Fatalf("boolean(%q) = false", v)
		}
	}
	for _, v := range []string{"0", "FALSE", " no ", "N", "Off"} {
		t.Setenv("X_BOOL", v)
		if e.boolean("X_BOOL", true) {
			t.Fatalf("boolean(%q) = true", v)
		}
	}

	t.Setenv("X_INT", "4x")
	if e.integer("X_INT", 9) != 9 || len(e.errs) != 1 {
		t.Fatalf("bad int must keep default and record an error")
	}
	var numErr interface{ Unwrap() error }
	if !errors.As(e.errs[0], &numErr) {
		t.Fatalf("recorded error should wrap the parse error: %v", e.errs[0])
	}
}

func TestSplitCSV_NormalizeBasePath(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV(\"\") = %#v", out)
	}
	if got := splitCSV(" a, ,b ,  c  ,"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("splitCSV = %#v", got)
	}
	for in, want := range map[string]string{"": "/", " / ": "/", "v1": "/v1", "/v1/": "/v1", "api/v1//": "/api/v1"} {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}

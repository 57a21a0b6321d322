// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, rate limiting, the SQL
// generator connection, the read-query policy, and observability.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "arthbot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// SQLGenConfig points at the external SQL generation service.
type SQLGenConfig struct {
	BaseURL string        // SQLGEN_BASE_URL
	Timeout time.Duration // SQLGEN_TIMEOUT, bounds one generator call
	Dialect string        // SQLGEN_DIALECT: sqlite|mysql
}

// ChatbotConfig bounds chatbot input and per-tenant traffic.
type ChatbotConfig struct {
	RatePerMin  int // CHATBOT_RATE_PER_MIN, per tenant
	MaxQueryLen int // CHATBOT_MAX_QUERY_LEN, in characters
}

// QueryConfig is the LIMIT policy and deadline for validated read queries.
type QueryConfig struct {
	DefaultLimit int           // QUERY_DEFAULT_LIMIT
	MaxLimit     int           // QUERY_MAX_LIMIT
	Timeout      time.Duration // QUERY_TIMEOUT
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	GzipEnabled    bool   // gzip responses
	APIBasePath    string // base path for API routes

	// App
	DBPath string // SQLite path

	// Chatbot pipeline
	SQLGen  SQLGenConfig
	Chatbot ChatbotConfig
	Query   QueryConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults and
// normalizes values. Unparsable values and failed checks are all reported
// together in one joined error.
func Load() (Config, error) {
	var e env
	cfg := Config{
		Port:              e.str("PORT", "8080"),
		ReadTimeout:       e.duration("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: e.duration("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      e.duration("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       e.duration("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    e.integer("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(e.str("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(e.str("LOG_LEVEL", "info")),
		LogPretty:      e.boolean("LOG_PRETTY", false),
		SwaggerEnabled: e.boolean("SWAGGER_ENABLED", false),
		GzipEnabled:    e.boolean("GZIP_ENABLED", true),
		APIBasePath:    normalizeBasePath(e.str("API_BASE_PATH", "/api/v1")),

		DBPath: e.str("DB_PATH", "arth.db"),

		SQLGen: SQLGenConfig{
			BaseURL: strings.TrimRight(e.str("SQLGEN_BASE_URL", "http://localhost:8000"), "/"),
			Timeout: e.duration("SQLGEN_TIMEOUT", 30*time.Second),
			Dialect: strings.ToLower(strings.TrimSpace(e.str("SQLGEN_DIALECT", "sqlite"))),
		},
		Chatbot: ChatbotConfig{
			RatePerMin:  e.integer("CHATBOT_RATE_PER_MIN", 10),
			MaxQueryLen: e.integer("CHATBOT_MAX_QUERY_LEN", 500),
		},
		Query: QueryConfig{
			DefaultLimit: e.integer("QUERY_DEFAULT_LIMIT", 100),
			MaxLimit:     e.integer("QUERY_MAX_LIMIT", 1000),
			Timeout:      e.duration("QUERY_TIMEOUT", 10*time.Second),
		},

		RateRPS:   e.float("RATE_RPS", 5.0),
		RateBurst: e.integer("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(e.str("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: e.boolean("ENABLE_HSTS", false),
			HSTSMaxAge: e.duration("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: e.duration("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     e.boolean("OTEL_ENABLED", false),
			Endpoint:    e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    e.boolean("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: e.str("OTEL_SERVICE_NAME", "arthbot"),
			SampleRatio: e.float("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	return cfg, errors.Join(errors.Join(e.errs...), cfg.Validate())
}

// Validate checks ranges and cross-field rules, returning every violation.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		errs = append(errs, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic"))
	}
	check(strings.TrimSpace(c.Port) != "", "PORT must not be empty")
	check(c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0,
		"timeouts must be positive durations")
	check(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")
	check(strings.TrimSpace(c.DBPath) != "", "DB_PATH must not be empty")

	u, err := url.Parse(c.SQLGen.BaseURL)
	check(err == nil && u.IsAbs() && u.Host != "", "SQLGEN_BASE_URL must be an absolute URL")
	check(c.SQLGen.Timeout > 0, "SQLGEN_TIMEOUT must be > 0")
	check(c.SQLGen.Dialect == "sqlite" || c.SQLGen.Dialect == "mysql", "SQLGEN_DIALECT must be one of: sqlite, mysql")

	check(c.Chatbot.RatePerMin >= 1, "CHATBOT_RATE_PER_MIN must be >= 1")
	check(c.Chatbot.MaxQueryLen >= 3, "CHATBOT_MAX_QUERY_LEN must be >= 3")

	if c.Query.DefaultLimit <= 0 || c.Query.MaxLimit <= 0 {
		errs = append(errs, errors.New("QUERY_DEFAULT_LIMIT and QUERY_MAX_LIMIT must be > 0"))
	} else {
		check(c.Query.DefaultLimit <= c.Query.MaxLimit, "QUERY_DEFAULT_LIMIT must not exceed QUERY_MAX_LIMIT")
	}
	check(c.Query.Timeout > 0, "QUERY_TIMEOUT must be > 0")

	check(c.RateRPS >= 0, "RATE_RPS must be >= 0")
	check(c.RateBurst >= 1, "RATE_BURST must be >= 1")
	check(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(c.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")
	check(c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	return errors.Join(errs...)
}

// env reads typed variables, falling back to the default when a variable is
// unset or empty. A set but unparsable value is recorded in errs.
type env struct {
	errs []error
}

func (e *env) lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func (e *env) fail(k, v string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q: %w", k, v, err))
}

func (e *env) str(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func (e *env) integer(k string, def int) int {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.fail(k, v, err)
		return def
	}
	return i
}

func (e *env) float(k string, def float64) float64 {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		e.fail(k, v, err)
		return def
	}
	return f
}

func (e *env) duration(k string, def time.Duration) time.Duration {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		e.fail(k, v, err)
		return def
	}
	return d
}

func (e *env) boolean(k string, def bool) bool {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	e.fail(k, v, errors.New("not a boolean"))
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures a leading '/' and strips trailing ones (except root).
func normalizeBasePath(p string) string {
	return "/" + strings.Trim(strings.TrimSpace(p), "/")
}

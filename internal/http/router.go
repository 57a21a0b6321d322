// Package httpapi wires the HTTP transport (Gin) to the chatbot services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, tenant identification, idempotency, and rate
// limiting.
package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-arth-chatbot/internal/config"
	"github.com/tbourn/go-arth-chatbot/internal/http/handlers"
	"github.com/tbourn/go-arth-chatbot/internal/http/middleware"
	"github.com/tbourn/go-arth-chatbot/internal/repo"
	"github.com/tbourn/go-arth-chatbot/internal/services"
	"github.com/tbourn/go-arth-chatbot/internal/slots"
	"github.com/tbourn/go-arth-chatbot/internal/sqlgen"
	"github.com/tbourn/go-arth-chatbot/internal/sqlguard"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and builds the chatbot pipeline from db, gen and cfg.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: access logs with PII scrubbing
//  4. Logger: request-scoped logger for handlers and services
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Metrics
//  8. Gzip (optional)
//  9. Global rate limiter (per IP)
//  10. CORS and Security headers
//
// The API group adds Tenant, the idempotency validator (before the chatbot
// limiter so replays bypass it), and a per-tenant limiter on the query route.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, gen services.Generator, cfg config.Config) error {
	r.HandleMethodNotAllowed = true

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	dialect, ok := sqlgen.ParseDialect(cfg.SQLGen.Dialect)
	if !ok {
		return fmt.Errorf("unknown SQL dialect %q", cfg.SQLGen.Dialect)
	}
	policy := sqlguard.DefaultPolicy()
	if cfg.Query.DefaultLimit > 0 {
		policy.DefaultLimit = cfg.Query.DefaultLimit
	}
	if cfg.Query.MaxLimit > 0 {
		policy.MaxLimit = cfg.Query.MaxLimit
	}
	validator, err := sqlguard.New(policy)
	if err != nil {
		return fmt.Errorf("query policy: %w", err)
	}

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Access logs with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Request-scoped logger
	r.Use(middleware.Logger())

	// 5) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 6) Global body size limit (64 KiB is far above a 500-char query)
	r.Use(limitBody(64 << 10))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Compression
	if cfg.GzipEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	}

	// 9) Token-bucket rate limiter per IP (tenant is not known yet)
	if cfg.RateRPS > 0 {
		rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
		r.Use(rl.Handler())
	}

	// 10) CORS posture (allow all if none configured)
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Retry-After", "ETag", "Idempotency-Replayed"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		corsCfg.AllowAllOrigins = true
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:    cfg.Security.EnableHSTS,
		HSTSMaxAge:    cfg.Security.HSTSMaxAge,
		EnablePolicy:  true,
		ExposeHeaders: []string{"Retry-After", "ETag"},
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/generator
	bot := &services.ChatbotService{
		Extractor:     slots.New(nil),
		Finance:       &services.FinanceService{DB: db},
		Tasks:         &services.TaskService{DB: db},
		Generator:     gen,
		Validator:     validator,
		Runner:        repo.NewQueryRunner(sqlDB, cfg.Query.Timeout),
		DB:            sqlDB,
		Dialect:       dialect,
		MaxQueryRunes: cfg.Chatbot.MaxQueryLen,
	}
	records := &services.RecordService{DB: db}
	idem := &services.IdempotencyService{DB: db, TTL: cfg.IdempotencyTTL}

	h := handlers.New(bot, records, idem)
	if cfg.Chatbot.MaxQueryLen > 0 {
		h.MaxQueryRunes = cfg.Chatbot.MaxQueryLen
	}

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath) // e.g. "/api/v1"
	api.Use(
		middleware.Tenant(),
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, idem.Exists),
	)
	{
		chat := api.Group("/chatbot", middleware.SecurityHeaders(middleware.SecurityOptions{NoStore: true}))
		chatbotRL := middleware.NewPerMinuteLimiter(cfg.Chatbot.RatePerMin, middleware.KeyByUserOrIP())
		chat.POST("/query", chatbotRL.Handler(), h.Query)
		chat.GET("/health", h.Health)

		// Listings carry an ETag, so let clients keep them and revalidate.
		records := api.Group("", middleware.SecurityHeaders(middleware.SecurityOptions{Revalidate: true}))
		records.GET("/finance", h.ListFinance)
		records.GET("/tasks", h.ListTasks)
	}
	return nil
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
